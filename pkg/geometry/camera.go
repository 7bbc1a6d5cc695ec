package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-scanline-raytracer/pkg/core"
)

// CameraConfig contains all parameters needed to set up a camera
type CameraConfig struct {
	Width           int       `json:"width"`           // Image width in pixels
	Height          int       `json:"height"`          // Image height in pixels
	LookFrom        core.Vec3 `json:"lookFrom"`        // Camera position
	LookAt          core.Vec3 `json:"lookAt"`          // Point the camera is looking at
	Up              core.Vec3 `json:"up"`              // Up direction (usually 0,1,0)
	VFov            float64   `json:"vfov"`            // Vertical field of view in degrees
	SamplesPerPixel int       `json:"samplesPerPixel"` // Rays per pixel
	MaxDepth        int       `json:"maxDepth"`        // Maximum ray bounce depth
	DefocusAngle    float64   `json:"defocusAngle"`    // Aperture cone angle in degrees (0 = pinhole)
	FocusDistance   float64   `json:"focusDistance"`   // Distance to the focal plane (0 = distance to LookAt)
}

// MergeCameraConfig returns base with every non-zero field of override applied
func MergeCameraConfig(base, override CameraConfig) CameraConfig {
	result := base

	if override.Width != 0 {
		result.Width = override.Width
	}
	if override.Height != 0 {
		result.Height = override.Height
	}
	if override.LookFrom != (core.Vec3{}) {
		result.LookFrom = override.LookFrom
	}
	if override.LookAt != (core.Vec3{}) {
		result.LookAt = override.LookAt
	}
	if override.Up != (core.Vec3{}) {
		result.Up = override.Up
	}
	if override.VFov != 0 {
		result.VFov = override.VFov
	}
	if override.SamplesPerPixel != 0 {
		result.SamplesPerPixel = override.SamplesPerPixel
	}
	if override.MaxDepth != 0 {
		result.MaxDepth = override.MaxDepth
	}
	if override.DefocusAngle != 0 {
		result.DefocusAngle = override.DefocusAngle
	}
	if override.FocusDistance != 0 {
		result.FocusDistance = override.FocusDistance
	}

	return result
}

// Validate reports the first problem that would make the camera unusable
func (c CameraConfig) Validate() error {
	switch {
	case c.Width < 1 || c.Height < 1:
		return fmt.Errorf("image size must be at least 1x1, got %dx%d", c.Width, c.Height)
	case c.SamplesPerPixel < 1:
		return fmt.Errorf("samples per pixel must be at least 1, got %d", c.SamplesPerPixel)
	case c.MaxDepth < 1:
		return fmt.Errorf("max depth must be at least 1, got %d", c.MaxDepth)
	case c.VFov <= 0 || c.VFov >= 180:
		return fmt.Errorf("vertical field of view must be in (0, 180), got %f", c.VFov)
	case c.DefocusAngle < 0:
		return fmt.Errorf("defocus angle must not be negative, got %f", c.DefocusAngle)
	case !c.LookFrom.IsFinite() || !c.LookAt.IsFinite() || !c.Up.IsFinite():
		return errors.New("lookFrom, lookAt and up must be finite")
	case math.IsNaN(c.FocusDistance) || math.IsInf(c.FocusDistance, 0):
		return fmt.Errorf("focus distance must be finite, got %f", c.FocusDistance)
	case c.LookFrom == c.LookAt:
		return errors.New("lookFrom and lookAt must differ")
	case c.Up.Cross(c.LookFrom.Subtract(c.LookAt)).NearZero():
		return errors.New("up vector must not be parallel to the view direction")
	}
	return nil
}

// Camera generates rays for rendering. All fields are derived once at
// construction and never change, so a camera can be shared across workers.
type Camera struct {
	config       CameraConfig
	center       core.Vec3
	pixel00      core.Vec3 // Center of pixel (0,0), the top-left pixel
	pixelDeltaU  core.Vec3 // Offset to the pixel to the right
	pixelDeltaV  core.Vec3 // Offset to the pixel below
	u, v, w      core.Vec3 // Camera frame basis vectors
	defocusDiskU core.Vec3
	defocusDiskV core.Vec3
}

// NewCamera creates a camera from the given configuration
func NewCamera(config CameraConfig) (*Camera, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid camera config: %w", err)
	}

	focusDistance := config.FocusDistance
	if focusDistance <= 0 {
		focusDistance = config.LookFrom.Subtract(config.LookAt).Length()
	}

	theta := core.DegreesToRadians(config.VFov)
	h := math.Tan(theta / 2)
	viewportHeight := 2 * h * focusDistance
	viewportWidth := viewportHeight * float64(config.Width) / float64(config.Height)

	w := config.LookFrom.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	// Image rows run top to bottom, so the vertical edge vector points down
	viewportU := u.Multiply(viewportWidth)
	viewportV := v.Negate().Multiply(viewportHeight)

	pixelDeltaU := viewportU.Divide(float64(config.Width))
	pixelDeltaV := viewportV.Divide(float64(config.Height))

	viewportUpperLeft := config.LookFrom.
		Subtract(w.Multiply(focusDistance)).
		Subtract(viewportU.Multiply(0.5)).
		Subtract(viewportV.Multiply(0.5))
	pixel00 := viewportUpperLeft.Add(pixelDeltaU.Add(pixelDeltaV).Multiply(0.5))

	defocusRadius := focusDistance * math.Tan(core.DegreesToRadians(config.DefocusAngle/2))

	return &Camera{
		config:       config,
		center:       config.LookFrom,
		pixel00:      pixel00,
		pixelDeltaU:  pixelDeltaU,
		pixelDeltaV:  pixelDeltaV,
		u:            u,
		v:            v,
		w:            w,
		defocusDiskU: u.Multiply(defocusRadius),
		defocusDiskV: v.Multiply(defocusRadius),
	}, nil
}

// Config returns the configuration the camera was built from
func (c *Camera) Config() CameraConfig {
	return c.config
}

// GetRay returns a ray through a random point inside pixel (x, y), starting
// on the defocus disk and at a random time in [0,1)
func (c *Camera) GetRay(x, y int, sampler core.Sampler) core.Ray {
	offset := sampler.Get2D()
	pixelSample := c.pixel00.
		Add(c.pixelDeltaU.Multiply(float64(x) + offset.X - 0.5)).
		Add(c.pixelDeltaV.Multiply(float64(y) + offset.Y - 0.5))

	origin := c.center
	if c.config.DefocusAngle > 0 {
		origin = c.defocusDiskSample(sampler)
	}

	return core.NewRayAtTime(origin, pixelSample.Subtract(origin), sampler.Get1D())
}

// defocusDiskSample returns a random point on the camera's defocus disk
func (c *Camera) defocusDiskSample(sampler core.Sampler) core.Vec3 {
	p := core.RandomInUnitDisk(sampler)
	return c.center.Add(c.defocusDiskU.Multiply(p.X)).Add(c.defocusDiskV.Multiply(p.Y))
}
