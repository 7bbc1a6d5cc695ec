package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/geometry"
	"github.com/df07/go-scanline-raytracer/pkg/material"
)

// ErrUnknownType is returned when a surface or material has a type the codec
// does not know how to encode or decode.
var ErrUnknownType = errors.New("unknown type")

// ErrInvalidValue is returned when a decoded field would make a surface or
// material degenerate, such as a zero radius.
var ErrInvalidValue = errors.New("invalid value")

// Type tags used in the JSON representation
const (
	typeSphere     = "sphere"
	typeList       = "list"
	typeBVH        = "bvh"
	typeLambertian = "lambertian"
	typeMetal      = "metal"
	typeDielectric = "dielectric"
)

type document struct {
	Name   string                `json:"name,omitempty"`
	Camera geometry.CameraConfig `json:"camera"`
	World  json.RawMessage       `json:"world"`
}

type typeProbe struct {
	Type string `json:"type"`
}

type sphereJSON struct {
	Type     string          `json:"type"`
	Center   core.Vec3       `json:"center"`
	Velocity *core.Vec3      `json:"velocity,omitempty"`
	Radius   float64         `json:"radius"`
	Material json.RawMessage `json:"material"`
}

type listJSON struct {
	Type    string            `json:"type"`
	Objects []json.RawMessage `json:"objects"`
}

type bvhJSON struct {
	Type  string          `json:"type"`
	Left  json.RawMessage `json:"left"`
	Right json.RawMessage `json:"right"`
}

type lambertianJSON struct {
	Type   string    `json:"type"`
	Albedo core.Vec3 `json:"albedo"`
}

type metalJSON struct {
	Type   string    `json:"type"`
	Albedo core.Vec3 `json:"albedo"`
	Fuzz   float64   `json:"fuzz"`
}

type dielectricJSON struct {
	Type            string  `json:"type"`
	RefractiveIndex float64 `json:"refractiveIndex"`
}

// Encode serializes a scene, preserving the exact structure of its world
func Encode(s *Scene) ([]byte, error) {
	world, err := encodeSurface(s.World)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	return json.Marshal(document{Name: s.Name, Camera: s.Camera, World: world})
}

// Decode rebuilds a scene from Encode's output. Materials that encode
// identically are shared by every surface that uses them.
func Decode(data []byte) (*Scene, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if len(doc.World) == 0 {
		return nil, errors.New("decode scene: missing world")
	}

	world, err := newDecoder().surface(doc.World, "world")
	if err != nil {
		return nil, err
	}
	return &Scene{Name: doc.Name, Camera: doc.Camera, World: world}, nil
}

// EncodeSurface serializes a single surface tree
func EncodeSurface(surface geometry.Surface) ([]byte, error) {
	return encodeSurface(surface)
}

// DecodeSurface rebuilds a surface tree from EncodeSurface's output
func DecodeSurface(data []byte) (geometry.Surface, error) {
	return newDecoder().surface(data, "surface")
}

// Load reads a scene from a JSON file
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	sc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return sc, nil
}

// Save writes a scene to a JSON file
func Save(path string, sc *Scene) error {
	data, err := Encode(sc)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	indented.WriteByte('\n')

	if err := os.WriteFile(path, indented.Bytes(), 0o644); err != nil {
		return fmt.Errorf("create scene: %w", err)
	}
	return nil
}

func encodeSurface(surface geometry.Surface) (json.RawMessage, error) {
	switch s := surface.(type) {
	case *geometry.Sphere:
		mat, err := encodeMaterial(s.Material)
		if err != nil {
			return nil, fmt.Errorf("material: %w", err)
		}
		out := sphereJSON{Type: typeSphere, Center: s.Center0, Radius: s.Radius, Material: mat}
		if s.IsMoving() {
			velocity := s.Velocity
			out.Velocity = &velocity
		}
		return json.Marshal(out)

	case *geometry.List:
		out := listJSON{Type: typeList, Objects: make([]json.RawMessage, 0, len(s.Objects))}
		for i, child := range s.Objects {
			raw, err := encodeSurface(child)
			if err != nil {
				return nil, fmt.Errorf("objects[%d]: %w", i, err)
			}
			out.Objects = append(out.Objects, raw)
		}
		return json.Marshal(out)

	case *geometry.BVHNode:
		if s == nil {
			// An empty hierarchy hits nothing, as does an empty list
			return json.Marshal(listJSON{Type: typeList, Objects: []json.RawMessage{}})
		}
		left, err := encodeSurface(s.Left)
		if err != nil {
			return nil, fmt.Errorf("left: %w", err)
		}
		right, err := encodeSurface(s.Right)
		if err != nil {
			return nil, fmt.Errorf("right: %w", err)
		}
		return json.Marshal(bvhJSON{Type: typeBVH, Left: left, Right: right})

	default:
		return nil, fmt.Errorf("%w: surface %T", ErrUnknownType, surface)
	}
}

func encodeMaterial(mat material.Material) (json.RawMessage, error) {
	switch m := mat.(type) {
	case *material.Lambertian:
		return json.Marshal(lambertianJSON{Type: typeLambertian, Albedo: m.Albedo})
	case *material.Metal:
		return json.Marshal(metalJSON{Type: typeMetal, Albedo: m.Albedo, Fuzz: m.Fuzz})
	case *material.Dielectric:
		return json.Marshal(dielectricJSON{Type: typeDielectric, RefractiveIndex: m.RefractiveIndex})
	default:
		return nil, fmt.Errorf("%w: material %T", ErrUnknownType, mat)
	}
}

// decoder carries the material intern table for one decode
type decoder struct {
	materials map[string]material.Material
}

func newDecoder() *decoder {
	return &decoder{materials: make(map[string]material.Material)}
}

func (d *decoder) surface(data json.RawMessage, path string) (geometry.Surface, error) {
	var probe typeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	switch probe.Type {
	case typeSphere:
		var in sphereJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(in.Material) == 0 {
			return nil, fmt.Errorf("%s: sphere has no material", path)
		}
		if in.Radius == 0 || math.IsNaN(in.Radius) || math.IsInf(in.Radius, 0) {
			return nil, fmt.Errorf("%s: %w: radius %v", path, ErrInvalidValue, in.Radius)
		}
		mat, err := d.material(in.Material, path+".material")
		if err != nil {
			return nil, err
		}
		var velocity core.Vec3
		if in.Velocity != nil {
			velocity = *in.Velocity
		}
		return geometry.NewSphereWithVelocity(in.Center, velocity, in.Radius, mat), nil

	case typeList:
		var in listJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		list := geometry.NewList()
		for i, raw := range in.Objects {
			child, err := d.surface(raw, fmt.Sprintf("%s.objects[%d]", path, i))
			if err != nil {
				return nil, err
			}
			list.Add(child)
		}
		return list, nil

	case typeBVH:
		var in bvhJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(in.Left) == 0 || len(in.Right) == 0 {
			return nil, fmt.Errorf("%s: bvh node needs both children", path)
		}
		left, err := d.surface(in.Left, path+".left")
		if err != nil {
			return nil, err
		}
		// A single-object node stores the same surface twice
		if bytes.Equal(in.Left, in.Right) {
			return geometry.NewBVHNodeFromChildren(left, left), nil
		}
		right, err := d.surface(in.Right, path+".right")
		if err != nil {
			return nil, err
		}
		return geometry.NewBVHNodeFromChildren(left, right), nil

	default:
		return nil, fmt.Errorf("%s: %w: surface %q", path, ErrUnknownType, probe.Type)
	}
}

func (d *decoder) material(data json.RawMessage, path string) (material.Material, error) {
	var key bytes.Buffer
	if err := json.Compact(&key, data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if mat, ok := d.materials[key.String()]; ok {
		return mat, nil
	}

	var probe typeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var mat material.Material
	switch probe.Type {
	case typeLambertian:
		var in lambertianJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		mat = material.NewLambertian(in.Albedo)
	case typeMetal:
		var in metalJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		mat = material.NewMetal(in.Albedo, in.Fuzz)
	case typeDielectric:
		var in dielectricJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if !(in.RefractiveIndex > 0) || math.IsInf(in.RefractiveIndex, 0) {
			return nil, fmt.Errorf("%s: %w: refractiveIndex %v", path, ErrInvalidValue, in.RefractiveIndex)
		}
		mat = material.NewDielectric(in.RefractiveIndex)
	default:
		return nil, fmt.Errorf("%s: %w: material %q", path, ErrUnknownType, probe.Type)
	}

	d.materials[key.String()] = mat
	return mat, nil
}
