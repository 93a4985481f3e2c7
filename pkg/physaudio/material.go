// Package physaudio synthesizes impact sounds from physics data. Sounds are
// generated as sums of decaying sinusoid modes convolved with a half-sine
// force profile, following Traer, Cusimano and McDermott, "A Perceptually
// Inspired Generative Model of Rigid-Body Contact Sounds" (DAFx 2019).
package physaudio

import "fmt"

// Material is an acoustic material.
type Material int

// The supported acoustic materials. The zero value is not a material.
const (
	Ceramic Material = iota + 1
	WoodHard
	WoodMedium
	WoodSoft
	Metal
	Glass
	Paper
	Cardboard
	Leather
	Fabric
	PlasticHard
	PlasticSoftFoam
	Rubber
	Stone
)

var materialNames = map[Material]string{
	Ceramic:         "ceramic",
	WoodHard:        "wood_hard",
	WoodMedium:      "wood_medium",
	WoodSoft:        "wood_soft",
	Metal:           "metal",
	Glass:           "glass",
	Paper:           "paper",
	Cardboard:       "cardboard",
	Leather:         "leather",
	Fabric:          "fabric",
	PlasticHard:     "plastic_hard",
	PlasticSoftFoam: "plastic_soft_foam",
	Rubber:          "rubber",
	Stone:           "stone",
}

// Materials returns every material in declaration order.
func Materials() []Material {
	out := make([]Material, 0, len(materialNames))
	for m := Ceramic; m <= Stone; m++ {
		out = append(out, m)
	}
	return out
}

func (m Material) String() string {
	if name, ok := materialNames[m]; ok {
		return name
	}
	return fmt.Sprintf("material(%d)", int(m))
}

// ParseMaterial resolves a material name like "wood_medium".
func ParseMaterial(name string) (Material, error) {
	for m, n := range materialNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown audio material %q", name)
}

// MaxSize is the largest size bucket. Buckets run from 0 (smallest) to 5.
const MaxSize = 5

// SizedMaterial pairs a material with a size bucket. Each pairing has its
// own resonant mode template.
type SizedMaterial struct {
	Material Material
	Size     int
}

func (s SizedMaterial) String() string {
	return fmt.Sprintf("%s_%d", s.Material, s.Size)
}

// ParseSizedMaterial resolves a label like "wood_medium_3".
func ParseSizedMaterial(label string) (SizedMaterial, error) {
	for m, n := range materialNames {
		for size := 0; size <= MaxSize; size++ {
			if fmt.Sprintf("%s_%d", n, size) == label {
				return SizedMaterial{Material: m, Size: size}, nil
			}
		}
	}
	return SizedMaterial{}, fmt.Errorf("unknown sized material %q", label)
}
