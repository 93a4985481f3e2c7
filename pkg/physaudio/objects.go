package physaudio

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Default audio properties for objects without a database entry.
const (
	DefaultAmp       = 0.2
	DefaultResonance = 0.45
	DefaultSize      = 1
)

// DefaultMaterial for objects without a database entry.
const DefaultMaterial = PlasticHard

// Robot joints are assumed to be bouncy metal.
const (
	RobotJointBounciness = 0.6
	RobotJointMaterial   = Metal
)

// Floor audio properties.
const (
	FloorAmp  = 0.5
	FloorSize = 4
	FloorMass = 100
)

//go:embed objects.csv
var objectsCSV []byte

// ObjectAudio is the static audio profile of one object.
type ObjectAudio struct {
	Name       string
	ObjectID   int32
	Amp        float64
	Mass       float64
	Material   Material
	Bounciness float64
	Resonance  float64
	Size       int
	Library    string
}

// SizedMaterial returns the object's material and size bucket.
func (o *ObjectAudio) SizedMaterial() SizedMaterial {
	return SizedMaterial{Material: o.Material, Size: o.Size}
}

// DefaultObjectAudio returns the built-in audio database keyed by model
// name.
func DefaultObjectAudio() (map[string]*ObjectAudio, error) {
	return ReadObjectAudio(bytes.NewReader(objectsCSV))
}

// ReadObjectAudio parses an audio database in CSV form. The expected header
// is name,amp,mass,material,bounciness,resonance,size,library.
func ReadObjectAudio(r io.Reader) (map[string]*ObjectAudio, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, want := range []string{"name", "amp", "mass", "material", "bounciness", "resonance", "size"} {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("missing column %q", want)
		}
	}

	objects := make(map[string]*ObjectAudio)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		o := &ObjectAudio{Name: row[col["name"]]}
		if o.Amp, err = strconv.ParseFloat(row[col["amp"]], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad amp: %w", line, err)
		}
		if o.Mass, err = strconv.ParseFloat(row[col["mass"]], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad mass: %w", line, err)
		}
		if o.Material, err = ParseMaterial(row[col["material"]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if o.Bounciness, err = strconv.ParseFloat(row[col["bounciness"]], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad bounciness: %w", line, err)
		}
		if o.Resonance, err = strconv.ParseFloat(row[col["resonance"]], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad resonance: %w", line, err)
		}
		if o.Size, err = strconv.Atoi(row[col["size"]]); err != nil {
			return nil, fmt.Errorf("line %d: bad size: %w", line, err)
		}
		if o.Size < 0 || o.Size > MaxSize {
			return nil, fmt.Errorf("line %d: size %d out of range", line, o.Size)
		}
		if i, ok := col["library"]; ok {
			o.Library = row[i]
		}
		objects[o.Name] = o
	}
	return objects, nil
}

// deriveObjectAudio invents a profile for an object missing from the
// database by averaging its category peers, falling back to objects of
// comparable mass, then to the defaults.
func deriveObjectAudio(name string, objectID int32, mass, bounciness float64, category string, categories map[int32]string, known map[int32]*ObjectAudio) *ObjectAudio {
	var peers []*ObjectAudio
	for id, cat := range categories {
		if cat != category || category == "" {
			continue
		}
		if o, ok := known[id]; ok {
			peers = append(peers, o)
		}
	}
	if len(peers) == 0 {
		for id, o := range known {
			if id == objectID || o.Mass == 0 {
				continue
			}
			if math.Abs(o.Mass/mass) < 1.5 {
				peers = append(peers, o)
			}
		}
	}

	derived := &ObjectAudio{
		Name:       name,
		ObjectID:   objectID,
		Mass:       mass,
		Bounciness: bounciness,
		Amp:        DefaultAmp,
		Material:   DefaultMaterial,
		Resonance:  DefaultResonance,
		Size:       DefaultSize,
	}
	if len(peers) == 0 {
		return derived
	}

	var amp, resonance float64
	var size int
	materialVotes := make(map[Material]int)
	for _, p := range peers {
		amp += p.Amp
		resonance += p.Resonance
		size += p.Size
		materialVotes[p.Material]++
	}
	derived.Amp = amp / float64(len(peers))
	derived.Resonance = resonance / float64(len(peers))
	derived.Size = size / len(peers)
	best := -1
	for m, votes := range materialVotes {
		if votes > best {
			best = votes
			derived.Material = m
		}
	}
	return derived
}
