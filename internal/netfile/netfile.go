// Package netfile builds road networks from YAML definitions.
package netfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/geom"
	"github.com/ukydev/traffic-sim/internal/roadnet"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoRoads         = errors.New("network has no roads")
	ErrDuplicateRoad   = errors.New("duplicate road name")
	ErrUnknownRoadName = errors.New("unknown road name")
)

// Definition is the YAML document.
type Definition struct {
	Settings      *SettingsDef      `yaml:"settings,omitempty"`
	Roads         []RoadDef         `yaml:"roads"`
	Intersections []IntersectionDef `yaml:"intersections,omitempty"`
	// AutoConnect discovers intersections where road polylines cross. It
	// defaults to on only when no intersections are listed.
	AutoConnect *bool `yaml:"auto_connect,omitempty"`
}

// SettingsDef overrides individual network settings.
type SettingsDef struct {
	InteractionDistance     *float64 `yaml:"interaction_distance,omitempty"`
	SampleDistance          *float64 `yaml:"sample_distance,omitempty"`
	EntranceTraversalFactor *float64 `yaml:"entrance_traversal_factor,omitempty"`
}

// RoadDef is one road as a polyline of x, y, z points.
type RoadDef struct {
	Name   string       `yaml:"name"`
	Points [][3]float64 `yaml:"points"`
}

// IntersectionDef joins two named roads at the given offsets.
type IntersectionDef struct {
	Roads   [2]string  `yaml:"roads"`
	Offsets [2]float64 `yaml:"offsets"`
}

// Load reads and builds the network at path.
func Load(path string, base roadnet.Settings) (*roadnet.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}
	n, err := Parse(data, base)
	if err != nil {
		return nil, fmt.Errorf("load network %s: %w", path, err)
	}
	return n, nil
}

// Parse builds a network from a YAML document. Settings missing from the
// document are taken from base.
func Parse(data []byte, base roadnet.Settings) (*roadnet.Network, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return def.Build(base)
}

// Build creates the roads, then the listed intersections, then the
// discovered crossings when auto-connect is on.
func (d Definition) Build(base roadnet.Settings) (*roadnet.Network, error) {
	if len(d.Roads) == 0 {
		return nil, ErrNoRoads
	}
	settings := d.Settings.apply(base)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	n := roadnet.NewNetwork(settings)
	seen := make(map[string]bool, len(d.Roads))
	for i, rd := range d.Roads {
		if rd.Name != "" && seen[rd.Name] {
			return nil, fmt.Errorf("road %d: %w: %q", i, ErrDuplicateRoad, rd.Name)
		}
		seen[rd.Name] = true
		curve, err := geom.NewPolyline(lo.Map(rd.Points, func(p [3]float64, _ int) r3.Vec {
			return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
		}))
		if err != nil {
			return nil, fmt.Errorf("road %d (%s): %w", i, rd.Name, err)
		}
		n.AddRoad(rd.Name, curve)
	}

	for i, id := range d.Intersections {
		a, ok := n.RoadByName(id.Roads[0])
		if !ok {
			return nil, fmt.Errorf("intersection %d: %w: %q", i, ErrUnknownRoadName, id.Roads[0])
		}
		b, ok := n.RoadByName(id.Roads[1])
		if !ok {
			return nil, fmt.Errorf("intersection %d: %w: %q", i, ErrUnknownRoadName, id.Roads[1])
		}
		if _, err := n.AddIntersection(a.ID, id.Offsets[0], b.ID, id.Offsets[1]); err != nil {
			return nil, fmt.Errorf("intersection %d: %w", i, err)
		}
	}

	if d.autoConnect() {
		if err := n.Connect(roadnet.SegmentCrossingFinder{}); err != nil {
			return nil, fmt.Errorf("connect roads: %w", err)
		}
	}

	warnings := n.Validate()
	log.WithFields(log.Fields{
		"roads":         len(n.Roads()),
		"intersections": len(n.Intersections()),
		"warnings":      len(warnings),
	}).Info("Road network built")
	return n, nil
}

func (s *SettingsDef) apply(base roadnet.Settings) roadnet.Settings {
	if s == nil {
		return base
	}
	if s.InteractionDistance != nil {
		base.InteractionDistance = *s.InteractionDistance
	}
	if s.SampleDistance != nil {
		base.SampleDistance = *s.SampleDistance
	}
	if s.EntranceTraversalFactor != nil {
		base.EntranceTraversalFactor = *s.EntranceTraversalFactor
	}
	return base
}

func (d Definition) autoConnect() bool {
	if d.AutoConnect != nil {
		return *d.AutoConnect
	}
	return len(d.Intersections) == 0
}
