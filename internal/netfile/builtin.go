package netfile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ukydev/traffic-sim/internal/roadnet"
)

var ErrUnknownBuiltin = errors.New("unknown built-in network")

var builtins = map[string]func() Definition{
	"cross": Cross,
	"ring":  Ring,
	"grid":  func() Definition { return Grid(3, 40) },
}

// BuiltinNames lists the networks Builtin knows.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin builds one of the demo networks.
func Builtin(name string, base roadnet.Settings) (*roadnet.Network, error) {
	def, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownBuiltin, name, BuiltinNames())
	}
	return def().Build(base)
}

// Cross is two 100 long roads crossing at their midpoints.
func Cross() Definition {
	return Definition{Roads: []RoadDef{
		{Name: "north-south", Points: [][3]float64{{0, 0, -50}, {0, 0, 50}}},
		{Name: "east-west", Points: [][3]float64{{-50, 0, 0}, {50, 0, 0}}},
	}}
}

// Ring is a 400 long square loop cut through its middle by a straight road.
func Ring() Definition {
	return Definition{Roads: []RoadDef{
		{Name: "ring", Points: [][3]float64{{0, 0, 0}, {100, 0, 0}, {100, 0, 100}, {0, 0, 100}, {0, 0, 0}}},
		{Name: "avenue", Points: [][3]float64{{-20, 0, 50}, {120, 0, 50}}},
	}}
}

// Grid is n horizontal and n vertical roads spaced apart, each running from
// 0 to (n+1)*spacing.
func Grid(n int, spacing float64) Definition {
	extent := float64(n+1) * spacing
	var def Definition
	for i := range n {
		c := float64(i+1) * spacing
		def.Roads = append(def.Roads, RoadDef{
			Name:   fmt.Sprintf("street-%d", i+1),
			Points: [][3]float64{{0, 0, c}, {extent, 0, c}},
		})
	}
	for i := range n {
		c := float64(i+1) * spacing
		def.Roads = append(def.Roads, RoadDef{
			Name:   fmt.Sprintf("avenue-%d", i+1),
			Points: [][3]float64{{c, 0, 0}, {c, 0, extent}},
		})
	}
	return def
}
