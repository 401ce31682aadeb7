package models

import "gonum.org/v1/gonum/spatial/r3"

// Location is a world-space point of the simulated road network.
type Location struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
	Z float64 `bson:"z" json:"z"`
}

// LocationFromVec converts a world vector to a Location.
func LocationFromVec(v r3.Vec) Location {
	return Location{X: v.X, Y: v.Y, Z: v.Z}
}
