package models

// ReservedSpot is the wire form of a lane reservation.
type ReservedSpot struct {
	Owner     string  `json:"owner"`
	Offset    float64 `json:"offset"`
	Radius    float64 `json:"radius"`
	Direction int     `json:"direction"`
}

// Road describes one road and its live reservations.
type Road struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Length        float64        `json:"length"`
	Enclosed      bool           `json:"enclosed"`
	Intersections []int          `json:"intersections"`
	Spots         []ReservedSpot `json:"spots"`
}

// Transit is a vehicle inside an intersection.
type Transit struct {
	VehicleID string  `json:"vehicle_id"`
	Road      int     `json:"road"`
	Offset    float64 `json:"offset"`
	Entering  bool    `json:"entering"`
	Turn      string  `json:"turn"`
}

// Intersection describes a crossing and who is inside it.
type Intersection struct {
	ID       int        `json:"id"`
	Roads    [2]int     `json:"roads"`
	Offsets  [2]float64 `json:"offsets"`
	Location Location   `json:"location"`
	Transits []Transit  `json:"transits"`
}
