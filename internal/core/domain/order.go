package domain

type Direction string

const (
	DirectionLoad   Direction = "load"
	DirectionPickup Direction = "pickup"
)

var (
	loadUnitTimes   = Vector{500, 500, 600, 600, 700}
	pickupUnitTimes = Vector{200, 200, 300, 300, 400}
)

// UnitTimes returns the per-unit processing time of each part kind for the direction.
func (d Direction) UnitTimes() Vector {
	if d == DirectionPickup {
		return pickupUnitTimes
	}
	return loadUnitTimes
}

// Elapsed returns the processing time of moving q in direction d.
func Elapsed(q Vector, d Direction) int {
	return q.Weighted(d.UnitTimes())
}

type Order struct {
	Worker    WorkerRef
	Direction Direction
	Cycle     int
	Quantity  Vector
}
