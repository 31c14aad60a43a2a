package domain

import "fmt"

type WorkerKind string

const (
	WorkerPart    WorkerKind = "part"
	WorkerProduct WorkerKind = "product"
)

const (
	MaxTimePart    = 18000
	MaxTimeProduct = 20000
)

type WorkerRef struct {
	Kind WorkerKind
	ID   int
}

func (w WorkerRef) String() string {
	return fmt.Sprintf("%s %d", ProfileFor(w.Kind).Label, w.ID)
}

// Profile is the direction-specific table one worker state machine runs on.
type Profile struct {
	Kind      WorkerKind
	Label     string
	Direction Direction
	Ceiling   int

	OrderNoun   string
	WaitMessage string
	AdmitVerb   string
	MoveTarget  string
}

var profiles = map[WorkerKind]Profile{
	WorkerPart: {
		Kind:        WorkerPart,
		Label:       "Part Worker",
		Direction:   DirectionLoad,
		Ceiling:     MaxTimePart,
		OrderNoun:   "load order",
		WaitMessage: "Waiting for buffer space",
		AdmitVerb:   "Loaded parts to buffer",
		MoveTarget:  "cart",
	},
	WorkerProduct: {
		Kind:        WorkerProduct,
		Label:       "Product Worker",
		Direction:   DirectionPickup,
		Ceiling:     MaxTimeProduct,
		OrderNoun:   "pickup order",
		WaitMessage: "Waiting for required parts",
		AdmitVerb:   "Picked up parts from buffer",
		MoveTarget:  "assembly area",
	},
}

func ProfileFor(kind WorkerKind) Profile {
	p, ok := profiles[kind]
	if !ok {
		panic(fmt.Sprintf("domain: unknown worker kind %q", kind))
	}
	return p
}

// TimedOut reports whether elapsed exceeds the profile's ceiling.
func (p Profile) TimedOut(elapsed int) bool {
	return elapsed > p.Ceiling
}
