package inventory

import (
	"fmt"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

// InvariantError is the panic value raised when a mutation would drive a
// location below zero. It signals broken lock discipline, not a runtime condition.
type InvariantError struct {
	Location domain.Location
	Kind     domain.PartKind
	Have     int
	Delta    int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("inventory invariant violated: %s kind %s would drop to %d (have %d, delta %d)",
		e.Location, e.Kind, e.Have+e.Delta, e.Have, e.Delta)
}

// State holds buffer and cart quantities. It does no locking of its own;
// callers reach it through Floor.Do.
type State struct {
	buffer domain.Vector
	cart   domain.Vector
}

func NewState(initialBuffer domain.Vector) *State {
	s := &State{}
	s.ApplyDelta(domain.LocationBuffer, initialBuffer)
	return s
}

func (s *State) Snapshot(loc domain.Location) domain.Vector {
	return *s.slot(loc)
}

// ApplyDelta adds signed per-kind deltas to a location. It panics with
// *InvariantError instead of letting any component go negative; the location
// is left untouched in that case.
func (s *State) ApplyDelta(loc domain.Location, delta domain.Vector) {
	slot := s.slot(loc)
	next := slot.Add(delta)
	if kind, neg := next.FirstNegative(); neg {
		panic(&InvariantError{Location: loc, Kind: kind, Have: slot[kind], Delta: delta[kind]})
	}
	*slot = next
}

func (s *State) slot(loc domain.Location) *domain.Vector {
	switch loc {
	case domain.LocationBuffer:
		return &s.buffer
	case domain.LocationCart:
		return &s.cart
	default:
		panic(fmt.Sprintf("inventory: unknown location %q", loc))
	}
}

// IsOrderPossible reports whether the buffer holds at least the ordered
// quantity of every part kind.
func IsOrderPossible(order, buffer domain.Vector) bool {
	return buffer.Covers(order)
}

// LoadToBuffer deposits freshly made parts into the buffer.
func (s *State) LoadToBuffer(order domain.Vector) {
	s.ApplyDelta(domain.LocationBuffer, order)
}

// MoveToCart reserves order out of the buffer into the cart and returns the
// processing time of the transfer in direction d.
func (s *State) MoveToCart(order domain.Vector, d domain.Direction) int {
	s.ApplyDelta(domain.LocationBuffer, order.Neg())
	s.ApplyDelta(domain.LocationCart, order)
	return domain.Elapsed(order, d)
}

// ConsumeFromCart removes assembled units from the system. It returns false,
// leaving state unchanged, when the cart no longer holds the whole order.
func (s *State) ConsumeFromCart(order domain.Vector) bool {
	if !s.cart.Covers(order) {
		return false
	}
	s.ApplyDelta(domain.LocationCart, order.Neg())
	return true
}

// MoveCartBackToBuffer drains the whole cart into the buffer, whoever reserved
// it, and returns what moved.
func (s *State) MoveCartBackToBuffer() domain.Vector {
	moved := s.cart
	s.ApplyDelta(domain.LocationBuffer, moved)
	s.ApplyDelta(domain.LocationCart, moved.Neg())
	return moved
}
