package domain

import (
	"fmt"
	"strings"
)

type PartKind int

const (
	KindA PartKind = iota
	KindB
	KindC
	KindD
	KindE
)

const NumKinds = 5

func (k PartKind) String() string {
	if k < 0 || k >= NumKinds {
		return fmt.Sprintf("PartKind(%d)", int(k))
	}
	return string(rune('A' + int(k)))
}

// Vector holds one quantity per part kind, for a location or an order.
type Vector [NumKinds]int

func (v Vector) Add(o Vector) Vector {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

func (v Vector) Sub(o Vector) Vector {
	for i := range v {
		v[i] -= o[i]
	}
	return v
}

func (v Vector) Neg() Vector {
	for i := range v {
		v[i] = -v[i]
	}
	return v
}

// Covers reports whether every component of o is <= the matching component of v.
func (v Vector) Covers(o Vector) bool {
	for i := range v {
		if o[i] > v[i] {
			return false
		}
	}
	return true
}

func (v Vector) Total() int {
	total := 0
	for _, q := range v {
		total += q
	}
	return total
}

func (v Vector) IsZero() bool {
	return v == Vector{}
}

// FirstNegative returns the first kind holding a negative quantity.
func (v Vector) FirstNegative() (PartKind, bool) {
	for i, q := range v {
		if q < 0 {
			return PartKind(i), true
		}
	}
	return 0, false
}

// Weighted returns the sum of quantity times per-unit weight.
func (v Vector) Weighted(weights Vector) int {
	sum := 0
	for i := range v {
		sum += v[i] * weights[i]
	}
	return sum
}

// String renders the vector the way the plant log shows orders: [1, 2, 3, 4, 5].
func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, q := range v {
		parts[i] = fmt.Sprintf("%d", q)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// VectorOf builds a vector from up to NumKinds leading quantities; the rest stay zero.
func VectorOf(quantities ...int) Vector {
	if len(quantities) > NumKinds {
		panic(fmt.Sprintf("domain: %d quantities for %d part kinds", len(quantities), NumKinds))
	}
	var v Vector
	copy(v[:], quantities)
	return v
}

type Location string

const (
	LocationBuffer Location = "buffer"
	LocationCart   Location = "cart"
)
