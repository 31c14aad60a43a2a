package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

type Policy string

const (
	// PolicyIndependent draws every pickup component from [0, PickupMax].
	PolicyIndependent Policy = "independent"
	// PolicyJointCap draws kinds in order from [0, PickupMax - running total].
	PolicyJointCap Policy = "joint-cap"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyIndependent, PolicyJointCap:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown pickup policy %q", s)
	}
}

type Limits struct {
	LoadMax      int
	PickupMax    int
	PickupPolicy Policy
}

func DefaultLimits() Limits {
	return Limits{
		LoadMax:      5,
		PickupMax:    3,
		PickupPolicy: PolicyJointCap,
	}
}

// Generator draws demand orders for a single worker. It is not safe for
// concurrent use; every worker owns one.
type Generator struct {
	faker  faker.Faker
	limits Limits
}

func New(seed int64, limits Limits) *Generator {
	return &Generator{
		faker:  faker.NewWithSeed(rand.NewSource(seed)),
		limits: limits,
	}
}

func (g *Generator) Next(kind domain.WorkerKind) domain.Vector {
	if kind == domain.WorkerProduct {
		return g.PickupOrder()
	}
	return g.LoadOrder()
}

func (g *Generator) LoadOrder() domain.Vector {
	var v domain.Vector
	for i := range v {
		v[i] = g.upTo(g.limits.LoadMax)
	}
	return v
}

func (g *Generator) PickupOrder() domain.Vector {
	var v domain.Vector
	if g.limits.PickupPolicy == PolicyIndependent {
		for i := range v {
			v[i] = g.upTo(g.limits.PickupMax)
		}
		return v
	}

	remaining := g.limits.PickupMax
	for i := range v {
		v[i] = g.upTo(remaining)
		remaining -= v[i]
	}
	return v
}

// Coin returns true with probability p.
func (g *Generator) Coin(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return g.faker.IntBetween(0, 9999) < int(p*10000)
}

// Jitter returns a uniform duration in [0, max].
func (g *Generator) Jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(g.upTo(int(max)))
}

// upTo draws uniformly from [0, n].
func (g *Generator) upTo(n int) int {
	if n <= 0 {
		return 0
	}
	return g.faker.IntBetween(0, n)
}
