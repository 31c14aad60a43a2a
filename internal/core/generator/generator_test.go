package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

func TestLoadOrderBounds(t *testing.T) {
	g := New(1, DefaultLimits())
	for i := 0; i < 1000; i++ {
		order := g.LoadOrder()
		for kind, q := range order {
			require.GreaterOrEqual(t, q, 0, "kind %d of %s", kind, order)
			require.LessOrEqual(t, q, 5, "kind %d of %s", kind, order)
		}
	}
}

func TestPickupOrder_JointCap(t *testing.T) {
	g := New(2, DefaultLimits())
	for i := 0; i < 1000; i++ {
		order := g.PickupOrder()
		_, neg := order.FirstNegative()
		require.False(t, neg, order.String())
		require.LessOrEqual(t, order.Total(), 3, order.String())
	}
}

func TestPickupOrder_Independent(t *testing.T) {
	g := New(3, Limits{LoadMax: 5, PickupMax: 3, PickupPolicy: PolicyIndependent})
	maxTotal := 0
	for i := 0; i < 2000; i++ {
		order := g.PickupOrder()
		for _, q := range order {
			require.GreaterOrEqual(t, q, 0)
			require.LessOrEqual(t, q, 3)
		}
		if order.Total() > maxTotal {
			maxTotal = order.Total()
		}
	}
	// independent draws are not jointly capped
	assert.Greater(t, maxTotal, 3)
}

func TestNext_DispatchesByKind(t *testing.T) {
	g := New(4, Limits{LoadMax: 5, PickupMax: 0, PickupPolicy: PolicyJointCap})
	for i := 0; i < 100; i++ {
		assert.True(t, g.Next(domain.WorkerProduct).IsZero())
	}
}

func TestDeterministicBySeed(t *testing.T) {
	a := New(42, DefaultLimits())
	b := New(42, DefaultLimits())
	for i := 0; i < 50; i++ {
		require.Equal(t, a.LoadOrder(), b.LoadOrder())
		require.Equal(t, a.PickupOrder(), b.PickupOrder())
		require.Equal(t, a.Coin(0.5), b.Coin(0.5))
	}
}

func TestCoin(t *testing.T) {
	g := New(5, DefaultLimits())
	heads := 0
	for i := 0; i < 10000; i++ {
		assert.False(t, g.Coin(0))
		assert.True(t, g.Coin(1))
		if g.Coin(0.5) {
			heads++
		}
	}
	assert.InDelta(t, 5000, heads, 500)
}

func TestJitter(t *testing.T) {
	g := New(6, DefaultLimits())
	assert.Zero(t, g.Jitter(0))
	for i := 0; i < 100; i++ {
		d := g.Jitter(10 * time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 10*time.Millisecond)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("joint-cap")
	require.NoError(t, err)
	assert.Equal(t, PolicyJointCap, p)

	_, err = ParsePolicy("greedy")
	assert.Error(t, err)
}
