package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

func TestCollector(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveCycle(domain.WorkerPart, domain.ActionCompleted, 2900)
	c.ObserveCycle(domain.WorkerPart, domain.ActionCompleted, 1400)
	c.ObserveCycle(domain.WorkerPart, domain.ActionTimeout, 18200)
	c.ObserveCycle(domain.WorkerProduct, domain.ActionGaveUp, 0)
	c.IncAdmitRetries(domain.WorkerProduct)
	c.IncAdmitRetries(domain.WorkerProduct)
	c.IncRollbacks(domain.WorkerPart, "timeout")
	c.SetInventory(domain.LocationBuffer, domain.VectorOf(5, 5, 4, 3, 3))
	c.IncSinkErrors()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cyclesTotal.WithLabelValues("part", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cyclesTotal.WithLabelValues("part", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cyclesTotal.WithLabelValues("product", "gave_up")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.admitRetriesTotal.WithLabelValues("product")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rollbacksTotal.WithLabelValues("part", "timeout")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.inventoryQuantity.WithLabelValues("buffer", "C")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sinkErrorsTotal))

	// abandoned cycles have no elapsed time to observe
	assert.Equal(t, 1, testutil.CollectAndCount(c.cycleElapsedUnits))
	assert.Equal(t, 5, testutil.CollectAndCount(c.inventoryQuantity))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.IncSinkErrors()

	path := filepath.Join(t.TempDir(), "plant.prom")
	require.NoError(t, c.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "plant_sink_errors_total 1")
}
