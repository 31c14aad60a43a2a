package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rl1809/plant-floor/internal/core/domain"
	"github.com/rl1809/plant-floor/internal/port"
)

// Collector holds the plant simulation metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	cyclesTotal       *prometheus.CounterVec
	cycleElapsedUnits *prometheus.HistogramVec
	admitRetriesTotal *prometheus.CounterVec
	rollbacksTotal    *prometheus.CounterVec
	inventoryQuantity *prometheus.GaugeVec
	sinkErrorsTotal   prometheus.Counter
}

var _ port.Recorder = (*Collector)(nil)

func NewCollector(registry *prometheus.Registry) *Collector {
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		cyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plant_cycles_total",
				Help: "Worker cycles by outcome",
			},
			[]string{"worker_type", "outcome"},
		),
		cycleElapsedUnits: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plant_cycle_elapsed_units",
				Help:    "Simulated processing time of admitted orders",
				Buckets: []float64{1000, 2000, 4000, 8000, 12000, 16000, 18000, 20000, 25000},
			},
			[]string{"worker_type"},
		),
		admitRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plant_admit_retries_total",
				Help: "Failed admission attempts",
			},
			[]string{"worker_type"},
		),
		rollbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plant_rollbacks_total",
				Help: "Rollbacks that returned cart inventory to the buffer",
			},
			[]string{"worker_type", "trigger"},
		),
		inventoryQuantity: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "plant_inventory_quantity",
				Help: "Quantity held per location and part kind at the end of a run",
			},
			[]string{"location", "part"},
		),
		sinkErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "plant_sink_errors_total",
				Help: "Plant events the sink failed to write",
			},
		),
	}
}

func (c *Collector) ObserveCycle(kind domain.WorkerKind, outcome domain.Action, elapsed int) {
	c.cyclesTotal.WithLabelValues(string(kind), string(outcome)).Inc()
	if outcome != domain.ActionGaveUp {
		c.cycleElapsedUnits.WithLabelValues(string(kind)).Observe(float64(elapsed))
	}
}

func (c *Collector) IncAdmitRetries(kind domain.WorkerKind) {
	c.admitRetriesTotal.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) IncRollbacks(kind domain.WorkerKind, trigger string) {
	c.rollbacksTotal.WithLabelValues(string(kind), trigger).Inc()
}

func (c *Collector) SetInventory(loc domain.Location, quantity domain.Vector) {
	for i, q := range quantity {
		c.inventoryQuantity.WithLabelValues(string(loc), domain.PartKind(i).String()).Set(float64(q))
	}
}

func (c *Collector) IncSinkErrors() {
	c.sinkErrorsTotal.Inc()
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
