package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/plant-floor/internal/core/domain"
	"github.com/rl1809/plant-floor/internal/core/generator"
	"github.com/rl1809/plant-floor/internal/core/inventory"
	"github.com/rl1809/plant-floor/internal/port"
)

const FinishMessage = "Finish!"

type Simulation struct {
	partWorkers    int
	productWorkers int
	opts           Options
}

func NewPlantSimulation(partWorkers, productWorkers int, opts ...Option) *Simulation {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Simulation{
		partWorkers:    partWorkers,
		productWorkers: productWorkers,
		opts:           o,
	}
}

// Stats are per worker kind totals of one run.
type Stats struct {
	Workers          int
	Completed        int64
	TimedOut         int64
	ReservationsLost int64
	Abandoned        int64
	AdmitRetries     int64
	Rollbacks        int64
}

type Report struct {
	RunID  string
	Seed   int64
	Buffer domain.Vector
	Cart   domain.Vector
	Ledger map[domain.WorkerRef]int
	Stats  map[domain.WorkerKind]Stats
}

type kindStats struct {
	completed, timedOut, lost, abandoned, retries, rollbacks atomic.Int64
}

// run is the state shared by the workers of one Run call.
type run struct {
	id       string
	floor    *inventory.Floor
	sink     port.EventSink
	recorder port.Recorder
	logger   *zap.Logger
	stats    map[domain.WorkerKind]*kindStats

	sinkErrOnce sync.Once
	sinkErr     error
}

// Run starts every worker, blocks until all of them finish their cycles, then
// writes the finish record. The event sink is opened once here and closed on
// every return path.
func (s *Simulation) Run(ctx context.Context) (report *Report, err error) {
	if err := s.opts.validate(s.partWorkers, s.productWorkers); err != nil {
		return nil, err
	}

	sink, err := s.opts.Sink(ctx)
	if err != nil {
		return nil, fmt.Errorf("open event sink: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("%w: close: %w", ErrSink, cerr))
		}
	}()

	r := &run{
		id:       uuid.New().String(),
		floor:    inventory.NewFloor(s.opts.InitialBuffer),
		sink:     sink,
		recorder: s.opts.Recorder,
		logger:   s.opts.Logger,
		stats: map[domain.WorkerKind]*kindStats{
			domain.WorkerPart:    {},
			domain.WorkerProduct: {},
		},
	}

	logger := r.logger.With(zap.String("runId", r.id))
	logger.Info("Starting plant simulation",
		zap.Int("partWorkers", s.partWorkers),
		zap.Int("productWorkers", s.productWorkers),
		zap.Int("cycles", s.opts.Cycles),
		zap.Int64("seed", s.opts.Seed),
		zap.Stringer("initialBuffer", s.opts.InitialBuffer),
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range s.workers(r) {
		g.Go(func() error {
			return w.work(gctx)
		})
	}
	workerErr := g.Wait()

	r.emit(context.WithoutCancel(ctx), domain.Event{Action: domain.ActionFinish, Message: FinishMessage})

	report = r.report(s)
	report.Seed = s.opts.Seed
	r.recorder.SetInventory(domain.LocationBuffer, report.Buffer)
	r.recorder.SetInventory(domain.LocationCart, report.Cart)

	if workerErr != nil {
		logger.Error("Plant simulation failed", zap.Error(workerErr), zap.Duration("duration", time.Since(start)))
		return report, workerErr
	}

	logger.Info("Plant simulation finished",
		zap.Duration("duration", time.Since(start)),
		zap.Stringer("buffer", report.Buffer),
		zap.Stringer("cart", report.Cart),
	)

	if r.sinkErr != nil {
		return report, fmt.Errorf("%w: %w", ErrSink, r.sinkErr)
	}
	return report, nil
}

func (s *Simulation) workers(r *run) []*worker {
	workers := make([]*worker, 0, s.partWorkers+s.productWorkers)
	add := func(kind domain.WorkerKind, count int) {
		for i := 1; i <= count; i++ {
			ref := domain.WorkerRef{Kind: kind, ID: i}
			gen := generator.New(s.opts.Seed+int64(len(workers)), s.opts.Limits)

			var orders OrderSource = gen
			if s.opts.OrderSource != nil {
				orders = s.opts.OrderSource(ref)
			}

			workers = append(workers, &worker{
				ref:         ref,
				profile:     domain.ProfileFor(kind),
				run:         r,
				orders:      orders,
				chance:      gen,
				cycles:      s.opts.Cycles,
				rollbackP:   s.opts.RollbackProbability,
				maxAttempts: s.opts.MaxAdmitAttempts,
				backoff:     s.opts.Backoff,
				credits:     kind == domain.WorkerPart || s.opts.CountProductCompletions,
			})
		}
	}
	add(domain.WorkerPart, s.partWorkers)
	add(domain.WorkerProduct, s.productWorkers)
	return workers
}

// emit stamps and writes one event. Sink failures never stop a worker; the
// first one is kept for Run to return.
func (r *run) emit(ctx context.Context, ev domain.Event) {
	ev.ID = uuid.New().String()
	ev.RunID = r.id
	ev.Time = time.Now()

	if err := r.sink.LogEvent(ctx, ev); err != nil {
		r.recorder.IncSinkErrors()
		r.logger.Warn("Failed to write plant event",
			zap.Error(err),
			zap.String("runId", r.id),
			zap.String("action", string(ev.Action)),
		)
		r.sinkErrOnce.Do(func() { r.sinkErr = err })
	}
}

func (r *run) report(s *Simulation) *Report {
	buffer, cart, ledger := r.floor.Snapshot()
	rep := &Report{
		RunID:  r.id,
		Buffer: buffer,
		Cart:   cart,
		Ledger: ledger,
		Stats:  make(map[domain.WorkerKind]Stats, len(r.stats)),
	}
	for kind, ks := range r.stats {
		workers := s.partWorkers
		if kind == domain.WorkerProduct {
			workers = s.productWorkers
		}
		rep.Stats[kind] = Stats{
			Workers:          workers,
			Completed:        ks.completed.Load(),
			TimedOut:         ks.timedOut.Load(),
			ReservationsLost: ks.lost.Load(),
			Abandoned:        ks.abandoned.Load(),
			AdmitRetries:     ks.retries.Load(),
			Rollbacks:        ks.rollbacks.Load(),
		}
	}
	return rep
}
