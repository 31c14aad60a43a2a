package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/plant-floor/internal/core/domain"
	"github.com/rl1809/plant-floor/internal/core/generator"
	"github.com/rl1809/plant-floor/internal/port"
)

// OrderSource yields the demand order for each cycle of one worker.
type OrderSource interface {
	Next(kind domain.WorkerKind) domain.Vector
}

const DefaultCycles = 5

var DefaultInitialBuffer = domain.Vector{5, 5, 4, 3, 3}

type Options struct {
	Cycles                  int
	InitialBuffer           domain.Vector
	Limits                  generator.Limits
	Seed                    int64
	RollbackProbability     float64
	MaxAdmitAttempts        int
	Backoff                 BackoffPolicy
	CountProductCompletions bool

	Sink        port.SinkFactory
	Recorder    port.Recorder
	Logger      *zap.Logger
	OrderSource func(w domain.WorkerRef) OrderSource
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Cycles:              DefaultCycles,
		InitialBuffer:       DefaultInitialBuffer,
		Limits:              generator.DefaultLimits(),
		Seed:                time.Now().UnixNano(),
		RollbackProbability: 0.5,
		Sink:                discardSinkFactory,
		Recorder:            port.NopRecorder{},
		Logger:              zap.NewNop(),
	}
}

func WithCycles(n int) Option {
	return func(o *Options) { o.Cycles = n }
}

func WithInitialBuffer(v domain.Vector) Option {
	return func(o *Options) { o.InitialBuffer = v }
}

func WithLimits(l generator.Limits) Option {
	return func(o *Options) { o.Limits = l }
}

func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

func WithRollbackProbability(p float64) Option {
	return func(o *Options) { o.RollbackProbability = p }
}

// WithMaxAdmitAttempts bounds the admission spin; 0 keeps it unbounded.
func WithMaxAdmitAttempts(n int) Option {
	return func(o *Options) { o.MaxAdmitAttempts = n }
}

func WithBackoff(p BackoffPolicy) Option {
	return func(o *Options) { o.Backoff = p }
}

// WithProductCompletions makes product cycles count in the completion ledger.
func WithProductCompletions(enabled bool) Option {
	return func(o *Options) { o.CountProductCompletions = enabled }
}

func WithSink(f port.SinkFactory) Option {
	return func(o *Options) { o.Sink = f }
}

func WithRecorder(r port.Recorder) Option {
	return func(o *Options) { o.Recorder = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithOrderSource replaces random order generation, per worker.
func WithOrderSource(f func(w domain.WorkerRef) OrderSource) Option {
	return func(o *Options) { o.OrderSource = f }
}

func (o Options) validate(partWorkers, productWorkers int) error {
	switch {
	case partWorkers < 0 || productWorkers < 0:
		return fmt.Errorf("%w: worker counts must not be negative (part=%d product=%d)", ErrInvalidConfig, partWorkers, productWorkers)
	case o.Cycles < 1:
		return fmt.Errorf("%w: cycles must be at least 1, got %d", ErrInvalidConfig, o.Cycles)
	case o.RollbackProbability < 0 || o.RollbackProbability > 1:
		return fmt.Errorf("%w: rollback probability %v outside [0,1]", ErrInvalidConfig, o.RollbackProbability)
	case o.MaxAdmitAttempts < 0:
		return fmt.Errorf("%w: max admit attempts must not be negative", ErrInvalidConfig)
	case o.Limits.LoadMax < 0 || o.Limits.PickupMax < 0:
		return fmt.Errorf("%w: order limits must not be negative", ErrInvalidConfig)
	case o.Sink == nil:
		return fmt.Errorf("%w: no event sink", ErrInvalidConfig)
	case o.Recorder == nil:
		return fmt.Errorf("%w: no metrics recorder", ErrInvalidConfig)
	case o.Logger == nil:
		return fmt.Errorf("%w: no logger", ErrInvalidConfig)
	}
	if kind, neg := o.InitialBuffer.FirstNegative(); neg {
		return fmt.Errorf("%w: initial buffer kind %s is negative", ErrInvalidConfig, kind)
	}
	if _, err := generator.ParsePolicy(string(o.Limits.PickupPolicy)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return o.Backoff.validate()
}

type discardSink struct{}

func (discardSink) LogEvent(context.Context, domain.Event) error { return nil }
func (discardSink) Close() error { return nil }

func discardSinkFactory(context.Context) (port.EventSink, error) {
	return discardSink{}, nil
}
