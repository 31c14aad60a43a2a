package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

// ZapSink mirrors plant events into a structured zap logger.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("plant")}
}

func (s *ZapSink) LogEvent(_ context.Context, ev domain.Event) error {
	fields := []zap.Field{
		zap.String("eventId", ev.ID),
		zap.String("runId", ev.RunID),
		zap.String("action", string(ev.Action)),
	}
	if ev.HasWorker() {
		fields = append(fields,
			zap.String("workerType", string(ev.Worker.Kind)),
			zap.Int("workerId", ev.Worker.ID),
			zap.Int("cycle", ev.Cycle),
		)
	}
	if !ev.Quantity.IsZero() {
		fields = append(fields, zap.Ints("quantity", ev.Quantity[:]))
	}
	if ev.Elapsed > 0 {
		fields = append(fields, zap.Int("elapsed", ev.Elapsed))
	}

	switch ev.Action {
	case domain.ActionTimeout, domain.ActionReservationLost, domain.ActionGaveUp:
		s.logger.Warn(ev.Message, fields...)
	case domain.ActionWaiting, domain.ActionRolledBack:
		s.logger.Debug(ev.Message, fields...)
	default:
		s.logger.Info(ev.Message, fields...)
	}
	return nil
}

// Close flushes buffered entries. Sync errors from console outputs are ignored.
func (s *ZapSink) Close() error {
	_ = s.logger.Sync()
	return nil
}
