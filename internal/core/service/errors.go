package service

import (
	"errors"
	"fmt"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

var (
	ErrInvalidConfig       = errors.New("invalid simulation config")
	ErrSink                = errors.New("event sink failure")
	ErrContentionExhausted = errors.New("admission attempts exhausted")
)

// WorkerCrashError reports a worker goroutine that panicked. When the panic
// value is an error (e.g. *inventory.InvariantError) it is reachable through
// errors.As.
type WorkerCrashError struct {
	Worker domain.WorkerRef
	Value  any
	Stack  []byte
}

func (e *WorkerCrashError) Error() string {
	return fmt.Sprintf("%s crashed: %v", e.Worker, e.Value)
}

func (e *WorkerCrashError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
