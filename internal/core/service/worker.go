package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/rl1809/plant-floor/internal/core/domain"
	"github.com/rl1809/plant-floor/internal/core/inventory"
)

const (
	rollbackOnContention = "contention"
	rollbackOnTimeout    = "timeout"
)

type chance interface {
	Coin(p float64) bool
	Jitter(max time.Duration) time.Duration
}

// worker runs one state machine: generate, admit (retrying), transfer, then
// commit or time out, for a fixed number of cycles.
type worker struct {
	ref     domain.WorkerRef
	profile domain.Profile
	run     *run
	orders  OrderSource
	chance  chance

	cycles      int
	rollbackP   float64
	maxAttempts int
	backoff     BackoffPolicy
	credits     bool
}

func (w *worker) work(ctx context.Context) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &WorkerCrashError{Worker: w.ref, Value: v, Stack: debug.Stack()}
		}
	}()

	for cycle := 1; cycle <= w.cycles; cycle++ {
		if err := w.cycle(ctx, cycle); err != nil {
			return err
		}
	}
	return nil
}

func (w *worker) cycle(ctx context.Context, cycle int) error {
	order := w.orders.Next(w.ref.Kind)
	w.emit(ctx, domain.ActionOrderGenerated, cycle, order, 0,
		fmt.Sprintf("Generating %s: %s", w.profile.OrderNoun, order))

	elapsed, err := w.admit(ctx, cycle, order)
	if errors.Is(err, ErrContentionExhausted) {
		w.stats().abandoned.Add(1)
		w.run.recorder.ObserveCycle(w.ref.Kind, domain.ActionGaveUp, 0)
		return nil
	}
	if err != nil {
		return err
	}

	w.commit(ctx, cycle, order, elapsed)
	return nil
}

// admit spins until the order is admitted. The deposit, the admission check
// and the move into the cart share one critical section.
//
// A load order is checked against the buffer after its own deposit, so part
// workers never wait on stock that only a rollback could return. Only pickup
// orders can spin.
func (w *worker) admit(ctx context.Context, cycle int, order domain.Vector) (int, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		admitted, elapsed := false, 0
		w.run.floor.Do(func(tx *inventory.Tx) {
			if w.profile.Direction == domain.DirectionLoad {
				tx.LoadToBuffer(order)
			}
			if !tx.IsOrderPossible(order) {
				return
			}
			admitted = true
			elapsed = tx.MoveToCart(order, w.profile.Direction)
		})

		if admitted {
			action := domain.ActionLoaded
			if w.profile.Direction == domain.DirectionPickup {
				action = domain.ActionPickedUp
			}
			w.emit(ctx, action, cycle, order, 0, fmt.Sprintf("%s: %s", w.profile.AdmitVerb, order))
			w.emit(ctx, domain.ActionMoved, cycle, order, elapsed,
				fmt.Sprintf("Moved parts to %s: %s", w.profile.MoveTarget, order))
			return elapsed, nil
		}

		if attempt == 1 {
			w.emit(ctx, domain.ActionWaiting, cycle, order, 0, w.profile.WaitMessage)
		}
		w.stats().retries.Add(1)
		w.run.recorder.IncAdmitRetries(w.ref.Kind)

		if w.maxAttempts > 0 && attempt >= w.maxAttempts {
			w.emit(ctx, domain.ActionGaveUp, cycle, order, 0,
				fmt.Sprintf("Gave up on %s after %d attempts", w.profile.OrderNoun, attempt))
			return 0, ErrContentionExhausted
		}

		if w.chance.Coin(w.rollbackP) {
			w.rollback(ctx, cycle, rollbackOnContention)
		}

		if !w.backoff.Enabled() {
			runtime.Gosched()
			continue
		}
		if err := sleepContext(ctx, w.backoff.Delay(attempt, w.chance)); err != nil {
			return 0, err
		}
	}
}

func (w *worker) commit(ctx context.Context, cycle int, order domain.Vector, elapsed int) {
	if w.profile.TimedOut(elapsed) {
		w.emit(ctx, domain.ActionTimeout, cycle, order, elapsed,
			fmt.Sprintf("Timeout! Generating new %s.", w.profile.OrderNoun))
		w.rollback(ctx, cycle, rollbackOnTimeout)
		w.stats().timedOut.Add(1)
		w.run.recorder.ObserveCycle(w.ref.Kind, domain.ActionTimeout, elapsed)
		return
	}

	outcome, total := domain.ActionCompleted, 0
	w.run.floor.Do(func(tx *inventory.Tx) {
		if w.profile.Direction == domain.DirectionPickup && !tx.ConsumeFromCart(order) {
			outcome = domain.ActionReservationLost
			return
		}
		if w.credits {
			total = tx.Credit(w.ref)
		}
	})

	if outcome == domain.ActionReservationLost {
		w.emit(ctx, outcome, cycle, order, elapsed,
			fmt.Sprintf("Reserved parts were rolled back before assembly: %s", order))
		w.stats().lost.Add(1)
		w.run.recorder.ObserveCycle(w.ref.Kind, outcome, elapsed)
		return
	}

	msg := fmt.Sprintf("%s completed.", capitalize(w.profile.OrderNoun))
	if w.credits {
		msg = fmt.Sprintf("%s completed. Total completed products: %d", capitalize(w.profile.OrderNoun), total)
	}
	w.emit(ctx, domain.ActionCompleted, cycle, order, elapsed, msg)
	w.stats().completed.Add(1)
	w.run.recorder.ObserveCycle(w.ref.Kind, domain.ActionCompleted, elapsed)
}

// rollback returns the entire cart to the buffer under the floor lock,
// including reservations held by other workers.
func (w *worker) rollback(ctx context.Context, cycle int, trigger string) {
	var moved domain.Vector
	w.run.floor.Do(func(tx *inventory.Tx) {
		moved = tx.MoveCartBackToBuffer()
	})
	if moved.IsZero() {
		return
	}
	w.stats().rollbacks.Add(1)
	w.run.recorder.IncRollbacks(w.ref.Kind, trigger)
	w.emit(ctx, domain.ActionRolledBack, cycle, moved, 0,
		fmt.Sprintf("Moved cart back to buffer (%s): %s", trigger, moved))
}

func (w *worker) emit(ctx context.Context, action domain.Action, cycle int, q domain.Vector, elapsed int, msg string) {
	w.run.emit(ctx, domain.Event{
		Worker:   w.ref,
		Action:   action,
		Message:  msg,
		Cycle:    cycle,
		Quantity: q,
		Elapsed:  elapsed,
	})
}

func (w *worker) stats() *kindStats {
	return w.run.stats[w.ref.Kind]
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
