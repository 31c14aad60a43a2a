package inventory

import (
	"sync"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

// Floor owns the buffer, the cart and the completion ledger behind one mutex.
// The only way to touch them is through the Tx passed to Do.
type Floor struct {
	mu     sync.Mutex
	state  *State
	ledger *Ledger
}

func NewFloor(initialBuffer domain.Vector) *Floor {
	return &Floor{
		state:  NewState(initialBuffer),
		ledger: NewLedger(),
	}
}

// Do runs fn with the floor lock held. The lock is released even if fn panics.
func (f *Floor) Do(fn func(tx *Tx)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := &Tx{state: f.state, ledger: f.ledger}
	defer tx.close()
	fn(tx)
}

// Snapshot returns buffer, cart and ledger contents under the lock.
func (f *Floor) Snapshot() (buffer, cart domain.Vector, ledger map[domain.WorkerRef]int) {
	f.Do(func(tx *Tx) {
		buffer = tx.Buffer()
		cart = tx.Cart()
		ledger = tx.ledger.Snapshot()
	})
	return buffer, cart, ledger
}

// Tx is valid only inside the Do call that produced it.
type Tx struct {
	state  *State
	ledger *Ledger
	closed bool
}

func (tx *Tx) close() {
	tx.closed = true
}

func (tx *Tx) live() *State {
	if tx.closed {
		panic("inventory: Tx used after its critical section ended")
	}
	return tx.state
}

func (tx *Tx) Buffer() domain.Vector {
	return tx.live().Snapshot(domain.LocationBuffer)
}

func (tx *Tx) Cart() domain.Vector {
	return tx.live().Snapshot(domain.LocationCart)
}

func (tx *Tx) IsOrderPossible(order domain.Vector) bool {
	return IsOrderPossible(order, tx.Buffer())
}

func (tx *Tx) LoadToBuffer(order domain.Vector) {
	tx.live().LoadToBuffer(order)
}

func (tx *Tx) MoveToCart(order domain.Vector, d domain.Direction) int {
	return tx.live().MoveToCart(order, d)
}

func (tx *Tx) ConsumeFromCart(order domain.Vector) bool {
	return tx.live().ConsumeFromCart(order)
}

func (tx *Tx) MoveCartBackToBuffer() domain.Vector {
	return tx.live().MoveCartBackToBuffer()
}

// Credit records one completed cycle for w and returns the new total.
func (tx *Tx) Credit(w domain.WorkerRef) int {
	tx.live()
	return tx.ledger.Increment(w)
}

func (tx *Tx) Completed(w domain.WorkerRef) int {
	tx.live()
	return tx.ledger.Count(w)
}
