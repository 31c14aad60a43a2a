package inventory

import "github.com/rl1809/plant-floor/internal/core/domain"

// Ledger counts successfully completed cycles per worker. Entries appear on
// the first completion and only ever grow.
type Ledger struct {
	counts map[domain.WorkerRef]int
}

func NewLedger() *Ledger {
	return &Ledger{counts: make(map[domain.WorkerRef]int)}
}

func (l *Ledger) Increment(w domain.WorkerRef) int {
	l.counts[w]++
	return l.counts[w]
}

func (l *Ledger) Count(w domain.WorkerRef) int {
	return l.counts[w]
}

func (l *Ledger) Snapshot() map[domain.WorkerRef]int {
	out := make(map[domain.WorkerRef]int, len(l.counts))
	for w, n := range l.counts {
		out[w] = n
	}
	return out
}
