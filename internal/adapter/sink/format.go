package sink

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FormatLine renders an event as one plant log line, e.g.
// "Part Worker 3: Generating load order: [1, 0, 2, 5, 3]". Finish events
// render as their bare message.
func FormatLine(ev domain.Event) string {
	if !ev.HasWorker() {
		return ev.Message
	}
	return fmt.Sprintf("%s %d: %s", domain.ProfileFor(ev.Worker.Kind).Label, ev.Worker.ID, ev.Message)
}

// record is the JSON shape shared by the file, Redis and Kafka sinks.
type record struct {
	ID         string    `json:"id"`
	RunID      string    `json:"runId"`
	WorkerType string    `json:"workerType,omitempty"`
	WorkerID   int       `json:"workerId,omitempty"`
	Action     string    `json:"action"`
	Message    string    `json:"message"`
	Cycle      int       `json:"cycle,omitempty"`
	Quantity   []int     `json:"quantity,omitempty"`
	Elapsed    int       `json:"elapsed,omitempty"`
	Time       time.Time `json:"time"`
}

func toRecord(ev domain.Event) record {
	r := record{
		ID:      ev.ID,
		RunID:   ev.RunID,
		Action:  string(ev.Action),
		Message: ev.Message,
		Cycle:   ev.Cycle,
		Elapsed: ev.Elapsed,
		Time:    ev.Time,
	}
	if ev.HasWorker() {
		r.WorkerType = string(ev.Worker.Kind)
		r.WorkerID = ev.Worker.ID
	}
	if !ev.Quantity.IsZero() {
		r.Quantity = ev.Quantity[:]
	}
	return r
}
