package domain

import "time"

type Action string

const (
	ActionOrderGenerated  Action = "order_generated"
	ActionWaiting         Action = "waiting"
	ActionLoaded          Action = "loaded"
	ActionPickedUp        Action = "picked_up"
	ActionMoved           Action = "moved"
	ActionCompleted       Action = "completed"
	ActionTimeout         Action = "timeout"
	ActionRolledBack      Action = "rolled_back"
	ActionReservationLost Action = "reservation_lost"
	ActionGaveUp          Action = "gave_up"
	ActionFinish          Action = "finish"
)

// Event is one record of the plant log. Finish events carry a zero Worker.
type Event struct {
	ID       string
	RunID    string
	Worker   WorkerRef
	Action   Action
	Message  string
	Cycle    int
	Quantity Vector
	Elapsed  int
	Time     time.Time
}

func (e Event) HasWorker() bool {
	return e.Worker.Kind != ""
}
