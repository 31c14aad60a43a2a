package port

import "github.com/rl1809/plant-floor/internal/core/domain"

type Recorder interface {
	// ObserveCycle records the outcome of one worker cycle and its elapsed time units
	ObserveCycle(kind domain.WorkerKind, outcome domain.Action, elapsed int)

	// IncAdmitRetries counts failed admission attempts
	IncAdmitRetries(kind domain.WorkerKind)

	// IncRollbacks counts rollbacks that moved inventory back to the buffer
	IncRollbacks(kind domain.WorkerKind, trigger string)

	// SetInventory publishes the quantity held at a location after a run
	SetInventory(loc domain.Location, quantity domain.Vector)

	// IncSinkErrors counts failed event writes
	IncSinkErrors()
}

type NopRecorder struct{}

func (NopRecorder) ObserveCycle(domain.WorkerKind, domain.Action, int) {}
func (NopRecorder) IncAdmitRetries(domain.WorkerKind) {}
func (NopRecorder) IncRollbacks(domain.WorkerKind, string) {}
func (NopRecorder) SetInventory(domain.Location, domain.Vector) {}
func (NopRecorder) IncSinkErrors() {}
