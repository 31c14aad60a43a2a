package sink

import (
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

const (
	EventSource     = "plant-floor"
	EventTypePrefix = "com.plantfloor."
	runIDExtension  = "runid"
)

// EventType maps a plant action to its CloudEvents type, e.g. com.plantfloor.worker.timeout.
func EventType(a domain.Action) string {
	if a == domain.ActionFinish {
		return EventTypePrefix + "run.finish"
	}
	return EventTypePrefix + "worker." + string(a)
}

// ToCloudEvent wraps a plant event in a CloudEvents v1 envelope with a JSON payload.
func ToCloudEvent(ev domain.Event) (cloudevents.Event, error) {
	ce := cloudevents.NewEvent()
	ce.SetSpecVersion(cloudevents.VersionV1)
	ce.SetID(ev.ID)
	ce.SetType(EventType(ev.Action))
	ce.SetSource(EventSource)
	ce.SetTime(ev.Time)
	ce.SetExtension(runIDExtension, ev.RunID)
	if ev.HasWorker() {
		ce.SetSubject(ev.Worker.String())
	}

	if err := ce.SetData(cloudevents.ApplicationJSON, toRecord(ev)); err != nil {
		return ce, fmt.Errorf("set event data: %w", err)
	}
	return ce, nil
}
