package aggregator

import (
	"github.com/NordCoder/Nightwatch/internal/domain/event"
	"github.com/NordCoder/Nightwatch/internal/domain/lane"
)

// Outcome is the detection result of one lane on one tick. Event is nil when the
// lane has nothing to report.
type Outcome struct {
	Lane  lane.Lane
	Event *event.Event
}

type Report struct {
	Recoveries []event.Event
	Failures   []event.Event
}

// Nothing is the report of a tick in which no lane produced an event. It must never
// be sent.
var Nothing = Report{}

func (r Report) Empty() bool { return len(r.Recoveries) == 0 && len(r.Failures) == 0 }

// Events returns recoveries first, then failures.
func (r Report) Events() []event.Event {
	out := make([]event.Event, 0, len(r.Recoveries)+len(r.Failures))
	out = append(out, r.Recoveries...)
	return append(out, r.Failures...)
}

func (r Report) LaneIDs() []string {
	evs := r.Events()
	ids := make([]string, 0, len(evs))
	for _, ev := range evs {
		ids = append(ids, ev.Lane.ID)
	}
	return ids
}

func Aggregate(outcomes []Outcome) Report {
	var rep Report
	for _, o := range outcomes {
		if o.Event == nil {
			continue
		}
		switch o.Event.Direction {
		case event.Recovery:
			rep.Recoveries = append(rep.Recoveries, *o.Event)
		case event.Failure:
			rep.Failures = append(rep.Failures, *o.Event)
		}
	}
	if rep.Empty() {
		return Nothing
	}
	return rep
}
