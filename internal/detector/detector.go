// Package detector decides whether the newest result of a lane is worth reporting.
package detector

import (
	"github.com/NordCoder/Nightwatch/internal/domain/event"
	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/domain/result"
)

// Detect inspects the two newest entries of results (ordered newest first) and
// returns an event when the newest one is a failure on a commit not seen before, or
// a pass directly following a failure. lastReported is the lane cursor; "" means the
// lane has none.
//
// Detect never touches the cursor store. When it returns ok, the caller must persist
// the event's commit as the new cursor before the next poll.
func Detect(l lane.Lane, results []result.Result, lastReported string) (event.Event, bool) {
	if len(results) == 0 {
		return event.Event{}, false
	}
	latest := results[0]
	if lastReported != "" && latest.Commit == lastReported {
		return event.Event{}, false
	}

	var prev *result.Result
	if len(results) > 1 {
		prev = &results[1]
		// the feed repeats the same run
		if latest.Commit == prev.Commit {
			return event.Event{}, false
		}
	}

	switch {
	case latest.Verdict == result.Failed:
		return event.Event{Lane: l, Result: latest, Direction: event.Failure}, true
	case latest.Verdict == result.Passed && prev != nil && prev.Verdict == result.Failed:
		return event.Event{Lane: l, Result: latest, Direction: event.Recovery}, true
	}
	return event.Event{}, false
}
