package aggregator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NordCoder/Nightwatch/internal/domain/event"
	"github.com/NordCoder/Nightwatch/internal/domain/lane"
)

var ErrNothingToReport = errors.New("nothing to report")

type Renderer struct {
	greet GreetingFunc
}

func NewRenderer(greet GreetingFunc) *Renderer {
	if greet == nil {
		greet = RandomGreeting(nil, nil)
	}
	return &Renderer{greet: greet}
}

// Render builds the Markdown message. It returns ErrNothingToReport for an empty report.
func (r *Renderer) Render(rep Report) (string, error) {
	if rep.Empty() {
		return "", ErrNothingToReport
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s Here is my morning report for the %s:\n\n", r.greet(), subject(rep))

	lines := make([]string, 0, len(rep.Recoveries)+len(rep.Failures))
	for _, ev := range rep.Events() {
		lines = append(lines, line(ev))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String(), nil
}

func subject(rep Report) string {
	var nightly, workflow bool
	for _, ev := range rep.Events() {
		switch ev.Lane.Kind {
		case lane.KindWorkflow:
			workflow = true
		default:
			nightly = true
		}
	}
	switch {
	case nightly && workflow:
		return "nightlies and workflows"
	case workflow:
		return "workflows"
	default:
		return "nightlies"
	}
}

func line(ev event.Event) string {
	name := "`" + ev.Lane.DisplayName + "`"
	if ev.Lane.Kind == lane.KindWorkflow {
		name += " workflow"
	}
	verb := "errored"
	if ev.Direction == event.Recovery {
		verb = "passed"
	}

	title := name + " " + verb
	if ev.Result.URL != "" {
		title = "[" + title + "](" + ev.Result.URL + ")"
	}

	s := "- " + title + " on " + CommitLink(ev.Lane, ev.Result.Commit)
	if ev.Direction == event.Recovery {
		s += " after having errored last time"
	}
	return s
}

// CommitLink renders the abbreviated commit as a Markdown link to the lane's commit URL.
func CommitLink(l lane.Lane, commit string) string {
	short := commit
	if len(short) > 10 {
		short = short[:10]
	}
	u := l.CommitLink(commit)
	if u == "" {
		return "`" + short + "`"
	}
	return "[" + short + "](" + u + ")"
}
