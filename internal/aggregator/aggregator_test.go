package aggregator

import (
	"strings"
	"testing"

	"github.com/NordCoder/Nightwatch/internal/domain/event"
	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/domain/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commitURL = "https://github.com/RIOT-OS/RIOT/commit/{commit}"

func nightly(branch string) lane.Lane {
	return lane.Lane{ID: "nightly:" + branch, DisplayName: branch, Kind: lane.KindNightly, Ref: branch, CommitURL: commitURL}
}

func workflow(name string) lane.Lane {
	return lane.Lane{ID: "workflow:" + name, DisplayName: name, Kind: lane.KindWorkflow, Ref: name, CommitURL: commitURL}
}

func ev(l lane.Lane, commit, url string, d event.Direction) *event.Event {
	v := result.Failed
	if d == event.Recovery {
		v = result.Passed
	}
	return &event.Event{Lane: l, Result: result.Result{Commit: commit, Verdict: v, URL: url}, Direction: d}
}

func TestAggregate_AllAbsent(t *testing.T) {
	rep := Aggregate([]Outcome{{Lane: nightly("master")}, {Lane: workflow("release-tests")}})
	assert.True(t, rep.Empty())
	assert.Equal(t, Nothing, rep)

	_, err := NewRenderer(FixedGreeting("Hello!")).Render(rep)
	assert.ErrorIs(t, err, ErrNothingToReport)

	assert.True(t, Aggregate(nil).Empty())
}

func TestAggregate_RecoveriesFirstInLaneOrder(t *testing.T) {
	a, b, c, d := nightly("a"), nightly("b"), workflow("c"), nightly("d")
	rep := Aggregate([]Outcome{
		{Lane: a, Event: ev(a, "a1", "", event.Failure)},
		{Lane: b, Event: ev(b, "b1", "", event.Recovery)},
		{Lane: c},
		{Lane: c, Event: ev(c, "c1", "", event.Failure)},
		{Lane: d, Event: ev(d, "d1", "", event.Recovery)},
	})
	require.False(t, rep.Empty())
	assert.Equal(t, []string{"nightly:b", "nightly:d", "nightly:a", "workflow:c"}, rep.LaneIDs())
	assert.Len(t, rep.Recoveries, 2)
	assert.Len(t, rep.Failures, 2)
}

func TestRender_MatchesMorningReport(t *testing.T) {
	master, old := nightly("master"), nightly("2020.07-branch")
	rep := Aggregate([]Outcome{
		{Lane: master, Event: ev(master, "11fadfcc9ddac1a6b5051cc93572fac6b9a9d838", "https://example.org/passed", event.Recovery)},
		{Lane: old, Event: ev(old, "f9fa7382909d4a6096a2d79c0bb4d625ff8389f8", "https://example.org/errored", event.Failure)},
	})

	msg, err := NewRenderer(FixedGreeting("Hello!")).Render(rep)
	require.NoError(t, err)
	assert.Equal(t, `Hello! Here is my morning report for the nightlies:

- [`+"`master`"+` passed](https://example.org/passed) on [11fadfcc9d](https://github.com/RIOT-OS/RIOT/commit/11fadfcc9ddac1a6b5051cc93572fac6b9a9d838) after having errored last time
- [`+"`2020.07-branch`"+` errored](https://example.org/errored) on [f9fa738290](https://github.com/RIOT-OS/RIOT/commit/f9fa7382909d4a6096a2d79c0bb4d625ff8389f8)`, msg)
}

func TestRender_ScenarioE(t *testing.T) {
	failing, recovering := nightly("failing"), workflow("recovering")
	rep := Aggregate([]Outcome{
		{Lane: failing, Event: ev(failing, "aaaa", "https://ci/1", event.Failure)},
		{Lane: recovering, Event: ev(recovering, "bbbb", "https://ci/2", event.Recovery)},
	})
	msg, err := NewRenderer(FixedGreeting("Hi!")).Render(rep)
	require.NoError(t, err)

	lines := strings.Split(msg, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Hi! Here is my morning report for the nightlies and workflows:", lines[0])
	assert.Equal(t, "- [`recovering` workflow passed](https://ci/2) on [bbbb](https://github.com/RIOT-OS/RIOT/commit/bbbb) after having errored last time", lines[2])
	assert.Equal(t, "- [`failing` errored](https://ci/1) on [aaaa](https://github.com/RIOT-OS/RIOT/commit/aaaa)", lines[3])
}

func TestRender_WorkflowsOnlyWithoutLinks(t *testing.T) {
	l := workflow("test-on-iotlab")
	l.CommitURL = ""
	rep := Aggregate([]Outcome{{Lane: l, Event: ev(l, "0123456789abcdef", "", event.Failure)}})
	msg, err := NewRenderer(FixedGreeting("Greetings!")).Render(rep)
	require.NoError(t, err)
	assert.Equal(t, "Greetings! Here is my morning report for the workflows:\n\n- `test-on-iotlab` workflow errored on `0123456789`", msg)
}

func TestRandomGreeting(t *testing.T) {
	g := RandomGreeting(nil, nil)
	for i := 0; i < 20; i++ {
		s := g()
		var ok bool
		for _, gr := range DefaultGreetings {
			for _, sa := range DefaultSalutations {
				ok = ok || s == gr+sa
			}
		}
		assert.True(t, ok, "unexpected greeting %q", s)
	}
	assert.Equal(t, "Moin!", RandomGreeting([]string{"Moin"}, []string{"!"})())
}
