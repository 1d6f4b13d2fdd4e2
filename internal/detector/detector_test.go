package detector

import (
	"testing"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/event"
	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/domain/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hashA = "11fadfcc9ddac1a6b5051cc93572fac6b9a9d838"
	hashB = "f9fa7382909d4a6096a2d79c0bb4d625ff8389f8"
)

var master = lane.Lane{ID: "nightly:master", DisplayName: "master", Kind: lane.KindNightly, Ref: "master"}

func res(commit string, v result.Verdict) result.Result {
	return result.Result{Commit: commit, Verdict: v, Timestamp: time.Unix(1617813041, 0).UTC()}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		results []result.Result
		cursor  string
		wantOK  bool
		wantDir event.Direction
	}{
		{name: "empty", results: nil},
		{name: "single failure", results: []result.Result{res(hashA, result.Failed)}, wantOK: true, wantDir: event.Failure},
		{name: "single pass", results: []result.Result{res(hashA, result.Passed)}},
		{
			name:    "repeat failure same commit",
			results: []result.Result{res(hashA, result.Failed), res(hashA, result.Failed)},
		},
		{
			name:    "new failing commit after failure",
			results: []result.Result{res(hashA, result.Failed), res(hashB, result.Failed)},
			wantOK:  true, wantDir: event.Failure,
		},
		{
			name:    "failure after pass",
			results: []result.Result{res(hashA, result.Failed), res(hashB, result.Passed)},
			wantOK:  true, wantDir: event.Failure,
		},
		{
			name:    "recovery",
			results: []result.Result{res(hashA, result.Passed), res(hashB, result.Failed)},
			wantOK:  true, wantDir: event.Recovery,
		},
		{
			name:    "pass after pass",
			results: []result.Result{res(hashA, result.Passed), res(hashB, result.Passed)},
		},
		{
			name:    "failure already reported",
			results: []result.Result{res(hashA, result.Failed), res(hashB, result.Passed)},
			cursor:  hashA,
		},
		{
			name:    "recovery already reported",
			results: []result.Result{res(hashA, result.Passed), res(hashB, result.Failed)},
			cursor:  hashA,
		},
		{
			name:    "cursor on older commit",
			results: []result.Result{res(hashA, result.Failed), res(hashB, result.Failed)},
			cursor:  hashB,
			wantOK:  true, wantDir: event.Failure,
		},
		{
			name:    "only two newest entries count",
			results: []result.Result{res(hashA, result.Passed), res(hashB, result.Passed), res("cc", result.Failed)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := Detect(master, tt.results, tt.cursor)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				assert.Equal(t, event.Event{}, ev)
				return
			}
			assert.Equal(t, tt.wantDir, ev.Direction)
			assert.Equal(t, tt.results[0], ev.Result)
			assert.Equal(t, master, ev.Lane)
		})
	}
}

func TestDetect_Scenarios(t *testing.T) {
	t.Run("A", func(t *testing.T) {
		ev, ok := Detect(master, []result.Result{res("aaaa", result.Failed)}, "")
		require.True(t, ok)
		assert.Equal(t, event.Failure, ev.Direction)
		assert.Equal(t, "aaaa", ev.Result.Commit)
	})
	t.Run("B", func(t *testing.T) {
		_, ok := Detect(master, []result.Result{res("aaaa", result.Failed), res("aaaa", result.Failed)}, "")
		assert.False(t, ok)
	})
	t.Run("C", func(t *testing.T) {
		ev, ok := Detect(master, []result.Result{res("bb", result.Passed), res("aa", result.Failed)}, "")
		require.True(t, ok)
		assert.Equal(t, event.Recovery, ev.Direction)
		assert.Equal(t, "bb", ev.Result.Commit)
	})
	t.Run("D", func(t *testing.T) {
		_, ok := Detect(master, []result.Result{res("bb", result.Passed), res("aa", result.Passed)}, "")
		assert.False(t, ok)
	})
}

func TestDetect_CursorOrSameCommitAlwaysSilent(t *testing.T) {
	verdicts := []result.Verdict{result.Passed, result.Failed}
	for _, v0 := range verdicts {
		for _, v1 := range verdicts {
			_, ok := Detect(master, []result.Result{res(hashA, v0), res(hashB, v1)}, hashA)
			assert.False(t, ok, "cursor match %s/%s", v0, v1)

			_, ok = Detect(master, []result.Result{res(hashA, v0), res(hashA, v1)}, "")
			assert.False(t, ok, "same commit %s/%s", v0, v1)
		}
		_, ok := Detect(master, []result.Result{res(hashA, v0)}, hashA)
		assert.False(t, ok, "single with cursor %s", v0)
	}
}

func TestDetect_RecoveryOnlyAfterFailure(t *testing.T) {
	verdicts := []result.Verdict{result.Passed, result.Failed}
	for _, v0 := range verdicts {
		for _, v1 := range verdicts {
			ev, ok := Detect(master, []result.Result{res(hashA, v0), res(hashB, v1)}, "")
			isRecovery := ok && ev.Direction == event.Recovery
			assert.Equal(t, v0 == result.Passed && v1 == result.Failed, isRecovery, "%s after %s", v0, v1)
			if v0 == result.Failed {
				require.True(t, ok)
				assert.Equal(t, event.Failure, ev.Direction)
			}
		}
	}
}
