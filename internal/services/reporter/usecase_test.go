package reporter

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Nightwatch/internal/aggregator"
	"github.com/NordCoder/Nightwatch/internal/domain/cursor"
	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/domain/report"
	"github.com/NordCoder/Nightwatch/internal/domain/result"
	"github.com/NordCoder/Nightwatch/internal/repository/memory"
	"github.com/NordCoder/Nightwatch/internal/services/reporter/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const commitURL = "https://github.com/RIOT-OS/RIOT/commit/{commit}"

var (
	master = lane.Lane{ID: "nightly:master", DisplayName: "master", Kind: lane.KindNightly, Ref: "master",
		CommitURL: commitURL, ResultURL: "https://ci.riot-os.org/details/{branch}/{commit}"}
	release = lane.Lane{ID: "nightly:2020.07-branch", DisplayName: "2020.07-branch", Kind: lane.KindNightly, Ref: "2020.07-branch",
		CommitURL: commitURL, ResultURL: "https://ci.riot-os.org/details/{branch}/{commit}"}
	static = lane.Lane{ID: "workflow:static-test", DisplayName: "static-test", Kind: lane.KindWorkflow, Ref: "static-test",
		CommitURL: commitURL, WorkflowID: 7}
)

type fakeSource struct {
	mu      sync.Mutex
	results map[string][]result.Result
	errs    map[string]error
	calls   int
}

func (f *fakeSource) Results(_ context.Context, l lane.Lane) ([]result.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[l.ID]; err != nil {
		return nil, err
	}
	return f.results[l.ID], nil
}

type capturePub struct {
	reports []*report.Report
	err     error
}

func (c *capturePub) Publish(_ context.Context, r *report.Report) error {
	if c.err != nil {
		return c.err
	}
	c.reports = append(c.reports, r)
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type flakyCursors struct {
	*memory.CursorRepo
	getErr error
	setErr map[string]error
}

func (f *flakyCursors) Get(ctx context.Context, id string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.CursorRepo.Get(ctx, id)
}

func (f *flakyCursors) Set(ctx context.Context, id, commit string) error {
	if err := f.setErr[id]; err != nil {
		return err
	}
	return f.CursorRepo.Set(ctx, id, commit)
}

func res(commit string, v result.Verdict, l lane.Lane) result.Result {
	return result.Result{Commit: commit, Verdict: v, URL: l.ResultLink(commit)}
}

const (
	shaPass = "11fadfcc9ddac1a6b5051cc93572fac6b9a9d838"
	shaFail = "f9fa7382909d4a6096a2d79c0bb4d625ff8389f8"
	shaOld  = "93ba8bea3b7a6b1bd9ddcec65fe5feb3ec3bfc4c"
)

func newUC(src *fakeSource, cursors cursor.Store, pub report.Publisher, lanes ...lane.Lane) *Usecase {
	uc := NewUC(lanes, src, cursors, aggregator.NewRenderer(aggregator.FixedGreeting("Hello!")), pub,
		fixedClock{t: time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)}, Options{Concurrency: 2}).WithLogger(zap.NewNop())
	uc.NewID = func() string { return "report-1" }
	return uc
}

func TestTick_RecoveryBeforeFailure(t *testing.T) {
	src := &fakeSource{results: map[string][]result.Result{
		release.ID: {res(shaFail, result.Failed, release)},
		master.ID:  {res(shaPass, result.Passed, master), res(shaOld, result.Failed, master)},
	}}
	cursors := memory.NewCursorRepo()
	pub := &capturePub{}

	stats, err := newUC(src, cursors, pub, release, master).Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TickStats{Lanes: 2, Failures: 1, Recoveries: 1, ReportID: "report-1", Published: true}, stats)
	require.Len(t, pub.reports, 1)
	rep := pub.reports[0]
	assert.Equal(t, "Hello! Here is my morning report for the nightlies:\n\n"+
		"- [`master` passed](https://ci.riot-os.org/details/master/"+shaPass+") on [11fadfcc9d](https://github.com/RIOT-OS/RIOT/commit/"+shaPass+") after having errored last time\n"+
		"- [`2020.07-branch` errored](https://ci.riot-os.org/details/2020.07-branch/"+shaFail+") on [f9fa738290](https://github.com/RIOT-OS/RIOT/commit/"+shaFail+")",
		rep.Text)
	assert.Equal(t, []string{master.ID, release.ID}, rep.Lanes)
	assert.Equal(t, time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC), rep.CreatedAt)

	assert.Equal(t, map[string]string{master.ID: shaPass, release.ID: shaFail}, cursors.Snapshot())
}

func TestTick_SecondTickIsQuiet(t *testing.T) {
	src := &fakeSource{results: map[string][]result.Result{
		static.ID: {res(shaFail, result.Failed, static)},
	}}
	cursors := memory.NewCursorRepo()
	pub := &capturePub{}
	uc := newUC(src, cursors, pub, static)

	_, err := uc.Tick(context.Background())
	require.NoError(t, err)
	stats, err := uc.Tick(context.Background())
	require.NoError(t, err)

	assert.False(t, stats.Published)
	assert.Len(t, pub.reports, 1)
	assert.Contains(t, pub.reports[0].Text, "for the workflows:")
	assert.Contains(t, pub.reports[0].Text, "- `static-test` workflow errored on [f9fa738290]")
}

func TestTick_NothingToReportSendsNothing(t *testing.T) {
	src := &fakeSource{results: map[string][]result.Result{
		master.ID: {res(shaPass, result.Passed, master), res(shaOld, result.Passed, master)},
	}}
	cursors := memory.NewCursorRepo()
	pub := &capturePub{}

	stats, err := newUC(src, cursors, pub, master, release).Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.Published)
	assert.Empty(t, pub.reports)
	assert.Empty(t, cursors.Snapshot())
}

func TestTick_FetchFailureSilencesOnlyThatLane(t *testing.T) {
	src := &fakeSource{
		results: map[string][]result.Result{release.ID: {res(shaFail, result.Failed, release)}},
		errs:    map[string]error{master.ID: errors.New("502 bad gateway")},
	}
	pub := &capturePub{}

	stats, err := newUC(src, memory.NewCursorRepo(), pub, master, release).Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FetchErrors)
	require.Len(t, pub.reports, 1)
	assert.Equal(t, []string{release.ID}, pub.reports[0].Lanes)
}

func TestTick_CursorReadFailureMeansNoCursor(t *testing.T) {
	cursors := &flakyCursors{CursorRepo: memory.NewCursorRepo(), getErr: errors.New("db down")}
	require.NoError(t, cursors.CursorRepo.Set(context.Background(), release.ID, shaFail))

	src := &fakeSource{results: map[string][]result.Result{release.ID: {res(shaFail, result.Failed, release)}}}
	pub := &capturePub{}

	_, err := newUC(src, cursors, pub, release).Tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, pub.reports, 1)
}

func TestTick_CursorWriteFailureIsSurfaced(t *testing.T) {
	boom := errors.New("disk full")
	cursors := &flakyCursors{CursorRepo: memory.NewCursorRepo(), setErr: map[string]error{master.ID: boom}}
	src := &fakeSource{results: map[string][]result.Result{
		master.ID:  {res(shaFail, result.Failed, master)},
		release.ID: {res(shaOld, result.Failed, release)},
	}}
	pub := &capturePub{}

	stats, err := newUC(src, cursors, pub, master, release).Tick(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, stats.Published)
	assert.Len(t, pub.reports, 1)
	assert.Equal(t, map[string]string{release.ID: shaOld}, cursors.Snapshot())
}

func TestTick_PublishFailureKeepsCursors(t *testing.T) {
	cursors := memory.NewCursorRepo()
	src := &fakeSource{results: map[string][]result.Result{master.ID: {res(shaFail, result.Failed, master)}}}
	pub := &capturePub{err: errors.New("kafka unavailable")}

	stats, err := newUC(src, cursors, pub, master).Tick(context.Background())
	require.Error(t, err)
	assert.False(t, stats.Published)
	assert.Empty(t, cursors.Snapshot())
}

func TestTick_DryRunPrintsWithoutCursors(t *testing.T) {
	cursors := memory.NewCursorRepo()
	src := &fakeSource{results: map[string][]result.Result{master.ID: {res(shaFail, result.Failed, master)}}}
	var out bytes.Buffer

	uc := newUC(src, cursors, repo.PrintPublisher{W: &out}, master)
	uc.Opts.DryRun = true
	_, err := uc.Tick(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "- [`master` errored]")
	assert.Empty(t, cursors.Snapshot())
}

func TestTick_AlwaysAbsentStoreFallsBackToAdjacentDedup(t *testing.T) {
	src := &fakeSource{results: map[string][]result.Result{
		master.ID: {res(shaFail, result.Failed, master), res(shaFail, result.Failed, master)},
	}}
	pub := &capturePub{}

	_, err := newUC(src, absentStore{}, pub, master).Tick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pub.reports)
}

type absentStore struct{}

func (absentStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (absentStore) Set(context.Context, string, string) error         { return nil }
