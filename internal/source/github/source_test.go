package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NordCoder/Nightwatch/internal/detector"
	"github.com/NordCoder/Nightwatch/internal/domain/event"
	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/domain/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/RIOT-OS/RIOT/actions/workflows", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		if r.URL.Query().Get("page") == "2" {
			_, _ = io.WriteString(w, `{"total_count":2,"workflows":[{"id":202,"name":"tools-test"}]}`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=2>; rel="next"`, "http://"+r.Host, r.URL.Path))
		_, _ = io.WriteString(w, `{"total_count":2,"workflows":[{"id":101,"name":"static-test"}]}`)
	})
	mux.HandleFunc("/repos/RIOT-OS/RIOT/actions/workflows/101/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "schedule", r.URL.Query().Get("event"))
		assert.Equal(t, "completed", r.URL.Query().Get("status"))
		_, _ = io.WriteString(w, `{"total_count":4,"workflow_runs":[
			{"id":4,"head_sha":"cccc","event":"schedule","status":"completed","conclusion":"cancelled","html_url":"https://gh/runs/4"},
			{"id":3,"head_sha":"bbbb","event":"schedule","status":"completed","conclusion":"success","html_url":"https://gh/runs/3","run_started_at":"2024-05-02T03:00:00Z"},
			{"id":2,"head_sha":"aaaa","event":"push","status":"completed","conclusion":"failure","html_url":"https://gh/runs/2"},
			{"id":1,"head_sha":"9999","event":"schedule","status":"completed","conclusion":"failure","html_url":"https://gh/runs/1","created_at":"2024-05-01T03:00:00Z"}
		]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newSource(t *testing.T, srv *httptest.Server) *Source {
	t.Helper()
	s, err := New(Config{Token: "ghp_test", Org: "RIOT-OS", Repo: "RIOT", BaseURL: srv.URL}, srv.Client(), 1)
	require.NoError(t, err)
	return s
}

func workflowLane(name string) lane.Lane {
	return lane.Lane{ID: "workflow:" + name, DisplayName: name, Kind: lane.KindWorkflow, Ref: name}
}

func TestResolve(t *testing.T) {
	s := newSource(t, newServer(t))
	nightly := lane.Lane{ID: "nightly:master", Kind: lane.KindNightly, Ref: "master"}

	got, err := s.Resolve(context.Background(), []lane.Lane{nightly, workflowLane("static-test"), workflowLane("tools-test")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got[0].WorkflowID)
	assert.Equal(t, int64(101), got[1].WorkflowID)
	assert.Equal(t, int64(202), got[2].WorkflowID)
}

func TestResolve_UnknownWorkflow(t *testing.T) {
	s := newSource(t, newServer(t))
	_, err := s.Resolve(context.Background(), []lane.Lane{workflowLane("does-not-exist")})
	assert.ErrorIs(t, err, lane.ErrUnknownWorkflow)
}

func TestResults_ScheduledCompletedOnly(t *testing.T) {
	s := newSource(t, newServer(t))
	l := workflowLane("static-test")
	l.WorkflowID = 101

	got, err := s.Results(context.Background(), l)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, result.Result{
		Commit:    "bbbb",
		Verdict:   result.Passed,
		Timestamp: time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC),
		URL:       "https://gh/runs/3",
	}, got[0])
	assert.Equal(t, "9999", got[1].Commit)
	assert.Equal(t, result.Failed, got[1].Verdict)
	assert.Equal(t, time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC), got[1].Timestamp)

	// the cancelled run is gone, so bbbb reads as the recovery
	ev, ok := detector.Detect(l, got, "")
	require.True(t, ok)
	assert.Equal(t, event.Recovery, ev.Direction)
	assert.Equal(t, "bbbb", ev.Result.Commit)
}

func TestResults_LaneTemplateWins(t *testing.T) {
	s := newSource(t, newServer(t))
	l := workflowLane("static-test")
	l.WorkflowID = 101
	l.ResultURL = "https://ci.example.org/{workflow}/{commit}"

	got, err := s.Results(context.Background(), l)
	require.NoError(t, err)
	assert.Equal(t, "https://ci.example.org/static-test/bbbb", got[0].URL)
}

func TestResults_Unresolved(t *testing.T) {
	s := newSource(t, newServer(t))
	_, err := s.Results(context.Background(), workflowLane("static-test"))
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResults_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Not Found"}`)
	}))
	defer srv.Close()

	s, err := New(Config{Org: "RIOT-OS", Repo: "RIOT", BaseURL: srv.URL}, srv.Client(), 3)
	require.NoError(t, err)
	l := workflowLane("static-test")
	l.WorkflowID = 101

	_, err = s.Results(context.Background(), l)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNew_RequiresRepo(t *testing.T) {
	_, err := New(Config{Org: "RIOT-OS"}, nil, 1)
	assert.Error(t, err)
}
