package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/domain/result"
	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/NordCoder/Nightwatch/internal/obs/retry"
	gogithub "github.com/google/go-github/v68/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	eventSchedule   = "schedule"
	statusCompleted = "completed"
)

var ErrUnresolved = errors.New("workflow lane has no resolved id")

type Config struct {
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Repo    string `mapstructure:"repo"`
	BaseURL string `mapstructure:"base_url"`
	PerPage int    `mapstructure:"per_page"`
}

// Source reads scheduled, completed runs of GitHub Actions workflows.
type Source struct {
	gh       *gogithub.Client
	org      string
	repo     string
	perPage  int
	attempts int
	log      *zap.Logger
}

func New(cfg Config, base *http.Client, attempts int) (*Source, error) {
	if cfg.Org == "" || cfg.Repo == "" {
		return nil, errors.New("github: org and repo are required")
	}
	if base == nil {
		base = &http.Client{}
	}

	hc := base
	if cfg.Token != "" {
		hc = &http.Client{
			Timeout: base.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
				Base:   base.Transport,
			},
		}
	}

	gh := gogithub.NewClient(hc)
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("github: base url: %w", err)
		}
		gh.BaseURL = u
	}

	perPage := cfg.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 30
	}
	return &Source{
		gh:       gh,
		org:      cfg.Org,
		repo:     cfg.Repo,
		perPage:  perPage,
		attempts: attempts,
		log:      zap.L().With(zap.String("component", "source.github")),
	}, nil
}

func (s *Source) WithLogger(l *zap.Logger) *Source {
	if l == nil {
		return s
	}
	cp := *s
	cp.log = obs.Component(l, "source.github")
	return &cp
}

// Resolve fills WorkflowID of every workflow lane. A name the repository does
// not know yields lane.ErrUnknownWorkflow.
func (s *Source) Resolve(ctx context.Context, lanes []lane.Lane) ([]lane.Lane, error) {
	ids, err := s.workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	out := make([]lane.Lane, len(lanes))
	copy(out, lanes)
	for i := range out {
		if out[i].Kind != lane.KindWorkflow {
			continue
		}
		id, ok := ids[out[i].Ref]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s/%s", lane.ErrUnknownWorkflow, out[i].Ref, s.org, s.repo)
		}
		out[i].WorkflowID = id
		s.log.Info("workflow resolved", zap.String("lane", out[i].ID), zap.Int64("workflow_id", id))
	}
	return out, nil
}

func (s *Source) workflows(ctx context.Context) (map[string]int64, error) {
	ids := make(map[string]int64)
	opts := &gogithub.ListOptions{PerPage: 100}
	for {
		var (
			page *gogithub.Workflows
			resp *gogithub.Response
		)
		err := retry.Do(ctx, func() error {
			var err error
			page, resp, err = s.gh.Actions.ListWorkflows(ctx, s.org, s.repo, opts)
			return classify(err)
		}, retry.SourcePolicy("source_github_workflows", s.attempts, s.log))
		if err != nil {
			return nil, err
		}
		for _, w := range page.Workflows {
			ids[w.GetName()] = w.GetID()
		}
		if resp == nil || resp.NextPage == 0 {
			return ids, nil
		}
		opts.Page = resp.NextPage
	}
}

func (s *Source) Results(ctx context.Context, l lane.Lane) ([]result.Result, error) {
	if l.WorkflowID == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, l.ID)
	}
	log := obs.WithTrace(ctx, s.log).With(zap.String("lane", l.ID), zap.Int64("workflow_id", l.WorkflowID))

	opts := &gogithub.ListWorkflowRunsOptions{
		Event:       eventSchedule,
		Status:      statusCompleted,
		ListOptions: gogithub.ListOptions{PerPage: s.perPage},
	}
	var runs *gogithub.WorkflowRuns
	err := retry.Do(ctx, func() error {
		var err error
		runs, _, err = s.gh.Actions.ListWorkflowRunsByID(ctx, s.org, s.repo, l.WorkflowID, opts)
		return classify(err)
	}, retry.SourcePolicy("source_github_runs", s.attempts, log))
	if err != nil {
		return nil, fmt.Errorf("list runs of %s: %w", l.Ref, err)
	}

	out := make([]result.Result, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		if run.GetEvent() != eventSchedule || run.GetStatus() != statusCompleted || run.GetHeadSHA() == "" {
			continue
		}
		v, err := result.ParseVerdict(run.GetConclusion())
		if err != nil {
			log.Debug("skipping run", zap.Int64("run_id", run.GetID()), zap.String("conclusion", run.GetConclusion()))
			continue
		}
		out = append(out, toResult(l, run, v))
	}
	log.Debug("runs fetched", zap.Int("runs", len(runs.WorkflowRuns)), zap.Int("results", len(out)))
	return out, nil
}

func toResult(l lane.Lane, run *gogithub.WorkflowRun, v result.Verdict) result.Result {
	commit := run.GetHeadSHA()
	link := l.ResultLink(commit)
	if link == "" {
		link = run.GetHTMLURL()
	}
	ts := run.GetRunStartedAt().Time
	if ts.IsZero() {
		ts = run.GetCreatedAt().Time
	}
	return result.Result{Commit: commit, Verdict: v, Timestamp: ts.UTC(), URL: link}
}

// classify marks 4xx responses except 429 as not retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rl *gogithub.RateLimitError
	if errors.As(err, &rl) {
		return retry.Permanent(err)
	}
	var er *gogithub.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		code := er.Response.StatusCode
		if code < 500 && code != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
	}
	return err
}
