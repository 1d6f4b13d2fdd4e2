package nightly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/domain/result"
	"github.com/NordCoder/Nightwatch/internal/obs"
	"github.com/NordCoder/Nightwatch/internal/obs/retry"
	"go.uber.org/zap"
)

var ErrMalformed = errors.New("malformed nightly feed")

const maxBody = 8 << 20

type entry struct {
	Result string  `json:"result"`
	Commit string  `json:"commit"`
	Since  float64 `json:"since"`
}

// Source reads a per-branch JSON feed of nightly results, newest first.
// FeedURL may use the {branch} placeholder.
type Source struct {
	client   *http.Client
	feedURL  string
	attempts int
	log      *zap.Logger
}

func New(client *http.Client, feedURL string, attempts int) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{
		client:   client,
		feedURL:  feedURL,
		attempts: attempts,
		log:      zap.L().With(zap.String("component", "source.nightly")),
	}
}

func (s *Source) WithLogger(l *zap.Logger) *Source {
	if l == nil {
		return s
	}
	cp := *s
	cp.log = obs.Component(l, "source.nightly")
	return &cp
}

func (s *Source) Results(ctx context.Context, l lane.Lane) ([]result.Result, error) {
	url := l.Expand(s.feedURL, "")
	log := obs.WithTrace(ctx, s.log).With(zap.String("lane", l.ID), zap.String("url", url))

	var entries []entry
	err := retry.Do(ctx, func() error {
		var err error
		entries, err = s.fetch(ctx, url)
		return err
	}, retry.SourcePolicy("source_nightly", s.attempts, log))
	if err != nil {
		return nil, err
	}

	out := make([]result.Result, 0, len(entries))
	for i, e := range entries {
		if e.Commit == "" {
			return nil, fmt.Errorf("%w: entry %d has no commit", ErrMalformed, i)
		}
		v, err := result.ParseVerdict(e.Result)
		if err != nil {
			log.Debug("skipping entry", zap.String("commit", e.Commit), zap.String("result", e.Result))
			continue
		}
		out = append(out, result.Result{
			Commit:    e.Commit,
			Verdict:   v,
			Timestamp: unixUTC(e.Since),
			URL:       l.ResultLink(e.Commit),
		})
	}
	log.Debug("nightlies fetched", zap.Int("entries", len(entries)), zap.Int("results", len(out)))
	return out, nil
}

func (s *Source) fetch(ctx context.Context, url string) ([]entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("nightly feed %s: status %d", url, resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, retry.Permanent(err)
	}

	var entries []entry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&entries); err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	return entries, nil
}

func unixUTC(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
