package result

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Verdict int

const (
	Passed Verdict = iota + 1
	Failed
)

var ErrUnknownVerdict = errors.New("unknown verdict")

func (v Verdict) String() string {
	switch v {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseVerdict maps the values used by the nightly feed ("passed", "errored") and
// by GitHub Actions conclusions ("success", "failure") onto a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passed", "success":
		return Passed, nil
	case "errored", "failure", "failed":
		return Failed, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVerdict, s)
}

type Result struct {
	Commit    string    `json:"commit"`
	Verdict   Verdict   `json:"verdict"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
}

func (r Result) ShortCommit() string {
	if len(r.Commit) <= 10 {
		return r.Commit
	}
	return r.Commit[:10]
}
