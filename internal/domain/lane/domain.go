package lane

import (
	"errors"
	"strings"
)

type Kind int

const (
	KindNightly Kind = iota + 1
	KindWorkflow
)

func (k Kind) String() string {
	switch k {
	case KindNightly:
		return "nightly"
	case KindWorkflow:
		return "workflow"
	default:
		return "unknown"
	}
}

var ErrUnknownWorkflow = errors.New("workflow not found upstream")

type Lane struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Kind        Kind   `json:"kind"`
	// Ref is the branch of a nightly lane or the workflow name of a workflow lane.
	Ref        string `json:"ref"`
	WorkflowID int64  `json:"workflow_id,omitempty"`
	CommitURL  string `json:"commit_url"`
	ResultURL  string `json:"result_url"`
}

func (l Lane) CommitLink(commit string) string { return l.Expand(l.CommitURL, commit) }

// ResultLink returns "" when the lane has no result template.
func (l Lane) ResultLink(commit string) string { return l.Expand(l.ResultURL, commit) }

// Expand fills the {commit} placeholder of tmpl and {branch}, {lane} or {workflow},
// which all name the lane Ref.
func (l Lane) Expand(tmpl, commit string) string {
	if tmpl == "" {
		return ""
	}
	return strings.NewReplacer(
		"{branch}", l.Ref,
		"{lane}", l.Ref,
		"{workflow}", l.Ref,
		"{commit}", commit,
	).Replace(tmpl)
}
