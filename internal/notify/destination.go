package notify

import (
	"context"

	"github.com/NordCoder/Nightwatch/internal/domain/report"
)

// Destination is one kind of chat or mail sink. A destination may fan out to
// several targets (rooms, addresses).
type Destination interface {
	Name() string
	Configured() bool
	Targets(ctx context.Context) ([]string, error)
	Send(ctx context.Context, target string, rep *report.Report) error
}
