package lane

import (
	"context"

	"github.com/NordCoder/Nightwatch/internal/domain/result"
)

// Source returns the recent results of a lane, newest first.
type Source interface {
	Results(ctx context.Context, l Lane) ([]result.Result, error)
}
