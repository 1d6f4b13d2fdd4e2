package source

import (
	"context"
	"fmt"

	"github.com/NordCoder/Nightwatch/internal/domain/lane"
	"github.com/NordCoder/Nightwatch/internal/domain/result"
)

// Router picks the source matching the lane kind.
type Router map[lane.Kind]lane.Source

func (r Router) Results(ctx context.Context, l lane.Lane) ([]result.Result, error) {
	src, ok := r[l.Kind]
	if !ok || src == nil {
		return nil, fmt.Errorf("no source for %s lane %q", l.Kind, l.ID)
	}
	return src.Results(ctx, l)
}
