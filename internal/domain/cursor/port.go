package cursor

import "context"

// Store keeps the last reported commit per lane id. Get reports ok=false when the
// lane has no cursor yet.
type Store interface {
	Get(ctx context.Context, laneID string) (commit string, ok bool, err error)
	Set(ctx context.Context, laneID, commit string) error
}
