package memory

import (
	"context"
	"sync"

	"github.com/NordCoder/Nightwatch/internal/domain/cursor"
)

var _ cursor.Store = (*CursorRepo)(nil)

// CursorRepo keeps cursors in process memory; they are lost on restart.
type CursorRepo struct {
	mu      sync.RWMutex
	cursors map[string]string
}

func NewCursorRepo() *CursorRepo {
	return &CursorRepo{cursors: make(map[string]string)}
}

func (r *CursorRepo) Get(_ context.Context, laneID string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cursors[laneID]
	return c, ok, nil
}

func (r *CursorRepo) Set(_ context.Context, laneID, commit string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursors[laneID] = commit
	return nil
}

func (r *CursorRepo) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.cursors))
	for k, v := range r.cursors {
		out[k] = v
	}
	return out
}
