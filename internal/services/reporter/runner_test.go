package reporter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingTicker struct {
	n     atomic.Int32
	err   error
	block chan struct{}
}

func (c *countingTicker) Tick(ctx context.Context) (TickStats, error) {
	c.n.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	return TickStats{Lanes: 1, Failures: 1, Published: c.err == nil}, c.err
}

func TestRunner_Once(t *testing.T) {
	ct := &countingTicker{}
	stats, err := New(zap.NewNop(), ct, Schedule{}).Once(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Published)
	assert.Equal(t, int32(1), ct.n.Load())

	ct.err = errors.New("publish report: broker down")
	_, err = New(zap.NewNop(), ct, Schedule{}).Once(context.Background())
	assert.Error(t, err)
}

func TestRunner_SkipsOverlappingTick(t *testing.T) {
	ct := &countingTicker{block: make(chan struct{})}
	r := New(zap.NewNop(), ct, Schedule{})

	done := make(chan struct{})
	go func() {
		_, _ = r.Once(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return ct.n.Load() == 1 }, time.Second, 5*time.Millisecond)

	stats, err := r.Once(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TickStats{}, stats)
	assert.Equal(t, int32(1), ct.n.Load())

	close(ct.block)
	<-done
}

func TestRunner_TickerLoop(t *testing.T) {
	ct := &countingTicker{}
	r := New(zap.NewNop(), ct, Schedule{Tick: 10 * time.Millisecond, RunOnStart: true})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return ct.n.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestRunner_CronLoopStops(t *testing.T) {
	ct := &countingTicker{}
	r := New(zap.NewNop(), ct, Schedule{Cron: "0 7 * * *"})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cron runner did not stop")
	}
}

func TestRunner_BadSchedules(t *testing.T) {
	err := New(zap.NewNop(), &countingTicker{}, Schedule{Cron: "every morning"}).Run(context.Background())
	assert.ErrorContains(t, err, "parse cron")

	err = New(zap.NewNop(), &countingTicker{}, Schedule{}).Run(context.Background())
	assert.Error(t, err)
}
