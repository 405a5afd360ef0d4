package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type countingRefresher struct {
	calls atomic.Int32
	done  chan struct{}
}

func (c *countingRefresher) RefreshRemote(context.Context) (int, int) {
	c.calls.Add(1)
	select {
	case c.done <- struct{}{}:
	default:
	}
	return 2, 1
}

func TestReconcileWorkerRunOnce(t *testing.T) {
	r := &countingRefresher{done: make(chan struct{}, 1)}
	w := NewReconcileWorker(r, time.Minute, nil)

	refreshed, failed := w.RunOnce(context.Background())
	if refreshed != 2 || failed != 1 || r.calls.Load() != 1 {
		t.Fatalf("refreshed=%d failed=%d calls=%d", refreshed, failed, r.calls.Load())
	}
}

func TestReconcileWorkerTicks(t *testing.T) {
	r := &countingRefresher{done: make(chan struct{}, 1)}
	clock := clockwork.NewFakeClock()
	w := NewReconcileWorker(r, time.Minute, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ticker was not created: %v", err)
	}
	clock.Advance(time.Minute)

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not refresh after one interval")
	}
}
