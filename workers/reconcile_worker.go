// workers/reconcile_worker.go
package workers

import (
	"context"
	"time"

	"airdrop-campaign/utils"

	"github.com/jonboulle/clockwork"
)

// RemoteRefresher is the part of the session hub the worker drives.
type RemoteRefresher interface {
	RefreshRemote(ctx context.Context) (refreshed, failed int)
}

// ReconcileWorker periodically pulls profile-service progress into every
// open remote-mode session so totals changed elsewhere show up live.
type ReconcileWorker struct {
	hub      RemoteRefresher
	interval time.Duration
	clock    clockwork.Clock
	timeout  time.Duration
}

func NewReconcileWorker(hub RemoteRefresher, interval time.Duration, clock clockwork.Clock) *ReconcileWorker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ReconcileWorker{
		hub:      hub,
		interval: interval,
		clock:    clock,
		timeout:  30 * time.Second,
	}
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	utils.LogInfo("🔁 Starting Reconcile Worker (profile service → remote sessions) every %s", w.interval)
	go w.run(ctx)
}

func (w *ReconcileWorker) run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			w.RunOnce(ctx)
		case <-ctx.Done():
			utils.LogInfo("⏹️ Reconcile Worker stopped")
			return
		}
	}
}

// RunOnce performs a single reconcile pass.
func (w *ReconcileWorker) RunOnce(ctx context.Context) (refreshed, failed int) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	refreshed, failed = w.hub.RefreshRemote(ctx)
	switch {
	case failed > 0:
		utils.LogWarn("[RECONCILE] ⚠️ refreshed %d remote session(s), %d failed", refreshed, failed)
	case refreshed > 0:
		utils.LogDebug("[RECONCILE] ✅ refreshed %d remote session(s)", refreshed)
	}
	return refreshed, failed
}
