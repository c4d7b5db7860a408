package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/displayd/internal/display"
)

// Poller is the subset of platform.X11Backend the reconciler needs: a
// synchronous re-query of hardware state outside the Attach callback path.
type Poller interface {
	Poll() (display.ConcreteLayout, error)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically re-polls the backend and feeds the result through
// the manager's notification path, as a failsafe against coalesced or
// dropped screen-change events (SPEC_FULL §4.7). Notify is idempotent, so an
// unchanged poll is a no-op.
type Reconciler struct {
	interval time.Duration
	poller   Poller
	manager  *display.Manager
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler. cfg.Interval defaults to 30s when
// <= 0 (SPEC_FULL §4.8's reconcile_interval default).
func NewReconciler(cfg ReconcilerConfig, poller Poller, manager *display.Manager) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		poller:   poller,
		manager:  manager,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single poll-and-notify pass.
func (r *Reconciler) reconcile() {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	layout, err := r.poller.Poll()
	if err != nil {
		r.logger.Error("reconciler: failed to poll backend", "error", err)
		return
	}
	r.manager.Notify(layout)
}

// ReconcileNow triggers an immediate reconciliation pass, for the control
// socket's reconcile command.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}
