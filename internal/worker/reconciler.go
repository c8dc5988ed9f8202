package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ReconcilerConfig holds configuration for the periodic export resync.
type ReconcilerConfig struct {
	// Interval between full resync passes (default: 1h)
	Interval time.Duration
}

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{Interval: time.Hour}
}

// Reconciler periodically runs a full export resync so rows converge even
// when AMQP events are lost.
type Reconciler struct {
	worker *ExportWorker
	config ReconcilerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReconciler(worker *ExportWorker, config ReconcilerConfig) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultReconcilerConfig().Interval
	}
	return &Reconciler{worker: worker, config: config}
}

// Start begins the resync loop. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Export reconciler started", "interval", r.config.Interval)
	return nil
}

// Stop signals the loop and waits for the current pass to finish.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export reconciler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export reconciler stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reconciler) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// Startup pass catches up on anything missed while the worker was down.
	r.pass(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Reconciler) pass(ctx context.Context) {
	if _, err := r.worker.Resync(ctx); err != nil {
		slog.ErrorContext(ctx, "Export resync failed", "error", err)
	}
}
