package worker

import (
	"context"
	"testing"
	"time"
)

func TestNewReconcilerDefaultsInterval(t *testing.T) {
	r := NewReconciler(nil, ReconcilerConfig{})
	if r.config.Interval != time.Hour {
		t.Errorf("expected default interval 1h, got %v", r.config.Interval)
	}
	if r.IsRunning() {
		t.Error("reconciler should not be running initially")
	}
}

func TestReconcilerStopNotRunning(t *testing.T) {
	r := NewReconciler(nil, DefaultReconcilerConfig())
	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("stopping an idle reconciler should not fail: %v", err)
	}
}

func TestReconcilerRunsStartupPass(t *testing.T) {
	e := newEnv(t)
	e.quote(t, "ACME")

	r := NewReconciler(e.worker, ReconcilerConfig{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("expected error when starting twice")
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(e.rows(t)) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := len(e.rows(t)); n != 1 {
		t.Fatalf("expected startup pass to export 1 quote, got %d", n)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.IsRunning() {
		t.Error("reconciler should not be running after stop")
	}
}
