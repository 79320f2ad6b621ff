package mcp

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchParent_CancelsWhenParentChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pid atomic.Int64
	pid.Store(100)
	watchParent(ctx, 5*time.Millisecond, func() int { return int(pid.Load()) }, cancel)

	pid.Store(1)
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not cancel after the parent changed")
	}
}

func TestWatchParent_StopsWithContext(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	var cancelled atomic.Bool
	watchParent(ctx, 5*time.Millisecond, func() int { return 42 }, func() { cancelled.Store(true) })

	stop()
	time.Sleep(30 * time.Millisecond)
	if cancelled.Load() {
		t.Error("cancel called although the parent never changed")
	}
}
