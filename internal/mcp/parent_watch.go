package mcp

import (
	"context"
	"os"
	"time"

	"autopilot/internal/logging"
)

// DefaultParentPoll is how often WatchParent checks the parent pid.
const DefaultParentPoll = 2 * time.Second

// WatchParent calls cancel when the parent process goes away, so a stdio
// server launched by an editor does not outlive it. It never reads stdin;
// the stdio transport owns it. The goroutine exits when ctx is done.
func WatchParent(ctx context.Context, every time.Duration, cancel context.CancelFunc) {
	watchParent(ctx, every, os.Getppid, cancel)
}

func watchParent(ctx context.Context, every time.Duration, getppid func() int, cancel context.CancelFunc) {
	if every <= 0 {
		every = DefaultParentPoll
	}
	ppid := getppid()
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if getppid() != ppid {
					logging.New("mcp").Warn("parent process exited, shutting down", "ppid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
