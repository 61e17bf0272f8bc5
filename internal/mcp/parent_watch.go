package mcp

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// ParentPollInterval is how often WatchParent checks the parent pid.
var ParentPollInterval = 2 * time.Second

// WatchParent cancels via cancelFn once the parent process goes away
// (the pid reported by getppid changes). It must never read stdin: the
// stdio transport owns it. A nil getppid means os.Getppid. The poll
// interval is read once, when WatchParent is called.
//
// The goroutine exits when ctx is canceled or parent death is detected.
func WatchParent(ctx context.Context, getppid func() int, cancelFn context.CancelFunc, log *slog.Logger) {
	if getppid == nil {
		getppid = os.Getppid
	}
	if log == nil {
		log = slog.Default()
	}
	ppid := getppid()
	interval := ParentPollInterval
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
				if getppid() != ppid {
					log.Warn("parent process died, initiating shutdown", slog.Int("ppid", ppid))
					cancelFn()
					return
				}
			}
		}
	}()
}
