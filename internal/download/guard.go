package download

import (
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/joshjhall/artifact-fetcher/internal/utils/logger"
)

// guardActive enforces one cleanup scope per process invocation.
// Signal-handling composition across nested scopes is unreliable, so a
// second concurrent acquisition is an error rather than a nested scope.
var guardActive atomic.Bool

// errGuardBusy rejects re-entrant orchestrator runs within one process.
var errGuardBusy = errors.New("a download is already in flight in this process")

// cleanupGuard ties a temp file's removal to every exit path: normal
// return, error return, and external interruption. It is acquired
// before the first byte is written and released only once the atomic
// install commits.
type cleanupGuard struct {
	path string
	sigs chan os.Signal
	done chan struct{}
}

// acquireCleanup registers path for removal on SIGINT/SIGTERM and marks
// the process's single download scope busy.
func acquireCleanup(path string) (*cleanupGuard, error) {
	if !guardActive.CompareAndSwap(false, true) {
		return nil, errGuardBusy
	}

	g := &cleanupGuard{
		path: path,
		sigs: make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	signal.Notify(g.sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-g.sigs:
			logger.Logger().Warnf("interrupted by %v; removing partial download %s", sig, g.path)
			_ = os.Remove(g.path)
			logger.Sync()
			os.Exit(130)
		case <-g.done:
		}
	}()

	return g, nil
}

// Discard removes the temp file and releases the scope. Used on every
// failure path; removing an already-absent file is fine.
func (g *cleanupGuard) Discard() {
	_ = os.Remove(g.path)
	g.release()
}

// Promote releases the scope without touching the file. Call only after
// the rename to the destination has committed.
func (g *cleanupGuard) Promote() {
	g.release()
}

func (g *cleanupGuard) release() {
	signal.Stop(g.sigs)
	close(g.done)
	guardActive.Store(false)
}
