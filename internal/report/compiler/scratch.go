package compiler

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/smallbiznis/laudo/internal/observability/metrics"
	"go.uber.org/zap"
)

// scratchReaper deletes intermediate HTML files after a grace period so the
// engine can still read them while it finishes. Flush removes everything
// still pending.
type scratchReaper struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	pool    *metrics.RenderPoolMetrics
	log     *zap.Logger
}

func newScratchReaper(log *zap.Logger, pool *metrics.RenderPoolMetrics) *scratchReaper {
	return &scratchReaper{
		pending: make(map[string]*time.Timer),
		pool:    pool,
		log:     log,
	}
}

func (r *scratchReaper) Schedule(path string, grace time.Duration) {
	if path == "" {
		return
	}
	if grace <= 0 {
		r.remove(path)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[path]; ok {
		return
	}
	r.pool.ScratchPending(1)
	r.pending[path] = time.AfterFunc(grace, func() {
		r.mu.Lock()
		_, ok := r.pending[path]
		delete(r.pending, path)
		r.mu.Unlock()
		if ok {
			r.pool.ScratchPending(-1)
			r.remove(path)
		}
	})
}

func (r *scratchReaper) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *scratchReaper) Flush() {
	r.mu.Lock()
	paths := make([]string, 0, len(r.pending))
	for path, timer := range r.pending {
		timer.Stop()
		paths = append(paths, path)
	}
	r.pending = make(map[string]*time.Timer)
	r.mu.Unlock()

	for _, path := range paths {
		r.pool.ScratchPending(-1)
		r.remove(path)
	}
}

func (r *scratchReaper) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.log.Warn("failed to remove scratch file", zap.String("path", path), zap.Error(err))
	}
}
