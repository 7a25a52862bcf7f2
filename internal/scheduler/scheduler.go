package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/laudo/internal/clock"
)

const jobReconcileStaging = "reconcile_staging"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// StagingReconciler removes staged uploads left behind by writes that never
// committed.
type StagingReconciler interface {
	ReconcileStaging(ctx context.Context, maxAge time.Duration) (int, error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Staging StagingReconciler
	Config  Config `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	staging StagingReconciler
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Staging == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		clock:   p.Clock,
		staging: p.Staging,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) (int, error)) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	processed, err := fn(ctx)
	fields := []zap.Field{
		zap.Int("processed", processed),
		zap.Duration("elapsed", s.clock.Now().Sub(start)),
	}
	if err == nil {
		if processed > 0 {
			log.Info("job finished", fields...)
		} else {
			log.Debug("job finished", fields...)
		}
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out", append(fields, zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))...)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, jobReconcileStaging, func(ctx context.Context) (int, error) {
		return s.staging.ReconcileStaging(ctx, s.cfg.StagingMaxAge)
	})
}

// RunForever runs every job once immediately and then on each tick until ctx
// is done.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
