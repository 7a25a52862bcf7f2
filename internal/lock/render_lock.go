package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/laudo/internal/config"
)

const keyReportRender = "laudo:render:lock:%s"

// RenderLock keeps two instances from compiling the same report at once.
// A nil *RenderLock is valid and always grants the lock.
type RenderLock struct {
	locker *Locker
	ttl    time.Duration
}

func NewRenderLock(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *RenderLock {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Info("render lock disabled, no redis address configured")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return NewRenderLockWithClient(client, time.Duration(cfg.RenderLockTTLSeconds)*time.Second)
}

func NewRenderLockWithClient(client redis.UniversalClient, ttl time.Duration) *RenderLock {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RenderLock{locker: NewLocker(client), ttl: ttl}
}

func (l *RenderLock) Enabled() bool {
	return l != nil && l.locker != nil
}

func (l *RenderLock) TryLockReport(ctx context.Context, reportID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keyReportRender, strings.TrimSpace(reportID)), l.ttl)
}

func (l *RenderLock) ReleaseReport(ctx context.Context, reportID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keyReportRender, strings.TrimSpace(reportID)), token)
}
