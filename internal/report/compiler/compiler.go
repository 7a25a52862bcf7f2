package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"github.com/smallbiznis/laudo/internal/config"
	"github.com/smallbiznis/laudo/internal/lock"
	"github.com/smallbiznis/laudo/internal/observability/logger"
	"github.com/smallbiznis/laudo/internal/observability/metrics"
	"github.com/smallbiznis/laudo/internal/observability/tracing"
	"github.com/smallbiznis/laudo/internal/providers/pdf"
	"github.com/smallbiznis/laudo/internal/report/assemble"
	"github.com/smallbiznis/laudo/internal/report/domain"
	"github.com/smallbiznis/laudo/internal/report/render"
	"github.com/smallbiznis/laudo/pkg/telemetry/correlation"
)

type Stage string

const (
	StageIdle                    Stage = "idle"
	StageLoadingAggregate        Stage = "loading_aggregate"
	StageBuildingViewModel       Stage = "building_view_model"
	StageRenderingExternalEngine Stage = "rendering_external_engine"
	StagePersisting              Stage = "persisting"
	StageDone                    Stage = "done"
	StageFailed                  Stage = "failed"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeNotFound = "not_found"
	outcomeBusy     = "busy"

	lockReleaseTimeout = 5 * time.Second
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	DB        *gorm.DB
	Log       *zap.Logger
	Config    config.Config
	Render    *config.RenderConfigHolder
	Repo      domain.Repository
	Assembler *assemble.Assembler
	HTML      *render.HTMLRenderer
	Engine    pdf.Engine
	Lock      *lock.RenderLock           `optional:"true"`
	Metrics   *metrics.Metrics           `optional:"true"`
	Pool      *metrics.RenderPoolMetrics `optional:"true"`
}

// Compiler runs the render pipeline for one report at a time per slot.
// The number of slots is fixed at construction.
type Compiler struct {
	db        *gorm.DB
	log       *zap.Logger
	storage   config.StorageConfig
	render    *config.RenderConfigHolder
	repo      domain.Repository
	assembler *assemble.Assembler
	html      *render.HTMLRenderer
	engine    pdf.Engine
	lock      *lock.RenderLock
	metrics   *metrics.Metrics
	pool      *metrics.RenderPoolMetrics
	tracer    trace.Tracer

	sem    *semaphore.Weighted
	reaper *scratchReaper
}

func New(p Params) *Compiler {
	log := p.Log.Named("report.compiler")
	slots := p.Render.Get().MaxConcurrent
	if slots < 1 {
		slots = 1
	}

	c := &Compiler{
		db:        p.DB,
		log:       log,
		storage:   p.Config.Storage,
		render:    p.Render,
		repo:      p.Repo,
		assembler: p.Assembler,
		html:      p.HTML,
		engine:    p.Engine,
		lock:      p.Lock,
		metrics:   p.Metrics,
		pool:      p.Pool,
		tracer:    otel.Tracer("laudo/report.compiler"),
		sem:       semaphore.NewWeighted(int64(slots)),
		reaper:    newScratchReaper(log, p.Pool),
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			c.reaper.Flush()
			return nil
		},
	})

	return c
}

// run tracks the stage machine of a single compilation.
type run struct {
	id    snowflake.ID
	stage Stage
	start time.Time
}

func (c *Compiler) Compile(ctx context.Context, id snowflake.ID, paths domain.Paths) (string, error) {
	paths = c.resolvePaths(paths)
	cfg := c.render.Get()
	r := &run{id: id, stage: StageIdle, start: time.Now()}

	ctx, span := c.tracer.Start(ctx, "report.compile",
		trace.WithAttributes(tracing.SafeAttributes(attribute.String("report_id", id.String()))...),
	)
	defer span.End()
	ctx = logger.ContextWithReport(ctx, id.String())
	log := logger.WithContext(ctx, c.log)

	waitStart := time.Now()
	c.pool.Waiting(1)
	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.pool.Waiting(-1)
		c.pool.Abandoned(abandonReason(err))
		log.Warn("render abandoned while queued", zap.Error(err))
		return "", c.fail(ctx, span, r, err)
	}
	c.pool.Waiting(-1)
	c.pool.Acquired(time.Since(waitStart))
	defer func() {
		c.sem.Release(1)
		c.pool.Released()
	}()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	token, ok, err := c.lock.TryLockReport(ctx, id.String())
	if err != nil {
		return "", c.fail(ctx, span, r, fmt.Errorf("acquire render lock: %w", err))
	}
	if !ok {
		c.metrics.RecordRender(ctx, outcomeBusy, string(r.stage), time.Since(r.start))
		return "", fmt.Errorf("report %s: %w", id, domain.ErrRenderBusy)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(correlation.Detach(ctx), lockReleaseTimeout)
		defer cancel()
		if err := c.lock.ReleaseReport(releaseCtx, id.String(), token); err != nil {
			log.Warn("failed to release render lock", zap.Error(err))
		}
	}()

	var agg *domain.Aggregate
	err = c.step(ctx, r, StageLoadingAggregate, func(ctx context.Context) error {
		loaded, err := c.repo.LoadAggregate(ctx, c.db.WithContext(ctx), id)
		if err != nil {
			return err
		}
		agg = loaded
		return nil
	})
	if err != nil {
		return "", c.fail(ctx, span, r, err)
	}
	if agg == nil {
		c.metrics.RecordRender(ctx, outcomeNotFound, string(r.stage), time.Since(r.start))
		return "", domain.ErrNotFound
	}

	var out render.Output
	err = c.step(ctx, r, StageBuildingViewModel, func(ctx context.Context) error {
		vm, err := c.assembler.Build(agg, paths.UploadsRoot)
		if err != nil {
			return err
		}
		out, err = c.html.Render(ctx, vm, paths.AssetsDir)
		return err
	})
	if err != nil {
		return "", c.fail(ctx, span, r, err)
	}
	if len(out.AssetErrors) > 0 {
		log.Warn("document rendered with placeholder assets", zap.Int("count", len(out.AssetErrors)))
	}

	rel := relativeOutput(agg.Report)
	dest := filepath.Join(paths.ReportsRoot, rel)
	outDir := filepath.Dir(dest)

	var document []byte
	err = c.step(ctx, r, StageRenderingExternalEngine, func(ctx context.Context) error {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		scratch, err := c.writeScratch(outDir, id, out.HTML)
		if err != nil {
			return err
		}
		defer c.reaper.Schedule(scratch, cfg.ScratchGrace)

		document, err = c.engine.Render(ctx, pdf.Document{
			HTML:           out.HTML,
			HeaderTemplate: out.Header,
			FooterTemplate: out.Footer,
			SourcePath:     scratch,
		}, pdf.PageOptionsFrom(cfg))
		return err
	})
	if err != nil {
		return "", c.fail(ctx, span, r, err)
	}

	err = c.step(ctx, r, StagePersisting, func(ctx context.Context) error {
		return writeAtomic(dest, document)
	})
	if err != nil {
		return "", c.fail(ctx, span, r, err)
	}

	r.stage = StageDone
	elapsed := time.Since(r.start)
	c.metrics.RecordRender(ctx, outcomeSuccess, string(StageDone), elapsed)
	span.SetAttributes(attribute.String("report.file", rel), attribute.Int("report.bytes", len(document)))
	log.Info("report compiled",
		zap.String("file", rel),
		zap.Int("bytes", len(document)),
		zap.Duration("elapsed", elapsed),
	)
	return rel, nil
}

// ScratchPending reports how many intermediate files are still waiting for
// removal.
func (c *Compiler) ScratchPending() int {
	return c.reaper.Pending()
}

func (c *Compiler) step(ctx context.Context, r *run, stage Stage, fn func(context.Context) error) error {
	r.stage = stage
	ctx = logger.ContextWithStage(ctx, string(stage))
	ctx, span := c.tracer.Start(ctx, "report.compile."+string(stage))
	defer span.End()

	err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, string(stage))
	}
	return err
}

func (c *Compiler) fail(ctx context.Context, span trace.Span, r *run, err error) error {
	failedAt := r.stage
	r.stage = StageFailed

	span.RecordError(tracing.SafeError(err))
	span.SetStatus(codes.Error, string(failedAt))
	c.metrics.RecordRender(ctx, outcomeFailure, string(failedAt), time.Since(r.start))
	logger.WithContext(ctx, c.log).Error("report compilation failed",
		zap.String("stage", string(failedAt)),
		zap.Error(err),
	)
	return &domain.RenderError{Stage: string(failedAt), Err: err}
}

func (c *Compiler) resolvePaths(paths domain.Paths) domain.Paths {
	if paths.UploadsRoot == "" {
		paths.UploadsRoot = c.storage.UploadsRoot
	}
	if paths.ReportsRoot == "" {
		paths.ReportsRoot = c.storage.ReportsRoot
	}
	if paths.AssetsDir == "" {
		paths.AssetsDir = c.storage.AssetsDir
	}
	return paths
}

func (c *Compiler) writeScratch(outDir string, id snowflake.ID, html string) (string, error) {
	dir := outDir
	if c.storage.ScratchDir != "" {
		dir = c.storage.ScratchDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	path := filepath.Join(dir, fmt.Sprintf(".relatorio-%s-%s.html", id, uuid.NewString()))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// relativeOutput places the document under the emission month, or the
// creation month when the report has no emission date. Months are UTC.
func relativeOutput(report domain.Report) string {
	when := report.CreatedAt
	if report.EmissionDate != nil && !report.EmissionDate.IsZero() {
		when = *report.EmissionDate
	}
	when = when.UTC()
	id := report.ID.String()
	return filepath.Join(
		fmt.Sprintf("%04d", when.Year()),
		fmt.Sprintf("%02d", int(when.Month())),
		id,
		"relatorio-"+id+".pdf",
	)
}

func writeAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".relatorio-*.pdf.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		return err
	}
	return nil
}

func abandonReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline"
	}
	return "canceled"
}
