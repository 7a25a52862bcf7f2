package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/smallbiznis/laudo/internal/clock"
	"github.com/smallbiznis/laudo/internal/config"
	"github.com/smallbiznis/laudo/internal/lock"
	"github.com/smallbiznis/laudo/internal/providers/pdf"
	"github.com/smallbiznis/laudo/internal/report/assemble"
	"github.com/smallbiznis/laudo/internal/report/domain"
	"github.com/smallbiznis/laudo/internal/report/render"
	"github.com/smallbiznis/laudo/internal/report/repository"
)

type fakeEngine struct {
	mu     sync.Mutex
	calls  []pdf.Document
	seen   []bool
	render func(ctx context.Context, doc pdf.Document) ([]byte, error)
}

func (e *fakeEngine) Render(ctx context.Context, doc pdf.Document, opts pdf.PageOptions) ([]byte, error) {
	_, statErr := os.Stat(doc.SourcePath)
	e.mu.Lock()
	e.calls = append(e.calls, doc)
	e.seen = append(e.seen, statErr == nil)
	e.mu.Unlock()
	if e.render != nil {
		return e.render(ctx, doc)
	}
	return []byte("%PDF-1.7 fake"), nil
}

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	repo     domain.Repository
	root     string
	compiler *Compiler
	lc       *fxtest.Lifecycle
}

func newFixture(t *testing.T, engine pdf.Engine, mutate func(*config.RenderConfig), rl *lock.RenderLock) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(domain.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	renderCfg := config.DefaultRenderConfig()
	renderCfg.ScratchGrace = 0
	renderCfg.Timeout = 5 * time.Second
	renderCfg.MaxConcurrent = 2
	if mutate != nil {
		mutate(&renderCfg)
	}

	root := t.TempDir()
	log := zaptest.NewLogger(t)
	html, err := render.NewHTMLRenderer(log, nil)
	require.NoError(t, err)

	lc := fxtest.NewLifecycle(t)
	repo := repository.Provide()
	c := New(Params{
		Lifecycle: lc,
		DB:        conn,
		Log:       log,
		Config: config.Config{Storage: config.StorageConfig{
			UploadsRoot: filepath.Join(root, "uploads"),
			ReportsRoot: filepath.Join(root, "relatorios"),
			AssetsDir:   filepath.Join(root, "assets"),
		}},
		Render:    config.NewStaticRenderConfigHolder(renderCfg),
		Repo:      repo,
		Assembler: assemble.NewWithLocation(time.UTC, clock.NewFakeClock(time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC))),
		HTML:      html,
		Engine:    engine,
		Lock:      rl,
	})
	lc.RequireStart()

	return &fixture{db: conn, node: node, repo: repo, root: root, compiler: c, lc: lc}
}

func (f *fixture) saveReport(t *testing.T, emission *time.Time) snowflake.ID {
	t.Helper()
	agg := &domain.Aggregate{Report: domain.Report{
		ID:           f.node.Generate(),
		WorkOrder:    "OS-77",
		Title:        "Gerador síncrono",
		EmissionDate: emission,
		ClientName:   "Usina Norte",
	}}
	require.NoError(t, f.repo.Save(context.Background(), f.db, agg))
	return agg.Report.ID
}

func scratchFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".relatorio-*.html"))
	require.NoError(t, err)
	return matches
}

func jan2024() *time.Time {
	d := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestCompileWritesDocumentAtDeterministicPath(t *testing.T) {
	engine := &fakeEngine{}
	f := newFixture(t, engine, nil, nil)
	id := f.saveReport(t, jan2024())

	rel, err := f.compiler.Compile(context.Background(), id, domain.Paths{})
	require.NoError(t, err)

	want := filepath.Join("2024", "01", id.String(), "relatorio-"+id.String()+".pdf")
	assert.Equal(t, want, rel)

	body, err := os.ReadFile(filepath.Join(f.root, "relatorios", rel))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 fake", string(body))

	require.Len(t, engine.calls, 1)
	assert.True(t, engine.seen[0], "scratch file must exist while the engine runs")
	assert.Contains(t, engine.calls[0].HTML, "Gerador síncrono")
	assert.Empty(t, scratchFiles(t, filepath.Dir(filepath.Join(f.root, "relatorios", rel))))
}

func TestCompileFallsBackToCreationMonth(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil, nil)
	id := f.saveReport(t, nil)

	var created time.Time
	require.NoError(t, f.db.Raw("SELECT created_at FROM reports WHERE id = ?", id).Scan(&created).Error)

	rel, err := f.compiler.Compile(context.Background(), id, domain.Paths{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, filepath.Join(fmt.Sprintf("%04d", created.UTC().Year()), fmt.Sprintf("%02d", int(created.UTC().Month())))))
}

func TestCompileUsesExplicitPaths(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, nil, nil)
	id := f.saveReport(t, jan2024())
	other := t.TempDir()

	rel, err := f.compiler.Compile(context.Background(), id, domain.Paths{ReportsRoot: other})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(other, rel))
}

func TestCompileUnknownReport(t *testing.T) {
	engine := &fakeEngine{}
	f := newFixture(t, engine, nil, nil)

	_, err := f.compiler.Compile(context.Background(), snowflake.ID(99), domain.Paths{})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, engine.calls)
}

func TestCompileEngineFailure(t *testing.T) {
	engine := &fakeEngine{render: func(context.Context, pdf.Document) ([]byte, error) {
		return nil, errors.New("chrome crashed")
	}}
	f := newFixture(t, engine, nil, nil)
	id := f.saveReport(t, jan2024())

	_, err := f.compiler.Compile(context.Background(), id, domain.Paths{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRender)

	var renderErr *domain.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, string(StageRenderingExternalEngine), renderErr.Stage)

	outDir := filepath.Join(f.root, "relatorios", "2024", "01", id.String())
	assert.Empty(t, scratchFiles(t, outDir))
	assert.NoFileExists(t, filepath.Join(outDir, "relatorio-"+id.String()+".pdf"))
}

func TestCompileTimeout(t *testing.T) {
	engine := &fakeEngine{render: func(ctx context.Context, _ pdf.Document) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	f := newFixture(t, engine, func(cfg *config.RenderConfig) {
		cfg.Timeout = 50 * time.Millisecond
	}, nil)
	id := f.saveReport(t, jan2024())

	_, err := f.compiler.Compile(context.Background(), id, domain.Paths{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var renderErr *domain.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, string(StageRenderingExternalEngine), renderErr.Stage)
}

func TestCompileBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	engine := &fakeEngine{render: func(ctx context.Context, _ pdf.Document) ([]byte, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []byte("%PDF"), nil
	}}
	f := newFixture(t, engine, func(cfg *config.RenderConfig) {
		cfg.MaxConcurrent = 2
	}, nil)

	ids := make([]snowflake.ID, 5)
	for i := range ids {
		ids[i] = f.saveReport(t, jan2024())
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id snowflake.ID) {
			defer wg.Done()
			_, err := f.compiler.Compile(context.Background(), id, domain.Paths{})
			errs <- err
		}(id)
	}

	require.Eventually(t, func() bool { return inFlight.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), inFlight.Load())

	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(2), peak.Load())
}

func TestCompileQueuedCallerHonorsContext(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	engine := &fakeEngine{render: func(ctx context.Context, _ pdf.Document) ([]byte, error) {
		entered <- struct{}{}
		<-release
		return []byte("%PDF"), nil
	}}
	f := newFixture(t, engine, func(cfg *config.RenderConfig) {
		cfg.MaxConcurrent = 1
	}, nil)
	first := f.saveReport(t, jan2024())
	second := f.saveReport(t, jan2024())

	done := make(chan error, 1)
	go func() {
		_, err := f.compiler.Compile(context.Background(), first, domain.Paths{})
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := f.compiler.Compile(ctx, second, domain.Paths{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var renderErr *domain.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, string(StageIdle), renderErr.Stage)

	close(release)
	require.NoError(t, <-done)
}

func TestCompileScratchRemovedOnShutdown(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, func(cfg *config.RenderConfig) {
		cfg.ScratchGrace = time.Hour
	}, nil)
	id := f.saveReport(t, jan2024())

	rel, err := f.compiler.Compile(context.Background(), id, domain.Paths{})
	require.NoError(t, err)

	outDir := filepath.Dir(filepath.Join(f.root, "relatorios", rel))
	assert.Len(t, scratchFiles(t, outDir), 1)
	assert.Equal(t, 1, f.compiler.ScratchPending())

	f.lc.RequireStop()
	assert.Empty(t, scratchFiles(t, outDir))
	assert.Equal(t, 0, f.compiler.ScratchPending())
}

func TestCompileRejectsWhileLockedElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rl := lock.NewRenderLockWithClient(client, time.Minute)

	engine := &fakeEngine{}
	f := newFixture(t, engine, nil, rl)
	id := f.saveReport(t, jan2024())

	_, ok, err := rl.TryLockReport(context.Background(), id.String())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.compiler.Compile(context.Background(), id, domain.Paths{})
	require.ErrorIs(t, err, domain.ErrRenderBusy)
	assert.Empty(t, engine.calls)
}

func TestCompileReleasesLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rl := lock.NewRenderLockWithClient(client, time.Minute)

	f := newFixture(t, &fakeEngine{}, nil, rl)
	id := f.saveReport(t, jan2024())

	_, err := f.compiler.Compile(context.Background(), id, domain.Paths{})
	require.NoError(t, err)
	assert.False(t, mr.Exists("laudo:render:lock:"+id.String()))
}
