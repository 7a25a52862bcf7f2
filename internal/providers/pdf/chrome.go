package pdf

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/smallbiznis/laudo/internal/config"
)

var ErrEmptyDocument = errors.New("empty_document")

// ChromeEngine prints through a headless Chromium. Every render starts its
// own browser process; cancelling ctx kills it.
type ChromeEngine struct {
	render *config.RenderConfigHolder
	log    *zap.Logger
}

func NewChromeEngine(render *config.RenderConfigHolder, log *zap.Logger) *ChromeEngine {
	return &ChromeEngine{render: render, log: log.Named("pdf.chrome")}
}

func (e *ChromeEngine) Render(ctx context.Context, doc Document, opts PageOptions) ([]byte, error) {
	if doc.SourcePath == "" && doc.HTML == "" {
		return nil, ErrEmptyDocument
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("allow-file-access-from-files", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if path := e.render.Get().ChromePath; path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			e.log.Warn("chrome devtools error", zap.String("detail", fmt.Sprintf(format, args...)))
		}),
	)
	defer cancelBrowser()

	var out []byte
	tasks := chromedp.Tasks{load(doc)}
	tasks = append(tasks,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetEmulatedMedia().WithMedia("print").Do(ctx)
		}),
	)
	if opts.SettleDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(opts.SettleDelay))
	}
	tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(mmToInches(opts.PaperWidthMM)).
			WithPaperHeight(mmToInches(opts.PaperHeightMM)).
			WithMarginTop(mmToInches(opts.MarginTopMM)).
			WithMarginBottom(mmToInches(opts.MarginBottomMM)).
			WithMarginLeft(mmToInches(opts.MarginLeftMM)).
			WithMarginRight(mmToInches(opts.MarginRightMM)).
			WithDisplayHeaderFooter(doc.HeaderTemplate != "" || doc.FooterTemplate != "").
			WithHeaderTemplate(doc.HeaderTemplate).
			WithFooterTemplate(doc.FooterTemplate).
			WithPreferCSSPageSize(opts.PreferCSSPageSize).
			Do(ctx)
		if err != nil {
			return err
		}
		out = data
		return nil
	}))

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return nil, fmt.Errorf("chrome print: %w", err)
	}
	return out, nil
}

func load(doc Document) chromedp.Action {
	if doc.SourcePath != "" {
		abs, err := filepath.Abs(doc.SourcePath)
		if err != nil {
			return chromedp.ActionFunc(func(context.Context) error { return err })
		}
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
		return chromedp.Navigate(u.String())
	}
	return chromedp.Tasks{
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc.HTML).Do(ctx)
		}),
	}
}
