package pdf

import (
	"context"
	"io"
	"time"

	"github.com/smallbiznis/laudo/internal/config"
)

// Engine turns a composed HTML document into PDF bytes.
type Engine interface {
	Render(ctx context.Context, doc Document, opts PageOptions) ([]byte, error)
}

// Document is what the engine prints. When SourcePath is set the engine
// loads the page from that file so relative file:// references resolve;
// otherwise HTML is injected into a blank page.
type Document struct {
	HTML           string
	HeaderTemplate string
	FooterTemplate string
	SourcePath     string
}

type PageOptions struct {
	PaperWidthMM      float64
	PaperHeightMM     float64
	MarginTopMM       float64
	MarginBottomMM    float64
	MarginLeftMM      float64
	MarginRightMM     float64
	PreferCSSPageSize bool
	SettleDelay       time.Duration
}

func PageOptionsFrom(cfg config.RenderConfig) PageOptions {
	return PageOptions{
		PaperWidthMM:      cfg.PaperWidthMM,
		PaperHeightMM:     cfg.PaperHeightMM,
		MarginTopMM:       cfg.MarginTopMM,
		MarginBottomMM:    cfg.MarginBottomMM,
		MarginLeftMM:      cfg.MarginLeftMM,
		MarginRightMM:     cfg.MarginRightMM,
		PreferCSSPageSize: cfg.PreferCSSPageSize,
		SettleDelay:       cfg.SettleDelay,
	}
}

// Provider builds the tabular PDFs that do not go through the HTML engine.
type Provider interface {
	GenerateSummary(ctx context.Context, data SummaryData) (io.Reader, error)
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
