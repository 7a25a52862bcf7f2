package render

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/smallbiznis/laudo/internal/observability/logger"
	"github.com/smallbiznis/laudo/internal/observability/metrics"
	"github.com/smallbiznis/laudo/internal/report/domain"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// PlaceholderImage is a 1x1 transparent GIF used when an asset cannot be read.
const PlaceholderImage = template.URL("data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

const (
	AssetLogo      = "logo.png"
	AssetHeader    = "header.png"
	AssetFooter    = "footer.png"
	AssetIsolation = "isolation.png"
	AssetRunout    = "runout.png"
	AssetClient    = "client-logo"
)

// Output is a fully composed document ready for the engine.
type Output struct {
	HTML        string
	Header      string
	Footer      string
	AssetErrors []*domain.AssetError
}

type marginal struct {
	Title     string
	WorkOrder string
	Header    template.URL
	Footer    template.URL
}

type HTMLRenderer struct {
	page    *template.Template
	header  *template.Template
	footer  *template.Template
	css     template.CSS
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewHTMLRenderer(log *zap.Logger, m *metrics.Metrics) (*HTMLRenderer, error) {
	page, err := template.New("report.html.tmpl").Option("missingkey=zero").ParseFS(templateFS, "templates/report.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	header, err := template.New("header.html.tmpl").Option("missingkey=zero").ParseFS(templateFS, "templates/header.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse header template: %w", err)
	}
	footer, err := template.New("footer.html.tmpl").Option("missingkey=zero").ParseFS(templateFS, "templates/footer.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse footer template: %w", err)
	}
	css, err := templateFS.ReadFile("templates/report.css")
	if err != nil {
		return nil, fmt.Errorf("read stylesheet: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &HTMLRenderer{
		page:    page,
		header:  header,
		footer:  footer,
		css:     template.CSS(css),
		log:     log.Named("report.render"),
		metrics: m,
	}, nil
}

// Render composes the document. Unreadable assets degrade to the
// placeholder image and are reported in Output.AssetErrors; a photo section
// with an unknown tag fails the render.
func (r *HTMLRenderer) Render(ctx context.Context, vm ViewModel, assetsDir string) (Output, error) {
	for _, section := range vm.PhotoSections {
		if _, err := domain.ParseSection(section.Tag); err != nil {
			return Output{}, err
		}
	}

	var out Output
	load := func(name, path string) template.URL {
		src, err := inline(path)
		if err == nil {
			return src
		}
		assetErr := &domain.AssetError{Asset: name, Err: err}
		out.AssetErrors = append(out.AssetErrors, assetErr)
		logger.WithContext(ctx, r.log).Warn("asset replaced by placeholder",
			zap.String("asset", name),
			zap.Error(err),
		)
		r.metrics.RecordAssetFailure(ctx, name)
		return PlaceholderImage
	}

	vm.Assets = Assets{
		Logo:      load(AssetLogo, filepath.Join(assetsDir, AssetLogo)),
		Header:    load(AssetHeader, filepath.Join(assetsDir, AssetHeader)),
		Footer:    load(AssetFooter, filepath.Join(assetsDir, AssetFooter)),
		Isolation: load(AssetIsolation, filepath.Join(assetsDir, AssetIsolation)),
		Runout:    load(AssetRunout, filepath.Join(assetsDir, AssetRunout)),
	}
	if strings.TrimSpace(vm.ClientLogoPath) != "" {
		vm.Assets.ClientLogo = load(AssetClient, vm.ClientLogoPath)
	}
	vm.CSS = r.css
	if len(vm.Index) == 0 {
		vm.Index = DocumentIndex()
	}

	var buf bytes.Buffer
	if err := r.page.Execute(&buf, vm); err != nil {
		return Output{}, fmt.Errorf("execute report template: %w", err)
	}
	out.HTML = buf.String()

	m := marginal{
		Title:     vm.Title,
		WorkOrder: vm.WorkOrder,
		Header:    vm.Assets.Header,
		Footer:    vm.Assets.Footer,
	}
	buf.Reset()
	if err := r.header.Execute(&buf, m); err != nil {
		return Output{}, fmt.Errorf("execute header template: %w", err)
	}
	out.Header = buf.String()
	buf.Reset()
	if err := r.footer.Execute(&buf, m); err != nil {
		return Output{}, fmt.Errorf("execute footer template: %w", err)
	}
	out.Footer = buf.String()

	return out, nil
}

func inline(path string) (template.URL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty file")
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("unsupported content type %s", mtype.String())
	}
	return template.URL("data:" + mtype.String() + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}
