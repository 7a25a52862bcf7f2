package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes report pipeline instruments.
type Metrics struct {
	reportsSaved   metric.Int64Counter
	renders        metric.Int64Counter
	renderDuration metric.Float64Histogram
	assetFailures  metric.Int64Counter
	exports        metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "laudo"
	}
	meter := provider.Meter(name)

	reportsSaved, err := meter.Int64Counter("laudo_reports_saved_total")
	if err != nil {
		return nil, err
	}
	renders, err := meter.Int64Counter("laudo_report_renders_total")
	if err != nil {
		return nil, err
	}
	renderDuration, err := meter.Float64Histogram("laudo_report_render_duration_seconds",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1, 2, 4, 8, 15, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}
	assetFailures, err := meter.Int64Counter("laudo_report_asset_failures_total")
	if err != nil {
		return nil, err
	}
	exports, err := meter.Int64Counter("laudo_financial_exports_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		reportsSaved:   reportsSaved,
		renders:        renders,
		renderDuration: renderDuration,
		assetFailures:  assetFailures,
		exports:        exports,
	}, nil
}

// RecordReportSaved counts report writes by outcome.
func (m *Metrics) RecordReportSaved(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.reportsSaved.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRender counts a finished render and observes its duration. stage is
// the last stage reached.
func (m *Metrics) RecordRender(ctx context.Context, outcome, stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("outcome", strings.TrimSpace(outcome)),
		attribute.String("stage", strings.TrimSpace(stage)),
	)
	m.renders.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.renderDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(FilterAttributes(
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)...))
}

// RecordAssetFailure counts assets replaced by the placeholder image.
func (m *Metrics) RecordAssetFailure(ctx context.Context, asset string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("asset", strings.TrimSpace(asset)))
	m.assetFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordExport counts financial summary downloads by format.
func (m *Metrics) RecordExport(ctx context.Context, format string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("format", strings.TrimSpace(format)))
	m.exports.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"outcome":     {},
	"stage":       {},
	"asset":       {},
	"format":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
