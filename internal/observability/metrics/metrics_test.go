package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "success"),
		attribute.String("report_id", "456"),
		attribute.String("stage", "persisting"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
	if attrs[0].Key != "stage" && attrs[1].Key != "stage" {
		t.Fatalf("expected stage to be retained")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordReportSaved(ctx, "success")
	m.RecordRender(ctx, "failed", "rendering_external_engine", time.Second)
	m.RecordAssetFailure(ctx, "logo.png")
	m.RecordExport(ctx, "xlsx")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "laudo"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotNil(t, m)
	m.RecordRender(context.Background(), "success", "done", 2*time.Second)
}
