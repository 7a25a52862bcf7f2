package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/smallbiznis/laudo/internal/observability/logger"
)

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	router := gin.New()
	router.Use(GinMiddleware())
	return router, recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestGinMiddlewareTagsReportRoutes(t *testing.T) {
	router, recorder := newTracedRouter(t)

	core, logs := observer.New(zapcore.InfoLevel)
	router.POST("/api/reports/:id/document", func(c *gin.Context) {
		logger.WithContext(c.Request.Context(), zap.New(core)).Info("rendering")
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reports/4242/document", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP POST /api/reports/:id/document", spans[0].Name())
	v, ok := spanAttr(spans[0], "report_id")
	require.True(t, ok)
	assert.Equal(t, "4242", v.AsString())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "4242", logs.All()[0].ContextMap()["report_id"])
}

func TestGinMiddlewareMarksServerErrors(t *testing.T) {
	router, recorder := newTracedRouter(t)
	router.GET("/api/financial/summary", func(c *gin.Context) {
		_ = c.Error(errors.New("db down"))
		c.Status(http.StatusInternalServerError)
	})
	router.GET("/api/reports", func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/financial/summary", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1)

	assert.NotEqual(t, codes.Error, spans[1].Status().Code)
	_, tagged := spanAttr(spans[1], "report_id")
	assert.False(t, tagged)
}
