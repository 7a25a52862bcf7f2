package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/laudo/internal/config"
	"github.com/smallbiznis/laudo/internal/financial"
	financialdomain "github.com/smallbiznis/laudo/internal/financial/domain"
	"github.com/smallbiznis/laudo/internal/observability"
	obslogger "github.com/smallbiznis/laudo/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/laudo/internal/observability/metrics"
	obstracing "github.com/smallbiznis/laudo/internal/observability/tracing"
	"github.com/smallbiznis/laudo/internal/report"
	reportdomain "github.com/smallbiznis/laudo/internal/report/domain"
)

const shutdownTimeout = 10 * time.Second

var Module = fx.Module("http.server",
	report.Module,
	financial.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	reportSvc    reportdomain.Service
	financialSvc financialdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	ReportSvc    reportdomain.Service
	FinancialSvc financialdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		reportSvc:    p.ReportSvc,
		financialSvc: p.FinancialSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	reports := api.Group("/reports")
	reports.POST("", s.CreateReport)
	reports.GET("", s.SearchReports)
	reports.GET("/:id", s.GetReport)
	reports.POST("/:id/document", s.RenderReportDocument)

	fin := api.Group("/financial")
	fin.GET("/summary", s.GetFinancialSummary)
	fin.GET("/summary/export", s.ExportFinancialSummary)
}
