package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/laudo/internal/clock"
	"github.com/smallbiznis/laudo/internal/financial/domain"
	"github.com/smallbiznis/laudo/internal/observability/metrics"
	"github.com/smallbiznis/laudo/internal/providers/pdf"
)

const seriesMonths = 12

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	PDF     pdf.Provider
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	pdf     pdf.Provider
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("financial.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		pdf:     p.PDF,
		metrics: p.Metrics,
	}
}

func (s *Service) GetSummary(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	ref := req.Reference
	if ref.IsZero() {
		ref = s.clock.Now()
	}
	current := monthStart(ref)
	next := current.AddDate(0, 1, 0)
	previous := current.AddDate(0, -1, 0)

	var (
		summary = domain.Summary{Reference: current.Format("2006-01")}
		err     error
	)

	if summary.PendingTotal, err = s.sum(ctx, domain.Scope{Status: domain.StatusPending}); err != nil {
		return domain.Summary{}, err
	}
	if summary.CompletedThisMonth, err = s.sum(ctx, domain.Scope{Status: domain.StatusCompleted, From: current, To: next}); err != nil {
		return domain.Summary{}, err
	}
	if summary.InvoicedThisMonth, err = s.sum(ctx, domain.Scope{Status: domain.StatusInvoiced, From: current, To: next}); err != nil {
		return domain.Summary{}, err
	}
	if summary.CompletedPreviousMonth, err = s.sum(ctx, domain.Scope{Status: domain.StatusCompleted, From: previous, To: current}); err != nil {
		return domain.Summary{}, err
	}
	if summary.InvoicedPreviousMonth, err = s.sum(ctx, domain.Scope{Status: domain.StatusInvoiced, From: previous, To: current}); err != nil {
		return domain.Summary{}, err
	}
	summary.CompletedDelta = summary.CompletedThisMonth.Sub(summary.CompletedPreviousMonth)
	summary.InvoicedDelta = summary.InvoicedThisMonth.Sub(summary.InvoicedPreviousMonth)

	if summary.Counters, err = s.repo.Counters(ctx, s.db); err != nil {
		return domain.Summary{}, err
	}

	summary.Series = make([]domain.MonthTotal, 0, seriesMonths)
	for i := seriesMonths - 1; i >= 0; i-- {
		from := current.AddDate(0, -i, 0)
		total, err := s.sum(ctx, domain.Scope{Status: domain.StatusCompleted, From: from, To: from.AddDate(0, 1, 0)})
		if err != nil {
			return domain.Summary{}, err
		}
		summary.Series = append(summary.Series, domain.MonthTotal{Month: from.Format("2006-01"), Total: total})
	}

	return summary, nil
}

func (s *Service) sum(ctx context.Context, scope domain.Scope) (decimal.Decimal, error) {
	total, err := s.repo.SumQuoted(ctx, s.db, scope)
	if err != nil {
		s.log.Error("financial rollup failed", zap.Int("status", int(scope.Status)), zap.Error(err))
		return decimal.Zero, err
	}
	return total.Round(2), nil
}

// monthStart truncates to the first instant of the UTC month.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
