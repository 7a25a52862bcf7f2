package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/laudo/internal/financial/domain"
	"gorm.io/gorm"
)

const quotedAmounts = `
SELECT COALESCE(SUM(t.amount), 0)
FROM (
	SELECT qp.report_id, qp.quantity * qp.charged_value AS amount FROM report_quoted_parts qp
	UNION ALL
	SELECT qs.report_id, qs.quantity * qs.charged_value AS amount FROM report_quoted_services qs
) t
JOIN reports r ON r.id = t.report_id
WHERE `

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) SumQuoted(ctx context.Context, db *gorm.DB, scope domain.Scope) (decimal.Decimal, error) {
	where, args := scopeClause(scope)

	var total decimal.Decimal
	if err := db.WithContext(ctx).Raw(quotedAmounts+where, args...).Row().Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum quoted amounts: %w", err)
	}
	return total, nil
}

func (r *repo) Counters(ctx context.Context, db *gorm.DB) (domain.Counters, error) {
	var out domain.Counters
	count := func(dest *int64, where string, args ...any) error {
		stmt := db.WithContext(ctx).Table("reports")
		if where != "" {
			stmt = stmt.Where(where, args...)
		}
		return stmt.Count(dest).Error
	}

	if err := count(&out.Total, ""); err != nil {
		return out, err
	}
	if err := count(&out.Pending, "completed = ?", false); err != nil {
		return out, err
	}
	if err := count(&out.Completed, "completed = ?", true); err != nil {
		return out, err
	}
	if err := count(&out.Invoiced, "invoice_emitted = ?", true); err != nil {
		return out, err
	}
	return out, nil
}

func scopeClause(scope domain.Scope) (string, []any) {
	var (
		where string
		args  []any
		col   string
	)
	switch scope.Status {
	case domain.StatusCompleted:
		where, args, col = "r.completed = ?", []any{true}, "r.completed_at"
	case domain.StatusInvoiced:
		where, args, col = "r.invoice_emitted = ?", []any{true}, "r.invoice_emitted_at"
	default:
		return "r.completed = ?", []any{false}
	}

	if !scope.From.IsZero() {
		where += " AND " + col + " >= ?"
		args = append(args, scope.From)
	}
	if !scope.To.IsZero() {
		where += " AND " + col + " < ?"
		args = append(args, scope.To)
	}
	return where, args
}
