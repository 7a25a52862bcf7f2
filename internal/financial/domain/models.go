package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidExportFormat = errors.New("invalid_export_format")

// SummaryRequest scopes the rollup to the month containing Reference.
// A zero Reference means the current month.
type SummaryRequest struct {
	Reference time.Time
}

type Counters struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Invoiced  int64 `json:"invoiced"`
}

type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type Summary struct {
	Reference              string          `json:"reference"`
	PendingTotal           decimal.Decimal `json:"pending_total"`
	CompletedThisMonth     decimal.Decimal `json:"completed_this_month"`
	InvoicedThisMonth      decimal.Decimal `json:"invoiced_this_month"`
	CompletedPreviousMonth decimal.Decimal `json:"completed_previous_month"`
	InvoicedPreviousMonth  decimal.Decimal `json:"invoiced_previous_month"`
	CompletedDelta         decimal.Decimal `json:"completed_delta"`
	InvoicedDelta          decimal.Decimal `json:"invoiced_delta"`
	Counters               Counters        `json:"counters"`
	Series                 []MonthTotal    `json:"series"`
}

type Status int

const (
	StatusPending Status = iota
	StatusCompleted
	StatusInvoiced
)

// Scope selects reports by status. For completed and invoiced reports the
// range applies to the matching timestamp; From is inclusive, To exclusive.
type Scope struct {
	Status Status
	From   time.Time
	To     time.Time
}

type Repository interface {
	// SumQuoted returns Σ quantity × charged value over both quoted
	// collections of the reports in scope. Never NULL.
	SumQuoted(ctx context.Context, db *gorm.DB, scope Scope) (decimal.Decimal, error)
	Counters(ctx context.Context, db *gorm.DB) (Counters, error)
}

type Service interface {
	GetSummary(ctx context.Context, req SummaryRequest) (Summary, error)
	ExportXLSX(ctx context.Context, req SummaryRequest) ([]byte, error)
	ExportPDF(ctx context.Context, req SummaryRequest) ([]byte, error)
}
