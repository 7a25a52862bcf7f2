package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/smallbiznis/laudo/internal/clock"
	"github.com/smallbiznis/laudo/internal/financial/domain"
	"github.com/smallbiznis/laudo/internal/financial/repository"
	"github.com/smallbiznis/laudo/internal/providers/pdf"
	reportdomain "github.com/smallbiznis/laudo/internal/report/domain"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(reportdomain.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    conn,
		Log:   zaptest.NewLogger(t),
		Clock: clock.NewFakeClock(time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		PDF:   pdf.New(),
	})
	return &fixture{db: conn, node: node, svc: svc}
}

type seed struct {
	completedAt *time.Time
	invoicedAt  *time.Time
	parts       [][2]string
	services    [][2]string
}

func at(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
	return &t
}

func (f *fixture) seed(t *testing.T, s seed) {
	t.Helper()
	report := reportdomain.Report{
		ID:               f.node.Generate(),
		WorkOrder:        "OS",
		Title:            "Laudo",
		Completed:        s.completedAt != nil,
		CompletedAt:      s.completedAt,
		InvoiceEmitted:   s.invoicedAt != nil,
		InvoiceEmittedAt: s.invoicedAt,
	}
	require.NoError(t, f.db.Create(&report).Error)

	for i, p := range s.parts {
		require.NoError(t, f.db.Create(&reportdomain.QuotedPart{
			ID:           f.node.Generate(),
			ReportID:     report.ID,
			Position:     i,
			PartID:       f.node.Generate(),
			Quantity:     decimal.RequireFromString(p[0]),
			ChargedValue: decimal.RequireFromString(p[1]),
		}).Error)
	}
	for i, sv := range s.services {
		require.NoError(t, f.db.Create(&reportdomain.QuotedService{
			ID:           f.node.Generate(),
			ReportID:     report.ID,
			Position:     i,
			ServiceID:    f.node.Generate(),
			Quantity:     decimal.RequireFromString(sv[0]),
			ChargedValue: decimal.RequireFromString(sv[1]),
		}).Error)
	}
}

func (f *fixture) seedDefault(t *testing.T) {
	f.seed(t, seed{parts: [][2]string{{"2", "100"}}, services: [][2]string{{"1", "50.50"}}})
	f.seed(t, seed{completedAt: at(2024, time.March, 10), invoicedAt: at(2024, time.March, 12), parts: [][2]string{{"1", "1000"}}})
	f.seed(t, seed{completedAt: at(2024, time.February, 20), services: [][2]string{{"3", "33.33"}}})
	f.seed(t, seed{completedAt: at(2023, time.March, 1), parts: [][2]string{{"1", "500"}}})
	f.seed(t, seed{completedAt: at(2024, time.April, 1), parts: [][2]string{{"1", "700"}}})
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestGetSummaryTotals(t *testing.T) {
	f := newFixture(t)
	f.seedDefault(t)

	summary, err := f.svc.GetSummary(context.Background(), domain.SummaryRequest{})
	require.NoError(t, err)

	assert.Equal(t, "2024-03", summary.Reference)
	assertMoney(t, "250.50", summary.PendingTotal)
	assertMoney(t, "1000", summary.CompletedThisMonth)
	assertMoney(t, "1000", summary.InvoicedThisMonth)
	assertMoney(t, "99.99", summary.CompletedPreviousMonth)
	assertMoney(t, "0", summary.InvoicedPreviousMonth)
	assertMoney(t, "900.01", summary.CompletedDelta)
	assertMoney(t, "1000", summary.InvoicedDelta)

	assert.Equal(t, domain.Counters{Total: 5, Pending: 1, Completed: 4, Invoiced: 1}, summary.Counters)
}

func TestGetSummarySeries(t *testing.T) {
	f := newFixture(t)
	f.seedDefault(t)

	summary, err := f.svc.GetSummary(context.Background(), domain.SummaryRequest{})
	require.NoError(t, err)

	require.Len(t, summary.Series, 12)
	assert.Equal(t, "2023-04", summary.Series[0].Month)
	assert.Equal(t, "2024-03", summary.Series[11].Month)
	assertMoney(t, "1000", summary.Series[11].Total)
	assertMoney(t, "99.99", summary.Series[10].Total)
	for _, m := range summary.Series[:10] {
		assertMoney(t, "0", m.Total)
	}
}

func TestGetSummaryExplicitReference(t *testing.T) {
	f := newFixture(t)
	f.seedDefault(t)

	summary, err := f.svc.GetSummary(context.Background(), domain.SummaryRequest{
		Reference: time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-02", summary.Reference)
	assertMoney(t, "99.99", summary.CompletedThisMonth)
	assertMoney(t, "0", summary.CompletedPreviousMonth)
	assertMoney(t, "0", summary.InvoicedThisMonth)
}

func TestGetSummaryEmptyStore(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.GetSummary(context.Background(), domain.SummaryRequest{})
	require.NoError(t, err)

	assertMoney(t, "0", summary.PendingTotal)
	assertMoney(t, "0", summary.CompletedThisMonth)
	assertMoney(t, "0", summary.InvoicedThisMonth)
	assert.Equal(t, domain.Counters{}, summary.Counters)
	require.Len(t, summary.Series, 12)
}

func TestGetSummaryReportWithoutQuotedItems(t *testing.T) {
	f := newFixture(t)
	f.seed(t, seed{completedAt: at(2024, time.March, 2)})

	summary, err := f.svc.GetSummary(context.Background(), domain.SummaryRequest{})
	require.NoError(t, err)
	assertMoney(t, "0", summary.CompletedThisMonth)
	assert.Equal(t, int64(1), summary.Counters.Completed)
}

func TestExportXLSX(t *testing.T) {
	f := newFixture(t)
	f.seedDefault(t)

	body, err := f.svc.ExportXLSX(context.Background(), domain.SummaryRequest{})
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{summarySheet}, book.GetSheetList())
	ref, err := book.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", ref)

	label, err := book.GetCellValue(summarySheet, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Concluídos", label)

	rows, err := book.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, "2024-03", rows[len(rows)-1][0])
}

func TestExportPDF(t *testing.T) {
	f := newFixture(t)
	f.seedDefault(t)

	body, err := f.svc.ExportPDF(context.Background(), domain.SummaryRequest{})
	require.NoError(t, err)
	require.True(t, len(body) > 4)
	assert.Equal(t, "%PDF", string(body[:4]))
}
