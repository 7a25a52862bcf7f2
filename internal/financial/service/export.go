package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/smallbiznis/laudo/internal/financial/domain"
	"github.com/smallbiznis/laudo/internal/providers/pdf"
	"github.com/smallbiznis/laudo/internal/report/format"
)

const summarySheet = "Resumo"

func (s *Service) ExportXLSX(ctx context.Context, req domain.SummaryRequest) ([]byte, error) {
	summary, err := s.GetSummary(ctx, req)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("create money style: %w", err)
	}

	rows := [][]any{
		{"Referência", summary.Reference, "", ""},
		{},
		{"Valores", "Mês atual", "Mês anterior", "Variação"},
		{"Pendentes", money(summary.PendingTotal), "", ""},
		{"Concluídos", money(summary.CompletedThisMonth), money(summary.CompletedPreviousMonth), money(summary.CompletedDelta)},
		{"Faturados", money(summary.InvoicedThisMonth), money(summary.InvoicedPreviousMonth), money(summary.InvoicedDelta)},
		{},
		{"Relatórios", "Quantidade"},
		{"Total", summary.Counters.Total},
		{"Pendentes", summary.Counters.Pending},
		{"Concluídos", summary.Counters.Completed},
		{"Faturados", summary.Counters.Invoiced},
		{},
		{"Mês", "Concluídos"},
	}
	for _, m := range summary.Series {
		rows = append(rows, []any{m.Month, money(m.Total)})
	}

	headers := map[int]bool{3: true, 8: true, 14: true}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
		end, _ := excelize.CoordinatesToCellName(len(row), i+1)
		if headers[i+1] {
			if err := f.SetCellStyle(summarySheet, cell, end, headerStyle); err != nil {
				return nil, err
			}
			continue
		}
		second, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellStyle(summarySheet, second, end, moneyStyle); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "D", 18); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.metrics.RecordExport(ctx, "xlsx")
	return buf.Bytes(), nil
}

func (s *Service) ExportPDF(ctx context.Context, req domain.SummaryRequest) ([]byte, error) {
	summary, err := s.GetSummary(ctx, req)
	if err != nil {
		return nil, err
	}

	data := pdf.SummaryData{
		Title:       "Resumo financeiro",
		Reference:   summary.Reference,
		GeneratedAt: s.clock.Now().Format("02/01/2006 15:04"),
		Totals: []pdf.SummaryLine{
			{Label: "Pendentes", Current: format.Currency(summary.PendingTotal)},
			{
				Label:    "Concluídos",
				Current:  format.Currency(summary.CompletedThisMonth),
				Previous: format.Currency(summary.CompletedPreviousMonth),
				Delta:    format.Currency(summary.CompletedDelta),
			},
			{
				Label:    "Faturados",
				Current:  format.Currency(summary.InvoicedThisMonth),
				Previous: format.Currency(summary.InvoicedPreviousMonth),
				Delta:    format.Currency(summary.InvoicedDelta),
			},
		},
		Counters: []pdf.SummaryLine{
			{Label: "Total", Current: strconv.FormatInt(summary.Counters.Total, 10)},
			{Label: "Pendentes", Current: strconv.FormatInt(summary.Counters.Pending, 10)},
			{Label: "Concluídos", Current: strconv.FormatInt(summary.Counters.Completed, 10)},
			{Label: "Faturados", Current: strconv.FormatInt(summary.Counters.Invoiced, 10)},
		},
	}
	for _, m := range summary.Series {
		data.Series = append(data.Series, pdf.SummaryLine{Label: m.Month, Current: format.Currency(m.Total)})
	}

	r, err := s.pdf.GenerateSummary(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("generate summary pdf: %w", err)
	}
	if r == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordExport(ctx, "pdf")
	return body, nil
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
