package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/laudo/internal/client/domain"
	"github.com/smallbiznis/laudo/internal/report/domain"
	"github.com/smallbiznis/laudo/pkg/db/pagination"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const batchSize = 100

var (
	likeEscaper  = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	taxIDPattern = regexp.MustCompile(`^[0-9./\-\s]+$`)
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Save(ctx context.Context, conn *gorm.DB, agg *domain.Aggregate) error {
	if agg == nil || agg.Report.ID == 0 {
		return domain.ErrInvalidID
	}
	reportID := agg.Report.ID

	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&agg.Report).Error; err != nil {
			return fmt.Errorf("insert report: %w", err)
		}

		if len(agg.Isolation) > 0 {
			for i := range agg.Isolation {
				agg.Isolation[i].ReportID = reportID
			}
			if err := tx.CreateInBatches(agg.Isolation, batchSize).Error; err != nil {
				return fmt.Errorf("insert isolation measurements: %w", err)
			}
		}
		if len(agg.Runout) > 0 {
			for i := range agg.Runout {
				agg.Runout[i].ReportID = reportID
			}
			if err := tx.CreateInBatches(agg.Runout, batchSize).Error; err != nil {
				return fmt.Errorf("insert runout measurements: %w", err)
			}
		}
		if len(agg.CurrentParts) > 0 {
			for i := range agg.CurrentParts {
				agg.CurrentParts[i].ReportID = reportID
			}
			if err := tx.CreateInBatches(agg.CurrentParts, batchSize).Error; err != nil {
				return fmt.Errorf("insert current parts: %w", err)
			}
		}
		if len(agg.Photos) > 0 {
			for i := range agg.Photos {
				if !agg.Photos[i].Section.Valid() {
					return fmt.Errorf("%w: %q", domain.ErrInvalidSection, agg.Photos[i].Section)
				}
				agg.Photos[i].ReportID = reportID
			}
			if err := tx.CreateInBatches(agg.Photos, batchSize).Error; err != nil {
				return fmt.Errorf("insert photos: %w", err)
			}
		}
		if len(agg.QuotedParts) > 0 {
			for i := range agg.QuotedParts {
				agg.QuotedParts[i].ReportID = reportID
			}
			if err := tx.CreateInBatches(agg.QuotedParts, batchSize).Error; err != nil {
				return fmt.Errorf("insert quoted parts: %w", err)
			}
		}
		if len(agg.QuotedServices) > 0 {
			for i := range agg.QuotedServices {
				agg.QuotedServices[i].ReportID = reportID
			}
			if err := tx.CreateInBatches(agg.QuotedServices, batchSize).Error; err != nil {
				return fmt.Errorf("insert quoted services: %w", err)
			}
		}
		return nil
	})
}

func (r *repo) LoadAggregate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Aggregate, error) {
	var agg *domain.Aggregate
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report domain.Report
		if err := tx.Where("id = ?", id).Limit(1).Find(&report).Error; err != nil {
			return fmt.Errorf("load report: %w", err)
		}
		if report.ID == 0 {
			return nil
		}

		out := &domain.Aggregate{Report: report}
		if err := tx.Where("report_id = ?", id).Order("position ASC, id ASC").Find(&out.Isolation).Error; err != nil {
			return fmt.Errorf("load isolation measurements: %w", err)
		}
		if err := tx.Where("report_id = ?", id).Order("position ASC, id ASC").Find(&out.Runout).Error; err != nil {
			return fmt.Errorf("load runout measurements: %w", err)
		}
		if err := tx.Where("report_id = ?", id).Order("position ASC, id ASC").Find(&out.CurrentParts).Error; err != nil {
			return fmt.Errorf("load current parts: %w", err)
		}
		if err := tx.Where("report_id = ?", id).Order("position ASC, id ASC").Find(&out.Photos).Error; err != nil {
			return fmt.Errorf("load photos: %w", err)
		}
		if err := tx.Raw(
			`SELECT qp.id, qp.report_id, qp.position, qp.part_id, qp.quantity, qp.charged_value,
			        COALESCE(p.code, '') AS code, COALESCE(p.description, '') AS description
			 FROM report_quoted_parts qp
			 LEFT JOIN parts p ON p.id = qp.part_id
			 WHERE qp.report_id = ?
			 ORDER BY qp.position ASC, qp.id ASC`,
			id,
		).Scan(&out.QuotedParts).Error; err != nil {
			return fmt.Errorf("load quoted parts: %w", err)
		}
		if err := tx.Raw(
			`SELECT qs.id, qs.report_id, qs.position, qs.service_id, qs.quantity, qs.charged_value,
			        COALESCE(s.code, '') AS code, COALESCE(s.description, '') AS description
			 FROM report_quoted_services qs
			 LEFT JOIN services s ON s.id = qs.service_id
			 WHERE qs.report_id = ?
			 ORDER BY qs.position ASC, qs.id ASC`,
			id,
		).Scan(&out.QuotedServices).Error; err != nil {
			return fmt.Errorf("load quoted services: %w", err)
		}

		agg = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func (r *repo) Search(ctx context.Context, conn *gorm.DB, filter domain.SearchFilter, page pagination.Page) ([]domain.SearchRow, int64, error) {
	page = page.Normalize()

	var (
		rows  []domain.SearchRow
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.searchScope(gctx, conn, filter).
			Select(`r.id, r.work_order, r.title, r.emission_date, r.client_tax_id,
				COALESCE(c.name, r.client_name) AS client_display_name,
				r.completed, r.invoice_emitted`).
			Order("CASE WHEN r.emission_date IS NULL THEN 1 ELSE 0 END").
			Order("r.emission_date DESC").
			Order("r.id DESC").
			Limit(page.Size).
			Offset(page.Offset()).
			Scan(&rows).Error
	})
	g.Go(func() error {
		return r.searchScope(gctx, conn, filter).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("search reports: %w", err)
	}
	if rows == nil {
		rows = []domain.SearchRow{}
	}
	return rows, total, nil
}

func (r *repo) searchScope(ctx context.Context, conn *gorm.DB, filter domain.SearchFilter) *gorm.DB {
	stmt := conn.WithContext(ctx).
		Table("reports AS r").
		Joins("LEFT JOIN clients c ON c.id = r.client_id")

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	if query == "" {
		return stmt
	}

	like := "%" + likeEscaper.Replace(query) + "%"
	conds := []string{
		`LOWER(r.work_order) LIKE ? ESCAPE '!'`,
		`LOWER(r.title) LIKE ? ESCAPE '!'`,
		`LOWER(r.client_tax_id) LIKE ? ESCAPE '!'`,
		`LOWER(COALESCE(c.name, r.client_name)) LIKE ? ESCAPE '!'`,
	}
	args := []any{like, like, like, like}
	// Formatted tax ids also match the digits-only column on the live client.
	if taxIDPattern.MatchString(query) {
		if digits := clientdomain.NormalizeTaxID(query); digits != "" {
			conds = append(conds, "c.tax_id LIKE ?")
			args = append(args, "%"+digits+"%")
		}
	}
	return stmt.Where("("+strings.Join(conds, " OR ")+")", args...)
}
