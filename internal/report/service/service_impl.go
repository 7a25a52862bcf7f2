package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/laudo/internal/clock"
	clientdomain "github.com/smallbiznis/laudo/internal/client/domain"
	"github.com/smallbiznis/laudo/internal/config"
	"github.com/smallbiznis/laudo/internal/observability/logger"
	"github.com/smallbiznis/laudo/internal/observability/metrics"
	"github.com/smallbiznis/laudo/internal/report/domain"
	"github.com/smallbiznis/laudo/internal/report/format"
	"github.com/smallbiznis/laudo/pkg/db"
	"github.com/smallbiznis/laudo/pkg/db/pagination"
)

const (
	outcomeSuccess    = "success"
	outcomeValidation = "validation"
	outcomeConflict   = "conflict"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Config   config.Config
	Clock    clock.Clock
	Repo     domain.Repository
	Clients  clientdomain.Repository
	Compiler domain.Compiler
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	clients     clientdomain.Repository
	compiler    domain.Compiler
	metrics     *metrics.Metrics
	validate    *validator.Validate
	uploadsRoot string
}

func New(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("report.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		clients:     p.Clients,
		compiler:    p.Compiler,
		metrics:     p.Metrics,
		validate:    newValidator(),
		uploadsRoot: p.Config.Storage.UploadsRoot,
	}
}

func (s *Service) CreateReport(ctx context.Context, req domain.CreateReportRequest) (snowflake.ID, error) {
	log := logger.WithContext(ctx, s.log)

	if err := s.validate.StructCtx(ctx, req); err != nil {
		s.metrics.RecordReportSaved(ctx, outcomeValidation)
		return 0, validationError(err)
	}

	taxID := clientdomain.NormalizeTaxID(req.Client.TaxID)
	if len(taxID) != 11 && len(taxID) != 14 {
		s.metrics.RecordReportSaved(ctx, outcomeValidation)
		return 0, &domain.ValidationError{Field: "client.tax_id", Code: "tax_id"}
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	ctx = logger.ContextWithReport(ctx, id.String())
	log = logger.WithContext(ctx, s.log)
	agg, err := s.buildAggregate(id, req, now)
	if err != nil {
		s.metrics.RecordReportSaved(ctx, outcomeValidation)
		return 0, err
	}

	staged := make([]stagedPhoto, 0, len(req.Photos))
	for i, in := range req.Photos {
		photo, mime, err := s.stagePhoto(in.Content, in.FileName)
		if err != nil {
			discardStaged(staged)
			s.metrics.RecordReportSaved(ctx, outcomeConflict)
			return 0, &domain.TransactionError{Op: "stage_photo", Err: err}
		}
		staged = append(staged, photo)
		if !strings.HasPrefix(mime, "image/") {
			discardStaged(staged)
			s.metrics.RecordReportSaved(ctx, outcomeValidation)
			return 0, &domain.ValidationError{Field: fmt.Sprintf("photos[%d].content", i), Code: "image"}
		}
		agg.Photos[i].FilePath = reportPhotoDir + "/" + id.String() + "/" + photo.Final
	}

	client, err := s.clients.GetOrCreateByTaxID(ctx, s.db, &clientdomain.Client{
		ID:        s.genID.Generate(),
		Name:      strings.TrimSpace(req.Client.Name),
		TaxID:     taxID,
		Address:   strings.TrimSpace(req.Client.Address),
		City:      strings.TrimSpace(req.Client.City),
		State:     strings.ToUpper(strings.TrimSpace(req.Client.State)),
		Zip:       strings.TrimSpace(req.Client.Zip),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		discardStaged(staged)
		s.metrics.RecordReportSaved(ctx, outcomeConflict)
		return 0, &domain.TransactionError{Op: "resolve_client", Err: err}
	}
	agg.Report.ClientID = &client.ID

	if err := s.repo.Save(ctx, s.db, agg); err != nil {
		discardStaged(staged)
		switch {
		case errors.Is(err, domain.ErrInvalidSection):
			s.metrics.RecordReportSaved(ctx, outcomeValidation)
			return 0, &domain.ValidationError{Field: "photos", Code: "report_section"}
		case db.IsForeignKeyErr(err):
			s.metrics.RecordReportSaved(ctx, outcomeValidation)
			return 0, &domain.ValidationError{Field: "quoted_items", Code: "unknown_reference"}
		}
		s.metrics.RecordReportSaved(ctx, outcomeConflict)
		log.Error("failed to save report", zap.Error(err))
		return 0, &domain.TransactionError{Op: "save_report", Err: err}
	}

	s.commitPhotos(id.String(), staged)
	s.metrics.RecordReportSaved(ctx, outcomeSuccess)
	log.Info("report created",
		zap.Int("photos", len(staged)),
		zap.Int("quoted_items", len(agg.QuotedParts)+len(agg.QuotedServices)),
	)
	return id, nil
}

func (s *Service) GetAggregate(ctx context.Context, id string) (*domain.Aggregate, error) {
	reportID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}

	agg, err := s.repo.LoadAggregate(ctx, s.db, reportID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, domain.ErrNotFound
	}
	return agg, nil
}

func (s *Service) RenderDocument(ctx context.Context, id string, paths domain.Paths) (string, error) {
	reportID, err := s.parseID(id)
	if err != nil {
		return "", err
	}
	return s.compiler.Compile(ctx, reportID, paths)
}

func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	page := pagination.Page{Number: req.Page, Size: req.PageSize}.Normalize()
	filter := domain.SearchFilter{Query: strings.TrimSpace(req.Query)}

	items, total, err := s.repo.Search(ctx, s.db, filter, page)
	if err != nil {
		return domain.SearchResponse{}, err
	}
	if items == nil {
		items = []domain.SearchRow{}
	}

	info := pagination.BuildPageInfo(page, total)
	return domain.SearchResponse{
		Items:    items,
		Total:    info.Total,
		Page:     info.Page,
		LastPage: info.LastPage,
	}, nil
}

func (s *Service) buildAggregate(id snowflake.ID, req domain.CreateReportRequest, now time.Time) (*domain.Aggregate, error) {
	report := domain.Report{
		ID:                  id,
		WorkOrder:           strings.TrimSpace(req.WorkOrder),
		TechnicalReference:  strings.TrimSpace(req.TechnicalReference),
		Title:               strings.TrimSpace(req.Title),
		EmissionDate:        req.EmissionDate,
		ClientName:          strings.TrimSpace(req.Client.Name),
		ClientTaxID:         strings.TrimSpace(req.Client.TaxID),
		ClientAddress:       strings.TrimSpace(req.Client.Address),
		ClientCity:          strings.TrimSpace(req.Client.City),
		ClientState:         strings.ToUpper(strings.TrimSpace(req.Client.State)),
		ClientZip:           strings.TrimSpace(req.Client.Zip),
		Objective:           req.Objective,
		DamageCauses:        req.DamageCauses,
		Description:         req.Description,
		IsolationConclusion: strings.TrimSpace(req.IsolationConclusion),
		RunoutConclusion:    strings.TrimSpace(req.RunoutConclusion),
		Conclusion:          strings.TrimSpace(req.Conclusion),
		PreparedBy:          strings.TrimSpace(req.PreparedBy),
		CheckedBy:           strings.TrimSpace(req.CheckedBy),
		ApprovedBy:          strings.TrimSpace(req.ApprovedBy),
		SignatureHash:       strings.TrimSpace(req.SignatureHash),
		ClientLogo:          strings.TrimSpace(req.ClientLogo),
		Completed:           req.Completed,
		InvoiceEmitted:      req.InvoiceEmitted,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if req.Completed {
		report.CompletedAt = &now
	}
	if req.InvoiceEmitted {
		report.InvoiceEmittedAt = &now
	}

	agg := &domain.Aggregate{Report: report}

	for i, in := range req.Isolation {
		agg.Isolation = append(agg.Isolation, domain.IsolationMeasurement{
			ID:          s.genID.Generate(),
			ReportID:    id,
			Position:    i,
			Description: strings.TrimSpace(in.Description),
			Value:       in.Value,
			Unit:        strings.TrimSpace(in.Unit),
		})
	}

	for i, in := range req.Runout {
		unit := strings.TrimSpace(in.Unit)
		if unit == "" {
			unit = "mm"
		}
		agg.Runout = append(agg.Runout, domain.RunoutMeasurement{
			ID:            s.genID.Generate(),
			ReportID:      id,
			Position:      i,
			Description:   strings.TrimSpace(in.Description),
			MeasuredValue: strings.TrimSpace(in.MeasuredValue),
			Tolerance:     strings.TrimSpace(in.Tolerance),
			Unit:          unit,
		})
	}

	for i, in := range req.CurrentParts {
		agg.CurrentParts = append(agg.CurrentParts, domain.CurrentPartNote{
			ID:          s.genID.Generate(),
			ReportID:    id,
			Position:    i,
			Description: strings.TrimSpace(in.Description),
			Observation: strings.TrimSpace(in.Observation),
		})
	}

	for i, in := range req.QuotedParts {
		catalogID, qty, value, err := parseQuotedItem(fmt.Sprintf("quoted_parts[%d]", i), in)
		if err != nil {
			return nil, err
		}
		agg.QuotedParts = append(agg.QuotedParts, domain.QuotedPart{
			ID:           s.genID.Generate(),
			ReportID:     id,
			Position:     i,
			PartID:       catalogID,
			Quantity:     qty,
			ChargedValue: value,
		})
	}

	for i, in := range req.QuotedServices {
		catalogID, qty, value, err := parseQuotedItem(fmt.Sprintf("quoted_services[%d]", i), in)
		if err != nil {
			return nil, err
		}
		agg.QuotedServices = append(agg.QuotedServices, domain.QuotedService{
			ID:           s.genID.Generate(),
			ReportID:     id,
			Position:     i,
			ServiceID:    catalogID,
			Quantity:     qty,
			ChargedValue: value,
		})
	}

	for i, in := range req.Photos {
		section, err := domain.ParseSection(in.Section)
		if err != nil {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("photos[%d].section", i), Code: "report_section"}
		}
		agg.Photos = append(agg.Photos, domain.Photo{
			ID:       s.genID.Generate(),
			ReportID: id,
			Position: i,
			Section:  section,
			Caption:  strings.TrimSpace(in.Caption),
		})
	}

	return agg, nil
}

func parseQuotedItem(field string, in domain.QuotedItemInput) (snowflake.ID, decimal.Decimal, decimal.Decimal, error) {
	catalogID, err := snowflake.ParseString(strings.TrimSpace(in.CatalogID))
	if err != nil || catalogID == 0 {
		return 0, decimal.Zero, decimal.Zero, &domain.ValidationError{Field: field + ".catalog_id", Code: "snowflake"}
	}
	qty, err := format.ParseDecimal(in.Quantity)
	if err != nil || !qty.IsPositive() {
		return 0, decimal.Zero, decimal.Zero, &domain.ValidationError{Field: field + ".quantity", Code: "decimal"}
	}
	value, err := format.ParseDecimal(in.ChargedValue)
	if err != nil || value.IsNegative() {
		return 0, decimal.Zero, decimal.Zero, &domain.ValidationError{Field: field + ".charged_value", Code: "decimal"}
	}
	return catalogID, qty, value.Round(2), nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
