package domain

import (
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ClientInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	TaxID   string `json:"tax_id" validate:"required,min=11,max=18"`
	Address string `json:"address" validate:"max=255"`
	City    string `json:"city" validate:"max=120"`
	State   string `json:"state" validate:"max=2"`
	Zip     string `json:"zip" validate:"max=10"`
}

type IsolationInput struct {
	Description string  `json:"description" validate:"required"`
	Value       float64 `json:"value" validate:"gte=0"`
	Unit        string  `json:"unit" validate:"required"`
}

type RunoutInput struct {
	Description   string `json:"description" validate:"required"`
	MeasuredValue string `json:"measured_value"`
	Tolerance     string `json:"tolerance"`
	Unit          string `json:"unit"`
}

type CurrentPartInput struct {
	Description string `json:"description" validate:"required"`
	Observation string `json:"observation"`
}

// QuotedItemInput carries raw numbers so both 1.234,56 and 1,234.56 are
// accepted.
type QuotedItemInput struct {
	CatalogID    string `json:"catalog_id" validate:"required"`
	Quantity     string `json:"quantity" validate:"required"`
	ChargedValue string `json:"charged_value" validate:"required"`
}

// PhotoInput is one uploaded photo. Content is read once, during staging.
type PhotoInput struct {
	Section  string    `json:"section" validate:"required,report_section"`
	Caption  string    `json:"caption" validate:"max=500"`
	FileName string    `json:"file_name" validate:"required"`
	Content  io.Reader `json:"-" validate:"required"`
}

type CreateReportRequest struct {
	WorkOrder           string             `json:"work_order" validate:"required,max=64"`
	TechnicalReference  string             `json:"technical_reference" validate:"max=64"`
	Title               string             `json:"title" validate:"required,max=255"`
	EmissionDate        *time.Time         `json:"emission_date" validate:"required"`
	Client              ClientInput        `json:"client"`
	Objective           string             `json:"objective"`
	DamageCauses        string             `json:"damage_causes"`
	Description         string             `json:"description"`
	IsolationConclusion string             `json:"isolation_conclusion"`
	RunoutConclusion    string             `json:"runout_conclusion"`
	Conclusion          string             `json:"conclusion"`
	PreparedBy          string             `json:"prepared_by"`
	CheckedBy           string             `json:"checked_by"`
	ApprovedBy          string             `json:"approved_by"`
	SignatureHash       string             `json:"signature_hash"`
	ClientLogo          string             `json:"client_logo"`
	Completed           bool               `json:"completed"`
	InvoiceEmitted      bool               `json:"invoice_emitted"`
	Isolation           []IsolationInput   `json:"isolation_measurements" validate:"dive"`
	Runout              []RunoutInput      `json:"runout_measurements" validate:"dive"`
	CurrentParts        []CurrentPartInput `json:"current_parts" validate:"dive"`
	QuotedParts         []QuotedItemInput  `json:"quoted_parts" validate:"dive"`
	QuotedServices      []QuotedItemInput  `json:"quoted_services" validate:"dive"`
	Photos              []PhotoInput       `json:"-" validate:"dive"`
}

// Paths locates the trees a render reads from and writes to. Zero fields
// fall back to the configured storage roots.
type Paths struct {
	UploadsRoot string
	ReportsRoot string
	AssetsDir   string
}

type SearchRequest struct {
	Query    string
	Page     int
	PageSize int
}

type SearchFilter struct {
	Query string
}

// SearchRow is one search hit. ClientDisplayName prefers the live client
// name over the snapshot.
type SearchRow struct {
	ID                snowflake.ID `json:"id"`
	WorkOrder         string       `json:"work_order"`
	Title             string       `json:"title"`
	EmissionDate      *time.Time   `json:"emission_date"`
	ClientTaxID       string       `json:"client_tax_id"`
	ClientDisplayName string       `json:"client_name"`
	Completed         bool         `json:"completed"`
	InvoiceEmitted    bool         `json:"invoice_emitted"`
}

type SearchResponse struct {
	Items    []SearchRow `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	LastPage int         `json:"last_page"`
}

type Service interface {
	CreateReport(ctx context.Context, req CreateReportRequest) (snowflake.ID, error)
	GetAggregate(ctx context.Context, id string) (*Aggregate, error)
	RenderDocument(ctx context.Context, id string, paths Paths) (string, error)
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
}

// Compiler turns a stored report into a PDF on disk and returns its path
// relative to the reports root.
type Compiler interface {
	Compile(ctx context.Context, id snowflake.ID, paths Paths) (string, error)
}
