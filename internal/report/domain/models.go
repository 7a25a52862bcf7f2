package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Report is the aggregate root. The client fields are a snapshot taken at
// creation so the document never changes when the client record does.
type Report struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	WorkOrder           string        `gorm:"not null;index" json:"work_order"`
	TechnicalReference  string        `json:"technical_reference"`
	Title               string        `gorm:"not null" json:"title"`
	EmissionDate        *time.Time    `gorm:"index" json:"emission_date"`
	ClientID            *snowflake.ID `gorm:"index" json:"client_id,omitempty"`
	ClientName          string        `json:"client_name"`
	ClientTaxID         string        `gorm:"column:client_tax_id" json:"client_tax_id"`
	ClientAddress       string        `json:"client_address"`
	ClientCity          string        `json:"client_city"`
	ClientState         string        `json:"client_state"`
	ClientZip           string        `json:"client_zip"`
	Objective           string        `json:"objective"`
	DamageCauses        string        `json:"damage_causes"`
	Description         string        `json:"description"`
	IsolationConclusion string        `json:"isolation_conclusion"`
	RunoutConclusion    string        `json:"runout_conclusion"`
	Conclusion          string        `json:"conclusion"`
	PreparedBy          string        `json:"prepared_by"`
	CheckedBy           string        `json:"checked_by"`
	ApprovedBy          string        `json:"approved_by"`
	SignatureHash       string        `json:"signature_hash"`
	ClientLogo          string        `json:"client_logo"`
	Completed           bool          `gorm:"not null;default:false" json:"completed"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
	InvoiceEmitted      bool          `gorm:"not null;default:false" json:"invoice_emitted"`
	InvoiceEmittedAt    *time.Time    `json:"invoice_emitted_at,omitempty"`
	CreatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Report) TableName() string { return "reports" }

type IsolationMeasurement struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ReportID    snowflake.ID `gorm:"not null;index" json:"report_id"`
	Position    int          `gorm:"not null" json:"position"`
	Description string       `gorm:"not null" json:"description"`
	Value       float64      `gorm:"not null" json:"value"`
	Unit        string       `gorm:"not null" json:"unit"`
}

func (IsolationMeasurement) TableName() string { return "report_isolation_measurements" }

// RunoutMeasurement stores value and tolerance as entered; inference parses
// them and skips rows that are not numeric.
type RunoutMeasurement struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	ReportID      snowflake.ID `gorm:"not null;index" json:"report_id"`
	Position      int          `gorm:"not null" json:"position"`
	Description   string       `gorm:"not null" json:"description"`
	MeasuredValue string       `json:"measured_value"`
	Tolerance     string       `json:"tolerance"`
	Unit          string       `gorm:"not null;default:'mm'" json:"unit"`
}

func (RunoutMeasurement) TableName() string { return "report_runout_measurements" }

type CurrentPartNote struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ReportID    snowflake.ID `gorm:"not null;index" json:"report_id"`
	Position    int          `gorm:"not null" json:"position"`
	Description string       `gorm:"not null" json:"description"`
	Observation string       `json:"observation"`
}

func (CurrentPartNote) TableName() string { return "report_current_parts" }

// Photo references a file relative to the uploads root.
type Photo struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	ReportID snowflake.ID `gorm:"not null;index" json:"report_id"`
	Position int          `gorm:"not null" json:"position"`
	Section  Section      `gorm:"type:varchar(32);not null" json:"section"`
	FilePath string       `gorm:"not null" json:"file_path"`
	Caption  string       `json:"caption"`
}

func (Photo) TableName() string { return "report_photos" }

// QuotedPart links a report to a catalog part. Code and Description are
// filled from the catalog on load and never written.
type QuotedPart struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	ReportID     snowflake.ID    `gorm:"not null;index" json:"report_id"`
	Position     int             `gorm:"not null" json:"position"`
	PartID       snowflake.ID    `gorm:"not null;index" json:"part_id"`
	Quantity     decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	ChargedValue decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"charged_value"`
	Code         string          `gorm:"->;-:migration" json:"code"`
	Description  string          `gorm:"->;-:migration" json:"description"`
}

func (QuotedPart) TableName() string { return "report_quoted_parts" }

// LineTotal is quantity × charged value.
func (q QuotedPart) LineTotal() decimal.Decimal {
	return q.Quantity.Mul(q.ChargedValue)
}

type QuotedService struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	ReportID     snowflake.ID    `gorm:"not null;index" json:"report_id"`
	Position     int             `gorm:"not null" json:"position"`
	ServiceID    snowflake.ID    `gorm:"not null;index" json:"service_id"`
	Quantity     decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	ChargedValue decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"charged_value"`
	Code         string          `gorm:"->;-:migration" json:"code"`
	Description  string          `gorm:"->;-:migration" json:"description"`
}

func (QuotedService) TableName() string { return "report_quoted_services" }

func (q QuotedService) LineTotal() decimal.Decimal {
	return q.Quantity.Mul(q.ChargedValue)
}

// Aggregate is a report with every owned collection, each in position order.
type Aggregate struct {
	Report         Report                 `json:"report"`
	Isolation      []IsolationMeasurement `json:"isolation_measurements"`
	Runout         []RunoutMeasurement    `json:"runout_measurements"`
	CurrentParts   []CurrentPartNote      `json:"current_parts"`
	Photos         []Photo                `json:"photos"`
	QuotedParts    []QuotedPart           `json:"quoted_parts"`
	QuotedServices []QuotedService        `json:"quoted_services"`
}

// Models lists every table owned by the report aggregate, parents first.
func Models() []any {
	return []any{
		&Report{},
		&IsolationMeasurement{},
		&RunoutMeasurement{},
		&CurrentPartNote{},
		&Photo{},
		&QuotedPart{},
		&QuotedService{},
	}
}
