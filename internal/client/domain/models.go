package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	TaxID     string       `gorm:"column:tax_id;not null;uniqueIndex" json:"tax_id"`
	Address   string       `json:"address,omitempty"`
	City      string       `json:"city,omitempty"`
	State     string       `json:"state,omitempty"`
	Zip       string       `json:"zip,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }
