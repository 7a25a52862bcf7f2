package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Part is a catalog part that reports quote against.
type Part struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"not null;uniqueIndex" json:"code"`
	Description string          `gorm:"not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Part) TableName() string { return "parts" }

// Service is a catalog labor item.
type Service struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"not null;uniqueIndex" json:"code"`
	Description string          `gorm:"not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Service) TableName() string { return "services" }
