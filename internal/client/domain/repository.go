package domain

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByTaxID(ctx context.Context, db *gorm.DB, taxID string) (*Client, error)
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	// GetOrCreateByTaxID returns the existing client for the tax id, or
	// inserts candidate. Losing an insert race re-reads the winner's row.
	GetOrCreateByTaxID(ctx context.Context, db *gorm.DB, candidate *Client) (*Client, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
}

var (
	ErrInvalidTaxID = errors.New("invalid_tax_id")
	ErrInvalidName  = errors.New("invalid_name")
)

// NormalizeTaxID keeps only the digits of a CPF/CNPJ so that formatted and
// unformatted input resolve to the same client.
func NormalizeTaxID(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
