package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/laudo/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// Save writes the report and all of its children in one transaction.
	Save(ctx context.Context, db *gorm.DB, agg *Aggregate) error
	// LoadAggregate returns nil, nil for unknown ids.
	LoadAggregate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Aggregate, error)
	Search(ctx context.Context, db *gorm.DB, filter SearchFilter, page pagination.Page) ([]SearchRow, int64, error)
}
