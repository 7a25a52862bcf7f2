package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/laudo/internal/client/domain"
	"github.com/smallbiznis/laudo/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, client *domain.Client) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO clients (id, name, tax_id, address, city, state, zip, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.Name,
		client.TaxID,
		client.Address,
		client.City,
		client.State,
		client.Zip,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindByTaxID(ctx context.Context, conn *gorm.DB, taxID string) (*domain.Client, error) {
	var client domain.Client
	err := conn.WithContext(ctx).Raw(
		`SELECT id, name, tax_id, address, city, state, zip, created_at, updated_at
		 FROM clients WHERE tax_id = ?`,
		taxID,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := conn.WithContext(ctx).Raw(
		`SELECT id, name, tax_id, address, city, state, zip, created_at, updated_at
		 FROM clients WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) GetOrCreateByTaxID(ctx context.Context, conn *gorm.DB, candidate *domain.Client) (*domain.Client, error) {
	if candidate == nil || candidate.TaxID == "" {
		return nil, domain.ErrInvalidTaxID
	}

	existing, err := r.FindByTaxID(ctx, conn, candidate.TaxID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := r.Insert(ctx, conn, candidate); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		winner, findErr := r.FindByTaxID(ctx, conn, candidate.TaxID)
		if findErr != nil {
			return nil, findErr
		}
		if winner == nil {
			return nil, err
		}
		return winner, nil
	}
	return candidate, nil
}
