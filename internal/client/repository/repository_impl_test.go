package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/laudo/internal/client/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Client{}))
	return conn
}

func TestGetOrCreateByTaxIDIsIdempotent(t *testing.T) {
	conn := setupDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := Provide()
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := repo.GetOrCreateByTaxID(ctx, conn, &domain.Client{
		ID: node.Generate(), Name: "Acme", TaxID: "12345678000190", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	second, err := repo.GetOrCreateByTaxID(ctx, conn, &domain.Client{
		ID: node.Generate(), Name: "Acme Renamed", TaxID: "12345678000190", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Acme", second.Name)

	var count int64
	require.NoError(t, conn.Model(&domain.Client{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreateByTaxIDRejectsEmpty(t *testing.T) {
	conn := setupDB(t)
	_, err := Provide().GetOrCreateByTaxID(context.Background(), conn, &domain.Client{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidTaxID)
}

func TestNormalizeTaxID(t *testing.T) {
	assert.Equal(t, "12345678000190", domain.NormalizeTaxID("12.345.678/0001-90"))
}
