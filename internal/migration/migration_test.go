package migration

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs)
}

func TestAutoMigrateCreatesEveryTable(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(conn))

	for _, table := range []string{
		"clients", "parts", "services", "reports",
		"report_isolation_measurements", "report_runout_measurements",
		"report_current_parts", "report_photos",
		"report_quoted_parts", "report_quoted_services",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.False(t, conn.Migrator().HasColumn("report_quoted_parts", "code"))
}

var createTable = regexp.MustCompile(`(?i)CREATE TABLE(?: IF NOT EXISTS)?\s+"?([a-z_]+)"?`)

func TestEmbeddedSchemaMatchesModels(t *testing.T) {
	src, err := newSource()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_init.up.sql")
	require.NoError(t, err)
	var created []string
	for _, m := range createTable.FindAllStringSubmatch(string(up), -1) {
		created = append(created, strings.ToLower(m[1]))
	}

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	var modelTables []string
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: conn}
		require.NoError(t, stmt.Parse(model))
		modelTables = append(modelTables, stmt.Schema.Table)
	}
	assert.ElementsMatch(t, modelTables, created)
}
