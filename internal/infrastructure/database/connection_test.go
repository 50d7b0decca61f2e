package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/config"
)

func TestPostgresDSNPrefersURL(t *testing.T) {
	cfg := &config.DatabaseConfig{
		URL:  "postgres://fishtrack@db:5432/fishtrack",
		Host: "ignored",
	}
	assert.Equal(t, "postgres://fishtrack@db:5432/fishtrack", postgresDSN(cfg))
}

func TestPostgresDSNFromFields(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: 5433, User: "fishtrack", Name: "catch", SSLMode: "require"}

	dsn := postgresDSN(cfg)

	assert.Equal(t, "host=db port=5433 user=fishtrack dbname=catch sslmode=require application_name=fishtrack", dsn)

	cfg.Password = "secret"
	assert.Contains(t, postgresDSN(cfg), "password=secret")
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, ":memory:", sqliteDSN(""))
	assert.Equal(t, ":memory:", sqliteDSN(":memory:"))
	assert.Equal(t, "/var/lib/fishtrack.db?_busy_timeout=5000&_foreign_keys=on", sqliteDSN("/var/lib/fishtrack.db"))
}

func TestNewConnectionMigratesFileDatabase(t *testing.T) {
	cfg := &config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "fishtrack.db")}

	db, err := NewConnection(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, AutoMigrate(db))
	assert.True(t, db.Migrator().HasTable("trips"))
}

func TestNewConnectionRejectsUnknownType(t *testing.T) {
	_, err := NewConnection(&config.DatabaseConfig{Type: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}
