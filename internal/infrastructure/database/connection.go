package database

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/andrescamacho/fishtrack-go/internal/adapters/persistence"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/config"
)

// sqliteBusyTimeoutMs lets a file-backed sqlite wait out a concurrent writer
// instead of failing the vessel with "database is locked"
const sqliteBusyTimeoutMs = 5000

// NewConnection opens the fishtrack store described by cfg
func NewConnection(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(postgresDSN(cfg))
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.Path))
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: queryLogger(cfg)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying db: %w", err)
	}
	switch cfg.Type {
	case "postgres":
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpen)
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdle)
		sqlDB.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	case "sqlite":
		// every connection to ":memory:" is a separate database, and the
		// pipeline workers share one handle
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// postgresDSN prefers the full URL over the discrete fields
func postgresDSN(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	parts := []string{
		"host=" + cfg.Host,
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + cfg.User,
		"dbname=" + cfg.Name,
		"sslmode=" + cfg.SSLMode,
		"application_name=fishtrack",
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+cfg.Password)
	}
	return strings.Join(parts, " ")
}

func sqliteDSN(path string) string {
	if path == "" || path == ":memory:" {
		return ":memory:"
	}
	return fmt.Sprintf("%s?_busy_timeout=%d&_foreign_keys=on", path, sqliteBusyTimeoutMs)
}

// queryLogger stays silent unless a slow query threshold is configured, then
// reports the queries exceeding it on stderr
func queryLogger(cfg *config.DatabaseConfig) logger.Interface {
	if cfg.SlowQueryThreshold <= 0 {
		return logger.Default.LogMode(logger.Silent)
	}
	return logger.New(log.New(os.Stderr, "[fishtrack-db] ", log.LstdFlags), logger.Config{
		SlowThreshold:             cfg.SlowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// NewTestConnection opens a migrated in-memory sqlite database
func NewTestConnection() (*gorm.DB, error) {
	db, err := NewConnection(&config.DatabaseConfig{Type: "sqlite"})
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		_ = Close(db)
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the tables of vessels, events, positions,
// trips, fuel estimates and pipeline runs
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(persistence.AllModels()...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
