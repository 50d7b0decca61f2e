package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/andrescamacho/fishtrack-go/internal/adapters/persistence"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/database"
)

// TestNow is the instant test clocks start at. Fixture tracks end before it so
// the fuel job sees them as finished days.
const TestNow = "2024-06-01 00:00"

// NewTestDB opens a migrated in-memory sqlite database that lives as long as t
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewTestConnection()
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// NewTestStore wires the gorm store on a fresh database with a clock frozen at
// TestNow
func NewTestStore(t *testing.T) *persistence.Store {
	t.Helper()
	return persistence.NewStore(NewTestDB(t), shared.NewMockClock(MustParseTime(TestNow)))
}
