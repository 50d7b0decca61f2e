package persistence

import (
	"gorm.io/gorm"

	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/run"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
)

// Store bundles the repositories behind the ports used by the trip pipeline
// and the fuel job. Embedded repositories have disjoint method sets.
type Store struct {
	*GormVesselRepository
	*GormEventRepository
	*GormPositionRepository
	*GormTripRepository
	*GormFuelEstimateRepository
	*GormPipelineRunRepository
}

var (
	_ trip.Store     = (*Store)(nil)
	_ fuel.Store     = (*Store)(nil)
	_ run.Repository = (*Store)(nil)
)

// NewStore wires every repository to one database handle
func NewStore(db *gorm.DB, clock shared.Clock) *Store {
	return &Store{
		GormVesselRepository:       NewGormVesselRepository(db),
		GormEventRepository:        NewGormEventRepository(db),
		GormPositionRepository:     NewGormPositionRepository(db),
		GormTripRepository:         NewGormTripRepository(db, clock),
		GormFuelEstimateRepository: NewGormFuelEstimateRepository(db),
		GormPipelineRunRepository:  NewGormPipelineRunRepository(db),
	}
}
