package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
)

// GormFuelEstimateRepository persists day-bucketed fuel estimates
type GormFuelEstimateRepository struct {
	db        *gorm.DB
	positions *GormPositionRepository
}

// NewGormFuelEstimateRepository creates a new GORM fuel estimate repository
func NewGormFuelEstimateRepository(db *gorm.DB) *GormFuelEstimateRepository {
	return &GormFuelEstimateRepository{db: db, positions: NewGormPositionRepository(db)}
}

// DatesToEstimate returns every day from the vessel's first position up to and
// including end that has no estimate for engineVersion
func (r *GormFuelEstimateRepository) DatesToEstimate(ctx context.Context, vesselID int64, engineVersion int, end time.Time) ([]time.Time, error) {
	var model VesselModel
	result := r.db.WithContext(ctx).Where("id = ?", vesselID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("vessel not found: %d", vesselID)
		}
		return nil, fmt.Errorf("failed to find vessel: %w", result.Error)
	}

	first, err := r.positions.FirstPositionTime(ctx, modelToVessel(&model))
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, nil
	}

	start := shared.StartOfDay(*first)
	last := shared.StartOfDay(end)
	if last.Before(start) {
		return nil, nil
	}

	var existing []FuelEstimateModel
	result = r.db.WithContext(ctx).
		Select("date").
		Where("vessel_id = ? AND engine_version = ?", vesselID, engineVersion).
		Where("date >= ? AND date <= ?", start, last).
		Find(&existing)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch estimated dates: %w", result.Error)
	}
	done := make(map[time.Time]struct{}, len(existing))
	for _, e := range existing {
		done[shared.StartOfDay(e.Date)] = struct{}{}
	}

	var dates []time.Time
	for d := start; !d.After(last); d = d.AddDate(0, 0, 1) {
		if _, ok := done[d]; !ok {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// AddFuelEstimates upserts estimates by (vessel, date, engine version)
func (r *GormFuelEstimateRepository) AddFuelEstimates(ctx context.Context, estimates []fuel.DayEstimate) error {
	if len(estimates) == 0 {
		return nil
	}
	models := make([]FuelEstimateModel, 0, len(estimates))
	for _, e := range estimates {
		models = append(models, FuelEstimateModel{
			VesselID:        e.VesselID,
			Date:            shared.StartOfDay(e.Date),
			EngineVersion:   e.EngineVersion,
			EstimateLiters:  e.Liters,
			NumAISPositions: e.AISPositions,
			NumVMSPositions: e.VMSPositions,
		})
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vessel_id"}, {Name: "date"}, {Name: "engine_version"}},
		DoUpdates: clause.AssignmentColumns([]string{"estimate_liters", "num_ais_positions", "num_vms_positions"}),
	}).Create(&models)
	if result.Error != nil {
		return fmt.Errorf("failed to add fuel estimates: %w", result.Error)
	}
	return nil
}

// FuelEstimates returns the stored estimates of a vessel inside rng, ordered by date
func (r *GormFuelEstimateRepository) FuelEstimates(ctx context.Context, vesselID int64, rng shared.DateRange) ([]fuel.DayEstimate, error) {
	cond, args := rangeCondition("date", rng)

	var models []FuelEstimateModel
	result := r.db.WithContext(ctx).
		Where("vessel_id = ?", vesselID).
		Where(cond, args...).
		Order("date ASC, engine_version ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch fuel estimates: %w", result.Error)
	}

	estimates := make([]fuel.DayEstimate, 0, len(models))
	for _, m := range models {
		estimates = append(estimates, fuel.DayEstimate{
			VesselID:      m.VesselID,
			Date:          m.Date.UTC(),
			EngineVersion: m.EngineVersion,
			Liters:        m.EstimateLiters,
			AISPositions:  m.NumAISPositions,
			VMSPositions:  m.NumVMSPositions,
		})
	}
	return estimates, nil
}
