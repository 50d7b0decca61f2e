package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// GormPositionRepository stores AIS and VMS positions. AIS rows are keyed by
// MMSI and VMS rows by call sign, so a vessel's track is the union of both.
type GormPositionRepository struct {
	db *gorm.DB
}

// NewGormPositionRepository creates a new GORM position repository
func NewGormPositionRepository(db *gorm.DB) *GormPositionRepository {
	return &GormPositionRepository{db: db}
}

// TripPositions returns the vessel's positions inside period, ordered by timestamp
func (r *GormPositionRepository) TripPositions(ctx context.Context, v *vessel.Vessel, period shared.DateRange) ([]vessel.Position, error) {
	return r.positions(ctx, v, period)
}

// FuelEstimationPositions returns the vessel's positions inside rng, ordered by timestamp
func (r *GormPositionRepository) FuelEstimationPositions(ctx context.Context, v *vessel.Vessel, rng shared.DateRange) ([]vessel.Position, error) {
	return r.positions(ctx, v, rng)
}

func (r *GormPositionRepository) positions(ctx context.Context, v *vessel.Vessel, rng shared.DateRange) ([]vessel.Position, error) {
	query, ok := vesselPositions(r.db.WithContext(ctx), v)
	if !ok {
		return nil, nil
	}
	cond, args := rangeCondition("timestamp", rng)

	var models []PositionModel
	if err := query.Where(cond, args...).Order("timestamp ASC, id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch positions of vessel %d: %w", v.ID, err)
	}

	positions := make([]vessel.Position, 0, len(models))
	for _, m := range models {
		positions = append(positions, vessel.Position{
			Timestamp:       m.Timestamp.UTC(),
			Latitude:        m.Latitude,
			Longitude:       m.Longitude,
			SpeedOverGround: m.SpeedOverGround,
			ActiveGear:      m.ActiveGear,
			Source:          vessel.PositionSource(m.Source),
		})
	}
	return positions, nil
}

// FirstPositionTime returns the timestamp of the vessel's earliest position
func (r *GormPositionRepository) FirstPositionTime(ctx context.Context, v *vessel.Vessel) (*time.Time, error) {
	query, ok := vesselPositions(r.db.WithContext(ctx), v)
	if !ok {
		return nil, nil
	}
	var first PositionModel
	result := query.Order("timestamp ASC").First(&first)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch first position: %w", result.Error)
	}
	ts := first.Timestamp.UTC()
	return &ts, nil
}

// AddPositions inserts positions of a vessel and reopens the precision step,
// and with it every later step, of the trips they fall into
func (r *GormPositionRepository) AddPositions(ctx context.Context, v *vessel.Vessel, positions []vessel.Position) error {
	if len(positions) == 0 {
		return nil
	}

	models := make([]PositionModel, 0, len(positions))
	first, last := positions[0].Timestamp.UTC(), positions[0].Timestamp.UTC()
	for _, p := range positions {
		m := PositionModel{
			Timestamp:       p.Timestamp.UTC(),
			Latitude:        p.Latitude,
			Longitude:       p.Longitude,
			SpeedOverGround: p.SpeedOverGround,
			ActiveGear:      p.ActiveGear,
			Source:          string(p.Source),
		}
		switch p.Source {
		case vessel.PositionSourceVMS:
			if v.CallSign == nil {
				return fmt.Errorf("vessel %d has no call sign for VMS positions", v.ID)
			}
			m.CallSign = v.CallSign
		default:
			if v.MMSI == nil {
				return fmt.Errorf("vessel %d has no MMSI for AIS positions", v.ID)
			}
			m.MMSI = v.MMSI
			m.Source = string(vessel.PositionSourceAIS)
		}
		if m.Timestamp.Before(first) {
			first = m.Timestamp
		}
		if m.Timestamp.After(last) {
			last = m.Timestamp
		}
		models = append(models, m)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&models, 500).Error; err != nil {
			return fmt.Errorf("failed to insert positions: %w", err)
		}
		affected := tx.Model(&TripModel{}).
			Where("vessel_id = ?", v.ID).
			Where("period_start <= ?", last).
			Where("period_end >= ?", first)
		return invalidateSteps(affected, trip.StepPrecision)
	})
}

// vesselPositions scopes a query to the vessel's AIS and VMS rows
func vesselPositions(db *gorm.DB, v *vessel.Vessel) (*gorm.DB, bool) {
	switch {
	case v.MMSI != nil && v.CallSign != nil:
		return db.Where("(source = ? AND mmsi = ?) OR (source = ? AND call_sign = ?)",
			string(vessel.PositionSourceAIS), *v.MMSI, string(vessel.PositionSourceVMS), *v.CallSign), true
	case v.MMSI != nil:
		return db.Where("source = ? AND mmsi = ?", string(vessel.PositionSourceAIS), *v.MMSI), true
	case v.CallSign != nil:
		return db.Where("source = ? AND call_sign = ?", string(vessel.PositionSourceVMS), *v.CallSign), true
	default:
		return nil, false
	}
}
