package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

var stepStatusColumns = map[trip.ComputationStep]string{
	trip.StepPrecision:       "precision_status",
	trip.StepDistance:        "distance_status",
	trip.StepPositionLayers:  "position_layers_status",
	trip.StepCargoWeight:     "cargo_weight_status",
	trip.StepFuelConsumption: "fuel_consumption_status",
}

// GormTripRepository persists trips, their calculation timers and the
// derived current/detailed projections
type GormTripRepository struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormTripRepository creates a new GORM trip repository
func NewGormTripRepository(db *gorm.DB, clock shared.Clock) *GormTripRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormTripRepository{db: db, clock: clock}
}

// TripCalculationTimer returns the timer row, nil when the vessel has never been assembled
func (r *GormTripRepository) TripCalculationTimer(ctx context.Context, vesselID int64, kind trip.AssemblerKind) (*trip.CalculationTimer, error) {
	var model TripCalculationTimerModel
	result := r.db.WithContext(ctx).
		Where("vessel_id = ? AND trip_assembler_id = ?", vesselID, int(kind)).
		First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch trip calculation timer: %w", result.Error)
	}
	return &trip.CalculationTimer{
		VesselID:    model.VesselID,
		Assembler:   trip.AssemblerKind(model.Assembler),
		Timestamp:   utcPtr(model.Timestamp),
		Conflict:    utcPtr(model.Conflict),
		QueuedReset: model.QueuedReset,
	}, nil
}

// TripPriorToTimestamp returns the latest trip starting strictly before ts
func (r *GormTripRepository) TripPriorToTimestamp(ctx context.Context, vesselID int64, ts time.Time, kind trip.AssemblerKind) (*trip.Trip, error) {
	var model TripModel
	result := r.db.WithContext(ctx).
		Where("vessel_id = ? AND trip_assembler_id = ?", vesselID, int(kind)).
		Where("period_start < ?", ts.UTC()).
		Order("period_start DESC").
		First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch prior trip: %w", result.Error)
	}
	t := modelToTrip(&model)
	return &t, nil
}

// ReserveTripID allocates a trip id from the database sequence
func (r *GormTripRepository) ReserveTripID(ctx context.Context) (int64, error) {
	model := TripIDModel{ReservedAt: r.clock.Now().UTC()}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, fmt.Errorf("failed to reserve trip id: %w", err)
	}
	return model.ID, nil
}

// AddTripSet applies the conflict strategy and inserts the set in one
// transaction, then moves the timer and clears the handled conflict or reset
func (r *GormTripRepository) AddTripSet(ctx context.Context, set trip.TripSet) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := func() *gorm.DB {
			return tx.Where("vessel_id = ? AND trip_assembler_id = ?", set.VesselID, int(set.Assembler))
		}

		switch set.Strategy.Kind {
		case trip.ConflictStrategyReplaceAll:
			if err := scope().Delete(&TripModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete trips: %w", err)
			}
		case trip.ConflictStrategyReplace:
			if err := scope().Where("period_end >= ?", set.Strategy.At.UTC()).Delete(&TripModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete trips after %s: %w", set.Strategy.At, err)
			}
		case trip.ConflictStrategyError:
			for _, t := range set.Trips {
				var existing TripModel
				result := scope().
					Where("period_start < ? AND period_end > ?", t.Period.End.UTC(), t.Period.Start.UTC()).
					First(&existing)
				if result.Error == nil {
					return shared.NewTripConflictError(set.VesselID, existing.Period.Start.UTC(), existing.Period.End.UTC())
				}
				if result.Error != gorm.ErrRecordNotFound {
					return fmt.Errorf("failed to check trip overlap: %w", result.Error)
				}
			}
		}

		if len(set.Trips) > 0 {
			models := make([]TripModel, 0, len(set.Trips))
			for i := range set.Trips {
				models = append(models, tripToModel(&set.Trips[i]))
			}
			if err := tx.Create(&models).Error; err != nil {
				return fmt.Errorf("failed to insert trips: %w", err)
			}
		}

		return r.advanceTimer(tx, set.VesselID, set.Assembler, set.State)
	})
}

// advanceTimer sets the timer to the latest remaining trip end. A conflict is
// cleared only when no earlier one arrived while the set was computed.
func (r *GormTripRepository) advanceTimer(tx *gorm.DB, vesselID int64, kind trip.AssemblerKind, handled trip.State) error {
	var existing TripCalculationTimerModel
	result := tx.Where("vessel_id = ? AND trip_assembler_id = ?", vesselID, int(kind)).First(&existing)
	if result.Error != nil && result.Error != gorm.ErrRecordNotFound {
		return fmt.Errorf("failed to fetch trip calculation timer: %w", result.Error)
	}

	timer := TripCalculationTimerModel{
		VesselID:    vesselID,
		Assembler:   int(kind),
		Conflict:    existing.Conflict,
		QueuedReset: existing.QueuedReset,
	}

	var latest TripModel
	result = tx.Where("vessel_id = ? AND trip_assembler_id = ?", vesselID, int(kind)).
		Order("period_end DESC").
		First(&latest)
	switch {
	case result.Error == nil:
		timer.Timestamp = utcPtr(latest.Period.End)
	case result.Error != gorm.ErrRecordNotFound:
		return fmt.Errorf("failed to fetch latest trip: %w", result.Error)
	}

	switch handled.Kind {
	case trip.StateConflict:
		if timer.Conflict != nil && !timer.Conflict.Before(handled.Timestamp) {
			timer.Conflict = nil
		}
	case trip.StateQueuedReset:
		timer.QueuedReset = false
		timer.Conflict = nil
	}

	upsert := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vessel_id"}, {Name: "trip_assembler_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timer", "conflict", "queued_reset"}),
	}).Create(&timer)
	if upsert.Error != nil {
		return fmt.Errorf("failed to update trip calculation timer: %w", upsert.Error)
	}
	return nil
}

// NukeTrips deletes every trip of the vessel/assembler and resets its timer
func (r *GormTripRepository) NukeTrips(ctx context.Context, vesselID int64, kind trip.AssemblerKind) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vessel_id = ? AND trip_assembler_id = ?", vesselID, int(kind)).Delete(&TripModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete trips: %w", err)
		}
		if err := tx.Where("vessel_id = ? AND trip_assembler_id = ?", vesselID, int(kind)).Delete(&TripDetailedModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete detailed trips: %w", err)
		}
		if err := tx.Where("vessel_id = ? AND trip_assembler_id = ?", vesselID, int(kind)).Delete(&TripCalculationTimerModel{}).Error; err != nil {
			return fmt.Errorf("failed to reset trip calculation timer: %w", err)
		}
		return nil
	})
}

// UpdateTrip writes the step outputs of a resumed trip
func (r *GormTripRepository) UpdateTrip(ctx context.Context, update trip.TripUpdate) error {
	values := map[string]interface{}{
		"period_precision_start":      nil,
		"period_precision_end":        nil,
		"distance":                    update.Distance,
		"track_coverage":              update.TrackCoverage,
		"track":                       datatypes.JSONSlice[trip.TripPosition](update.Track),
		"pruned_duplicate_timestamps": update.PrunedPositions.DuplicateTimestamps,
		"pruned_unrealistic_speed":    update.PrunedPositions.UnrealisticSpeed,
		"fuel_consumption_liters":     update.FuelLiters,
	}
	if update.PrecisePeriod != nil {
		values["period_precision_start"] = update.PrecisePeriod.Start.UTC()
		values["period_precision_end"] = update.PrecisePeriod.End.UTC()
	}
	for step, column := range stepStatusColumns {
		values[column] = string(update.Statuses.Get(step))
	}

	result := r.db.WithContext(ctx).Model(&TripModel{}).Where("trip_id = ?", update.TripID).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update trip: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("trip not found: %d", update.TripID)
	}
	return nil
}

// TripsWithUnprocessedStep returns up to limit trips whose status for step is unprocessed
func (r *GormTripRepository) TripsWithUnprocessedStep(ctx context.Context, vesselID int64, step trip.ComputationStep, limit int) ([]trip.Trip, error) {
	column, ok := stepStatusColumns[step]
	if !ok {
		return nil, fmt.Errorf("unknown computation step %d", int(step))
	}

	var models []TripModel
	result := r.db.WithContext(ctx).
		Where("vessel_id = ?", vesselID).
		Where(fmt.Sprintf("%s = ?", column), string(trip.StatusUnprocessed)).
		Order("period_start ASC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch trips with unprocessed %s: %w", step, result.Error)
	}
	return modelsToTrips(models), nil
}

// Trips lists the committed trips of a vessel/assembler ordered by start
func (r *GormTripRepository) Trips(ctx context.Context, vesselID int64, kind trip.AssemblerKind) ([]trip.Trip, error) {
	var models []TripModel
	result := r.db.WithContext(ctx).
		Where("vessel_id = ? AND trip_assembler_id = ?", vesselID, int(kind)).
		Order("period_start ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list trips: %w", result.Error)
	}
	return modelsToTrips(models), nil
}

// TripsInRange returns the trips of a vessel overlapping r
func (r *GormTripRepository) TripsInRange(ctx context.Context, vesselID int64, rng shared.DateRange) ([]trip.Trip, error) {
	query := r.db.WithContext(ctx).Where("vessel_id = ?", vesselID)
	if rng.StartBound != shared.BoundUnbounded {
		query = query.Where("period_end > ?", rng.Start.UTC())
	}
	if !rng.Unbounded() {
		query = query.Where("period_start < ?", rng.End.UTC())
	}

	var models []TripModel
	if err := query.Order("period_start ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch trips in %s: %w", rng, err)
	}
	return modelsToTrips(models), nil
}

// SetCurrentTrip stores the trailing open departure after the last trip, or
// clears it when the vessel is in port
func (r *GormTripRepository) SetCurrentTrip(ctx context.Context, vesselID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := tx.Where("vessel_id = ?", vesselID).
			Where("event_type IN ?", eventTypeNames(trip.AssemblerErs.EventTypes()))

		var last TripModel
		result := tx.Where("vessel_id = ? AND trip_assembler_id = ?", vesselID, int(trip.AssemblerErs)).
			Order("period_end DESC").
			First(&last)
		switch {
		case result.Error == nil:
			events = events.Where("reported_at >= ?", last.Period.End.UTC())
		case result.Error != gorm.ErrRecordNotFound:
			return fmt.Errorf("failed to fetch latest trip: %w", result.Error)
		}

		var models []VesselEventModel
		// "arrival" sorts before "departure" at a shared timestamp
		if err := events.Order("reported_at ASC, event_type ASC, id ASC").Find(&models).Error; err != nil {
			return fmt.Errorf("failed to fetch trailing events: %w", err)
		}

		var open *VesselEventModel
		for i := range models {
			switch vessel.EventType(models[i].EventType) {
			case vessel.EventTypeDeparture:
				if open == nil {
					open = &models[i]
				}
			case vessel.EventTypeArrival:
				open = nil
			}
		}

		if open == nil {
			if err := tx.Where("vessel_id = ?", vesselID).Delete(&CurrentTripModel{}).Error; err != nil {
				return fmt.Errorf("failed to clear current trip: %w", err)
			}
			return nil
		}

		current := CurrentTripModel{
			VesselID:         vesselID,
			DepartureEventID: open.ID,
			DepartureTime:    open.ReportedAt.UTC(),
			DeparturePortID:  open.PortID,
		}
		upsert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vessel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"departure_vessel_event_id", "departure_timestamp", "departure_port_id"}),
		}).Create(&current)
		if upsert.Error != nil {
			return fmt.Errorf("failed to set current trip: %w", upsert.Error)
		}
		return nil
	})
}

// CurrentTrip returns the open trip of a vessel, nil when it is in port
func (r *GormTripRepository) CurrentTrip(ctx context.Context, vesselID int64) (*trip.CurrentTrip, error) {
	var model CurrentTripModel
	result := r.db.WithContext(ctx).Where("vessel_id = ?", vesselID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch current trip: %w", result.Error)
	}
	return &trip.CurrentTrip{
		VesselID:         model.VesselID,
		DepartureEventID: model.DepartureEventID,
		DepartureTime:    model.DepartureTime.UTC(),
		DeparturePortID:  model.DeparturePortID,
	}, nil
}

// RefreshDetailedTrips rebuilds the trips_detailed rows of a vessel
func (r *GormTripRepository) RefreshDetailedTrips(ctx context.Context, vesselID int64) error {
	now := r.clock.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trips []TripModel
		if err := tx.Where("vessel_id = ?", vesselID).Order("period_start ASC").Find(&trips).Error; err != nil {
			return fmt.Errorf("failed to list trips: %w", err)
		}
		if err := tx.Where("vessel_id = ?", vesselID).Delete(&TripDetailedModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete detailed trips: %w", err)
		}
		if len(trips) == 0 {
			return nil
		}

		details := make([]TripDetailedModel, 0, len(trips))
		for i := range trips {
			t := &trips[i]
			period := t.Period.toDomain()

			var landing float64
			landingCond, landingArgs := rangeCondition("landed_at", t.LandingCoverage.toDomain())
			if err := tx.Model(&LandingModel{}).
				Select("COALESCE(SUM(living_weight), 0)").
				Where("vessel_id = ?", vesselID).
				Where(landingCond, landingArgs...).
				Scan(&landing).Error; err != nil {
				return fmt.Errorf("failed to sum landings of trip %d: %w", t.TripID, err)
			}

			var hauls struct {
				Count  int
				Weight float64
			}
			haulCond, haulArgs := rangeCondition("start_time", period)
			if err := tx.Model(&HaulModel{}).
				Select("COUNT(*) AS count, COALESCE(SUM(living_weight), 0) AS weight").
				Where("vessel_id = ?", vesselID).
				Where(haulCond, haulArgs...).
				Scan(&hauls).Error; err != nil {
				return fmt.Errorf("failed to sum hauls of trip %d: %w", t.TripID, err)
			}

			details = append(details, TripDetailedModel{
				TripID:        t.TripID,
				VesselID:      vesselID,
				Assembler:     t.Assembler,
				PeriodStart:   period.Start,
				PeriodEnd:     period.End,
				LandingWeight: landing,
				HaulCount:     hauls.Count,
				HaulWeight:    hauls.Weight,
				Distance:      t.Distance,
				FuelLiters:    t.FuelLiters,
				RefreshedAt:   now,
			})
		}
		if err := tx.Create(&details).Error; err != nil {
			return fmt.Errorf("failed to insert detailed trips: %w", err)
		}
		return nil
	})
}

// DetailedTrips returns the projection rows of a vessel ordered by start
func (r *GormTripRepository) DetailedTrips(ctx context.Context, vesselID int64) ([]TripDetailedModel, error) {
	var models []TripDetailedModel
	if err := r.db.WithContext(ctx).Where("vessel_id = ?", vesselID).Order("period_start ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list detailed trips: %w", err)
	}
	return models, nil
}

// invalidateSteps marks from and every later step unprocessed on the trips
// selected by query
func invalidateSteps(query *gorm.DB, from trip.ComputationStep) error {
	updates := make(map[string]interface{})
	for _, step := range trip.ComputationSteps {
		if step >= from {
			updates[stepStatusColumns[step]] = string(trip.StatusUnprocessed)
		}
	}
	if err := query.Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to reopen %s onward: %w", from, err)
	}
	return nil
}

func modelsToTrips(models []TripModel) []trip.Trip {
	trips := make([]trip.Trip, 0, len(models))
	for i := range models {
		trips = append(trips, modelToTrip(&models[i]))
	}
	return trips
}

func modelToTrip(m *TripModel) trip.Trip {
	t := trip.Trip{
		ID:              m.TripID,
		VesselID:        m.VesselID,
		Assembler:       trip.AssemblerKind(m.Assembler),
		Period:          m.Period.toDomain(),
		PeriodExtended:  m.PeriodExtended.toDomain(),
		LandingCoverage: m.LandingCoverage.toDomain(),
		StartPortID:     m.StartPortID,
		EndPortID:       m.EndPortID,
		StartEventID:    m.StartEventID,
		EndEventID:      m.EndEventID,
		Distance:        m.Distance,
		TrackCoverage:   m.TrackCoverage,
		Track:           []trip.TripPosition(m.Track),
		PrunedPositions: trip.PruneCounts{
			DuplicateTimestamps: m.PrunedDuplicates,
			UnrealisticSpeed:    m.PrunedUnrealistic,
		},
		FuelLiters: m.FuelLiters,
		Statuses: trip.StepStatuses{
			Precision:       trip.ProcessingStatus(m.PrecisionStatus),
			Distance:        trip.ProcessingStatus(m.DistanceStatus),
			PositionLayers:  trip.ProcessingStatus(m.PositionLayersStatus),
			CargoWeight:     trip.ProcessingStatus(m.CargoWeightStatus),
			FuelConsumption: trip.ProcessingStatus(m.FuelConsumptionStatus),
		},
	}
	if m.PrecisePeriodStart != nil && m.PrecisePeriodEnd != nil {
		precise := shared.Closed(*m.PrecisePeriodStart, *m.PrecisePeriodEnd)
		t.PrecisePeriod = &precise
	}
	return t
}

func tripToModel(t *trip.Trip) TripModel {
	m := TripModel{
		TripID:                t.ID,
		VesselID:              t.VesselID,
		Assembler:             int(t.Assembler),
		Period:                rangeToColumns(t.Period),
		PeriodExtended:        rangeToColumns(t.PeriodExtended),
		LandingCoverage:       rangeToColumns(t.LandingCoverage),
		StartPortID:           t.StartPortID,
		EndPortID:             t.EndPortID,
		StartEventID:          t.StartEventID,
		EndEventID:            t.EndEventID,
		Distance:              t.Distance,
		TrackCoverage:         t.TrackCoverage,
		Track:                 datatypes.JSONSlice[trip.TripPosition](t.Track),
		PrunedDuplicates:      t.PrunedPositions.DuplicateTimestamps,
		PrunedUnrealistic:     t.PrunedPositions.UnrealisticSpeed,
		FuelLiters:            t.FuelLiters,
		PrecisionStatus:       string(t.Statuses.Precision),
		DistanceStatus:        string(t.Statuses.Distance),
		PositionLayersStatus:  string(t.Statuses.PositionLayers),
		CargoWeightStatus:     string(t.Statuses.CargoWeight),
		FuelConsumptionStatus: string(t.Statuses.FuelConsumption),
	}
	if t.PrecisePeriod != nil {
		m.PrecisePeriodStart = utcPtr(&t.PrecisePeriod.Start)
		m.PrecisePeriodEnd = utcPtr(&t.PrecisePeriod.End)
	}
	return m
}
