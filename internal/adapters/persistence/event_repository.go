package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// GormEventRepository owns the vessel timeline: ERS events, landings and hauls.
// Every write keeps the trip calculation timers and step statuses in line with
// the new facts.
type GormEventRepository struct {
	db *gorm.DB
}

// NewGormEventRepository creates a new GORM event repository
func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

// AllVesselEvents returns every event the assembler kind consumes, in timeline order
func (r *GormEventRepository) AllVesselEvents(ctx context.Context, vesselID int64, kind trip.AssemblerKind) ([]vessel.Event, error) {
	return r.RelevantEvents(ctx, vesselID, shared.DateRange{StartBound: shared.BoundUnbounded, EndBound: shared.BoundUnbounded}, kind)
}

// RelevantEvents returns the events of the kind reported inside period
func (r *GormEventRepository) RelevantEvents(ctx context.Context, vesselID int64, period shared.DateRange, kind trip.AssemblerKind) ([]vessel.Event, error) {
	cond, args := rangeCondition("reported_at", period)

	var models []VesselEventModel
	result := r.db.WithContext(ctx).
		Where("vessel_id = ?", vesselID).
		Where("event_type IN ?", eventTypeNames(kind.EventTypes())).
		Where(cond, args...).
		Order("reported_at ASC, id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch vessel events: %w", result.Error)
	}

	events := make([]vessel.Event, 0, len(models))
	for _, m := range models {
		events = append(events, vessel.Event{
			ID:                 m.ID,
			VesselID:           m.VesselID,
			Type:               vessel.EventType(m.EventType),
			Timestamp:          m.ReportedAt.UTC(),
			EstimatedTimestamp: utcPtr(m.EstimatedTimestamp),
			PortID:             m.PortID,
		})
	}
	return events, nil
}

// AddVesselEvents inserts ERS events and assigns their ids in place. Events at or
// before a vessel's timer register a conflict.
func (r *GormEventRepository) AddVesselEvents(ctx context.Context, events []vessel.Event) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range events {
			id, err := insertEvent(tx, &events[i])
			if err != nil {
				return err
			}
			events[i].ID = id
		}
		return registerConflicts(tx, events)
	})
}

// AddLandings inserts landing receipts together with their timeline events
func (r *GormEventRepository) AddLandings(ctx context.Context, landings []vessel.Landing) error {
	if len(landings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := make([]vessel.Event, 0, len(landings))
		for i := range landings {
			l := &landings[i]
			ev := vessel.Event{
				VesselID:  l.VesselID,
				Type:      vessel.EventTypeLanding,
				Timestamp: l.Timestamp,
				PortID:    l.PortID,
			}
			eventID, err := insertEvent(tx, &ev)
			if err != nil {
				return err
			}
			ev.ID = eventID

			model := LandingModel{
				VesselID:      l.VesselID,
				VesselEventID: eventID,
				LandedAt:      l.Timestamp.UTC(),
				LivingWeight:  l.LivingWeight,
				PortID:        l.PortID,
			}
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("failed to insert landing: %w", err)
			}
			l.ID = model.ID
			events = append(events, ev)

			// the landing weight feeds the cargo step of every trip covering it
			ts := l.Timestamp.UTC()
			invalidate := tx.Model(&TripModel{}).
				Where("vessel_id = ?", l.VesselID).
				Where("landing_coverage_start <= ?", ts).
				Where("(landing_coverage_end IS NULL OR landing_coverage_end >= ?)", ts)
			if err := invalidateSteps(invalidate, trip.StepCargoWeight); err != nil {
				return err
			}
		}
		return registerConflicts(tx, events)
	})
}

// AddHauls inserts hauls and reopens the cargo step of overlapping trips
func (r *GormEventRepository) AddHauls(ctx context.Context, hauls []vessel.Haul) error {
	if len(hauls) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range hauls {
			h := &hauls[i]
			model := HaulModel{
				VesselID:     h.VesselID,
				StartTime:    h.Period.Start.UTC(),
				StopTime:     h.Period.End.UTC(),
				LivingWeight: h.LivingWeight,
				GearGroup:    string(h.GearGroup),
			}
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("failed to insert haul: %w", err)
			}
			h.ID = model.ID

			overlapping := tx.Model(&TripModel{}).
				Where("vessel_id = ?", h.VesselID).
				Where("period_start <= ?", model.StopTime).
				Where("period_end >= ?", model.StartTime)
			if err := invalidateSteps(overlapping, trip.StepCargoWeight); err != nil {
				return err
			}
		}
		return nil
	})
}

// TripHauls returns the hauls that started inside period
func (r *GormEventRepository) TripHauls(ctx context.Context, vesselID int64, period shared.DateRange) ([]vessel.Haul, error) {
	cond, args := rangeCondition("start_time", period)

	var models []HaulModel
	result := r.db.WithContext(ctx).
		Where("vessel_id = ?", vesselID).
		Where(cond, args...).
		Order("start_time ASC, id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch hauls: %w", result.Error)
	}

	hauls := make([]vessel.Haul, 0, len(models))
	for _, m := range models {
		hauls = append(hauls, vessel.Haul{
			ID:           m.ID,
			VesselID:     m.VesselID,
			Period:       shared.Closed(m.StartTime, m.StopTime),
			LivingWeight: m.LivingWeight,
			GearGroup:    vessel.GearGroup(m.GearGroup),
		})
	}
	return hauls, nil
}

// LandingWeight sums the living weight landed inside coverage
func (r *GormEventRepository) LandingWeight(ctx context.Context, vesselID int64, coverage shared.DateRange) (float64, error) {
	cond, args := rangeCondition("landed_at", coverage)

	var total float64
	result := r.db.WithContext(ctx).
		Model(&LandingModel{}).
		Select("COALESCE(SUM(living_weight), 0)").
		Where("vessel_id = ?", vesselID).
		Where(cond, args...).
		Scan(&total)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to sum landing weight: %w", result.Error)
	}
	return total, nil
}

// QueueReset flags the vessel/assembler for a full reassembly on the next pass
func (r *GormEventRepository) QueueReset(ctx context.Context, vesselID int64, kind trip.AssemblerKind) error {
	model := TripCalculationTimerModel{VesselID: vesselID, Assembler: int(kind), QueuedReset: true}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vessel_id"}, {Name: "trip_assembler_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"queued_reset": true}),
	}).Create(&model)
	if result.Error != nil {
		return fmt.Errorf("failed to queue reset: %w", result.Error)
	}
	return nil
}

func insertEvent(tx *gorm.DB, ev *vessel.Event) (int64, error) {
	model := VesselEventModel{
		VesselID:           ev.VesselID,
		EventType:          string(ev.Type),
		ReportedAt:         ev.Timestamp.UTC(),
		EstimatedTimestamp: utcPtr(ev.EstimatedTimestamp),
		PortID:             ev.PortID,
	}
	if err := tx.Create(&model).Error; err != nil {
		return 0, fmt.Errorf("failed to insert %s event: %w", ev.Type, err)
	}
	return model.ID, nil
}

type timerKey struct {
	vesselID int64
	kind     trip.AssemblerKind
}

// registerConflicts records, per vessel and assembler, the earliest new event
// that falls at or before the timer. An existing earlier conflict wins.
func registerConflicts(tx *gorm.DB, events []vessel.Event) error {
	earliest := make(map[timerKey]time.Time)
	for _, ev := range events {
		for _, kind := range trip.AssemblerKinds {
			if !consumes(kind, ev.Type) {
				continue
			}
			key := timerKey{vesselID: ev.VesselID, kind: kind}
			if ts, ok := earliest[key]; !ok || ev.Timestamp.Before(ts) {
				earliest[key] = ev.Timestamp.UTC()
			}
		}
	}

	for key, ts := range earliest {
		var timer TripCalculationTimerModel
		result := tx.Where("vessel_id = ? AND trip_assembler_id = ?", key.vesselID, int(key.kind)).First(&timer)
		if result.Error != nil {
			if result.Error == gorm.ErrRecordNotFound {
				continue
			}
			return fmt.Errorf("failed to fetch trip calculation timer: %w", result.Error)
		}
		if timer.Timestamp == nil || ts.After(timer.Timestamp.UTC()) {
			continue
		}
		if timer.Conflict != nil && !ts.Before(timer.Conflict.UTC()) {
			continue
		}
		update := tx.Model(&TripCalculationTimerModel{}).
			Where("vessel_id = ? AND trip_assembler_id = ?", key.vesselID, int(key.kind)).
			Update("conflict", ts)
		if update.Error != nil {
			return fmt.Errorf("failed to register conflict: %w", update.Error)
		}
	}
	return nil
}

func consumes(kind trip.AssemblerKind, t vessel.EventType) bool {
	for _, et := range kind.EventTypes() {
		if et == t {
			return true
		}
	}
	return false
}

func eventTypeNames(types []vessel.EventType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
