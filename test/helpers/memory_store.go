package helpers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/run"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

type timerKey struct {
	vesselID int64
	kind     trip.AssemblerKind
}

type estimateKey struct {
	vesselID      int64
	date          time.Time
	engineVersion int
}

// MemoryStore is an in-memory event store adapter with the same write
// semantics as the gorm store. Ids come from explicit counters so tests are
// deterministic.
type MemoryStore struct {
	mu sync.Mutex

	nextEventID int64
	nextTripID  int64

	vessels    map[int64]*vessel.Vessel
	ports      []shared.Port
	dockPoints []shared.DockPoint
	events     map[int64][]vessel.Event
	landings   map[int64][]vessel.Landing
	hauls      map[int64][]vessel.Haul
	positions  map[int64][]vessel.Position
	timers     map[timerKey]*trip.CalculationTimer
	trips      map[int64]trip.Trip
	current    map[int64]trip.CurrentTrip
	estimates  map[estimateKey]fuel.DayEstimate
	runs       []*run.PipelineRun

	failures map[int64]error
	panics   map[int64]string

	// calls counts store calls by method name
	calls map[string]int
}

var (
	_ trip.Store     = (*MemoryStore)(nil)
	_ fuel.Store     = (*MemoryStore)(nil)
	_ run.Repository = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextEventID: 1,
		nextTripID:  1,
		vessels:     make(map[int64]*vessel.Vessel),
		events:      make(map[int64][]vessel.Event),
		landings:    make(map[int64][]vessel.Landing),
		hauls:       make(map[int64][]vessel.Haul),
		positions:   make(map[int64][]vessel.Position),
		timers:      make(map[timerKey]*trip.CalculationTimer),
		trips:       make(map[int64]trip.Trip),
		current:     make(map[int64]trip.CurrentTrip),
		estimates:   make(map[estimateKey]fuel.DayEstimate),
		failures:    make(map[int64]error),
		panics:      make(map[int64]string),
		calls:       make(map[string]int),
	}
}

func (s *MemoryStore) called(method string) {
	s.calls[method]++
}

// ============================================================================
// Fixtures and fault injection
// ============================================================================

// AddVessel registers a vessel
func (s *MemoryStore) AddVessel(v *vessel.Vessel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vessels[v.ID] = v
}

// SetPorts replaces ports and dock points
func (s *MemoryStore) SetPorts(ports []shared.Port, dockPoints []shared.DockPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports = ports
	s.dockPoints = dockPoints
}

// FailVessel makes every assembler read of the vessel return err
func (s *MemoryStore) FailVessel(vesselID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[vesselID] = err
}

// PanicVessel makes the first assembler read of the vessel panic
func (s *MemoryStore) PanicVessel(vesselID int64, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panics[vesselID] = msg
}

// AddVesselEvents stores events, assigning ids, and registers conflicts
func (s *MemoryStore) AddVesselEvents(_ context.Context, events []vessel.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range events {
		events[i].ID = s.nextEventID
		s.nextEventID++
		events[i].Timestamp = events[i].Timestamp.UTC()
		s.events[events[i].VesselID] = append(s.events[events[i].VesselID], events[i])
	}
	s.registerConflicts(events)
	return nil
}

// AddLandings stores landing receipts with their landing events
func (s *MemoryStore) AddLandings(_ context.Context, landings []vessel.Landing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]vessel.Event, 0, len(landings))
	for i := range landings {
		l := &landings[i]
		ev := vessel.Event{
			ID:        s.nextEventID,
			VesselID:  l.VesselID,
			Type:      vessel.EventTypeLanding,
			Timestamp: l.Timestamp.UTC(),
			PortID:    l.PortID,
		}
		s.nextEventID++
		l.ID = ev.ID
		s.events[l.VesselID] = append(s.events[l.VesselID], ev)
		s.landings[l.VesselID] = append(s.landings[l.VesselID], *l)
		events = append(events, ev)

		for id, t := range s.trips {
			if t.VesselID == l.VesselID && t.LandingCoverage.Contains(l.Timestamp) {
				t.Statuses.InvalidateFrom(trip.StepCargoWeight)
				s.trips[id] = t
			}
		}
	}
	s.registerConflicts(events)
	return nil
}

// AddHauls stores hauls and invalidates cargo onward for overlapping trips
func (s *MemoryStore) AddHauls(_ context.Context, hauls []vessel.Haul) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range hauls {
		s.hauls[h.VesselID] = append(s.hauls[h.VesselID], h)
		for id, t := range s.trips {
			if t.VesselID == h.VesselID && t.Period.Overlaps(h.Period) {
				t.Statuses.InvalidateFrom(trip.StepCargoWeight)
				s.trips[id] = t
			}
		}
	}
	return nil
}

// AddPositions stores positions and invalidates precision onward for overlapping trips
func (s *MemoryStore) AddPositions(_ context.Context, v *vessel.Vessel, positions []vessel.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[v.ID] = append(s.positions[v.ID], positions...)
	vessel.SortPositions(s.positions[v.ID])
	for id, t := range s.trips {
		if t.VesselID != v.ID {
			continue
		}
		for _, p := range positions {
			if t.Period.Contains(p.Timestamp) {
				t.Statuses.InvalidateFrom(trip.StepPrecision)
				s.trips[id] = t
				break
			}
		}
	}
	return nil
}

// QueueReset flags the vessel/assembler for a full reassembly
func (s *MemoryStore) QueueReset(_ context.Context, vesselID int64, kind trip.AssemblerKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer(vesselID, kind).QueuedReset = true
	return nil
}

// SetTimer overwrites the calculation timer
func (s *MemoryStore) SetTimer(timer trip.CalculationTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := timer
	s.timers[timerKey{timer.VesselID, timer.Assembler}] = &t
}

func (s *MemoryStore) timer(vesselID int64, kind trip.AssemblerKind) *trip.CalculationTimer {
	key := timerKey{vesselID, kind}
	t, ok := s.timers[key]
	if !ok {
		t = &trip.CalculationTimer{VesselID: vesselID, Assembler: kind}
		s.timers[key] = t
	}
	return t
}

func (s *MemoryStore) registerConflicts(events []vessel.Event) {
	earliest := make(map[timerKey]time.Time)
	for _, ev := range events {
		for _, kind := range trip.AssemblerKinds {
			if !consumes(kind, ev.Type) {
				continue
			}
			key := timerKey{ev.VesselID, kind}
			if ts, ok := earliest[key]; !ok || ev.Timestamp.Before(ts) {
				earliest[key] = ev.Timestamp
			}
		}
	}
	for key, ts := range earliest {
		t, ok := s.timers[key]
		if !ok || t.Timestamp == nil || ts.After(*t.Timestamp) {
			continue
		}
		if t.Conflict != nil && !ts.Before(*t.Conflict) {
			continue
		}
		c := ts
		t.Conflict = &c
	}
}

func consumes(kind trip.AssemblerKind, t vessel.EventType) bool {
	for _, et := range kind.EventTypes() {
		if et == t {
			return true
		}
	}
	return false
}

// ============================================================================
// trip.VesselRepository
// ============================================================================

func (s *MemoryStore) AllVessels(_ context.Context) ([]*vessel.Vessel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called("AllVessels")
	out := make([]*vessel.Vessel, 0, len(s.vessels))
	for _, v := range s.vessels {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Ports(_ context.Context) ([]shared.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called("Ports")
	return append([]shared.Port(nil), s.ports...), nil
}

func (s *MemoryStore) DockPoints(_ context.Context) ([]shared.DockPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called("DockPoints")
	return append([]shared.DockPoint(nil), s.dockPoints...), nil
}

// ============================================================================
// trip.AssemblerInbound
// ============================================================================

func (s *MemoryStore) TripCalculationTimer(_ context.Context, vesselID int64, kind trip.AssemblerKind) (*trip.CalculationTimer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called("TripCalculationTimer")
	if msg, ok := s.panics[vesselID]; ok {
		delete(s.panics, vesselID)
		panic(msg)
	}
	if err, ok := s.failures[vesselID]; ok {
		return nil, err
	}
	t, ok := s.timers[timerKey{vesselID, kind}]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (s *MemoryStore) TripPriorToTimestamp(_ context.Context, vesselID int64, ts time.Time, kind trip.AssemblerKind) (*trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var prior *trip.Trip
	for _, t := range s.trips {
		if t.VesselID != vesselID || t.Assembler != kind || !t.Period.Start.Before(ts) {
			continue
		}
		if prior == nil || t.Period.Start.After(prior.Period.Start) {
			copied := copyTrip(t)
			prior = &copied
		}
	}
	return prior, nil
}

func (s *MemoryStore) AllVesselEvents(ctx context.Context, vesselID int64, kind trip.AssemblerKind) ([]vessel.Event, error) {
	return s.RelevantEvents(ctx, vesselID, shared.DateRange{StartBound: shared.BoundUnbounded, EndBound: shared.BoundUnbounded}, kind)
}

func (s *MemoryStore) RelevantEvents(_ context.Context, vesselID int64, period shared.DateRange, kind trip.AssemblerKind) ([]vessel.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failures[vesselID]; ok {
		return nil, err
	}
	var out []vessel.Event
	for _, ev := range s.events[vesselID] {
		if consumes(kind, ev.Type) && period.Contains(ev.Timestamp) {
			out = append(out, ev)
		}
	}
	vessel.SortEvents(out)
	return out, nil
}

// ============================================================================
// trip.PipelineInbound
// ============================================================================

func (s *MemoryStore) TripPositions(ctx context.Context, v *vessel.Vessel, period shared.DateRange) ([]vessel.Position, error) {
	return s.FuelEstimationPositions(ctx, v, period)
}

func (s *MemoryStore) TripHauls(_ context.Context, vesselID int64, period shared.DateRange) ([]vessel.Haul, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []vessel.Haul
	for _, h := range s.hauls[vesselID] {
		if period.Contains(h.Period.Start) {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period.Start.Before(out[j].Period.Start) })
	return out, nil
}

func (s *MemoryStore) LandingWeight(_ context.Context, vesselID int64, coverage shared.DateRange) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, l := range s.landings[vesselID] {
		if coverage.Contains(l.Timestamp) {
			total += l.LivingWeight
		}
	}
	return total, nil
}

func (s *MemoryStore) TripsWithUnprocessedStep(_ context.Context, vesselID int64, step trip.ComputationStep, limit int) ([]trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []trip.Trip
	for _, t := range s.trips {
		if t.VesselID == vesselID && t.Statuses.Get(step) == trip.StatusUnprocessed {
			out = append(out, copyTrip(t))
		}
	}
	trip.SortTrips(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ============================================================================
// trip.Outbound
// ============================================================================

func (s *MemoryStore) ReserveTripID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextTripID
	s.nextTripID++
	return id, nil
}

func (s *MemoryStore) AddTripSet(_ context.Context, set trip.TripSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called("AddTripSet")

	inScope := func(t trip.Trip) bool {
		return t.VesselID == set.VesselID && t.Assembler == set.Assembler
	}

	// validate before mutating so a conflict leaves the store untouched
	if set.Strategy.Kind == trip.ConflictStrategyError {
		for _, n := range set.Trips {
			for _, existing := range s.trips {
				if inScope(existing) && existing.Period.Start.Before(n.Period.End) && existing.Period.End.After(n.Period.Start) {
					return shared.NewTripConflictError(set.VesselID, existing.Period.Start, existing.Period.End)
				}
			}
		}
	}

	switch set.Strategy.Kind {
	case trip.ConflictStrategyReplaceAll:
		for id, t := range s.trips {
			if inScope(t) {
				delete(s.trips, id)
			}
		}
	case trip.ConflictStrategyReplace:
		for id, t := range s.trips {
			if inScope(t) && !t.Period.End.Before(set.Strategy.At) {
				delete(s.trips, id)
			}
		}
	}

	for _, t := range set.Trips {
		if _, exists := s.trips[t.ID]; exists {
			return fmt.Errorf("duplicate trip id %d", t.ID)
		}
		s.trips[t.ID] = copyTrip(t)
	}

	timer := s.timer(set.VesselID, set.Assembler)
	timer.Timestamp = nil
	for _, t := range s.trips {
		if inScope(t) && (timer.Timestamp == nil || t.Period.End.After(*timer.Timestamp)) {
			end := t.Period.End
			timer.Timestamp = &end
		}
	}
	switch set.State.Kind {
	case trip.StateConflict:
		if timer.Conflict != nil && !timer.Conflict.Before(set.State.Timestamp) {
			timer.Conflict = nil
		}
	case trip.StateQueuedReset:
		timer.QueuedReset = false
		timer.Conflict = nil
	}
	return nil
}

func (s *MemoryStore) NukeTrips(_ context.Context, vesselID int64, kind trip.AssemblerKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called("NukeTrips")
	for id, t := range s.trips {
		if t.VesselID == vesselID && t.Assembler == kind {
			delete(s.trips, id)
		}
	}
	delete(s.timers, timerKey{vesselID, kind})
	return nil
}

func (s *MemoryStore) UpdateTrip(_ context.Context, update trip.TripUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called("UpdateTrip")
	t, ok := s.trips[update.TripID]
	if !ok {
		return fmt.Errorf("trip %d not found", update.TripID)
	}
	t.PrecisePeriod = update.PrecisePeriod
	t.Distance = update.Distance
	t.TrackCoverage = update.TrackCoverage
	t.Track = append([]trip.TripPosition(nil), update.Track...)
	t.PrunedPositions = update.PrunedPositions
	t.FuelLiters = update.FuelLiters
	t.Statuses = update.Statuses
	s.trips[update.TripID] = t
	return nil
}

func (s *MemoryStore) SetCurrentTrip(_ context.Context, vesselID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called("SetCurrentTrip")

	var lastEnd *time.Time
	for _, t := range s.trips {
		if t.VesselID == vesselID && t.Assembler == trip.AssemblerErs && (lastEnd == nil || t.Period.End.After(*lastEnd)) {
			end := t.Period.End
			lastEnd = &end
		}
	}

	events := append([]vessel.Event(nil), s.events[vesselID]...)
	vessel.SortPortCalls(events)
	var open *vessel.Event
	for i := range events {
		ev := events[i]
		if lastEnd != nil && ev.Timestamp.Before(*lastEnd) {
			continue
		}
		switch ev.Type {
		case vessel.EventTypeDeparture:
			if open == nil {
				open = &events[i]
			}
		case vessel.EventTypeArrival:
			open = nil
		}
	}

	if open == nil {
		delete(s.current, vesselID)
		return nil
	}
	s.current[vesselID] = trip.CurrentTrip{
		VesselID:         vesselID,
		DepartureEventID: open.ID,
		DepartureTime:    open.Timestamp,
		DeparturePortID:  open.PortID,
	}
	return nil
}

func (s *MemoryStore) RefreshDetailedTrips(_ context.Context, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called("RefreshDetailedTrips")
	return nil
}

// ============================================================================
// fuel.Store
// ============================================================================

func (s *MemoryStore) FuelEstimationPositions(_ context.Context, v *vessel.Vessel, r shared.DateRange) ([]vessel.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []vessel.Position
	for _, p := range s.positions[v.ID] {
		if r.Contains(p.Timestamp) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) VesselMaxCargoWeight(_ context.Context, vesselID int64) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vessels[vesselID]
	if !ok {
		return nil, nil
	}
	return v.MaxCargoWeight, nil
}

func (s *MemoryStore) DatesToEstimate(_ context.Context, vesselID int64, engineVersion int, end time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	positions := s.positions[vesselID]
	if len(positions) == 0 {
		return nil, nil
	}
	start := shared.StartOfDay(positions[0].Timestamp)
	last := shared.StartOfDay(end)

	var dates []time.Time
	for d := start; !d.After(last); d = d.AddDate(0, 0, 1) {
		if _, done := s.estimates[estimateKey{vesselID, d, engineVersion}]; !done {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

func (s *MemoryStore) TripsInRange(_ context.Context, vesselID int64, r shared.DateRange) ([]trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []trip.Trip
	for _, t := range s.trips {
		if t.VesselID != vesselID {
			continue
		}
		if r.StartBound != shared.BoundUnbounded && !t.Period.End.After(r.Start) {
			continue
		}
		if !r.Unbounded() && !t.Period.Start.Before(r.End) {
			continue
		}
		out = append(out, copyTrip(t))
	}
	trip.SortTrips(out)
	return out, nil
}

func (s *MemoryStore) AddFuelEstimates(_ context.Context, estimates []fuel.DayEstimate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called("AddFuelEstimates")
	for _, e := range estimates {
		e.Date = shared.StartOfDay(e.Date)
		s.estimates[estimateKey{e.VesselID, e.Date, e.EngineVersion}] = e
	}
	return nil
}

// ============================================================================
// run.Repository
// ============================================================================

func (s *MemoryStore) LastRun(_ context.Context, kind run.Kind) (*run.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *run.PipelineRun
	for _, r := range s.runs {
		if r.Kind() != kind || r.Status() != shared.LifecycleStatusCompleted || r.FinishedAt() == nil {
			continue
		}
		if last == nil || r.FinishedAt().After(*last.FinishedAt()) {
			last = r
		}
	}
	return last, nil
}

func (s *MemoryStore) AddRun(_ context.Context, r *run.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, r)
	return nil
}

// ============================================================================
// Inspection
// ============================================================================

// Trips returns the committed trips of a vessel/assembler ordered by start
func (s *MemoryStore) Trips(vesselID int64, kind trip.AssemblerKind) []trip.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []trip.Trip
	for _, t := range s.trips {
		if t.VesselID == vesselID && t.Assembler == kind {
			out = append(out, copyTrip(t))
		}
	}
	trip.SortTrips(out)
	return out
}

// Timer returns a copy of the calculation timer, nil when none exists
func (s *MemoryStore) Timer(vesselID int64, kind trip.AssemblerKind) *trip.CalculationTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[timerKey{vesselID, kind}]
	if !ok {
		return nil
	}
	copied := *t
	return &copied
}

// CurrentTrip returns the stored open trip of a vessel
func (s *MemoryStore) CurrentTrip(vesselID int64) *trip.CurrentTrip {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.current[vesselID]
	if !ok {
		return nil
	}
	return &c
}

// Estimates returns the stored day estimates of a vessel ordered by date
func (s *MemoryStore) Estimates(vesselID int64) []fuel.DayEstimate {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []fuel.DayEstimate
	for k, e := range s.estimates {
		if k.vesselID == vesselID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Runs returns every recorded run
func (s *MemoryStore) Runs() []*run.PipelineRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*run.PipelineRun(nil), s.runs...)
}

// CallCount returns how many times a method was called
func (s *MemoryStore) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func copyTrip(t trip.Trip) trip.Trip {
	t.Track = append([]trip.TripPosition(nil), t.Track...)
	return t
}
