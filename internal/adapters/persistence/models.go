package persistence

import (
	"time"

	"gorm.io/datatypes"

	"github.com/andrescamacho/fishtrack-go/internal/domain/run"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// VesselModel represents the vessels table
type VesselModel struct {
	ID                      int64                              `gorm:"column:id;primaryKey"`
	Name                    string                             `gorm:"column:name"`
	MMSI                    *int32                             `gorm:"column:mmsi;index"`
	CallSign                *string                            `gorm:"column:call_sign;index"`
	Engines                 datatypes.JSONSlice[vessel.Engine] `gorm:"column:engines"`
	HullLength              *float64                           `gorm:"column:hull_length"`
	HullBreadth             *float64                           `gorm:"column:hull_breadth"`
	HullDraught             *float64                           `gorm:"column:hull_draught"`
	MaxCargoWeight          *float64                           `gorm:"column:max_cargo_weight"`
	ServiceSpeed            *float64                           `gorm:"column:service_speed"`
	DegreeOfElectrification *float64                           `gorm:"column:degree_of_electrification"`
	FuelModel               string                             `gorm:"column:fuel_model;not null;default:'maru'"`
	GearGroup               string                             `gorm:"column:gear_group"`
	EngineVersion           int                                `gorm:"column:engine_version;not null;default:1"`
	ReportsErs              bool                               `gorm:"column:reports_ers;not null;default:false"`
}

func (VesselModel) TableName() string {
	return "vessels"
}

// PortModel represents the ports table (UN/LOCODE ids)
type PortModel struct {
	ID        string   `gorm:"column:id;primaryKey"`
	Name      string   `gorm:"column:name"`
	Latitude  *float64 `gorm:"column:latitude"`
	Longitude *float64 `gorm:"column:longitude"`
}

func (PortModel) TableName() string {
	return "ports"
}

// DockPointModel represents the port_dock_points table
type DockPointModel struct {
	PortID      string  `gorm:"column:port_id;primaryKey"`
	DockPointID int64   `gorm:"column:dock_point_id;primaryKey"`
	Name        string  `gorm:"column:name"`
	Latitude    float64 `gorm:"column:latitude;not null"`
	Longitude   float64 `gorm:"column:longitude;not null"`
}

func (DockPointModel) TableName() string {
	return "port_dock_points"
}

// VesselEventModel represents the vessel_events table
type VesselEventModel struct {
	ID                 int64      `gorm:"column:id;primaryKey;autoIncrement"`
	VesselID           int64      `gorm:"column:vessel_id;not null;index:idx_vessel_events_vessel_time"`
	EventType          string     `gorm:"column:event_type;not null"`
	ReportedAt         time.Time  `gorm:"column:reported_at;not null;index:idx_vessel_events_vessel_time"`
	EstimatedTimestamp *time.Time `gorm:"column:estimated_timestamp"`
	PortID             *string    `gorm:"column:port_id"`
}

func (VesselEventModel) TableName() string {
	return "vessel_events"
}

// LandingModel represents the landings table
type LandingModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	VesselID      int64     `gorm:"column:vessel_id;not null;index"`
	VesselEventID int64     `gorm:"column:vessel_event_id;not null"`
	LandedAt      time.Time `gorm:"column:landed_at;not null"`
	LivingWeight  float64   `gorm:"column:living_weight;not null"`
	PortID        *string   `gorm:"column:port_id"`
}

func (LandingModel) TableName() string {
	return "landings"
}

// HaulModel represents the hauls table
type HaulModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	VesselID     int64     `gorm:"column:vessel_id;not null;index"`
	StartTime    time.Time `gorm:"column:start_time;not null"`
	StopTime     time.Time `gorm:"column:stop_time;not null"`
	LivingWeight float64   `gorm:"column:living_weight;not null"`
	GearGroup    string    `gorm:"column:gear_group"`
}

func (HaulModel) TableName() string {
	return "hauls"
}

// PositionModel represents the positions table. AIS positions are keyed by
// MMSI, VMS positions by call sign.
type PositionModel struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	MMSI            *int32    `gorm:"column:mmsi;index"`
	CallSign        *string   `gorm:"column:call_sign;index"`
	Timestamp       time.Time `gorm:"column:timestamp;not null;index"`
	Latitude        float64   `gorm:"column:latitude;not null"`
	Longitude       float64   `gorm:"column:longitude;not null"`
	SpeedOverGround *float64  `gorm:"column:speed_over_ground"`
	ActiveGear      *string   `gorm:"column:active_gear"`
	Source          string    `gorm:"column:source;not null"`
}

func (PositionModel) TableName() string {
	return "positions"
}

// TripCalculationTimerModel represents the trip_calculation_timers table
type TripCalculationTimerModel struct {
	VesselID    int64      `gorm:"column:vessel_id;primaryKey"`
	Assembler   int        `gorm:"column:trip_assembler_id;primaryKey"`
	Timestamp   *time.Time `gorm:"column:timer"`
	Conflict    *time.Time `gorm:"column:conflict"`
	QueuedReset bool       `gorm:"column:queued_reset;not null;default:false"`
}

func (TripCalculationTimerModel) TableName() string {
	return "trip_calculation_timers"
}

// RangeColumns stores a shared.DateRange. A nil End means unbounded.
type RangeColumns struct {
	Start      time.Time  `gorm:"column:start"`
	End        *time.Time `gorm:"column:end"`
	StartBound string     `gorm:"column:start_bound"`
	EndBound   string     `gorm:"column:end_bound"`
}

// TripModel represents the trips table
type TripModel struct {
	TripID          int64        `gorm:"column:trip_id;primaryKey"`
	VesselID        int64        `gorm:"column:vessel_id;not null;index:idx_trips_vessel_period"`
	Assembler       int          `gorm:"column:trip_assembler_id;not null"`
	Period          RangeColumns `gorm:"embedded;embeddedPrefix:period_"`
	PeriodExtended  RangeColumns `gorm:"embedded;embeddedPrefix:period_extended_"`
	LandingCoverage RangeColumns `gorm:"embedded;embeddedPrefix:landing_coverage_"`
	StartPortID     *string      `gorm:"column:start_port_id"`
	EndPortID       *string      `gorm:"column:end_port_id"`
	StartEventID    *int64       `gorm:"column:start_vessel_event_id"`
	EndEventID      *int64       `gorm:"column:end_vessel_event_id"`

	PrecisePeriodStart *time.Time                             `gorm:"column:period_precision_start"`
	PrecisePeriodEnd   *time.Time                             `gorm:"column:period_precision_end"`
	Distance           *float64                               `gorm:"column:distance"`
	TrackCoverage      *float64                               `gorm:"column:track_coverage"`
	Track              datatypes.JSONSlice[trip.TripPosition] `gorm:"column:track"`
	PrunedDuplicates   int                                    `gorm:"column:pruned_duplicate_timestamps;not null;default:0"`
	PrunedUnrealistic  int                                    `gorm:"column:pruned_unrealistic_speed;not null;default:0"`
	FuelLiters         *float64                               `gorm:"column:fuel_consumption_liters"`

	PrecisionStatus       string `gorm:"column:precision_status;not null"`
	DistanceStatus        string `gorm:"column:distance_status;not null"`
	PositionLayersStatus  string `gorm:"column:position_layers_status;not null"`
	CargoWeightStatus     string `gorm:"column:cargo_weight_status;not null"`
	FuelConsumptionStatus string `gorm:"column:fuel_consumption_status;not null"`
}

func (TripModel) TableName() string {
	return "trips"
}

// TripIDModel represents the trip_ids sequence table used by ReserveTripID
type TripIDModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ReservedAt time.Time `gorm:"column:reserved_at;not null"`
}

func (TripIDModel) TableName() string {
	return "trip_ids"
}

// CurrentTripModel represents the current_trips table
type CurrentTripModel struct {
	VesselID         int64     `gorm:"column:vessel_id;primaryKey"`
	DepartureEventID int64     `gorm:"column:departure_vessel_event_id;not null"`
	DepartureTime    time.Time `gorm:"column:departure_timestamp;not null"`
	DeparturePortID  *string   `gorm:"column:departure_port_id"`
}

func (CurrentTripModel) TableName() string {
	return "current_trips"
}

// TripDetailedModel represents the trips_detailed projection
type TripDetailedModel struct {
	TripID        int64     `gorm:"column:trip_id;primaryKey"`
	VesselID      int64     `gorm:"column:vessel_id;not null;index"`
	Assembler     int       `gorm:"column:trip_assembler_id;not null"`
	PeriodStart   time.Time `gorm:"column:period_start;not null"`
	PeriodEnd     time.Time `gorm:"column:period_end;not null"`
	LandingWeight float64   `gorm:"column:landing_total_living_weight;not null;default:0"`
	HaulCount     int       `gorm:"column:haul_count;not null;default:0"`
	HaulWeight    float64   `gorm:"column:haul_total_weight;not null;default:0"`
	Distance      *float64  `gorm:"column:distance"`
	FuelLiters    *float64  `gorm:"column:fuel_consumption_liters"`
	RefreshedAt   time.Time `gorm:"column:refreshed_at;not null"`
}

func (TripDetailedModel) TableName() string {
	return "trips_detailed"
}

// FuelEstimateModel represents the fuel_estimates table
type FuelEstimateModel struct {
	VesselID        int64     `gorm:"column:vessel_id;primaryKey"`
	Date            time.Time `gorm:"column:date;primaryKey"`
	EngineVersion   int       `gorm:"column:engine_version;primaryKey"`
	EstimateLiters  float64   `gorm:"column:estimate_liters;not null"`
	NumAISPositions int       `gorm:"column:num_ais_positions;not null"`
	NumVMSPositions int       `gorm:"column:num_vms_positions;not null"`
}

func (FuelEstimateModel) TableName() string {
	return "fuel_estimates"
}

// PipelineRunModel represents the pipeline_runs table
type PipelineRunModel struct {
	ID         string                           `gorm:"column:id;primaryKey"`
	Kind       string                           `gorm:"column:kind;not null;index"`
	Status     string                           `gorm:"column:status;not null"`
	StartedAt  *time.Time                       `gorm:"column:started_at"`
	FinishedAt *time.Time                       `gorm:"column:finished_at"`
	Counters   datatypes.JSONType[run.Counters] `gorm:"column:counters"`
	Error      string                           `gorm:"column:error"`
}

func (PipelineRunModel) TableName() string {
	return "pipeline_runs"
}

// AllModels lists every model for auto-migration
func AllModels() []interface{} {
	return []interface{}{
		&VesselModel{},
		&PortModel{},
		&DockPointModel{},
		&VesselEventModel{},
		&LandingModel{},
		&HaulModel{},
		&PositionModel{},
		&TripCalculationTimerModel{},
		&TripModel{},
		&TripIDModel{},
		&CurrentTripModel{},
		&TripDetailedModel{},
		&FuelEstimateModel{},
		&PipelineRunModel{},
	}
}
