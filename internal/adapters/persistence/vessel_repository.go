package persistence

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// GormVesselRepository reads and writes vessels, ports and dock points
type GormVesselRepository struct {
	db *gorm.DB
}

// NewGormVesselRepository creates a new GORM vessel repository
func NewGormVesselRepository(db *gorm.DB) *GormVesselRepository {
	return &GormVesselRepository{db: db}
}

// AllVessels retrieves every vessel ordered by id
func (r *GormVesselRepository) AllVessels(ctx context.Context) ([]*vessel.Vessel, error) {
	var models []VesselModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list vessels: %w", err)
	}

	vessels := make([]*vessel.Vessel, 0, len(models))
	for i := range models {
		vessels = append(vessels, modelToVessel(&models[i]))
	}
	return vessels, nil
}

// FindByID retrieves one vessel
func (r *GormVesselRepository) FindByID(ctx context.Context, vesselID int64) (*vessel.Vessel, error) {
	var model VesselModel
	result := r.db.WithContext(ctx).Where("id = ?", vesselID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("vessel not found: %d", vesselID)
		}
		return nil, fmt.Errorf("failed to find vessel: %w", result.Error)
	}
	return modelToVessel(&model), nil
}

// VesselMaxCargoWeight returns the configured cargo capacity, nil when unknown
func (r *GormVesselRepository) VesselMaxCargoWeight(ctx context.Context, vesselID int64) (*float64, error) {
	var model VesselModel
	result := r.db.WithContext(ctx).Select("id", "max_cargo_weight").Where("id = ?", vesselID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch max cargo weight: %w", result.Error)
	}
	return model.MaxCargoWeight, nil
}

// SaveVessel upserts a vessel
func (r *GormVesselRepository) SaveVessel(ctx context.Context, v *vessel.Vessel) error {
	if err := r.db.WithContext(ctx).Save(vesselToModel(v)).Error; err != nil {
		return fmt.Errorf("failed to save vessel %d: %w", v.ID, err)
	}
	return nil
}

// Ports retrieves every port
func (r *GormVesselRepository) Ports(ctx context.Context) ([]shared.Port, error) {
	var models []PortModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	ports := make([]shared.Port, 0, len(models))
	for _, m := range models {
		p := shared.Port{ID: m.ID, Name: m.Name}
		if m.Latitude != nil && m.Longitude != nil {
			p.Coordinates = &shared.Point{Latitude: *m.Latitude, Longitude: *m.Longitude}
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// SavePorts upserts ports by id
func (r *GormVesselRepository) SavePorts(ctx context.Context, ports []shared.Port) error {
	if len(ports) == 0 {
		return nil
	}
	models := make([]PortModel, 0, len(ports))
	for _, p := range ports {
		m := PortModel{ID: p.ID, Name: p.Name}
		if p.Coordinates != nil {
			lat, lon := p.Coordinates.Latitude, p.Coordinates.Longitude
			m.Latitude = &lat
			m.Longitude = &lon
		}
		models = append(models, m)
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "latitude", "longitude"}),
	}).Create(&models)
	if result.Error != nil {
		return fmt.Errorf("failed to save ports: %w", result.Error)
	}
	return nil
}

// DockPoints retrieves every dock point
func (r *GormVesselRepository) DockPoints(ctx context.Context) ([]shared.DockPoint, error) {
	var models []DockPointModel
	if err := r.db.WithContext(ctx).Order("port_id ASC, dock_point_id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list dock points: %w", err)
	}

	points := make([]shared.DockPoint, 0, len(models))
	for _, m := range models {
		points = append(points, shared.DockPoint{
			PortID:      m.PortID,
			DockPointID: m.DockPointID,
			Name:        m.Name,
			Point:       shared.Point{Latitude: m.Latitude, Longitude: m.Longitude},
		})
	}
	return points, nil
}

// SaveDockPoints upserts dock points by (port, dock point)
func (r *GormVesselRepository) SaveDockPoints(ctx context.Context, points []shared.DockPoint) error {
	if len(points) == 0 {
		return nil
	}
	models := make([]DockPointModel, 0, len(points))
	for _, p := range points {
		models = append(models, DockPointModel{
			PortID:      p.PortID,
			DockPointID: p.DockPointID,
			Name:        p.Name,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
		})
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "port_id"}, {Name: "dock_point_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "latitude", "longitude"}),
	}).Create(&models)
	if result.Error != nil {
		return fmt.Errorf("failed to save dock points: %w", result.Error)
	}
	return nil
}

func modelToVessel(m *VesselModel) *vessel.Vessel {
	v := &vessel.Vessel{
		ID:                      m.ID,
		Name:                    m.Name,
		MMSI:                    m.MMSI,
		CallSign:                m.CallSign,
		Engines:                 []vessel.Engine(m.Engines),
		MaxCargoWeight:          m.MaxCargoWeight,
		ServiceSpeed:            m.ServiceSpeed,
		DegreeOfElectrification: m.DegreeOfElectrification,
		FuelModel:               vessel.FuelModel(m.FuelModel),
		GearGroup:               vessel.GearGroup(m.GearGroup),
		EngineVersion:           m.EngineVersion,
		ReportsErs:              m.ReportsErs,
	}
	if m.HullLength != nil && m.HullBreadth != nil && m.HullDraught != nil {
		v.Hull = &vessel.Hull{Length: *m.HullLength, Breadth: *m.HullBreadth, Draught: *m.HullDraught}
	}
	return v
}

func vesselToModel(v *vessel.Vessel) *VesselModel {
	m := &VesselModel{
		ID:                      v.ID,
		Name:                    v.Name,
		MMSI:                    v.MMSI,
		CallSign:                v.CallSign,
		Engines:                 datatypes.JSONSlice[vessel.Engine](v.Engines),
		MaxCargoWeight:          v.MaxCargoWeight,
		ServiceSpeed:            v.ServiceSpeed,
		DegreeOfElectrification: v.DegreeOfElectrification,
		FuelModel:               string(v.FuelModel),
		GearGroup:               string(v.GearGroup),
		EngineVersion:           v.EngineVersion,
		ReportsErs:              v.ReportsErs,
	}
	if m.FuelModel == "" {
		m.FuelModel = string(vessel.FuelModelMaru)
	}
	if m.EngineVersion == 0 {
		m.EngineVersion = 1
	}
	if v.Hull != nil {
		length, breadth, draught := v.Hull.Length, v.Hull.Breadth, v.Hull.Draught
		m.HullLength = &length
		m.HullBreadth = &breadth
		m.HullDraught = &draught
	}
	return m
}
