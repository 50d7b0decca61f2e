package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/fishtrack-go/internal/adapters/metrics"
	"github.com/andrescamacho/fishtrack-go/internal/adapters/persistence"
	appFuel "github.com/andrescamacho/fishtrack-go/internal/application/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/application/mediator"
	"github.com/andrescamacho/fishtrack-go/internal/application/trips"
	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/config"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/database"
)

// Container holds the wired application shared by the daemon and the CLI
type Container struct {
	DB       *gorm.DB
	Store    *persistence.Store
	Mediator mediator.Mediator
}

// Options tweak the wiring
type Options struct {
	// Clock overrides the real clock (tests)
	Clock shared.Clock

	// Collector records command metrics when non-nil
	Collector *metrics.PipelineMetricsCollector
}

// New opens the database, migrates it unless told not to and registers every
// command handler
func New(cfg *config.Config, opts Options) (*Container, error) {
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if !cfg.Database.SkipMigrations {
		if err := database.AutoMigrate(db); err != nil {
			_ = database.Close(db)
			return nil, err
		}
	}

	c, err := NewWithDB(db, cfg, opts)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return c, nil
}

// NewWithDB wires the application on an existing, migrated connection
func NewWithDB(db *gorm.DB, cfg *config.Config, opts Options) (*Container, error) {
	store := persistence.NewStore(db, opts.Clock)
	estimator := fuel.NewEstimator(fuel.WithMaxKnots(cfg.Fuel.MaxKnots))

	med := mediator.NewMediator()
	if opts.Collector != nil {
		med.RegisterMiddleware(metrics.PrometheusMiddleware(opts.Collector))
	}

	driver := trips.NewDriver(store, estimator, trips.DriverConfig{
		Workers:             cfg.Pipeline.Workers,
		BatchSize:           cfg.Pipeline.UnprocessedBatchSize,
		PortProximityMeters: cfg.Pipeline.PortProximityMeters,
	})
	tripsHandler := trips.NewRunTripsPipelineHandler(driver, store, opts.Clock)
	if err := mediator.RegisterHandler[*trips.RunTripsPipelineCommand](med, tripsHandler); err != nil {
		return nil, fmt.Errorf("failed to register RunTripsPipeline handler: %w", err)
	}

	fuelHandler := appFuel.NewRunFuelEstimationHandler(store, store, store, estimator, opts.Clock, appFuel.Config{
		Workers:     cfg.Fuel.Workers,
		RunInterval: cfg.Fuel.RunInterval,
	})
	if err := mediator.RegisterHandler[*appFuel.RunFuelEstimationCommand](med, fuelHandler); err != nil {
		return nil, fmt.Errorf("failed to register RunFuelEstimation handler: %w", err)
	}

	return &Container{DB: db, Store: store, Mediator: med}, nil
}

// Close releases the database connection
func (c *Container) Close() error {
	return database.Close(c.DB)
}
