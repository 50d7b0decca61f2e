package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/andrescamacho/fishtrack-go/internal/adapters/grpc"
	"github.com/andrescamacho/fishtrack-go/internal/adapters/metrics"
	"github.com/andrescamacho/fishtrack-go/internal/application/logging"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/bootstrap"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/config"
	infraLogging "github.com/andrescamacho/fishtrack-go/internal/infrastructure/logging"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/pidfile"
)

func main() {
	// Parse command-line flags
	forceFlag := flag.Bool("force", false, "Kill any existing daemon and start a new one")
	configFlag := flag.String("config", "", "Path to config file")
	flag.Parse()

	fmt.Println("fishtrack daemon v0.1.0")
	fmt.Println("=======================")

	// Load configuration
	fmt.Println("Loading configuration...")
	cfg := config.MustLoadConfig(*configFlag)

	// Acquire PID file lock to prevent multiple instances
	fmt.Printf("Acquiring PID file lock: %s\n", cfg.Daemon.PIDFile)
	pf := pidfile.New(cfg.Daemon.PIDFile)

	if err := pf.Acquire(); err != nil {
		if !*forceFlag {
			log.Fatalf("Failed to acquire PID file lock: %v\nUse --force to kill the existing daemon", err)
		}
		fmt.Println("Force mode enabled - attempting to kill existing daemon...")
		if killErr := pf.KillExisting(); killErr != nil {
			log.Fatalf("Failed to kill existing daemon: %v", killErr)
		}
		fmt.Println("Existing daemon killed")

		if err := pf.Acquire(); err != nil {
			log.Fatalf("Failed to acquire PID file lock after killing existing daemon: %v", err)
		}
	}
	fmt.Println("PID file lock acquired")

	err := run(cfg)
	if releaseErr := pf.Release(); releaseErr != nil {
		log.Printf("Warning: failed to release PID file: %v", releaseErr)
	}
	if err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// 1. Logger
	logger, err := infraLogging.NewSlogLogger(&cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()
	ctx := logging.WithLogger(context.Background(), logger)

	// 2. Metrics (must be initialized before the mediator middleware is built)
	var collector *metrics.PipelineMetricsCollector
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		collector = metrics.NewPipelineMetricsCollector()
		if err := collector.Register(); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		metrics.SetGlobalCollector(collector)
		fmt.Println("Metrics collector registered")
	}

	// 3. Database, repositories and command handlers
	fmt.Printf("Connecting to %s database...\n", cfg.Database.Type)
	app, err := bootstrap.New(cfg, bootstrap.Options{Collector: collector})
	if err != nil {
		return err
	}
	defer app.Close()
	fmt.Println("Database connected and migrated")

	// 4. Health server and job scheduler
	health, err := grpc.NewHealthServer(cfg.Daemon.HealthAddress)
	if err != nil {
		return err
	}
	scheduler := grpc.NewJobScheduler(app.Mediator, health, cfg.Pipeline.Interval, cfg.Pipeline.Vessels, cfg.Daemon.RunOnStart)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port)
		metricsServer = metrics.NewServer(addr, cfg.Metrics.Path, scheduler.Healthy)
		fmt.Printf("Metrics endpoint: http://%s%s\n", addr, cfg.Metrics.Path)
	}

	daemonServer := grpc.NewDaemonServer(scheduler, health, metricsServer, cfg.Daemon.ShutdownTimeout)

	fmt.Printf("\n✓ Daemon running, health service on %s\n", health.Addr())
	fmt.Println("Press Ctrl+C to stop")

	// Start serving (blocks until shutdown)
	if err := daemonServer.Start(ctx); err != nil {
		return fmt.Errorf("daemon server error: %w", err)
	}

	fmt.Println("\nDaemon stopped")
	return nil
}
