package steps

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcAdapter "github.com/andrescamacho/fishtrack-go/internal/adapters/grpc"
	"github.com/andrescamacho/fishtrack-go/internal/application/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/application/logging"
	"github.com/andrescamacho/fishtrack-go/internal/application/trips"
	"github.com/andrescamacho/fishtrack-go/test/helpers"
)

type jobSchedulerContext struct {
	health    *grpcAdapter.HealthServer
	conn      *grpc.ClientConn
	client    healthpb.HealthClient
	mediator  *helpers.MockMediator
	scheduler *grpcAdapter.JobScheduler
	logger    *helpers.CapturingLogger
}

func (jc *jobSchedulerContext) reset() {
	jc.health = nil
	jc.conn = nil
	jc.client = nil
	jc.mediator = helpers.NewMockMediator()
	jc.scheduler = nil
	jc.logger = helpers.NewCapturingLogger()
}

func (jc *jobSchedulerContext) cleanup() {
	if jc.conn != nil {
		_ = jc.conn.Close()
	}
	if jc.health != nil {
		jc.health.Stop()
	}
}

// InitializeJobSchedulerScenario registers scheduler and health step definitions
func InitializeJobSchedulerScenario(ctx *godog.ScenarioContext) {
	jc := &jobSchedulerContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		jc.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		jc.cleanup()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a running health server$`, jc.aRunningHealthServer)
	ctx.Step(`^a job scheduler for vessels "([^"]*)"$`, jc.aJobScheduler)
	ctx.Step(`^the trip pipeline fails with "([^"]*)"$`, jc.theTripPipelineFails)
	ctx.Step(`^fuel estimation fails with "([^"]*)"$`, jc.fuelEstimationFails)

	// When steps
	ctx.Step(`^the scheduler ticks$`, jc.theSchedulerTicks)
	ctx.Step(`^the trip pipeline recovers$`, jc.theTripPipelineRecovers)
	ctx.Step(`^the health server stops$`, jc.theHealthServerStops)

	// Then steps
	ctx.Step(`^the scheduler should have sent "([^"]*)"$`, jc.shouldHaveSent)
	ctx.Step(`^the health of "([^"]*)" should be "([^"]*)"$`, jc.healthShouldBe)
	ctx.Step(`^the scheduler should report (healthy|unhealthy)$`, jc.shouldReport)
	ctx.Step(`^the scheduler should have logged "([^"]*)" at "([^"]*)"$`, jc.shouldHaveLogged)
	ctx.Step(`^the health server should refuse checks$`, jc.healthServerShouldRefuse)
}

// ============================================================================
// Given steps
// ============================================================================

func (jc *jobSchedulerContext) aRunningHealthServer() error {
	hs, err := grpcAdapter.NewHealthServer("127.0.0.1:0")
	if err != nil {
		return err
	}
	jc.health = hs
	hs.Start()

	conn, err := grpc.NewClient(hs.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to health server: %w", err)
	}
	jc.conn = conn
	jc.client = healthpb.NewHealthClient(conn)
	return nil
}

func (jc *jobSchedulerContext) aJobScheduler(vessels string) error {
	var ids []int64
	for _, s := range strings.Split(vessels, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid vessel id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	jc.scheduler = grpcAdapter.NewJobScheduler(jc.mediator, jc.health, time.Minute, ids, false)
	return nil
}

func (jc *jobSchedulerContext) theTripPipelineFails(message string) error {
	jc.mediator.FailWith(&trips.RunTripsPipelineCommand{}, errors.New(message))
	return nil
}

func (jc *jobSchedulerContext) fuelEstimationFails(message string) error {
	jc.mediator.FailWith(&fuel.RunFuelEstimationCommand{}, errors.New(message))
	return nil
}

// ============================================================================
// When steps
// ============================================================================

func (jc *jobSchedulerContext) theSchedulerTicks() error {
	ctx := logging.WithLogger(context.Background(), jc.logger)
	jc.scheduler.Tick(ctx)
	return nil
}

func (jc *jobSchedulerContext) theTripPipelineRecovers() error {
	jc.mediator.FailWith(&trips.RunTripsPipelineCommand{}, nil)
	return nil
}

func (jc *jobSchedulerContext) theHealthServerStops() error {
	jc.health.Stop()
	jc.health = nil
	return nil
}

// ============================================================================
// Then steps
// ============================================================================

func (jc *jobSchedulerContext) shouldHaveSent(expected string) error {
	got := strings.Join(jc.mediator.CallLog(), ",")
	if got != expected {
		return fmt.Errorf("expected commands %q, got %q", expected, got)
	}
	return nil
}

func (jc *jobSchedulerContext) healthShouldBe(service, expected string) error {
	if service == "overall" {
		service = ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := jc.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if got := resp.GetStatus().String(); got != expected {
		return fmt.Errorf("expected %q to be %s, got %s", service, expected, got)
	}
	return nil
}

func (jc *jobSchedulerContext) shouldReport(verdict string) error {
	if jc.scheduler.Healthy() != (verdict == "healthy") {
		return fmt.Errorf("expected the scheduler to report %s", verdict)
	}
	return nil
}

func (jc *jobSchedulerContext) shouldHaveLogged(action, level string) error {
	if !jc.logger.HasAction(level, action) {
		return fmt.Errorf("expected a %s entry with action %q", level, action)
	}
	return nil
}

func (jc *jobSchedulerContext) healthServerShouldRefuse() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := jc.client.Check(ctx, &healthpb.HealthCheckRequest{Service: grpcAdapter.ServiceTrips})
	if err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("expected the stopped health server not to report SERVING")
	}
	return nil
}
