package bdd

import (
	"testing"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/fishtrack-go/test/bdd/steps"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/domain", "features/application", "features/adapters"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	// Domain scenarios
	steps.InitializeDateRangeScenario(sc)
	steps.InitializeTripAssemblerStateScenario(sc)
	steps.InitializeFuelEstimatorScenario(sc)
	steps.InitializePipelineRunScenario(sc)

	// Application scenarios
	steps.InitializeTripAssemblyScenario(sc)
	steps.InitializeFuelEstimationScenario(sc)

	// Adapter scenarios
	steps.InitializeJobSchedulerScenario(sc)
}
