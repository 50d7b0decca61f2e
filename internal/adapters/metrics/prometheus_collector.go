package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace for all metrics
	namespace = "fishtrack"
	// Subsystem for batch pipeline metrics
	subsystem = "pipeline"
)

var (
	// Registry is the global Prometheus registry for all metrics
	Registry *prometheus.Registry

	// globalCollector is set by SetGlobalCollector() when metrics are enabled
	globalCollector PipelineMetricsRecorder
)

// PipelineMetricsRecorder is used by application code to record pipeline events
type PipelineMetricsRecorder interface {
	RecordVesselOutcome(task, outcome string)
	RecordTripsCreated(assembler, state string, count int)
	RecordPassCompletion(kind, status string, durationSeconds float64)
	RecordFuelEstimates(count int)
}

// InitRegistry initializes the Prometheus registry.
// Should be called once at startup if metrics are enabled.
func InitRegistry() {
	Registry = prometheus.NewRegistry()
}

// GetRegistry returns the global registry, nil if metrics are not initialized
func GetRegistry() *prometheus.Registry {
	return Registry
}

// IsEnabled returns true if metrics collection is enabled
func IsEnabled() bool {
	return Registry != nil
}

// SetGlobalCollector sets the global pipeline metrics collector
func SetGlobalCollector(collector PipelineMetricsRecorder) {
	globalCollector = collector
}

// RecordVesselOutcome records the outcome of one vessel task globally
func RecordVesselOutcome(task, outcome string) {
	if globalCollector != nil {
		globalCollector.RecordVesselOutcome(task, outcome)
	}
}

// RecordTripsCreated records trips created for one vessel globally
func RecordTripsCreated(assembler, state string, count int) {
	if globalCollector != nil {
		globalCollector.RecordTripsCreated(assembler, state, count)
	}
}

// RecordPassCompletion records a finished trips or fuel run globally
func RecordPassCompletion(kind, status string, durationSeconds float64) {
	if globalCollector != nil {
		globalCollector.RecordPassCompletion(kind, status, durationSeconds)
	}
}

// RecordFuelEstimates records written fuel day estimates globally
func RecordFuelEstimates(count int) {
	if globalCollector != nil {
		globalCollector.RecordFuelEstimates(count)
	}
}
