package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetricsCollector holds the trip pipeline, fuel job and command metrics
type PipelineMetricsCollector struct {
	vesselTasksTotal *prometheus.CounterVec
	tripsCreated     *prometheus.CounterVec
	passDuration     *prometheus.HistogramVec
	passesTotal      *prometheus.CounterVec
	fuelEstimates    prometheus.Counter

	commandDuration *prometheus.HistogramVec
	commandsTotal   *prometheus.CounterVec
}

// NewPipelineMetricsCollector creates the collector; call Register to expose it
func NewPipelineMetricsCollector() *PipelineMetricsCollector {
	return &PipelineMetricsCollector{
		vesselTasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "vessel_tasks_total",
				Help:      "Vessel tasks by pass (new, unprocessed) and outcome",
			},
			[]string{"task", "outcome"},
		),
		tripsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "trips_created_total",
				Help:      "Trips created by assembler kind and assembler state",
			},
			[]string{"assembler", "state"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pass_duration_seconds",
				Help:      "Duration of trips and fuel runs",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"kind", "status"},
		),
		passesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "passes_total",
				Help:      "Finished runs by kind and final status",
			},
			[]string{"kind", "status"},
		),
		fuelEstimates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fuel_day_estimates_total",
				Help:      "Vessel-day fuel estimates written",
			},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "command_duration_seconds",
				Help:      "Command execution duration distribution",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800},
			},
			[]string{"command", "status"},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "commands_total",
				Help:      "Commands executed by type and status",
			},
			[]string{"command", "status"},
		),
	}
}

// Register registers every metric with the global registry
func (c *PipelineMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	collectors := []prometheus.Collector{
		c.vesselTasksTotal,
		c.tripsCreated,
		c.passDuration,
		c.passesTotal,
		c.fuelEstimates,
		c.commandDuration,
		c.commandsTotal,
	}
	for _, collector := range collectors {
		if err := Registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (c *PipelineMetricsCollector) RecordVesselOutcome(task, outcome string) {
	c.vesselTasksTotal.WithLabelValues(task, outcome).Inc()
}

func (c *PipelineMetricsCollector) RecordTripsCreated(assembler, state string, count int) {
	if count <= 0 {
		return
	}
	c.tripsCreated.WithLabelValues(assembler, state).Add(float64(count))
}

func (c *PipelineMetricsCollector) RecordPassCompletion(kind, status string, durationSeconds float64) {
	c.passDuration.WithLabelValues(kind, status).Observe(durationSeconds)
	c.passesTotal.WithLabelValues(kind, status).Inc()
}

func (c *PipelineMetricsCollector) RecordFuelEstimates(count int) {
	c.fuelEstimates.Add(float64(count))
}

// RecordCommandExecution records one mediator command
func (c *PipelineMetricsCollector) RecordCommandExecution(commandName string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.commandDuration.WithLabelValues(commandName, status).Observe(duration)
	c.commandsTotal.WithLabelValues(commandName, status).Inc()
}
