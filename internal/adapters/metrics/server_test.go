package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/fishtrack-go/internal/application/mediator"
)

type pingCommand struct{}

// withRegistry installs a fresh registry and collector for one test
func withRegistry(t *testing.T) *PipelineMetricsCollector {
	t.Helper()
	previous, previousCollector := Registry, globalCollector
	t.Cleanup(func() {
		Registry = previous
		globalCollector = previousCollector
	})

	InitRegistry()
	collector := NewPipelineMetricsCollector()
	require.NoError(t, collector.Register())
	SetGlobalCollector(collector)
	return collector
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthzFollowsReadiness(t *testing.T) {
	ready := true
	router := NewRouter("", func() bool { return ready })

	rr := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	ready = false
	rr = get(t, router, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsRouteRequiresRegistry(t *testing.T) {
	previous := Registry
	Registry = nil
	t.Cleanup(func() { Registry = previous })

	rr := get(t, NewRouter("/metrics", nil), "/metrics")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsExposePipelineCounters(t *testing.T) {
	withRegistry(t)

	RecordTripsCreated("ers", "CONFLICT", 3)
	RecordTripsCreated("ers", "CONFLICT", 0)
	RecordPassCompletion("trips", "COMPLETED", 12)
	RecordFuelEstimates(4)

	rr := get(t, NewRouter("/metrics", nil), "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `fishtrack_pipeline_trips_created_total{assembler="ers",state="CONFLICT"} 3`)
	assert.Contains(t, body, `fishtrack_pipeline_passes_total{kind="trips",status="COMPLETED"} 1`)
	assert.Contains(t, body, `fishtrack_pipeline_fuel_day_estimates_total 4`)
}

func TestMiddlewareRecordsCommandOutcome(t *testing.T) {
	collector := withRegistry(t)
	middleware := PrometheusMiddleware(collector)

	_, err := middleware(context.Background(), &pingCommand{}, func(context.Context, mediator.Request) (mediator.Response, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	resp, err := middleware(context.Background(), &pingCommand{}, func(context.Context, mediator.Request) (mediator.Response, error) {
		return "pong", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp)

	body := get(t, NewRouter("/metrics", nil), "/metrics").Body.String()
	assert.Contains(t, body, `fishtrack_pipeline_commands_total{command="pingCommand",status="error"} 1`)
	assert.Contains(t, body, `fishtrack_pipeline_commands_total{command="pingCommand",status="success"} 1`)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "pingCommand", commandName(&pingCommand{}))
	assert.Equal(t, "UnknownCommand", commandName(nil))
}
