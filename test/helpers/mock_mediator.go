package helpers

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/andrescamacho/fishtrack-go/internal/application/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/application/mediator"
	"github.com/andrescamacho/fishtrack-go/internal/application/trips"
)

// MockMediator is a test double for the Mediator interface. It answers the
// batch job commands the scheduler sends and records the order they arrived in.
type MockMediator struct {
	mu       sync.Mutex
	failures map[reflect.Type]error
	callLog  []string
}

var _ mediator.Mediator = (*MockMediator)(nil)

// NewMockMediator creates a new MockMediator
func NewMockMediator() *MockMediator {
	return &MockMediator{failures: make(map[reflect.Type]error)}
}

// Send implements the Mediator interface
func (m *MockMediator) Send(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch req := request.(type) {
	case *trips.RunTripsPipelineCommand:
		m.callLog = append(m.callLog, fmt.Sprintf("RunTripsPipeline:%v", req.VesselIDs))
		if err := m.failures[reflect.TypeOf(request)]; err != nil {
			return nil, err
		}
		return &trips.RunTripsPipelineResponse{RunID: "trips-mock"}, nil

	case *fuel.RunFuelEstimationCommand:
		m.callLog = append(m.callLog, fmt.Sprintf("RunFuelEstimation:%v", req.VesselIDs))
		if err := m.failures[reflect.TypeOf(request)]; err != nil {
			return nil, err
		}
		return &fuel.RunFuelEstimationResponse{RunID: "fuel-mock"}, nil

	default:
		return nil, fmt.Errorf("unsupported request type: %T", request)
	}
}

func (m *MockMediator) Register(reflect.Type, mediator.RequestHandler) error { return nil }

func (m *MockMediator) RegisterMiddleware(mediator.Middleware) {}

// FailWith makes every request of the same type as request fail with err. A nil
// err clears the failure.
func (m *MockMediator) FailWith(request mediator.Request, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reflect.TypeOf(request)] = err
}

// CallLog returns the commands sent so far
func (m *MockMediator) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.callLog))
	copy(out, m.callLog)
	return out
}
