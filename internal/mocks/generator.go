// Package mocks holds testify mocks for the domain ports.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/davidbz/promptrelay/internal/domain"
)

// MockGenerator is a mock implementation of domain.Generator.
type MockGenerator struct {
	mock.Mock
}

// NewMockGenerator creates a generator mock whose expectations are asserted on cleanup.
func NewMockGenerator(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockGenerator {
	m := &MockGenerator{}
	m.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Generate records the call and returns the configured values.
func (m *MockGenerator) Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	args := m.Called(ctx, req)

	var resp *domain.GenerateResponse
	if v := args.Get(0); v != nil {
		resp, _ = v.(*domain.GenerateResponse)
	}

	return resp, args.Error(1)
}

// MockMetricsRecorder is a mock implementation of domain.MetricsRecorder.
type MockMetricsRecorder struct {
	mock.Mock
}

// NewMockMetricsRecorder creates a metrics mock whose expectations are asserted on cleanup.
func NewMockMetricsRecorder(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockMetricsRecorder {
	m := &MockMetricsRecorder{}
	m.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// ObserveOutcome records the call.
func (m *MockMetricsRecorder) ObserveOutcome(outcome string) {
	m.Called(outcome)
}

// ObserveUpstream records the call.
func (m *MockMetricsRecorder) ObserveUpstream(d time.Duration) {
	m.Called(d)
}
