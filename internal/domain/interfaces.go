package domain

import (
	"context"
	"time"
)

// Generator sends a single generation request to an inference backend.
type Generator interface {
	// Generate issues exactly one upstream call and returns its parsed reply.
	// Failures are returned as *RelayError.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// MetricsRecorder records the outcome of relayed requests.
type MetricsRecorder interface {
	// ObserveOutcome counts a finished request by its outcome label.
	ObserveOutcome(outcome string)

	// ObserveUpstream records how long an upstream call took.
	ObserveUpstream(d time.Duration)
}
