package domain

import (
	"context"
	"errors"
	"time"

	"github.com/davidbz/promptrelay/internal/observability"
)

// RelayService turns client prompts into upstream generation calls.
type RelayService struct {
	generator Generator
	model     string
	metrics   MetricsRecorder
}

// NewRelayService creates a new relay service (DI constructor).
// A nil metrics recorder disables metrics.
func NewRelayService(generator Generator, model string, metrics MetricsRecorder) *RelayService {
	return &RelayService{
		generator: generator,
		model:     model,
		metrics:   metrics,
	}
}

// Model returns the model every request is sent to.
func (s *RelayService) Model() string {
	return s.model
}

// Generate relays a prompt upstream and returns the generated response.
// All failures are *RelayError values.
func (s *RelayService) Generate(ctx context.Context, req *PromptRequest) (*GenerateResponse, error) {
	if req == nil {
		relayErr := NewMalformedRequest(0, errors.New("request cannot be nil"))
		s.observeOutcome(relayErr.Kind.String())
		return nil, relayErr
	}

	upstreamReq := &GenerateRequest{
		Model:  s.model,
		Prompt: req.Prompt,
		Stream: false,
	}

	logger := observability.FromContext(ctx)
	logger.Debug("relaying prompt upstream", observability.Int("prompt_length", len(req.Prompt)))

	start := time.Now()
	response, err := s.generator.Generate(ctx, upstreamReq)
	s.observeUpstream(time.Since(start))

	if err != nil {
		relayErr := AsRelayError(err)
		s.observeOutcome(relayErr.Kind.String())
		return nil, relayErr
	}

	s.observeOutcome(OutcomeSuccess)
	return response, nil
}

// RejectMalformed records a request rejected before reaching the service.
func (s *RelayService) RejectMalformed() {
	s.observeOutcome(OutcomeMalformedRequest)
}

func (s *RelayService) observeOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveOutcome(outcome)
	}
}

func (s *RelayService) observeUpstream(d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveUpstream(d)
	}
}
