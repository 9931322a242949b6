package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind identifies one of the closed set of relay failures.
type ErrorKind int

const (
	// KindMalformedRequest means the client payload was unusable.
	KindMalformedRequest ErrorKind = iota + 1

	// KindUpstreamUnreachable means the inference server could not be reached.
	KindUpstreamUnreachable

	// KindUpstreamError means the inference server answered with a non-success status.
	KindUpstreamError

	// KindUpstreamMalformedResponse means a success reply could not be parsed.
	KindUpstreamMalformedResponse
)

// Outcome labels shared by logs and metrics.
const (
	OutcomeSuccess                   = "success"
	OutcomeMalformedRequest          = "malformed_request"
	OutcomeUpstreamUnreachable       = "upstream_unreachable"
	OutcomeUpstreamError             = "upstream_error"
	OutcomeUpstreamMalformedResponse = "upstream_malformed_response"
)

// String returns the outcome label of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindMalformedRequest:
		return OutcomeMalformedRequest
	case KindUpstreamUnreachable:
		return OutcomeUpstreamUnreachable
	case KindUpstreamError:
		return OutcomeUpstreamError
	case KindUpstreamMalformedResponse:
		return OutcomeUpstreamMalformedResponse
	default:
		return "unknown"
	}
}

// RelayError is the single error type surfaced by the relay path.
// Build it with one of the New* constructors.
type RelayError struct {
	Kind ErrorKind
	// Status is the client status for malformed requests and the upstream
	// status for upstream errors. Zero otherwise.
	Status  int
	Message string
	Err     error
}

// NewMalformedRequest reports an unusable client payload answered with status.
func NewMalformedRequest(status int, err error) *RelayError {
	return &RelayError{
		Kind:    KindMalformedRequest,
		Status:  status,
		Message: fmt.Sprintf("invalid request body: %v", err),
		Err:     err,
	}
}

// NewUpstreamUnreachable reports a transport failure reaching the inference server.
func NewUpstreamUnreachable(err error) *RelayError {
	return &RelayError{
		Kind:    KindUpstreamUnreachable,
		Message: fmt.Sprintf("failed contacting Ollama API: %v", err),
		Err:     err,
	}
}

// NewUpstreamError reports a non-success reply carrying the raw upstream body.
func NewUpstreamError(status int, body string) *RelayError {
	return &RelayError{
		Kind:    KindUpstreamError,
		Status:  status,
		Message: "Ollama error: " + body,
	}
}

// NewUpstreamMalformedResponse reports a success reply that could not be parsed.
func NewUpstreamMalformedResponse(err error) *RelayError {
	return &RelayError{
		Kind:    KindUpstreamMalformedResponse,
		Message: fmt.Sprintf("failed to parse Ollama response: %v", err),
		Err:     err,
	}
}

func (e *RelayError) Error() string {
	return e.Message
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error onto the status returned to the client.
// Upstream statuses outside the client/server error range become 502.
func (e *RelayError) HTTPStatus() int {
	switch e.Kind {
	case KindMalformedRequest:
		if e.Status >= http.StatusBadRequest && e.Status < http.StatusInternalServerError {
			return e.Status
		}
		return http.StatusBadRequest
	case KindUpstreamError:
		if e.Status >= http.StatusBadRequest && e.Status <= 599 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// AsRelayError unwraps err into a *RelayError. Errors of any other type are
// treated as an unreachable upstream.
func AsRelayError(err error) *RelayError {
	var relayErr *RelayError
	if errors.As(err, &relayErr) {
		return relayErr
	}
	return NewUpstreamUnreachable(err)
}
