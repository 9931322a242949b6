// Package ollama provides the outbound client for an Ollama-compatible
// inference server. It speaks the native /api/generate protocol with
// streaming disabled and reports upstream failures as *domain.RelayError.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/davidbz/promptrelay/internal/domain"
	"github.com/davidbz/promptrelay/internal/observability"
)

const (
	generatePath = "/api/generate"

	// maxErrorBodyBytes caps how much of a failed reply is echoed back.
	maxErrorBodyBytes = 64 << 10
)

// ErrMissingResponse is returned when a success reply has no "response" field.
var ErrMissingResponse = errors.New(`missing "response" field`)

// Client wraps the HTTP client for inference server calls.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new inference server client with bounded timeouts.
func NewClient(config *Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   time.Duration(config.ConnectTimeout) * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(config.Timeout) * time.Second,
		},
	}
}

// Generate sends a non-streaming generation request.
func (c *Client) Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+generatePath,
		bytes.NewReader(reqBody),
	)
	if err != nil {
		return nil, domain.NewUpstreamUnreachable(fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Debug("inference server unreachable", observability.Error(err), observability.Elapsed(start))
		return nil, domain.NewUpstreamUnreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if readErr != nil {
			logger.Debug("failed to read error body", observability.Error(readErr))
		}
		logger.Debug("inference server returned error status",
			observability.Int("status", resp.StatusCode),
			observability.Elapsed(start),
		)
		return nil, domain.NewUpstreamError(resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// The body is read under the client timeout; a stall here is a transport failure.
		return nil, domain.NewUpstreamUnreachable(fmt.Errorf("failed to read response: %w", err))
	}

	text, err := parseReply(body)
	if err != nil {
		return nil, domain.NewUpstreamMalformedResponse(err)
	}

	logger.Debug("inference server call succeeded",
		observability.Int("response_length", len(text)),
		observability.Elapsed(start),
	)

	return &domain.GenerateResponse{Response: text}, nil
}

// parseReply extracts the "response" string from a generate reply.
// The key is matched exactly; other fields are ignored.
func parseReply(body []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", err
	}

	raw, ok := fields["response"]
	if !ok || string(raw) == "null" {
		return "", ErrMissingResponse
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf(`field "response": %w`, err)
	}

	return text, nil
}
