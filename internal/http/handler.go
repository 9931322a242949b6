package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/davidbz/promptrelay/internal/domain"
	"github.com/davidbz/promptrelay/internal/observability"
)

// maxRequestBodyBytes bounds the size of an inbound prompt payload.
const maxRequestBodyBytes = 1 << 20

var (
	errMissingPrompt   = errors.New(`missing field "prompt"`)
	errDuplicatePrompt = errors.New(`duplicate field "prompt"`)
	errPromptType      = errors.New(`field "prompt" must be a string`)
	errNotObject       = errors.New("expected a JSON object")
	errInvalidUTF8     = errors.New("body is not valid UTF-8")
)

// Handler handles HTTP requests.
type Handler struct {
	relay   *domain.RelayService
	metrics *observability.Metrics
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(relay *domain.RelayService, metrics *observability.Metrics) *Handler {
	return &Handler{
		relay:   relay,
		metrics: metrics,
	}
}

// HandleGenerate relays a prompt to the inference server.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := observability.WithModel(r.Context(), h.relay.Model())
	logger := observability.FromContext(ctx)

	// Early validation.
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, parseErr := decodePrompt(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if parseErr != nil {
		h.relay.RejectMalformed()
		logger.Warn("rejected malformed request", observability.Error(parseErr))
		http.Error(w, parseErr.Error(), parseErr.HTTPStatus())
		return
	}

	logger.Info("generate request received", observability.Int("prompt_length", len(req.Prompt)))

	response, err := h.relay.Generate(ctx, req)
	if err != nil {
		relayErr := domain.AsRelayError(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Info("client went away before upstream replied", observability.Error(ctxErr))
		} else {
			logger.Error("generate failed",
				observability.String("kind", relayErr.Kind.String()),
				observability.Int("status", relayErr.HTTPStatus()),
				observability.Error(relayErr),
			)
		}
		http.Error(w, relayErr.Error(), relayErr.HTTPStatus())
		return
	}

	logger.Info("generate succeeded", observability.Int("response_length", len(response.Response)))

	w.Header().Set("Content-Type", "application/json")
	encodeErr := json.NewEncoder(w).Encode(response)
	if encodeErr != nil {
		// Status already written.
		logger.Error("failed to encode response", observability.Error(encodeErr))
		return
	}
}

// decodePrompt parses the client payload. The body must be one valid UTF-8
// JSON object holding exactly one "prompt" key (matched case-sensitively)
// whose value is a string.
func decodePrompt(body io.Reader) (*domain.PromptRequest, *domain.RelayError) {
	data, err := io.ReadAll(body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, domain.NewMalformedRequest(http.StatusRequestEntityTooLarge, err)
		}
		return nil, domain.NewMalformedRequest(http.StatusBadRequest, err)
	}

	if !utf8.Valid(data) {
		return nil, domain.NewMalformedRequest(http.StatusBadRequest, errInvalidUTF8)
	}

	// Unmarshal rejects trailing data after the top-level value.
	var document any
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, domain.NewMalformedRequest(http.StatusBadRequest, err)
	}
	if _, ok := document.(map[string]any); !ok {
		return nil, domain.NewMalformedRequest(http.StatusUnprocessableEntity, errNotObject)
	}

	raw, err := lookupPrompt(data)
	if err != nil {
		return nil, domain.NewMalformedRequest(http.StatusUnprocessableEntity, err)
	}

	var prompt string
	if err := json.Unmarshal(raw, &prompt); err != nil {
		return nil, domain.NewMalformedRequest(http.StatusUnprocessableEntity, fmt.Errorf("%w: %s", errPromptType, raw))
	}

	return &domain.PromptRequest{Prompt: prompt}, nil
}

// lookupPrompt walks the top-level keys of a validated JSON object and
// returns the raw "prompt" value. encoding/json folds key case when
// decoding into structs, so keys are compared here instead.
func lookupPrompt(data []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var prompt json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}

		if key != "prompt" {
			continue
		}
		if prompt != nil {
			return nil, errDuplicatePrompt
		}
		prompt = value
	}

	if prompt == nil || string(prompt) == "null" {
		return nil, errMissingPrompt
	}

	return prompt, nil
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		// Already written status, can't change it, just log.
		return
	}
}

// HandleMetrics serves Prometheus metrics.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.NotFound(w, r)
		return
	}
	h.metrics.Handler().ServeHTTP(w, r)
}
