package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/promptrelay/internal/domain"
	"github.com/davidbz/promptrelay/internal/provider/ollama"
)

func newTestClient(baseURL string) *ollama.Client {
	return ollama.NewClient(&ollama.Config{
		BaseURL:        baseURL,
		Model:          "mistral",
		ConnectTimeout: 1,
		Timeout:        1,
	})
}

func requireRelayError(t *testing.T, err error, kind domain.ErrorKind) *domain.RelayError {
	t.Helper()

	var relayErr *domain.RelayError
	require.True(t, errors.As(err, &relayErr), "expected *domain.RelayError, got %T", err)
	require.Equal(t, kind, relayErr.Kind)
	return relayErr
}

func TestClient_Generate(t *testing.T) {
	t.Run("should post a non-streaming request and return the response", func(t *testing.T) {
		var received map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/api/generate", r.URL.Path)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"model":"mistral","response":"world","done":true,"eval_count":3}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		resp, err := client.Generate(context.Background(), &domain.GenerateRequest{
			Model:  "mistral",
			Prompt: "hello",
			Stream: false,
		})

		require.NoError(t, err)
		require.Equal(t, "world", resp.Response)
		require.Equal(t, "mistral", received["model"])
		require.Equal(t, "hello", received["prompt"])
		require.Equal(t, false, received["stream"])
	})

	t.Run("should trim a trailing slash from the base URL", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/generate", r.URL.Path)
			_, _ = w.Write([]byte(`{"response":""}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL + "/")
		resp, err := client.Generate(context.Background(), &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})

		require.NoError(t, err)
		require.Empty(t, resp.Response)
	})

	t.Run("should report an unreachable upstream", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		baseURL := server.URL
		server.Close()

		client := newTestClient(baseURL)
		_, err := client.Generate(context.Background(), &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})

		relayErr := requireRelayError(t, err, domain.KindUpstreamUnreachable)
		require.Contains(t, relayErr.Error(), "failed contacting Ollama API")
		require.Equal(t, http.StatusBadGateway, relayErr.HTTPStatus())
	})

	t.Run("should carry status and body of a failed reply", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model 'mistral' not found"}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Generate(context.Background(), &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})

		relayErr := requireRelayError(t, err, domain.KindUpstreamError)
		require.Equal(t, http.StatusNotFound, relayErr.HTTPStatus())
		require.Contains(t, relayErr.Error(), `model 'mistral' not found`)
	})

	t.Run("should reject a success reply that is not JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Generate(context.Background(), &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})

		relayErr := requireRelayError(t, err, domain.KindUpstreamMalformedResponse)
		require.Contains(t, relayErr.Error(), "failed to parse Ollama response")
	})

	t.Run("should reject a success reply without a response field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"done":true}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Generate(context.Background(), &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})

		relayErr := requireRelayError(t, err, domain.KindUpstreamMalformedResponse)
		require.ErrorIs(t, relayErr, ollama.ErrMissingResponse)
	})

	t.Run("should match the response key case-sensitively", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"Response":"x"}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Generate(context.Background(), &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})

		relayErr := requireRelayError(t, err, domain.KindUpstreamMalformedResponse)
		require.ErrorIs(t, relayErr, ollama.ErrMissingResponse)
		require.Equal(t, http.StatusBadGateway, relayErr.HTTPStatus())
	})

	t.Run("should reject a null response field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"response":null}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Generate(context.Background(), &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})

		requireRelayError(t, err, domain.KindUpstreamMalformedResponse)
	})

	t.Run("should reject a success reply that is not an object", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`["world"]`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Generate(context.Background(), &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})

		requireRelayError(t, err, domain.KindUpstreamMalformedResponse)
	})

	t.Run("should reject a response field of the wrong type", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"response":42}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Generate(context.Background(), &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})

		requireRelayError(t, err, domain.KindUpstreamMalformedResponse)
	})

	t.Run("should give up once the request timeout elapses", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer server.Close()
		defer close(release)

		client := newTestClient(server.URL)
		start := time.Now()
		_, err := client.Generate(context.Background(), &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})
		elapsed := time.Since(start)

		relayErr := requireRelayError(t, err, domain.KindUpstreamUnreachable)
		require.Equal(t, http.StatusBadGateway, relayErr.HTTPStatus())
		require.GreaterOrEqual(t, elapsed, time.Second)
		require.Less(t, elapsed, 4*time.Second)
	})

	t.Run("should abandon the call when the caller cancels", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := newTestClient(server.URL)
		_, err := client.Generate(ctx, &domain.GenerateRequest{Model: "mistral", Prompt: "hi"})

		relayErr := requireRelayError(t, err, domain.KindUpstreamUnreachable)
		require.ErrorIs(t, relayErr, context.Canceled)
	})

	t.Run("should return error when request is nil", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:1")
		_, err := client.Generate(context.Background(), nil)

		require.Error(t, err)
		var relayErr *domain.RelayError
		require.False(t, errors.As(err, &relayErr))
	})
}
