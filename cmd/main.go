package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/promptrelay/internal/config"
	"github.com/davidbz/promptrelay/internal/domain"
	"github.com/davidbz/promptrelay/internal/http"
	"github.com/davidbz/promptrelay/internal/http/middleware"
	"github.com/davidbz/promptrelay/internal/observability"
	"github.com/davidbz/promptrelay/internal/provider/ollama"
)

const shutdownTimeout = 10 * time.Second

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server, logger *zap.Logger, cfg *ollama.Config) error {
		defer func() { _ = logger.Sync() }()

		// Bind before serving so an unusable address exits non-zero.
		ln, err := server.Listen()
		if err != nil {
			return err
		}

		logger.Info("relay configured",
			observability.String("upstream", cfg.BaseURL),
			observability.String("model", cfg.Model),
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() { serveErr <- server.Serve(ln) }()

		select {
		case err := <-serveErr:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serveErr
	})
	if err != nil {
		log.Fatalf("Server failed: %v", dig.RootCause(err))
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(observability.NewMetrics); err != nil {
		log.Fatalf("Failed to provide metrics: %v", err)
	}

	// Inference server client
	if err := container.Provide(func(cfg *ollama.Config) domain.Generator {
		return ollama.NewClient(cfg)
	}); err != nil {
		log.Fatalf("Failed to provide Ollama client: %v", err)
	}

	// Domain Services
	if err := container.Provide(func(
		generator domain.Generator,
		cfg *ollama.Config,
		metrics *observability.Metrics,
	) *domain.RelayService {
		return domain.NewRelayService(generator, cfg.Model, metrics)
	}); err != nil {
		log.Fatalf("Failed to provide relay service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
