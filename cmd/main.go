package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/howl/internal/agent"
	"github.com/davidbz/howl/internal/config"
	"github.com/davidbz/howl/internal/domain"
	"github.com/davidbz/howl/internal/httpserver"
	"github.com/davidbz/howl/internal/httpserver/middleware"
	"github.com/davidbz/howl/internal/models"
	"github.com/davidbz/howl/internal/observability"
	"github.com/davidbz/howl/internal/ratelimit"
)

const shutdownTimeout = 10 * time.Second

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *httpserver.Server) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("shutdown failed: %v", err)
			}
		}()

		if err := server.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
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
	if err := container.Provide(observability.NewDiagnostics); err != nil {
		log.Fatalf("Failed to provide diagnostics: %v", err)
	}
	if err := container.Provide(observability.NewMetrics); err != nil {
		log.Fatalf("Failed to provide metrics: %v", err)
	}

	// Model mapping table
	if err := container.Provide(func(cfg *config.ModelsConfig) (*models.Mapper, error) {
		mappings, err := cfg.Mappings()
		if err != nil {
			return nil, err
		}
		return models.NewMapper(mappings)
	}); err != nil {
		log.Fatalf("Failed to provide model mapper: %v", err)
	}

	// Agent engine
	if err := container.Provide(func(cfg *agent.Config, logger *zap.Logger) domain.Engine {
		if cfg.Mode == agent.ModeEcho {
			logger.Warn("running with the in-process echo engine")
			return agent.NewEchoEngine()
		}
		return agent.NewClient(*cfg)
	}); err != nil {
		log.Fatalf("Failed to provide engine: %v", err)
	}

	// Rate limiting
	if err := container.Provide(func(cfg *ratelimit.Config) ratelimit.Limiter {
		return ratelimit.NewLimiter(*cfg)
	}); err != nil {
		log.Fatalf("Failed to provide rate limiter: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewGatewayService); err != nil {
		log.Fatalf("Failed to provide gateway service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(httpserver.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(httpserver.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
