package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphttp "gitlab.com/timkado/api/paramem-service/internal/adapters/http"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/paramem-service/pkg/safego"
)

// Run starts the application, listens for HTTP requests, and handles graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	version := "unknown"
	serviceName := "paramem-gateway"
	configApp := a.configProvider.Get().App
	if configApp.Version != "" {
		version = configApp.Version
	}
	if configApp.ServiceName != "" {
		serviceName = configApp.ServiceName
	}
	a.logger.Info(ctx, "Starting application", "service_name", serviceName, "version", version)

	a.registerRoutes(ctx)

	shutdownDone := safego.Execute(ctx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}

		shutdownTimeout := 30 * time.Second
		if s := a.configProvider.Get().App.ShutdownTimeoutSeconds; s > 0 {
			shutdownTimeout = time.Duration(s) * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(context.Background(), "HTTP server shut down.")
	})

	a.logger.Info(ctx, fmt.Sprintf("HTTP server listening on port %d", a.configProvider.Get().Server.HTTPPort))
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-shutdownDone
	a.logger.Info(ctx, "Application shut down gracefully or server closed.")
	return nil
}

func (a *App) registerRoutes(ctx context.Context) {
	a.httpServeMux.Handle("GET /health", middleware.RequestIDMiddleware(http.HandlerFunc(a.healthHandler)))
	a.httpServeMux.Handle("GET /ready", middleware.RequestIDMiddleware(http.HandlerFunc(a.readyHandler)))
	a.httpServeMux.Handle("GET /metrics", promhttp.Handler())

	if a.transfers == nil || a.apiKeyMiddleware == nil {
		a.logger.Error(ctx, "TransferService or API key middleware not initialized. Transfer routes will not be available.")
		return
	}

	accessLog := middleware.AccessLogMiddleware(a.logger)
	guard := func(h http.Handler) http.Handler {
		return middleware.RequestIDMiddleware(accessLog(a.apiKeyMiddleware(h)))
	}
	a.httpServeMux.Handle("POST /v1/transfers/commission", guard(apphttp.CommissionHandler(a.transfers, a.logger)))
	a.httpServeMux.Handle("GET /v1/transfers/transferable-amount", guard(apphttp.TransferableAmountHandler(a.transfers, a.logger)))
	a.httpServeMux.Handle("POST /v1/transfers/eft", guard(apphttp.EFTStartHandler(a.transfers, a.logger)))
	a.logger.Info(ctx, "Transfer routes registered under /v1/transfers")
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"status":"OK"}`)
}

// readyHandler reports dependency state. Optional dependencies that are not
// configured do not fail readiness; the token state is informational.
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ready := true
	dependenciesStatus := make(map[string]string)

	if a.redisClient != nil {
		if err := a.redisClient.Ping(r.Context()).Err(); err == nil {
			dependenciesStatus["redis"] = "connected"
		} else {
			dependenciesStatus["redis"] = "disconnected"
			ready = false
			a.logger.Warn(r.Context(), "Readiness check failed: Redis ping failed", "error", err.Error())
		}
	} else {
		dependenciesStatus["redis"] = "not_configured"
	}

	if a.eventPublisher != nil && a.eventPublisher.Conn() != nil {
		if status := a.eventPublisher.Conn().Status(); status == nats.CONNECTED {
			dependenciesStatus["nats"] = "connected"
		} else {
			dependenciesStatus["nats"] = "disconnected"
			ready = false
			a.logger.Warn(r.Context(), "Readiness check failed: NATS disconnected", "status", status.String())
		}
	} else {
		dependenciesStatus["nats"] = "not_configured"
	}

	if a.tokens != nil {
		cached, err := a.tokens.Cached(r.Context())
		switch {
		case err != nil:
			dependenciesStatus["provider_token"] = "unknown"
		case cached:
			dependenciesStatus["provider_token"] = "cached"
		default:
			dependenciesStatus["provider_token"] = "empty"
		}
	}

	response := struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}{
		Dependencies: dependenciesStatus,
	}

	if ready {
		response.Status = "READY"
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = "NOT_READY"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Error(r.Context(), "Failed to encode readiness response", "error", err.Error())
	}
}
