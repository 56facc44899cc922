package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/httpclient"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/logger"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/memory"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/middleware"
	appnats "gitlab.com/timkado/api/paramem-service/internal/adapters/nats"
	appredis "gitlab.com/timkado/api/paramem-service/internal/adapters/redis"
	"gitlab.com/timkado/api/paramem-service/internal/application"
	"gitlab.com/timkado/api/paramem-service/internal/domain"
)

// APIKeyMiddleware guards the /v1 transfer routes.
type APIKeyMiddleware func(http.Handler) http.Handler

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for config initialization.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	logger, err := zap.NewProduction()
	if err != nil {
		logger, err = zap.NewDevelopment()
		if err != nil {
			logger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger (production and development failed, falling back to example): %v\n", err)
		}
	}

	cleanup := func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return logger, cleanup, nil
}

// App holds the wired gateway.
type App struct {
	configProvider   config.Provider
	logger           domain.Logger
	httpServeMux     *http.ServeMux
	httpServer       *http.Server
	transfers        *application.TransferService
	tokens           *application.TokenCache
	redisClient      *redis.Client
	eventPublisher   *appnats.EventPublisherAdapter
	apiKeyMiddleware APIKeyMiddleware
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	transfers *application.TransferService,
	tokens *application.TokenCache,
	redisClient *redis.Client,
	eventPublisher *appnats.EventPublisherAdapter,
	apiKeyMW APIKeyMiddleware,
) (*App, func(), error) {
	app := &App{
		configProvider:   cfgProvider,
		logger:           appLogger,
		httpServeMux:     mux,
		httpServer:       server,
		transfers:        transfers,
		tokens:           tokens,
		redisClient:      redisClient,
		eventPublisher:   eventPublisher,
		apiKeyMiddleware: apiKeyMW,
	}
	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		if syncer, ok := app.logger.(interface{ Sync() error }); ok {
			_ = syncer.Sync()
		}
	}
	return app, cleanup, nil
}

// ConfigProvider loads configuration and refuses to start without provider credentials.
func ConfigProvider(appCtx context.Context, logger *zap.Logger) (config.Provider, error) {
	cfgProvider, err := config.NewViperProvider(appCtx, logger)
	if err != nil {
		return nil, err
	}
	if err := cfgProvider.Get().ParamEm.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider configuration: %w", err)
	}
	return cfgProvider, nil
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	return logger.NewZapAdapter(cfgProvider, cfgProvider.Get().App.ServiceName)
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides a new HTTP server configured for graceful shutdown.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()

	readTimeout := 10 * time.Second
	writeTimeout := 10 * time.Second
	idleTimeout := 60 * time.Second

	if appCfg.App.ReadTimeoutSeconds > 0 {
		readTimeout = time.Duration(appCfg.App.ReadTimeoutSeconds) * time.Second
	}
	if appCfg.App.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(appCfg.App.WriteTimeoutSeconds) * time.Second
	}
	if appCfg.App.IdleTimeoutSeconds > 0 {
		idleTimeout = time.Duration(appCfg.App.IdleTimeoutSeconds) * time.Second
	}
	// The provider call can take up to its own timeout; leave room to write the answer.
	if floor := appCfg.ParamEm.Timeout() + 5*time.Second; writeTimeout < floor {
		writeTimeout = floor
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// RedisClientProvider provides a Redis client and a cleanup function.
// It returns a nil client when the token store is not Redis-backed.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	if appCfg.Cache.Driver != config.CacheDriverRedis {
		appLogger.Info(context.Background(), "Redis not used by the configured token store", "driver", appCfg.Cache.Driver)
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", appCfg.Redis.Address)
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", appCfg.Redis.Address, err)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", appCfg.Redis.Address)
	return client, cleanup, nil
}

// TokenStoreProvider selects the token store named by cache.driver.
func TokenStoreProvider(cfgProvider config.Provider, redisClient *redis.Client, appLogger domain.Logger) (domain.TokenStore, error) {
	cacheCfg := cfgProvider.Get().Cache
	switch cacheCfg.Driver {
	case config.CacheDriverRedis:
		return appredis.NewTokenStoreAdapter(redisClient, appLogger, cacheCfg.KeyPrefix, cacheCfg.TokenAESKey)
	case config.CacheDriverMemory, "":
		return memory.NewTokenStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache.driver %q", cacheCfg.Driver)
	}
}

// MetricsRecorderProvider registers the provider metrics on the default registry served at /metrics.
func MetricsRecorderProvider() domain.MetricsRecorder {
	return metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)
}

// ProviderHTTPClientProvider provides the outbound transport shared by token and business calls.
func ProviderHTTPClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (domain.HTTPDoer, error) {
	return httpclient.New(cfgProvider, appLogger)
}

// TokenCacheProvider provides the TokenCache.
func TokenCacheProvider(cfgProvider config.Provider, doer domain.HTTPDoer, store domain.TokenStore, appLogger domain.Logger, rec domain.MetricsRecorder) *application.TokenCache {
	return application.NewTokenCache(cfgProvider, doer, store, appLogger, rec)
}

// APIClientProvider provides the APIClient.
func APIClientProvider(cfgProvider config.Provider, tokens *application.TokenCache, doer domain.HTTPDoer, appLogger domain.Logger, rec domain.MetricsRecorder) *application.APIClient {
	return application.NewAPIClient(cfgProvider, tokens, doer, appLogger, rec)
}

// NatsEventPublisherProvider connects the transfer event publisher.
// It returns a nil adapter when nats.url is empty.
func NatsEventPublisherProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*appnats.EventPublisherAdapter, func(), error) {
	if cfgProvider.Get().NATS.URL == "" {
		appLogger.Info(ctx, "NATS URL not configured, transfer events are disabled")
		return nil, func() {}, nil
	}
	return appnats.NewEventPublisherAdapter(ctx, cfgProvider, appLogger)
}

// EventPublisherProvider exposes the adapter as a domain.EventPublisher, keeping
// a disabled publisher an untyped nil.
func EventPublisherProvider(adapter *appnats.EventPublisherAdapter) domain.EventPublisher {
	if adapter == nil {
		return nil
	}
	return adapter
}

// TransferServiceProvider provides the TransferService.
func TransferServiceProvider(client *application.APIClient, cfgProvider config.Provider, events domain.EventPublisher, appLogger domain.Logger) *application.TransferService {
	return application.NewTransferService(client, cfgProvider, events, appLogger)
}

// APIKeyMiddlewareProvider provides the API key middleware for the transfer routes.
func APIKeyMiddlewareProvider(cfgProvider config.Provider, appLogger domain.Logger) APIKeyMiddleware {
	return middleware.APIKeyAuthMiddleware(cfgProvider, appLogger)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,
	InitialZapLoggerProvider,

	// Infrastructure Adapters
	RedisClientProvider,
	TokenStoreProvider,
	MetricsRecorderProvider,
	ProviderHTTPClientProvider,
	NatsEventPublisherProvider,
	EventPublisherProvider,

	// Application Services
	TokenCacheProvider,
	APIClientProvider,
	TransferServiceProvider,

	// HTTP Middleware
	APIKeyMiddlewareProvider,

	NewApp,
)
