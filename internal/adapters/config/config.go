package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/paramem-service/internal/domain"
)

const envPrefix = "PARAMEM"

// Defaults applied before file and environment values.
const (
	DefaultTokenCacheKey   = "param_em_api_token"
	DefaultTimeoutSeconds  = 30
	DefaultTransferType    = "1"
	DefaultCacheDriver     = CacheDriverMemory
	DefaultNATSSubject     = "paramem.transfers"
	DefaultShutdownTimeout = 30
)

// Cache drivers understood by the bootstrap.
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// ServerConfig holds server-related configurations.
// Note: Fields should be exported (start with uppercase) to be unmarshalled by Viper.
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
}

// ParamEmConfig holds the provider connection settings.
type ParamEmConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	ClientCode       string `mapstructure:"client_code"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"` // Should primarily come from ENV
	AccountID        string `mapstructure:"account_id"`
	Prefix           string `mapstructure:"prefix"` // Path prefix between base URL and endpoint, e.g. "api/"
	ThrowExceptions  bool   `mapstructure:"throw_exceptions"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	ForceTokenReload bool   `mapstructure:"force_token_reload"`
	TokenCacheKey    string `mapstructure:"token_cache_key"`
}

// Credentials returns the token endpoint credentials.
func (c ParamEmConfig) Credentials() domain.Credentials {
	return domain.Credentials{
		ClientCode: c.ClientCode,
		Username:   c.Username,
		Password:   c.Password,
	}
}

// Timeout returns the transport timeout, falling back to DefaultTimeoutSeconds.
func (c ParamEmConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Redacted returns a copy with the password masked.
func (c ParamEmConfig) Redacted() ParamEmConfig {
	if c.Password != "" {
		c.Password = "******"
	}
	return c
}

// Validate reports the first missing mandatory provider setting.
func (c ParamEmConfig) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.New("paramem.base_url is required")
	case c.ClientCode == "":
		return errors.New("paramem.client_code is required")
	case c.Username == "":
		return errors.New("paramem.username is required")
	case c.Password == "":
		return errors.New("paramem.password is required")
	}
	return nil
}

// CacheConfig selects and tunes the token store.
type CacheConfig struct {
	Driver      string `mapstructure:"driver"` // "memory" or "redis"
	KeyPrefix   string `mapstructure:"key_prefix"`
	TokenAESKey string `mapstructure:"token_aes_key"` // Optional, hex AES-256 key to seal the token at rest in Redis
}

// NATSConfig holds NATS-related configurations. An empty URL disables event publishing.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// RedisConfig holds Redis-related configurations.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"` // Optional
	DB       int    `mapstructure:"db"`       // Optional
}

// LogConfig holds logging-related configurations.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	SecretToken string `mapstructure:"secret_token"` // API key expected in X-API-Key, from ENV
}

// AppConfig holds application-specific configurations.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds     int    `mapstructure:"idle_timeout_seconds"`
}

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	ParamEm ParamEmConfig `mapstructure:"paramem"`
	Cache   CacheConfig   `mapstructure:"cache"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	Auth    AuthConfig    `mapstructure:"auth"`
	App     AppConfig     `mapstructure:"app"`
}

// Provider defines an interface for accessing application configuration.
// This allows for easy mocking in tests and decouples the app from Viper.
type Provider interface {
	Get() *Config
}

// staticProvider serves a fixed Config, for library embedding and tests.
type staticProvider struct {
	config *Config
}

// NewStatic wraps cfg in a Provider without any file or environment lookup.
// Zero values are filled with the same defaults Viper would apply.
func NewStatic(cfg Config) Provider {
	applyDefaults(&cfg)
	return &staticProvider{config: &cfg}
}

func (p *staticProvider) Get() *Config {
	return p.config
}

func applyDefaults(cfg *Config) {
	if cfg.ParamEm.TimeoutSeconds == 0 {
		cfg.ParamEm.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.ParamEm.TokenCacheKey == "" {
		cfg.ParamEm.TokenCacheKey = DefaultTokenCacheKey
	}
	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = DefaultCacheDriver
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = DefaultNATSSubject
	}
	if cfg.App.ShutdownTimeoutSeconds == 0 {
		cfg.App.ShutdownTimeoutSeconds = DefaultShutdownTimeout
	}
}

func setViperDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("paramem.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("paramem.force_token_reload", true)
	v.SetDefault("paramem.token_cache_key", DefaultTokenCacheKey)
	v.SetDefault("cache.driver", DefaultCacheDriver)
	v.SetDefault("nats.subject_prefix", DefaultNATSSubject)
	v.SetDefault("log.level", "info")
	v.SetDefault("app.service_name", "paramem-gateway")
	v.SetDefault("app.shutdown_timeout_seconds", DefaultShutdownTimeout)
}

// envKeys lists every config key. AutomaticEnv only resolves keys viper
// already knows from a default or the file, so each one is bound explicitly.
var envKeys = []string{
	"server.http_port",
	"paramem.base_url",
	"paramem.client_code",
	"paramem.username",
	"paramem.password",
	"paramem.account_id",
	"paramem.prefix",
	"paramem.throw_exceptions",
	"paramem.timeout_seconds",
	"paramem.force_token_reload",
	"paramem.token_cache_key",
	"cache.driver",
	"cache.key_prefix",
	"cache.token_aes_key",
	"nats.url",
	"nats.subject_prefix",
	"redis.address",
	"redis.password",
	"redis.db",
	"log.level",
	"auth.secret_token",
	"app.service_name",
	"app.version",
	"app.shutdown_timeout_seconds",
	"app.read_timeout_seconds",
	"app.write_timeout_seconds",
	"app.idle_timeout_seconds",
}

func bindEnvKeys(v *viper.Viper) error {
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// viperProvider implements the Provider interface using Viper.
type viperProvider struct {
	config atomic.Pointer[Config]
	logger *zap.Logger // zap directly, not domain.Logger: the domain logger is built from this config
}

// NewViperProvider creates and initializes a new configuration provider using Viper.
// It loads configuration from file and environment variables, and sets up hot-reloading
// on SIGHUP and on file change. appCtx stops the SIGHUP goroutine.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	v := viper.New()
	setViperDefaults(v)

	v.SetConfigName(getEnv("VIPER_CONFIG_NAME", "config"))
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("VIPER_CONFIG_PATH", "/app/config"))
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // paramem.base_url becomes PARAMEM_PARAMEM_BASE_URL
	if err := bindEnvKeys(v); err != nil {
		logger.Error("Failed to bind environment variables", zap.Error(err))
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)

	p := &viperProvider{logger: logger}
	p.config.Store(cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer signal.Stop(sigChan)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, attempting to reload configuration...", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				p.reload(v, "SIGHUP")
			case <-appCtx.Done():
				p.logger.Info("SIGHUPConfigReloader goroutine shutting down due to context cancellation.")
				return
			}
		}
	}()

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in OnConfigChange callback",
					zap.String("event_name", e.Name),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
		p.reload(v, "file change event")
	})

	p.logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))
	return p, nil
}

func (p *viperProvider) reload(v *viper.Viper, trigger string) {
	newCfg := &Config{}
	if err := v.Unmarshal(newCfg); err != nil {
		p.logger.Error("Failed to unmarshal reloaded config", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	applyDefaults(newCfg)
	p.config.Store(newCfg)
	p.logger.Info("Configuration reloaded successfully", zap.String("trigger", trigger))
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	return p.config.Load()
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
