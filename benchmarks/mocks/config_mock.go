package mocks

import (
	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
)

// BenchmarkAESKey seals tokens in the Redis-backed benchmarks.
const BenchmarkAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// MockConfigProvider implements config.Provider for benchmarking
type MockConfigProvider struct {
	config *config.Config
}

// NewMockConfigProvider creates a new mock config provider with benchmark settings.
// baseURL is never dialled when the provider doer is used.
func NewMockConfigProvider(baseURL string) *MockConfigProvider {
	return &MockConfigProvider{
		config: &config.Config{
			Server: config.ServerConfig{
				HTTPPort: 0,
			},
			ParamEm: config.ParamEmConfig{
				BaseURL:        baseURL,
				ClientCode:     "BENCH",
				Username:       "bench-user",
				Password:       "bench-pass",
				AccountID:      "1000",
				Prefix:         "api/",
				TimeoutSeconds: 5,
				TokenCacheKey:  config.DefaultTokenCacheKey,
			},
			Cache: config.CacheConfig{
				Driver:    config.CacheDriverMemory,
				KeyPrefix: "paramem-bench",
			},
			Log: config.LogConfig{
				Level: "error", // Minimize I/O overhead during benchmarks
			},
			Auth: config.AuthConfig{
				SecretToken: "benchmark-secret-token-32chars123",
			},
			App: config.AppConfig{
				ServiceName:            "paramem-gateway-benchmark",
				Version:                "test",
				ShutdownTimeoutSeconds: 1,
			},
		},
	}
}

// Get returns the benchmark configuration.
func (m *MockConfigProvider) Get() *config.Config {
	return m.config
}

// WithForceReload toggles paramem.force_token_reload.
func (m *MockConfigProvider) WithForceReload(force bool) *MockConfigProvider {
	m.config.ParamEm.ForceTokenReload = force
	return m
}

// WithThrow toggles paramem.throw_exceptions.
func (m *MockConfigProvider) WithThrow(throw bool) *MockConfigProvider {
	m.config.ParamEm.ThrowExceptions = throw
	return m
}
