package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/logger"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/middleware"
	appredis "gitlab.com/timkado/api/paramem-service/internal/adapters/redis"
	"gitlab.com/timkado/api/paramem-service/internal/application"
)

// fakeParam answers the token endpoint and Transfer/CommissionCalculate.
func fakeParam(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/Authorization/Token":
			_, _ = w.Write([]byte(`{"resultInfo":{"isSuccess":true},"resultObject":{"accessToken":"abc","expiresIn":1200}}`))
		case "/Transfer/CommissionCalculate":
			if r.Header.Get("Authorization") != "Bearer abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"resultInfo":{"isSuccess":true},"resultObject":{"commission":"1.50"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T) (*App, *miniredis.Miniredis) {
	t.Helper()
	provider := fakeParam(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.NewStatic(config.Config{
		ParamEm: config.ParamEmConfig{BaseURL: provider.URL, ClientCode: "C1", Username: "u", Password: "p", AccountID: "42"},
		Cache:   config.CacheConfig{Driver: config.CacheDriverRedis, KeyPrefix: "paramem"},
		Auth:    config.AuthConfig{SecretToken: "gw-key"},
	})
	log := logger.NewNop()

	store, err := appredis.NewTokenStoreAdapter(client, log, "paramem", "")
	require.NoError(t, err)
	tokens := application.NewTokenCache(cfg, provider.Client(), store, log, nil)
	api := application.NewAPIClient(cfg, tokens, provider.Client(), log, nil)
	transfers := application.NewTransferService(api, cfg, nil, log)

	mux := http.NewServeMux()
	app, cleanup, err := NewApp(cfg, log, mux, HTTPGracefulServerProvider(cfg, mux), transfers, tokens, client, nil,
		APIKeyMiddleware(middleware.APIKeyAuthMiddleware(cfg, log)))
	require.NoError(t, err)
	t.Cleanup(cleanup)
	app.registerRoutes(context.Background())
	return app, mr
}

func TestApp_Health(t *testing.T) {
	app, _ := newTestApp(t)
	rr := httptest.NewRecorder()
	app.httpServeMux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(middleware.XRequestIDHeader))
}

func TestApp_Ready(t *testing.T) {
	app, mr := newTestApp(t)

	rr := httptest.NewRecorder()
	app.httpServeMux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "READY", body.Status)
	assert.Equal(t, "connected", body.Dependencies["redis"])
	assert.Equal(t, "not_configured", body.Dependencies["nats"])
	assert.Equal(t, "empty", body.Dependencies["provider_token"])

	mr.Close()
	rr = httptest.NewRecorder()
	app.httpServeMux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestApp_TransferRoutes(t *testing.T) {
	app, mr := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/transfers/commission", strings.NewReader(`{"amount":"100"}`))
	rr := httptest.NewRecorder()
	app.httpServeMux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/transfers/commission", strings.NewReader(`{"amount":"100"}`))
	req.Header.Set("X-API-Key", "gw-key")
	rr = httptest.NewRecorder()
	app.httpServeMux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"data":{"commission":"1.50"},"info":{"isSuccess":true}}`, rr.Body.String())

	assert.True(t, mr.Exists("paramem:token:param_em_api_token"), "token cached in redis after the call")

	req = httptest.NewRequest(http.MethodPost, "/v1/transfers/eft", strings.NewReader(`{"amount":"100"}`))
	req.Header.Set("X-API-Key", "gw-key")
	rr = httptest.NewRecorder()
	app.httpServeMux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestTokenStoreProvider(t *testing.T) {
	store, err := TokenStoreProvider(config.NewStatic(config.Config{}), nil, logger.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = TokenStoreProvider(config.NewStatic(config.Config{Cache: config.CacheConfig{Driver: "memcached"}}), nil, logger.NewNop())
	assert.Error(t, err)
}

func TestEventPublisherProvider_DisabledIsUntypedNil(t *testing.T) {
	assert.Nil(t, EventPublisherProvider(nil))
}
