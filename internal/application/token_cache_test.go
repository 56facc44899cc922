package application

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/logger"
	"gitlab.com/timkado/api/paramem-service/internal/domain"
	"gitlab.com/timkado/api/paramem-service/internal/domain/mocks"
)

func TestTokenTTL(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn float64
		want      time.Duration
	}{
		{"default lifetime", 1200, 19 * time.Minute},
		{"one hour", 3600, 59 * time.Minute},
		{"partial minute floors", 119, 0},
		{"exactly two minutes", 120, time.Minute},
		{"under a minute", 30, 0},
		{"zero", 0, 0},
		{"negative", -600, 0},
		{"huge lifetime saturates", 1e12, time.Duration(maxTTLMinutes) * time.Minute},
		{"beyond int64 saturates", 1e30, time.Duration(maxTTLMinutes) * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenTTL(tt.expiresIn))
		})
	}
}

func TestTokenCache_FetchAndCache(t *testing.T) {
	fp := newFakeProvider(t)
	stack := newTestStack(t, fp, nil)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stack.store.WithClock(func() time.Time { return fixed })
	ctx := context.Background()

	token, err := stack.tokens.GetToken(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	tokenReq := fp.lastTokenRequest()
	assert.Equal(t, http.MethodPost, tokenReq.Method)
	assert.Equal(t, "application/json", tokenReq.Header.Get("Content-Type"))
	var gotBody map[string]string
	require.NoError(t, json.Unmarshal(tokenReq.Body, &gotBody))
	assert.Equal(t, map[string]string{"clientCode": "C1", "username": "u", "password": "p"}, gotBody)
	assert.Equal(t, 19*time.Minute, stack.store.TTL(config.DefaultTokenCacheKey))

	token, err = stack.tokens.GetToken(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
	assert.EqualValues(t, 1, fp.tokenCalls.Load(), "second call must be served from cache")
}

func TestTokenCache_ForceReloadBypassesCache(t *testing.T) {
	fp := newFakeProvider(t)
	stack := newTestStack(t, fp, nil)
	ctx := context.Background()
	require.NoError(t, stack.store.Put(ctx, config.DefaultTokenCacheKey, "stale", time.Hour))

	token, err := stack.tokens.GetToken(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
	assert.EqualValues(t, 1, fp.tokenCalls.Load())

	cached, err := stack.store.Get(ctx, config.DefaultTokenCacheKey)
	require.NoError(t, err)
	assert.Equal(t, "abc", cached)
}

func TestTokenCache_DefaultExpiresIn(t *testing.T) {
	fp := newFakeProvider(t)
	fp.tokenReply = func(w http.ResponseWriter) {
		writeEnvelope(w, http.StatusOK, true, "", map[string]any{"accessToken": "abc"})
	}
	stack := newTestStack(t, fp, nil)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stack.store.WithClock(func() time.Time { return fixed })

	_, err := stack.tokens.GetToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 19*time.Minute, stack.store.TTL(config.DefaultTokenCacheKey))
}

func TestTokenCache_StringExpiresIn(t *testing.T) {
	fp := newFakeProvider(t)
	fp.tokenReply = func(w http.ResponseWriter) {
		writeEnvelope(w, http.StatusOK, true, "", map[string]any{"accessToken": "abc", "expiresIn": "3600"})
	}
	stack := newTestStack(t, fp, nil)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stack.store.WithClock(func() time.Time { return fixed })

	_, err := stack.tokens.GetToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 59*time.Minute, stack.store.TTL(config.DefaultTokenCacheKey))
}

func TestTokenCache_MalformedExpiresInFallsBackToDefault(t *testing.T) {
	fp := newFakeProvider(t)
	fp.tokenReply = func(w http.ResponseWriter) {
		// expiresIn precedes accessToken so a strict decoder would stop before the token.
		writeEnvelope(w, http.StatusOK, true, "", json.RawMessage(`{"expiresIn":"x","accessToken":"abc"}`))
	}
	stack := newTestStack(t, fp, nil)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stack.store.WithClock(func() time.Time { return fixed })

	token, err := stack.tokens.GetToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
	assert.Equal(t, 19*time.Minute, stack.store.TTL(config.DefaultTokenCacheKey))
}

func TestTokenCache_ShortLifetimeIsNotCached(t *testing.T) {
	fp := newFakeProvider(t)
	fp.tokenReply = func(w http.ResponseWriter) {
		writeEnvelope(w, http.StatusOK, true, "", map[string]any{"accessToken": "abc", "expiresIn": 30})
	}
	stack := newTestStack(t, fp, nil)
	ctx := context.Background()

	token, err := stack.tokens.GetToken(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	has, err := stack.tokens.Cached(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestTokenCache_Failures(t *testing.T) {
	tests := []struct {
		name        string
		reply       func(w http.ResponseWriter)
		wantStatus  int
		wantMessage string
	}{
		{
			name: "provider rejects credentials",
			reply: func(w http.ResponseWriter) {
				writeEnvelope(w, http.StatusOK, false, "Kullanıcı adı veya şifre hatalı", nil)
			},
			wantStatus:  http.StatusOK,
			wantMessage: "Kullanıcı adı veya şifre hatalı",
		},
		{
			name: "success flag without token",
			reply: func(w http.ResponseWriter) {
				writeEnvelope(w, http.StatusOK, true, "", map[string]any{"expiresIn": 1200})
			},
			wantStatus:  http.StatusOK,
			wantMessage: domain.MsgUnknownError,
		},
		{
			name: "http error without message",
			reply: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: domain.MsgTokenRequestFailed,
		},
		{
			name: "http error with provider message",
			reply: func(w http.ResponseWriter) {
				writeEnvelope(w, http.StatusForbidden, false, "Erişim reddedildi", nil)
			},
			wantStatus:  http.StatusForbidden,
			wantMessage: "Erişim reddedildi",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := newFakeProvider(t)
			fp.tokenReply = tt.reply
			stack := newTestStack(t, fp, nil)

			token, err := stack.tokens.GetToken(context.Background(), false)
			assert.Empty(t, token)

			var apiErr *domain.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, domain.ErrorKindProvider, apiErr.Kind)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.ErrorIs(t, err, domain.ErrProvider)

			has, _ := stack.tokens.Cached(context.Background())
			assert.False(t, has)
		})
	}
}

func TestTokenCache_NetworkFailure(t *testing.T) {
	fp := newFakeProvider(t)
	stack := newTestStack(t, fp, nil)
	fp.server.Close()

	_, err := stack.tokens.GetToken(context.Background(), false)
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, domain.ErrorKindTransport, apiErr.Kind)
	assert.Equal(t, 0, apiErr.Status)
	assert.Equal(t, domain.MsgTokenRequestFailed, apiErr.Message)
	assert.Contains(t, string(apiErr.Body), `"raw"`)
}

func TestTokenCache_InvalidateForcesNewLogin(t *testing.T) {
	fp := newFakeProvider(t)
	stack := newTestStack(t, fp, nil)
	ctx := context.Background()

	_, err := stack.tokens.GetToken(ctx, false)
	require.NoError(t, err)
	require.NoError(t, stack.tokens.Invalidate(ctx))

	_, err = stack.tokens.GetToken(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fp.tokenCalls.Load())
}

func TestTokenCache_StoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fp := newFakeProvider(t)
	store := mocks.NewMockTokenStore(ctrl)
	cfg := config.NewStatic(config.Config{ParamEm: testParamEmConfig(fp.server.URL)})
	tokens := NewTokenCache(cfg, fp.server.Client(), store, logger.NewNop(), nil)

	store.EXPECT().Get(gomock.Any(), config.DefaultTokenCacheKey).Return("", errors.New("connection refused"))
	store.EXPECT().Put(gomock.Any(), config.DefaultTokenCacheKey, "abc", 19*time.Minute).Return(errors.New("connection refused"))

	token, err := tokens.GetToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
	assert.EqualValues(t, 1, fp.tokenCalls.Load())
}

func TestTokenCache_CustomCacheKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fp := newFakeProvider(t)
	store := mocks.NewMockTokenStore(ctrl)
	pcfg := testParamEmConfig(fp.server.URL)
	pcfg.TokenCacheKey = "tenant_a_token"
	tokens := NewTokenCache(config.NewStatic(config.Config{ParamEm: pcfg}), fp.server.Client(), store, logger.NewNop(), nil)

	store.EXPECT().Get(gomock.Any(), "tenant_a_token").Return("cached", nil)

	token, err := tokens.GetToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "cached", token)
	assert.EqualValues(t, 0, fp.tokenCalls.Load())
}
