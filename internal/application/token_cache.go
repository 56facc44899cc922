package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
	"gitlab.com/timkado/api/paramem-service/internal/domain"
	"gitlab.com/timkado/api/paramem-service/pkg/crypto"
)

// TokenEndpoint is the provider path, relative to the prefix, that issues bearer tokens.
const TokenEndpoint = "Authorization/Token"

// maxTTLMinutes is the largest whole-minute count a time.Duration can hold.
const maxTTLMinutes = math.MaxInt64 / int64(time.Minute)

// TokenTTL converts the provider's expiresIn (seconds) into the cache lifetime:
// whole minutes minus one, never negative, saturating at the largest Duration.
func TokenTTL(expiresInSeconds float64) time.Duration {
	minutes := math.Floor(expiresInSeconds/60) - 1
	if minutes < 0 || math.IsNaN(minutes) {
		return 0
	}
	if minutes >= float64(maxTTLMinutes) {
		return time.Duration(maxTTLMinutes) * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}

// TokenCache hands out the provider bearer token, fetching it from the token
// endpoint when the store has none or a reload is forced.
//
// There is no lock around check, fetch and store: concurrent misses each fetch
// a token and the last write wins. The provider accepts repeated logins.
type TokenCache struct {
	cfg     config.Provider
	doer    domain.HTTPDoer
	store   domain.TokenStore
	logger  domain.Logger
	metrics domain.MetricsRecorder
}

// NewTokenCache creates a TokenCache. metrics may be nil.
func NewTokenCache(cfg config.Provider, doer domain.HTTPDoer, store domain.TokenStore, logger domain.Logger, metrics domain.MetricsRecorder) *TokenCache {
	if cfg == nil {
		panic("config provider is nil in NewTokenCache")
	}
	if doer == nil {
		panic("http doer is nil in NewTokenCache")
	}
	if store == nil {
		panic("token store is nil in NewTokenCache")
	}
	if logger == nil {
		panic("logger is nil in NewTokenCache")
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &TokenCache{
		cfg:     cfg,
		doer:    doer,
		store:   store,
		logger:  logger.With("component", "token_cache"),
		metrics: metrics,
	}
}

func (c *TokenCache) cacheKey() string {
	key := c.cfg.Get().ParamEm.TokenCacheKey
	if key == "" {
		return config.DefaultTokenCacheKey
	}
	return key
}

// GetToken returns a bearer token. Unless forceReload is set, a cached token
// is returned without any network call. Failures are always *domain.APIError.
func (c *TokenCache) GetToken(ctx context.Context, forceReload bool) (string, error) {
	key := c.cacheKey()
	if !forceReload {
		token, err := c.store.Get(ctx, key)
		switch {
		case err == nil && token != "":
			c.metrics.IncTokenCacheHit()
			c.logger.Debug(ctx, "Provider token served from cache", "token_fingerprint", crypto.Fingerprint(token))
			return token, nil
		case err != nil && !errors.Is(err, domain.ErrCacheMiss):
			// An unreachable store should not block authentication.
			c.logger.Warn(ctx, "Token store read failed, fetching a new token", "error", err.Error())
		}
	}

	token, ttl, apiErr := c.fetch(ctx)
	if apiErr != nil {
		return "", apiErr
	}

	if err := c.store.Put(ctx, key, token, ttl); err != nil {
		c.logger.Error(ctx, "Failed to cache provider token", "error", err.Error())
	}
	c.logger.Info(ctx, "Provider token refreshed", "ttl", ttl.String(), "token_fingerprint", crypto.Fingerprint(token))
	return token, nil
}

// Cached reports whether the store currently holds a token.
func (c *TokenCache) Cached(ctx context.Context) (bool, error) {
	return c.store.Has(ctx, c.cacheKey())
}

// Invalidate drops the cached token so the next GetToken authenticates again.
func (c *TokenCache) Invalidate(ctx context.Context) error {
	return c.store.Forget(ctx, c.cacheKey())
}

func (c *TokenCache) fetch(ctx context.Context) (string, time.Duration, *domain.APIError) {
	pcfg := c.cfg.Get().ParamEm
	creds := pcfg.Credentials()

	payload, err := json.Marshal(domain.TokenRequest{
		ClientCode: creds.ClientCode,
		Username:   creds.Username,
		Password:   creds.Password,
	})
	if err != nil {
		return "", 0, transportError(domain.MsgTokenRequestFailed, 0, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL(pcfg.BaseURL, pcfg.Prefix, TokenEndpoint), bytes.NewReader(payload))
	if err != nil {
		return "", 0, transportError(domain.MsgTokenRequestFailed, 0, err.Error())
	}
	setJSONHeaders(ctx, req)

	resp, err := c.doer.Do(req)
	if err != nil {
		c.metrics.IncTokenFetch(domain.OutcomeTransport)
		c.logger.Error(ctx, "Token request failed before a response was received", "error", err.Error())
		return "", 0, transportError(domain.MsgTokenRequestFailed, 0, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.IncTokenFetch(domain.OutcomeTransport)
		return "", 0, transportError(domain.MsgTokenRequestFailed, resp.StatusCode, err.Error())
	}

	var env domain.Envelope
	_ = json.Unmarshal(raw, &env) // an unparsable body fails the success check below

	var obj domain.TokenObject
	if env.Succeeded() && len(env.ResultObject) > 0 {
		if err := json.Unmarshal(env.ResultObject, &obj); err != nil {
			c.logger.Warn(ctx, "Token resultObject could not be decoded", "error", err.Error())
		}
	}

	if isSuccessStatus(resp.StatusCode) && env.Succeeded() && obj.AccessToken != "" {
		c.metrics.IncTokenFetch(domain.OutcomeSuccess)
		return obj.AccessToken, TokenTTL(obj.Lifetime()), nil
	}

	c.metrics.IncTokenFetch(domain.OutcomeProvider)
	message := env.Message()
	if message == "" {
		if isSuccessStatus(resp.StatusCode) {
			message = domain.MsgUnknownError
		} else {
			message = domain.MsgTokenRequestFailed
		}
	}
	c.logger.Warn(ctx, "Token endpoint rejected the credentials", "status", resp.StatusCode, "message", message)
	return "", 0, &domain.APIError{
		Kind:       domain.ErrorKindProvider,
		Message:    message,
		Status:     resp.StatusCode,
		Body:       rawBody(raw),
		ResultInfo: env.ResultInfo,
	}
}
