package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
	"gitlab.com/timkado/api/paramem-service/internal/domain"
	"gitlab.com/timkado/api/paramem-service/pkg/contextkeys"
)

// APIClient sends authenticated requests to the provider and normalizes the
// envelope into a domain.Result.
//
// Failures take one of two forms, fixed when the client is built from
// paramem.throw_exceptions: a failure Result with a nil error, or a nil Result
// with a *domain.APIError. Token failures follow the same rule.
type APIClient struct {
	cfg     config.Provider
	tokens  *TokenCache
	doer    domain.HTTPDoer
	logger  domain.Logger
	metrics domain.MetricsRecorder
	throw   bool
}

// NewAPIClient creates an APIClient. metrics may be nil.
func NewAPIClient(cfg config.Provider, tokens *TokenCache, doer domain.HTTPDoer, logger domain.Logger, metrics domain.MetricsRecorder) *APIClient {
	if cfg == nil {
		panic("config provider is nil in NewAPIClient")
	}
	if tokens == nil {
		panic("token cache is nil in NewAPIClient")
	}
	if doer == nil {
		panic("http doer is nil in NewAPIClient")
	}
	if logger == nil {
		panic("logger is nil in NewAPIClient")
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &APIClient{
		cfg:     cfg,
		tokens:  tokens,
		doer:    doer,
		logger:  logger.With("component", "api_client"),
		metrics: metrics,
		throw:   cfg.Get().ParamEm.ThrowExceptions,
	}
}

// ThrowsErrors reports whether failures are returned as errors rather than failure Results.
func (c *APIClient) ThrowsErrors() bool {
	return c.throw
}

// Settings returns the active provider settings with the password masked.
func (c *APIClient) Settings() config.ParamEmConfig {
	return c.cfg.Get().ParamEm.Redacted()
}

// Tokens exposes the token cache backing this client.
func (c *APIClient) Tokens() *TokenCache {
	return c.tokens
}

// Request calls endpoint with the given method and params.
func (c *APIClient) Request(ctx context.Context, endpoint, method string, params map[string]any) (*domain.Result, error) {
	return c.Do(ctx, domain.RequestSpec{Endpoint: endpoint, Method: method, Params: params})
}

// Do executes spec and applies the client's error mode to any failure.
func (c *APIClient) Do(ctx context.Context, spec domain.RequestSpec) (*domain.Result, error) {
	result, apiErr := c.execute(ctx, spec)
	if apiErr != nil {
		return c.formatError(apiErr)
	}
	return result, nil
}

// formatError is the single exit for failures.
func (c *APIClient) formatError(apiErr *domain.APIError) (*domain.Result, error) {
	if c.throw {
		return nil, apiErr
	}
	return apiErr.Result(), nil
}

func (c *APIClient) execute(ctx context.Context, spec domain.RequestSpec) (*domain.Result, *domain.APIError) {
	ctx = context.WithValue(ctx, contextkeys.EndpointKey, spec.Endpoint)
	pcfg := c.cfg.Get().ParamEm

	token, err := c.tokens.GetToken(ctx, pcfg.ForceTokenReload)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, transportError(domain.MsgTokenRequestFailed, 0, err.Error())
	}

	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}

	target := endpointURL(pcfg.BaseURL, pcfg.Prefix, spec.Endpoint)
	var body io.Reader
	switch method {
	case http.MethodPost, http.MethodPut:
		params := spec.Params
		if params == nil {
			params = map[string]any{}
		}
		payload, err := json.Marshal(params)
		if err != nil {
			return nil, transportError(domain.MsgRequestFailed, 0, err.Error())
		}
		body = bytes.NewReader(payload)
	case http.MethodGet:
		if q := encodeQuery(spec.Params); q != "" {
			target += "?" + q
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, transportError(domain.MsgRequestFailed, 0, err.Error())
	}
	setJSONHeaders(ctx, req)
	req.Header.Set("Authorization", "Bearer "+token)

	c.logger.Debug(ctx, "Sending provider request", "method", method)
	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		c.metrics.ObserveProviderRequest(spec.Endpoint, method, domain.OutcomeTransport, time.Since(start))
		c.logger.Error(ctx, "Provider request failed before a response was received", "method", method, "error", err.Error())
		return nil, transportError(domain.MsgRequestFailed, 0, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveProviderRequest(spec.Endpoint, method, domain.OutcomeTransport, time.Since(start))
		c.logger.Error(ctx, "Failed to read provider response body", "status", resp.StatusCode, "error", err.Error())
		return nil, transportError(domain.MsgRequestFailed, resp.StatusCode, err.Error())
	}
	elapsed := time.Since(start)

	var env domain.Envelope
	_ = json.Unmarshal(raw, &env) // non-JSON bodies leave env empty and fail the success check

	status := resp.StatusCode
	if status >= http.StatusBadRequest {
		message := env.Message()
		if message == "" {
			message = domain.MsgRequestFailed
		}
		c.metrics.ObserveProviderRequest(spec.Endpoint, method, domain.OutcomeProvider, elapsed)
		c.logger.Warn(ctx, "Provider returned an HTTP error", "status", status, "message", message)
		return nil, &domain.APIError{
			Kind:       domain.ErrorKindProvider,
			Message:    message,
			Status:     status,
			Body:       rawBody(raw),
			ResultInfo: env.ResultInfo,
		}
	}

	if !env.Succeeded() {
		message := env.Message()
		if message == "" {
			message = http.StatusText(status)
		}
		if message == "" {
			message = domain.MsgUnknownAPIError
		}
		c.metrics.ObserveProviderRequest(spec.Endpoint, method, domain.OutcomeProvider, elapsed)
		c.logger.Warn(ctx, "Provider reported failure", "status", status, "message", message)
		return nil, &domain.APIError{
			Kind:       domain.ErrorKindProvider,
			Message:    message,
			Status:     status,
			Body:       rawBody(raw),
			ResultInfo: env.ResultInfo,
		}
	}

	data := env.ResultObject
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		data = json.RawMessage("{}")
	}
	c.metrics.ObserveProviderRequest(spec.Endpoint, method, domain.OutcomeSuccess, elapsed)
	c.logger.Debug(ctx, "Provider request succeeded", "status", status, "duration", elapsed.String())
	return &domain.Result{
		Success: true,
		Data:    data,
		Info:    env.ResultInfo,
		Status:  status,
	}, nil
}
