package httpclient

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
	"gitlab.com/timkado/api/paramem-service/internal/domain"
)

// New builds the provider transport: a cookie jar shared by the token and
// business calls, and the configured timeout. Request and response bodies are
// never logged.
func New(cfgProvider config.Provider, logger domain.Logger) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &http.Client{
		Jar:     jar,
		Timeout: cfgProvider.Get().ParamEm.Timeout(),
		Transport: &loggingRoundTripper{
			rt:     http.DefaultTransport,
			logger: logger.With("component", "provider_transport"),
		},
	}, nil
}

type loggingRoundTripper struct {
	rt     http.RoundTripper
	logger domain.Logger
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.rt.RoundTrip(req)
	if err != nil {
		l.logger.Debug(req.Context(), "Provider round trip failed", "method", req.Method, "path", req.URL.Path, "duration", time.Since(start).String(), "error", err.Error())
		return nil, err
	}
	l.logger.Debug(req.Context(), "Provider round trip", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start).String())
	return resp, nil
}
