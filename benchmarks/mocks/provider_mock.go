package mocks

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

const (
	tokenEnvelope   = `{"resultInfo":{"isSuccess":true,"message":"OK"},"resultObject":{"accessToken":"bench-token","expiresIn":1200}}`
	successEnvelope = `{"resultInfo":{"isSuccess":true,"message":"OK"},"resultObject":{"commission":"1.50","transferableAmount":"900.00"}}`
	failureEnvelope = `{"resultInfo":{"isSuccess":false,"message":"Insufficient funds"},"resultObject":null}`
)

// MockProviderDoer answers provider calls in process so benchmarks measure
// the client rather than the network.
type MockProviderDoer struct {
	// FailBusiness makes every business call report an HTTP 200 business failure.
	FailBusiness bool

	tokenCalls    int64
	businessCalls int64
}

// NewMockProviderDoer creates a doer that always succeeds.
func NewMockProviderDoer() *MockProviderDoer {
	return &MockProviderDoer{}
}

// Do implements domain.HTTPDoer.
func (m *MockProviderDoer) Do(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
		_ = req.Body.Close()
	}

	body := successEnvelope
	switch {
	case strings.HasSuffix(req.URL.Path, "/Authorization/Token"):
		atomic.AddInt64(&m.tokenCalls, 1)
		body = tokenEnvelope
	case m.FailBusiness:
		atomic.AddInt64(&m.businessCalls, 1)
		body = failureEnvelope
	default:
		atomic.AddInt64(&m.businessCalls, 1)
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Request:    req,
	}, nil
}

// GetMetrics returns the number of token and business calls served.
func (m *MockProviderDoer) GetMetrics() (tokenCalls, businessCalls int64) {
	return atomic.LoadInt64(&m.tokenCalls), atomic.LoadInt64(&m.businessCalls)
}
