package application

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"gitlab.com/timkado/api/paramem-service/internal/adapters/config"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/logger"
	"gitlab.com/timkado/api/paramem-service/internal/adapters/memory"
)

// recordedRequest is what fakeProvider saw for one business call.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// fakeProvider serves the token endpoint and any number of business endpoints.
type fakeProvider struct {
	t      *testing.T
	server *httptest.Server

	tokenCalls atomic.Int32
	tokenReply func(w http.ResponseWriter)
	tokenReqs  []recordedRequest

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []recordedRequest
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{
		t:        t,
		handlers: make(map[string]http.HandlerFunc),
	}
	fp.tokenReply = func(w http.ResponseWriter) {
		writeEnvelope(w, http.StatusOK, true, "", map[string]any{"accessToken": "abc", "expiresIn": 1200})
	}
	fp.server = httptest.NewServer(http.HandlerFunc(fp.serve))
	t.Cleanup(fp.server.Close)
	return fp
}

func (fp *fakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if r.URL.Path == "/api/"+TokenEndpoint {
		fp.mu.Lock()
		fp.tokenReqs = append(fp.tokenReqs, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		fp.mu.Unlock()
		fp.tokenCalls.Add(1)
		fp.tokenReply(w)
		return
	}

	fp.mu.Lock()
	fp.requests = append(fp.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	h, ok := fp.handlers[r.URL.Path]
	fp.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (fp *fakeProvider) handle(endpoint string, h http.HandlerFunc) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.handlers["/api/"+endpoint] = h
}

func (fp *fakeProvider) lastRequest() recordedRequest {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	if len(fp.requests) == 0 {
		fp.t.Fatal("no business request recorded")
	}
	return fp.requests[len(fp.requests)-1]
}

func (fp *fakeProvider) lastTokenRequest() recordedRequest {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	if len(fp.tokenReqs) == 0 {
		fp.t.Fatal("no token request recorded")
	}
	return fp.tokenReqs[len(fp.tokenReqs)-1]
}

func (fp *fakeProvider) requestCount() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return len(fp.requests)
}

func writeEnvelope(w http.ResponseWriter, status int, ok bool, message string, object any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	info := map[string]any{"isSuccess": ok}
	if message != "" {
		info["message"] = message
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"resultInfo": info, "resultObject": object})
}

func testParamEmConfig(baseURL string) config.ParamEmConfig {
	return config.ParamEmConfig{
		BaseURL:    baseURL,
		ClientCode: "C1",
		Username:   "u",
		Password:   "p",
		AccountID:  "42",
		Prefix:     "api/",
	}
}

// testStack wires a TokenCache and APIClient against fp using the in-memory store.
type testStack struct {
	store  *memory.TokenStore
	tokens *TokenCache
	client *APIClient
}

func newTestStack(t *testing.T, fp *fakeProvider, mutate func(*config.ParamEmConfig)) *testStack {
	t.Helper()
	pcfg := testParamEmConfig(fp.server.URL)
	if mutate != nil {
		mutate(&pcfg)
	}
	cfg := config.NewStatic(config.Config{ParamEm: pcfg})
	store := memory.NewTokenStore()
	log := logger.NewNop()

	tokens := NewTokenCache(cfg, fp.server.Client(), store, log, nil)
	return &testStack{
		store:  store,
		tokens: tokens,
		client: NewAPIClient(cfg, tokens, fp.server.Client(), log, nil),
	}
}
