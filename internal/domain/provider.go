package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// HTTPDoer is the transport the API client sends requests through.
// *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials authenticate the client against the provider's token endpoint.
type Credentials struct {
	ClientCode string
	Username   string
	Password   string
}

// TokenRequest is the body sent to Authorization/Token.
type TokenRequest struct {
	ClientCode string `json:"clientCode"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// DefaultTokenLifetime is assumed when the token endpoint omits expiresIn.
const DefaultTokenLifetime = 1200 // seconds

// TokenObject is the resultObject returned by Authorization/Token.
type TokenObject struct {
	AccessToken string          `json:"accessToken"`
	ExpiresIn   json.RawMessage `json:"expiresIn,omitempty"` // seconds, number or numeric string
}

// Lifetime returns expiresIn in seconds. Absent, null or unparsable values
// yield DefaultTokenLifetime.
func (o TokenObject) Lifetime() float64 {
	raw := bytes.TrimSpace(o.ExpiresIn)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return DefaultTokenLifetime
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultTokenLifetime
	}
	return v
}

// ResultInfo is the status half of the provider envelope. Fields other than
// isSuccess and message are kept in Extra so they survive a round trip.
type ResultInfo struct {
	IsSuccess bool
	Message   string
	Extra     map[string]json.RawMessage
}

func (ri *ResultInfo) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("resultInfo is not an object: %w", err)
	}
	*ri = ResultInfo{}
	if raw, ok := fields["isSuccess"]; ok {
		// Anything other than a JSON true counts as failure.
		_ = json.Unmarshal(raw, &ri.IsSuccess)
		delete(fields, "isSuccess")
	}
	if raw, ok := fields["message"]; ok {
		if err := json.Unmarshal(raw, &ri.Message); err != nil && !bytes.Equal(raw, []byte("null")) {
			ri.Message = string(raw)
		}
		delete(fields, "message")
	}
	if len(fields) > 0 {
		ri.Extra = fields
	}
	return nil
}

func (ri ResultInfo) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(ri.Extra)+2)
	for k, v := range ri.Extra {
		out[k] = v
	}
	out["isSuccess"] = ri.IsSuccess
	if ri.Message != "" {
		out["message"] = ri.Message
	}
	return json.Marshal(out)
}

// Envelope is the fixed response shape of every provider endpoint.
type Envelope struct {
	ResultInfo   *ResultInfo     `json:"resultInfo"`
	ResultObject json.RawMessage `json:"resultObject"`
}

// Succeeded reports whether the provider flagged the call as successful.
func (e *Envelope) Succeeded() bool {
	return e != nil && e.ResultInfo != nil && e.ResultInfo.IsSuccess
}

// Message returns the provider message, or "" when none was sent.
func (e *Envelope) Message() string {
	if e == nil || e.ResultInfo == nil {
		return ""
	}
	return e.ResultInfo.Message
}

// RequestSpec describes one call against a business endpoint.
// Params become the query string for GET and the JSON body for POST and PUT.
type RequestSpec struct {
	Endpoint string
	Method   string
	Params   map[string]any
}

// Result is the normalized outcome of a provider call. A successful Result
// carries Data and Info; a failed one carries Error, Status, Body and ResultInfo.
type Result struct {
	Success    bool
	Data       json.RawMessage
	Info       *ResultInfo
	Error      string
	Status     int
	Body       json.RawMessage
	ResultInfo *ResultInfo
	Kind       ErrorKind
}

type successShape struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Info    *ResultInfo     `json:"info"`
}

type failureShape struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error"`
	Status     int             `json:"status"`
	Body       json.RawMessage `json:"body"`
	ResultInfo *ResultInfo     `json:"resultInfo"`
}

// MarshalJSON emits exactly one of the two result shapes.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Success {
		data := r.Data
		if len(data) == 0 {
			data = json.RawMessage("{}")
		}
		info := r.Info
		if info == nil {
			info = &ResultInfo{IsSuccess: true}
		}
		return json.Marshal(successShape{Success: true, Data: data, Info: info})
	}
	body := r.Body
	if len(body) == 0 {
		body = json.RawMessage("null")
	}
	return json.Marshal(failureShape{Error: r.Error, Status: r.Status, Body: body, ResultInfo: r.ResultInfo})
}

// Decode unmarshals the result object of a successful Result into v.
func (r *Result) Decode(v any) error {
	if !r.Success {
		return fmt.Errorf("cannot decode failed result: %s", r.Error)
	}
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}
