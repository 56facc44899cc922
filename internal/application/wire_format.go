package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitlab.com/timkado/api/paramem-service/internal/domain"
	"gitlab.com/timkado/api/paramem-service/pkg/contextkeys"
)

const requestIDHeader = "X-Request-ID"

// endpointURL joins base URL, prefix and endpoint with exactly one slash after the host part.
func endpointURL(baseURL, prefix, endpoint string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(prefix+endpoint, "/")
}

func setJSONHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	requestID, _ := ctx.Value(contextkeys.RequestIDKey).(string)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(requestIDHeader, requestID)
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}

// rawBody keeps a JSON response as is and wraps anything else as a JSON string.
func rawBody(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}

// rawFailure is the body attached to transport errors: {"raw": "<message>"}.
func rawFailure(message string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"raw": message})
	return b
}

func transportError(message string, status int, raw string) *domain.APIError {
	return &domain.APIError{
		Kind:    domain.ErrorKindTransport,
		Message: message,
		Status:  status,
		Body:    rawFailure(raw),
	}
}

// encodeQuery renders params as a query string. Nil values are skipped,
// slices repeat the key. Keys come out sorted.
func encodeQuery(params map[string]any) string {
	values := url.Values{}
	for k, v := range params {
		switch tv := v.(type) {
		case nil:
			continue
		case []string:
			for _, s := range tv {
				values.Add(k, s)
			}
		case []any:
			for _, s := range tv {
				values.Add(k, queryValue(s))
			}
		default:
			values.Set(k, queryValue(tv))
		}
	}
	return values.Encode()
}

func queryValue(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case bool:
		return strconv.FormatBool(tv)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case json.Number:
		return tv.String()
	case fmt.Stringer:
		return tv.String()
	default:
		return fmt.Sprint(tv)
	}
}

type nopMetrics struct{}

func (nopMetrics) ObserveProviderRequest(string, string, string, time.Duration) {}
func (nopMetrics) IncTokenFetch(string)                                         {}
func (nopMetrics) IncTokenCacheHit()                                            {}
