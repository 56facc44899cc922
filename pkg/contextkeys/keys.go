package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// OperationKey carries the transfer operation being executed (commission, transferable, eft).
	OperationKey contextKey = "operation"

	// EndpointKey carries the provider endpoint path of the outgoing call.
	EndpointKey contextKey = "endpoint"

	// AccountIDKey carries the provider account the operation acts on.
	AccountIDKey contextKey = "account_id"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
