package domain

//go:generate mockgen -source=cache.go -destination=mocks/token_store_mock.go -package=mocks

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by TokenStore.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("token not found in cache")

// TokenStore is the key-value store with expiry that holds the provider bearer token.
// Implementations may be in-process or backed by an external cache service.
type TokenStore interface {
	// Has reports whether a non-expired value exists for key.
	Has(ctx context.Context, key string) (bool, error)

	// Get returns the value for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)

	// Put stores value under key. A zero ttl means the value is already expired
	// and implementations must not keep it.
	Put(ctx context.Context, key string, value string, ttl time.Duration) error

	// Forget removes key. Removing an absent key is not an error.
	Forget(ctx context.Context, key string) error
}
