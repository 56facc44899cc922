package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/paramem-service/internal/domain"
	"gitlab.com/timkado/api/paramem-service/pkg/crypto"
	"gitlab.com/timkado/api/paramem-service/pkg/rediskeys"
)

// TokenStoreAdapter implements domain.TokenStore on Redis. When an AES key is
// configured the token is sealed with AES-GCM before it is written.
type TokenStoreAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
	keyPrefix   string
	aesKeyHex   string
}

// NewTokenStoreAdapter creates a new instance of TokenStoreAdapter.
// aesKeyHex may be empty to store the token in clear.
func NewTokenStoreAdapter(redisClient *redis.Client, logger domain.Logger, keyPrefix, aesKeyHex string) (*TokenStoreAdapter, error) {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewTokenStoreAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewTokenStoreAdapter")
	}
	if aesKeyHex != "" {
		if err := crypto.ValidateKey(aesKeyHex); err != nil {
			return nil, fmt.Errorf("invalid cache.token_aes_key: %w", err)
		}
	}
	return &TokenStoreAdapter{
		redisClient: redisClient,
		logger:      logger,
		keyPrefix:   keyPrefix,
		aesKeyHex:   aesKeyHex,
	}, nil
}

func (a *TokenStoreAdapter) redisKey(key string) string {
	return rediskeys.TokenKey(a.keyPrefix, key)
}

// Has reports whether the token key exists. Redis drops keys on expiry, so existence implies validity.
func (a *TokenStoreAdapter) Has(ctx context.Context, key string) (bool, error) {
	rk := a.redisKey(key)
	n, err := a.redisClient.Exists(ctx, rk).Result()
	if err != nil {
		a.logger.Error(ctx, "Failed to check token key in Redis", "key", rk, "error", err.Error())
		return false, fmt.Errorf("redis EXISTS for token key '%s' failed: %w", rk, err)
	}
	return n > 0, nil
}

// Get retrieves the token, returning domain.ErrCacheMiss when absent.
func (a *TokenStoreAdapter) Get(ctx context.Context, key string) (string, error) {
	rk := a.redisKey(key)
	val, err := a.redisClient.Get(ctx, rk).Result()
	if errors.Is(err, redis.Nil) {
		a.logger.Debug(ctx, "Provider token cache miss", "key", rk)
		return "", domain.ErrCacheMiss
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get provider token from Redis cache", "key", rk, "error", err.Error())
		return "", fmt.Errorf("redis GET for token key '%s' failed: %w", rk, err)
	}

	if a.aesKeyHex == "" {
		return val, nil
	}
	plain, err := crypto.DecryptAESGCM(a.aesKeyHex, val)
	if err != nil {
		// A value sealed with a rotated key is useless; treat it as a miss so a fresh token is fetched.
		a.logger.Warn(ctx, "Cached provider token could not be decrypted, treating as miss", "key", rk, "error", err.Error())
		return "", domain.ErrCacheMiss
	}
	return string(plain), nil
}

// Put stores the token with the given TTL. A non-positive TTL deletes the key instead.
func (a *TokenStoreAdapter) Put(ctx context.Context, key string, value string, ttl time.Duration) error {
	rk := a.redisKey(key)
	if ttl <= 0 {
		a.logger.Debug(ctx, "Non-positive TTL for provider token, not caching", "key", rk)
		return a.Forget(ctx, key)
	}

	payload := value
	if a.aesKeyHex != "" {
		sealed, err := crypto.EncryptAESGCM(a.aesKeyHex, []byte(value))
		if err != nil {
			a.logger.Error(ctx, "Failed to seal provider token for caching", "key", rk, "error", err.Error())
			return fmt.Errorf("failed to seal token for key '%s': %w", rk, err)
		}
		payload = sealed
	}

	if err := a.redisClient.Set(ctx, rk, payload, ttl).Err(); err != nil {
		a.logger.Error(ctx, "Failed to set provider token in Redis cache", "key", rk, "error", err.Error())
		return fmt.Errorf("redis SET for token key '%s' failed: %w", rk, err)
	}

	a.logger.Debug(ctx, "Successfully cached provider token", "key", rk, "ttl", ttl.String(), "token_fingerprint", crypto.Fingerprint(value))
	return nil
}

// Forget deletes the token key.
func (a *TokenStoreAdapter) Forget(ctx context.Context, key string) error {
	rk := a.redisKey(key)
	if err := a.redisClient.Del(ctx, rk).Err(); err != nil {
		a.logger.Error(ctx, "Failed to delete provider token from Redis cache", "key", rk, "error", err.Error())
		return fmt.Errorf("redis DEL for token key '%s' failed: %w", rk, err)
	}
	return nil
}
