package rediskeys

import (
	"fmt"
)

// DefaultPrefix namespaces every key this service writes.
const DefaultPrefix = "paramem"

// TokenKey generates the Redis key holding the cached provider bearer token.
// An empty prefix falls back to DefaultPrefix.
func TokenKey(prefix, cacheKey string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s:token:%s", prefix, cacheKey)
}
