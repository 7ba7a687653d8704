package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func Key(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return fmt.Sprintf("%s:%s", prefix, hash(data))
}

// hash computes the full 64-character hex SHA-256 of data. Full length to
// prevent collisions.
func hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
