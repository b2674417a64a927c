package utils

import (
	"crypto/sha1"
	"encoding/hex"
)

// MakeMap creates and returns a map[string]string containing a single key-value pair.
func MakeMap(key, value string) map[string]string {
	return map[string]string{key: value}
}

// HashURL returns the hex SHA-1 of a URL, used to name cached downloads.
func HashURL(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}
