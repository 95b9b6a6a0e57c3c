package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// BeanKey is the storage key of a passivated bean: "bean:<ns>:<id>".
func BeanKey(ns, id string) string {
	return "bean:" + ns + ":" + id
}

// Redact returns a short stable digest of k (first 16 hex chars of SHA-256),
// for logging ids without exposing them.
func Redact(k string) string {
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}
