package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SHA256Hex returns the hex-encoded SHA-256 digest of s. Used for the
// device's lastkey fingerprint and for OTT token generation.
func SHA256Hex(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TimestampToken generates an unguessable token by hashing the current
// timestamp together with random salt.
func TimestampToken() string {
	salt := make([]byte, 16)
	_, _ = rand.Read(salt)
	return SHA256Hex(time.Now().UTC().String() + hex.EncodeToString(salt))
}
