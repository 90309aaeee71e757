// Package auth handles password hashing and browser sessions.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword returns the SHA-256 hex digest of a password. The digest
// format matches the existing stored user data and cannot change without
// a migration.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword checks a password against a stored hash in constant
// time.
func VerifyPassword(password, passwordHash string) bool {
	computed := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(passwordHash)) == 1
}
