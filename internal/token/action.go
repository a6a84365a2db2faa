package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// actionTokenBytes is the entropy of a generated action token.
const actionTokenBytes = 32

// NewActionToken generates a single-use action token. The raw value is
// returned once for inclusion in an email link; only the hash is ever
// persisted.
func NewActionToken() (raw, hash string, err error) {
	buf := make([]byte, actionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("token: generate action token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashActionToken(raw), nil
}

// HashActionToken derives the stored form of a raw action token. Lookups go
// through the hash so a database leak does not expose usable tokens.
func HashActionToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// EqualHashes compares two token hashes in constant time.
func EqualHashes(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
