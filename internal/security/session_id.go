package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const sessionIDBytes = 32

// SessionIDGenerator issues cookie values and derives the key stored in the
// session_id column from them.
type SessionIDGenerator interface {
	Generate() (string, error)
	// StorageKey returns the value persisted for the given cookie value.
	StorageKey(cookieValue string) string
}

type randomSessionIDs struct {
	hash bool
}

// NewSessionIDGenerator returns a crypto/rand backed generator. When hash is
// set the stored key is the SHA-256 of the cookie value, so a leaked table
// does not yield usable cookies.
func NewSessionIDGenerator(hash bool) SessionIDGenerator {
	return &randomSessionIDs{hash: hash}
}

func (g *randomSessionIDs) Generate() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (g *randomSessionIDs) StorageKey(cookieValue string) string {
	if !g.hash {
		return cookieValue
	}
	return Hash(cookieValue)
}

// Hash returns the hex encoded SHA-256 of value.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// ValidSessionID reports whether a cookie value has the shape Generate produces.
func ValidSessionID(value string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	return err == nil && len(raw) == sessionIDBytes
}
