package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// ActionTokenBytes is the entropy of single-use action tokens (email
// verification, password reset, role change). The hex form is 40 characters.
const ActionTokenBytes = 20

// GenerateActionToken returns a random hex token and the sha256 digest that
// gets persisted. The raw token is only ever sent to the user.
func GenerateActionToken() (token string, digest string, err error) {
	buf := make([]byte, ActionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, HashActionToken(token), nil
}

// HashActionToken returns the hex sha256 digest of a raw token.
func HashActionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenMatches compares a raw token against a stored digest in constant time.
func TokenMatches(token, storedDigest string) bool {
	computed := HashActionToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}
