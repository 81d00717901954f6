package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// verifierBytes is the amount of entropy behind each code verifier. RFC 7636
// allows 32-96 octets; we use the maximum.
const verifierBytes = 96

// GenerateChallenge produces a fresh PKCE code verifier and its S256
// challenge. The verifier is URL-safe base64 without padding of random bytes;
// the challenge is URL-safe base64 without padding of SHA-256(verifier).
//
// Safe for concurrent use.
func GenerateChallenge() (verifier, challenge string, err error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}

	verifier = base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])

	return verifier, challenge, nil
}
