package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
)

func TestGenerateChallenge(t *testing.T) {
	t.Run("Challenge Derivation", func(t *testing.T) {
		verifier, challenge, err := GenerateChallenge()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		sum := sha256.Sum256([]byte(verifier))
		want := base64.RawURLEncoding.EncodeToString(sum[:])
		if challenge != want {
			t.Errorf("challenge = %s, want %s", challenge, want)
		}
	})

	t.Run("Encoding", func(t *testing.T) {
		verifier, challenge, err := GenerateChallenge()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		for _, s := range []string{verifier, challenge} {
			if strings.ContainsAny(s, "+/=") {
				t.Errorf("expected url-safe unpadded base64, got %s", s)
			}
		}

		decoded, err := base64.RawURLEncoding.DecodeString(verifier)
		if err != nil {
			t.Fatalf("verifier is not valid base64url: %v", err)
		}
		if len(decoded) < 96 {
			t.Errorf("expected at least 96 bytes of entropy, got %d", len(decoded))
		}
	})

	t.Run("Uniqueness", func(t *testing.T) {
		a, _, err := GenerateChallenge()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		b, _, err := GenerateChallenge()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if a == b {
			t.Error("expected distinct verifiers")
		}
	})

	t.Run("Concurrent Use", func(t *testing.T) {
		var wg sync.WaitGroup
		seen := sync.Map{}

		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, _, err := GenerateChallenge()
				if err != nil {
					t.Errorf("expected no error, got %v", err)
					return
				}
				if _, dup := seen.LoadOrStore(v, true); dup {
					t.Errorf("duplicate verifier %s", v)
				}
			}()
		}
		wg.Wait()
	})
}
