// Package auth provides API key authentication for admin endpoints.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for any failed key verification. It is
// deliberately uniform so callers cannot distinguish unknown keys from
// malformed ones.
var ErrUnauthorized = errors.New("unauthorized")

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashKey computes the HMAC-SHA256 hex digest of a raw API key under the
// given pepper. Keys are stored and looked up by this digest only; the raw
// key never touches the database.
func HashKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier authenticates raw API keys against the repository.
type Verifier struct {
	apikeys Repository
	pepper  []byte
}

// NewVerifier creates a Verifier with the given repository and HMAC pepper.
func NewVerifier(apikeys Repository, pepper []byte) *Verifier {
	return &Verifier{apikeys: apikeys, pepper: pepper}
}

// Verify authenticates a raw API key by computing its HMAC-SHA256, looking
// it up, and performing a constant-time comparison to prevent timing
// attacks. Returns ErrUnauthorized on any failure.
func (v *Verifier) Verify(ctx context.Context, rawKey string) (*APIKeyInfo, error) {
	if rawKey == "" {
		return nil, ErrUnauthorized
	}

	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(rawKey))
	hash := mac.Sum(nil)

	info, err := v.apikeys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return nil, ErrUnauthorized
	}

	// Constant-time comparison guards against timing side-channels even
	// though the lookup already succeeded: the stored hash could differ
	// from what we computed if the repository returns a stale/wrong row.
	storedBytes, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
		return nil, ErrUnauthorized
	}

	return info, nil
}
