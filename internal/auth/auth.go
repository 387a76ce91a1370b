// Package auth resolves bearer credentials into tenant principals.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gptstore/gptstore/internal/model"
	"github.com/gptstore/gptstore/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrKeyRevoked         = errors.New("api key revoked")
	ErrKeyExpired         = errors.New("api key expired")
	// ErrUnsupportedCredential marks a recognized credential kind that has no
	// resolver yet (structured issuer tokens). Distinct from invalid so the
	// oauth branch can be filled in without touching call sites.
	ErrUnsupportedCredential = errors.New("unsupported credential kind")
)

// Resolver turns the Authorization header of a request into a Principal.
type Resolver struct {
	store  *store.Store
	logger *slog.Logger
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(st *store.Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: st, logger: logger}
}

// Resolve validates an Authorization header value and returns the caller's
// Principal. The credential lookup is the only I/O; the opportunistic
// last_used write happens off the request path and can never fail the
// request.
func (r *Resolver) Resolve(ctx context.Context, header string) (*model.Principal, error) {
	token, err := bearerToken(header)
	if err != nil {
		return nil, err
	}

	// Kind dispatch by token shape. Adding a credential kind means adding a
	// case here; the Principal shape and every downstream consumer stay as
	// they are.
	switch classify(token) {
	case model.CredentialAPIKey:
		return r.resolveAPIKey(ctx, token)
	case model.CredentialOAuth:
		return nil, ErrUnsupportedCredential
	}
	return nil, ErrInvalidCredentials
}

func (r *Resolver) resolveAPIKey(ctx context.Context, token string) (*model.Principal, error) {
	hash := HashKey(token)

	key, err := r.store.GetAPIKeyByHash(ctx, hash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !key.IsActive {
		return nil, ErrKeyRevoked
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return nil, ErrKeyExpired
	}

	// Update last used timestamp (fire and forget).
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.store.UpdateAPIKeyLastUsed(ctx, hash, time.Now()); err != nil {
			r.logger.Debug("last_used update failed", "key_prefix", key.KeyPrefix, "error", err)
		}
	}()

	return &model.Principal{
		TenantID:       key.TenantID,
		Kind:           model.CredentialAPIKey,
		KeyFingerprint: hash,
	}, nil
}

// bearerToken extracts the credential from an Authorization header. The
// scheme is case-sensitive and exactly one space separates it from the token.
func bearerToken(header string) (string, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" || strings.HasPrefix(token, " ") {
		return "", ErrInvalidCredentials
	}
	return token, nil
}

// classify infers the credential kind from the token shape. Three dot-joined
// non-empty segments look like an issuer token; everything else is treated as
// an API key.
func classify(token string) model.CredentialKind {
	parts := strings.Split(token, ".")
	if len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != "" {
		return model.CredentialOAuth
	}
	return model.CredentialAPIKey
}

// HashKey is the one-way hash used to store and look up API keys. The
// plaintext secret never reaches storage.
func HashKey(rawKey string) string {
	h := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(h[:])
}

// GenerateKey creates a new random API key and its identifying prefix. The
// raw key is shown to the operator exactly once at creation time.
func GenerateKey() (raw, prefix string) {
	buf := make([]byte, 32)
	rand.Read(buf)
	raw = "gptsk_" + base64.RawURLEncoding.EncodeToString(buf)
	return raw, raw[:12]
}
