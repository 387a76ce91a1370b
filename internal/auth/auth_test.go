package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gptstore/gptstore/internal/model"
	"github.com/gptstore/gptstore/internal/store"
)

func newTestResolver(t *testing.T) (*Resolver, *store.Store) {
	t.Helper()
	st, err := store.Open("sqlite", "")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResolver(st, logger), st
}

func seedKey(t *testing.T, st *store.Store, tenantID string, k *model.APIKey) string {
	t.Helper()
	ctx := context.Background()
	if err := st.CreateTenant(ctx, &model.Tenant{ID: tenantID, Name: tenantID}); err != nil && !errors.Is(err, store.ErrConflict) {
		t.Fatalf("CreateTenant: %v", err)
	}
	raw, prefix := GenerateKey()
	k.KeyHash = HashKey(raw)
	k.KeyPrefix = prefix
	k.TenantID = tenantID
	if err := st.CreateAPIKey(ctx, k); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return raw
}

func TestResolveAPIKey(t *testing.T) {
	r, st := newTestResolver(t)
	raw := seedKey(t, st, "gpt-42", &model.APIKey{IsActive: true})

	p, err := r.Resolve(context.Background(), "Bearer "+raw)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.TenantID != "gpt-42" {
		t.Errorf("tenant: got %q, want gpt-42", p.TenantID)
	}
	if p.Kind != model.CredentialAPIKey {
		t.Errorf("kind: got %q", p.Kind)
	}
	if p.KeyFingerprint == "" || p.KeyFingerprint == raw {
		t.Error("fingerprint must be set and must not be the plaintext key")
	}
}

func TestResolveMalformedHeaders(t *testing.T) {
	r, st := newTestResolver(t)
	raw := seedKey(t, st, "gpt-42", &model.APIKey{IsActive: true})

	cases := []string{
		"",
		raw,                // no scheme
		"bearer " + raw,    // lowercase scheme
		"Bearer",           // no token
		"Bearer ",          // empty token
		"Bearer  " + raw,   // double space
		"Basic " + raw,     // wrong scheme
		"Bearer wrong-key", // unknown credential
	}
	for _, header := range cases {
		if _, err := r.Resolve(context.Background(), header); err == nil {
			t.Errorf("Resolve(%q): expected error", header)
		}
	}
}

func TestResolveRevokedAndExpired(t *testing.T) {
	r, st := newTestResolver(t)

	revoked := seedKey(t, st, "gpt-42", &model.APIKey{IsActive: false})
	if _, err := r.Resolve(context.Background(), "Bearer "+revoked); !errors.Is(err, ErrKeyRevoked) {
		t.Errorf("revoked: got %v, want ErrKeyRevoked", err)
	}

	past := time.Now().Add(-time.Hour)
	expired := seedKey(t, st, "gpt-42", &model.APIKey{IsActive: true, ExpiresAt: &past})
	if _, err := r.Resolve(context.Background(), "Bearer "+expired); !errors.Is(err, ErrKeyExpired) {
		t.Errorf("expired: got %v, want ErrKeyExpired", err)
	}
}

func TestResolveOAuthShapedTokenReserved(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.Resolve(context.Background(), "Bearer aaa.bbb.ccc")
	if !errors.Is(err, ErrUnsupportedCredential) {
		t.Errorf("got %v, want ErrUnsupportedCredential", err)
	}
}

func TestGenerateKeyShape(t *testing.T) {
	raw, prefix := GenerateKey()
	if !strings.HasPrefix(raw, "gptsk_") {
		t.Errorf("key prefix: got %q", raw[:6])
	}
	if !strings.HasPrefix(raw, prefix) || len(prefix) != 12 {
		t.Errorf("identifying prefix: got %q", prefix)
	}
	if strings.Contains(raw, ".") {
		t.Error("generated keys must never look like issuer tokens")
	}
	if other, _ := GenerateKey(); other == raw {
		t.Error("keys must be random")
	}
}

func TestLastUsedRecordedEventually(t *testing.T) {
	r, st := newTestResolver(t)
	raw := seedKey(t, st, "gpt-42", &model.APIKey{IsActive: true})

	if _, err := r.Resolve(context.Background(), "Bearer "+raw); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// The write is fire-and-forget; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		k, err := st.GetAPIKeyByHash(context.Background(), HashKey(raw))
		if err != nil {
			t.Fatalf("GetAPIKeyByHash: %v", err)
		}
		if k.LastUsed != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("last_used was never recorded")
}
