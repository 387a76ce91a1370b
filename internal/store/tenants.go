package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gptstore/gptstore/internal/model"
)

// ---------------------------------------------------------------------------
// Tenants
// ---------------------------------------------------------------------------

// CreateTenant inserts a tenant. CreatedAt is filled in.
func (s *Store) CreateTenant(ctx context.Context, t *model.Tenant) error {
	t.CreatedAt = now()
	q := s.db.Rebind(`INSERT INTO gpts (id, name, created_at) VALUES (?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, t.ID, t.Name, t.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant %q: %w", t.ID, ErrConflict)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// GetTenant fetches a tenant by ID.
func (s *Store) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	q := s.db.Rebind(`SELECT id, name, created_at FROM gpts WHERE id = ?`)
	if err := s.db.GetContext(ctx, &t, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// ListTenants returns all tenants, oldest first. CLI-only surface.
func (s *Store) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	var ts []model.Tenant
	err := s.db.SelectContext(ctx, &ts, `SELECT id, name, created_at FROM gpts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return ts, nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// CreateAPIKey inserts a stored credential. Only the hash ever reaches this
// layer; the plaintext secret is not representable here.
func (s *Store) CreateAPIKey(ctx context.Context, k *model.APIKey) error {
	k.CreatedAt = now()
	q := s.db.Rebind(`INSERT INTO api_keys (key_hash, key_prefix, tenant_id, label, is_active, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q, k.KeyHash, k.KeyPrefix, k.TenantID, k.Label, k.IsActive, k.ExpiresAt, k.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// GetAPIKeyByHash looks up a stored credential by the hash of the presented
// secret. This is the credential lookup on the request hot path.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var k model.APIKey
	q := s.db.Rebind(`SELECT key_hash, key_prefix, tenant_id, label, is_active, expires_at, created_at, last_used
		FROM api_keys WHERE key_hash = ?`)
	if err := s.db.GetContext(ctx, &k, q, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return &k, nil
}

// UpdateAPIKeyLastUsed records the best-effort last_used timestamp. The
// resolver calls this fire-and-forget; it is not transactionally tied to the
// request that triggered it.
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, hash string, at time.Time) error {
	q := s.db.Rebind(`UPDATE api_keys SET last_used = ? WHERE key_hash = ?`)
	_, err := s.db.ExecContext(ctx, q, at.UTC(), hash)
	return err
}

// RevokeAPIKey deactivates all keys with the given prefix.
func (s *Store) RevokeAPIKey(ctx context.Context, prefix string) error {
	q := s.db.Rebind(`UPDATE api_keys SET is_active = FALSE WHERE key_prefix = ?`)
	res, err := s.db.ExecContext(ctx, q, prefix)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAPIKeys returns a tenant's keys, newest first.
func (s *Store) ListAPIKeys(ctx context.Context, tenantID string) ([]model.APIKey, error) {
	var ks []model.APIKey
	q := s.db.Rebind(`SELECT key_hash, key_prefix, tenant_id, label, is_active, expires_at, created_at, last_used
		FROM api_keys WHERE tenant_id = ? ORDER BY created_at DESC`)
	if err := s.db.SelectContext(ctx, &ks, q, tenantID); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return ks, nil
}

// isUniqueViolation sniffs driver-specific unique constraint errors. The
// three supported drivers phrase them differently and none exposes a portable
// error type.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "constraint failed")
}
