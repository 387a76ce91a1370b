package model

import "time"

// APIKey represents an issued credential for a tenant. The raw key is never
// stored; only a SHA-256 hash and a short prefix for identification are
// persisted.
type APIKey struct {
	KeyHash   string     `json:"-" db:"key_hash"`            // SHA-256 hex, never expose
	KeyPrefix string     `json:"key_prefix" db:"key_prefix"` // Short leading slice for identification
	TenantID  string     `json:"tenant_id" db:"tenant_id"`
	Label     string     `json:"label" db:"label"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty" db:"last_used"`
}
