package model

import "time"

// Tenant is an isolated owner of collections and objects. Externally a tenant
// is a calling GPT identity; its ID appears in every resource path and every
// storage query.
type Tenant struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CredentialKind discriminates how a bearer credential is validated. Only
// api_key is resolvable today; oauth is reserved so a token-issuer-backed kind
// can be added as a new resolver branch without changing Principal.
type CredentialKind string

const (
	CredentialAPIKey CredentialKind = "api_key"
	CredentialOAuth  CredentialKind = "oauth"
)

// Principal is the resolved caller identity. It is built once per request from
// the Authorization header and never persisted.
type Principal struct {
	TenantID string
	Kind     CredentialKind
	// KeyFingerprint is the hash of the presented credential, never the
	// plaintext. It doubles as the rate-limit subject for per-key buckets.
	KeyFingerprint string
}
