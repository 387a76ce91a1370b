package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gptstore/gptstore/internal/model"
	"github.com/gptstore/gptstore/internal/store"
)

// Bootstrap is a declarative seed file: tenants, pre-hashed credentials, and
// collections to ensure at startup. Applying it is idempotent; rows that
// already exist are left alone.
type Bootstrap struct {
	Tenants []BootstrapTenant `yaml:"tenants"`
}

// BootstrapTenant declares one tenant and its resources.
type BootstrapTenant struct {
	ID          string                `yaml:"id"`
	Name        string                `yaml:"name"`
	Keys        []BootstrapKey        `yaml:"keys"`
	Collections []BootstrapCollection `yaml:"collections"`
}

// BootstrapKey declares a credential by its hash. Plaintext secrets never
// appear in configuration.
type BootstrapKey struct {
	Hash   string `yaml:"hash"`
	Prefix string `yaml:"prefix"`
	Label  string `yaml:"label"`
}

// BootstrapCollection declares a collection, optionally with a JSON schema.
type BootstrapCollection struct {
	Name   string    `yaml:"name"`
	Schema yaml.Node `yaml:"schema"`
}

// LoadBootstrap parses a yaml seed file.
func LoadBootstrap(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap file: %w", err)
	}
	var b Bootstrap
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse bootstrap file: %w", err)
	}
	for _, t := range b.Tenants {
		if t.ID == "" {
			return nil, errors.New("bootstrap tenant without id")
		}
		for _, k := range t.Keys {
			if k.Hash == "" || k.Prefix == "" {
				return nil, fmt.Errorf("tenant %q: bootstrap keys need hash and prefix", t.ID)
			}
		}
	}
	return &b, nil
}

// Apply seeds the store with the declared tenants, keys, and collections.
func (b *Bootstrap) Apply(ctx context.Context, st *store.Store, logger *slog.Logger) error {
	for _, t := range b.Tenants {
		name := t.Name
		if name == "" {
			name = t.ID
		}
		err := st.CreateTenant(ctx, &model.Tenant{ID: t.ID, Name: name})
		switch {
		case err == nil:
			logger.Info("bootstrap: tenant created", "tenant", t.ID)
		case errors.Is(err, store.ErrConflict):
			// Already present; fall through to keys and collections.
		default:
			return err
		}

		for _, k := range t.Keys {
			err := st.CreateAPIKey(ctx, &model.APIKey{
				KeyHash:   k.Hash,
				KeyPrefix: k.Prefix,
				TenantID:  t.ID,
				Label:     k.Label,
				IsActive:  true,
			})
			if err != nil && !errors.Is(err, store.ErrConflict) {
				return fmt.Errorf("tenant %q key %q: %w", t.ID, k.Prefix, err)
			}
		}

		for _, c := range t.Collections {
			schema, err := schemaJSON(c.Schema)
			if err != nil {
				return fmt.Errorf("tenant %q collection %q: %w", t.ID, c.Name, err)
			}
			if _, err := st.UpsertCollection(ctx, &model.Collection{
				TenantID: t.ID,
				Name:     c.Name,
				Schema:   schema,
			}); err != nil {
				return fmt.Errorf("tenant %q collection %q: %w", t.ID, c.Name, err)
			}
		}
	}
	return nil
}

// schemaJSON converts an inline yaml schema node to its JSON form.
func schemaJSON(n yaml.Node) (json.RawMessage, error) {
	if n.IsZero() {
		return nil, nil
	}
	var v interface{}
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
