package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gptstore/gptstore/internal/model"
)

// ---------------------------------------------------------------------------
// Collections
// ---------------------------------------------------------------------------

// UpsertCollection creates a collection or, when (tenant, name) already
// exists, replaces its schema. Returns the stored collection either way.
func (s *Store) UpsertCollection(ctx context.Context, c *model.Collection) (*model.Collection, error) {
	existing, err := s.GetCollection(ctx, c.TenantID, c.Name)
	switch {
	case err == nil:
		q := s.db.Rebind(`UPDATE collections SET schema = ? WHERE tenant_id = ? AND name = ?`)
		if _, err := s.db.ExecContext(ctx, q, nullableJSON(c.Schema), c.TenantID, c.Name); err != nil {
			return nil, fmt.Errorf("update collection: %w", err)
		}
		existing.Schema = c.Schema
		return existing, nil
	case errors.Is(err, ErrNotFound):
		c.ID = uuid.New()
		c.CreatedAt = now()
		q := s.db.Rebind(`INSERT INTO collections (id, tenant_id, name, schema, created_at) VALUES (?, ?, ?, ?, ?)`)
		if _, err := s.db.ExecContext(ctx, q, c.ID.String(), c.TenantID, c.Name, nullableJSON(c.Schema), c.CreatedAt); err != nil {
			if isUniqueViolation(err) {
				// Lost a create race; the winner's row is authoritative.
				return s.GetCollection(ctx, c.TenantID, c.Name)
			}
			return nil, fmt.Errorf("create collection: %w", err)
		}
		return c, nil
	default:
		return nil, err
	}
}

// GetCollection fetches a collection by tenant and name.
func (s *Store) GetCollection(ctx context.Context, tenantID, name string) (*model.Collection, error) {
	var c model.Collection
	q := s.db.Rebind(`SELECT id, tenant_id, name, schema, created_at
		FROM collections WHERE tenant_id = ? AND name = ?`)
	if err := s.db.GetContext(ctx, &c, q, tenantID, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &c, nil
}

// UpdateCollectionSchema replaces only the schema of an existing collection.
func (s *Store) UpdateCollectionSchema(ctx context.Context, tenantID, name string, schema []byte) (*model.Collection, error) {
	q := s.db.Rebind(`UPDATE collections SET schema = ? WHERE tenant_id = ? AND name = ?`)
	res, err := s.db.ExecContext(ctx, q, nullableJSON(schema), tenantID, name)
	if err != nil {
		return nil, fmt.Errorf("update collection schema: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetCollection(ctx, tenantID, name)
}

// DeleteCollection removes a collection and all objects stored in it.
func (s *Store) DeleteCollection(ctx context.Context, tenantID, name string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	defer tx.Rollback()

	q := tx.Rebind(`DELETE FROM objects WHERE tenant_id = ? AND collection = ?`)
	if _, err := tx.ExecContext(ctx, q, tenantID, name); err != nil {
		return fmt.Errorf("delete collection objects: %w", err)
	}
	q = tx.Rebind(`DELETE FROM collections WHERE tenant_id = ? AND name = ?`)
	res, err := tx.ExecContext(ctx, q, tenantID, name)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ListCollections returns a windowed page of a tenant's collections.
func (s *Store) ListCollections(ctx context.Context, tenantID string, win Window) ([]model.Collection, error) {
	cond, orderBy, seekArgs := win.seekClause()
	args := append([]interface{}{tenantID}, seekArgs...)
	args = append(args, win.Limit)

	q := s.db.Rebind(fmt.Sprintf(`SELECT id, tenant_id, name, schema, created_at
		FROM collections WHERE tenant_id = ? %s %s LIMIT ?`, cond, orderBy))
	var cs []model.Collection
	if err := s.db.SelectContext(ctx, &cs, q, args...); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return cs, nil
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

// InsertObject stores a new document. ID and timestamps are assigned here so
// no driver-specific RETURNING support is needed.
func (s *Store) InsertObject(ctx context.Context, o *model.Object) error {
	o.ID = uuid.New()
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	q := s.db.Rebind(`INSERT INTO objects (id, tenant_id, collection, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q, o.ID.String(), o.TenantID, o.Collection, string(o.Body), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert object: %w", err)
	}
	return nil
}

// GetObject fetches one document scoped to tenant and collection. An ID that
// exists under a different tenant is indistinguishable from absence.
func (s *Store) GetObject(ctx context.Context, tenantID, collection string, id uuid.UUID) (*model.Object, error) {
	var o model.Object
	q := s.db.Rebind(`SELECT id, tenant_id, collection, body, created_at, updated_at
		FROM objects WHERE tenant_id = ? AND collection = ? AND id = ?`)
	if err := s.db.GetContext(ctx, &o, q, tenantID, collection, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return &o, nil
}

// UpdateObject replaces a document's body and bumps updated_at. The position
// key (created_at, id) never changes, which is what keeps in-flight cursors
// stable across updates.
func (s *Store) UpdateObject(ctx context.Context, o *model.Object) error {
	o.UpdatedAt = now()
	q := s.db.Rebind(`UPDATE objects SET body = ?, updated_at = ?
		WHERE tenant_id = ? AND collection = ? AND id = ?`)
	res, err := s.db.ExecContext(ctx, q, string(o.Body), o.UpdatedAt, o.TenantID, o.Collection, o.ID.String())
	if err != nil {
		return fmt.Errorf("update object: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteObject removes one document.
func (s *Store) DeleteObject(ctx context.Context, tenantID, collection string, id uuid.UUID) error {
	q := s.db.Rebind(`DELETE FROM objects WHERE tenant_id = ? AND collection = ? AND id = ?`)
	res, err := s.db.ExecContext(ctx, q, tenantID, collection, id.String())
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListObjects returns a windowed page of a collection's documents.
func (s *Store) ListObjects(ctx context.Context, tenantID, collection string, win Window) ([]model.Object, error) {
	cond, orderBy, seekArgs := win.seekClause()
	args := append([]interface{}{tenantID, collection}, seekArgs...)
	args = append(args, win.Limit)

	q := s.db.Rebind(fmt.Sprintf(`SELECT id, tenant_id, collection, body, created_at, updated_at
		FROM objects WHERE tenant_id = ? AND collection = ? %s %s LIMIT ?`, cond, orderBy))
	var os []model.Object
	if err := s.db.SelectContext(ctx, &os, q, args...); err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return os, nil
}

// nullableJSON maps an absent schema to SQL NULL rather than an empty string.
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
