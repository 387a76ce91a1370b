package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gptstore/gptstore/internal/model"
	"github.com/gptstore/gptstore/internal/pagination"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenDSNWithQueryParams(t *testing.T) {
	// A user-supplied DSN carrying its own parameters must not end up with a
	// second "?" when the connection options are appended.
	dsn := filepath.Join(t.TempDir(), "data.db") + "?_busy_timeout=1000"
	s, err := Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.CreateTenant(context.Background(), &model.Tenant{ID: "g1", Name: "g1"}); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if _, err := s.GetTenant(context.Background(), "g1"); err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
}

func seedTenant(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.CreateTenant(context.Background(), &model.Tenant{ID: id, Name: id}); err != nil {
		t.Fatalf("CreateTenant(%s): %v", id, err)
	}
}

func seedCollection(t *testing.T, s *Store, tenantID, name string) {
	t.Helper()
	if _, err := s.UpsertCollection(context.Background(), &model.Collection{TenantID: tenantID, Name: name}); err != nil {
		t.Fatalf("UpsertCollection(%s/%s): %v", tenantID, name, err)
	}
}

func TestTenantAndKeyCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTenant(t, s, "gpt-1")

	if err := s.CreateTenant(ctx, &model.Tenant{ID: "gpt-1", Name: "dup"}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate tenant: got %v, want ErrConflict", err)
	}

	key := &model.APIKey{KeyHash: "abc123hash", KeyPrefix: "abc123", TenantID: "gpt-1", IsActive: true}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	got, err := s.GetAPIKeyByHash(ctx, "abc123hash")
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if got.TenantID != "gpt-1" || !got.IsActive {
		t.Errorf("key: got %+v", got)
	}

	at := time.Now().UTC()
	if err := s.UpdateAPIKeyLastUsed(ctx, "abc123hash", at); err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed: %v", err)
	}
	got, _ = s.GetAPIKeyByHash(ctx, "abc123hash")
	if got.LastUsed == nil {
		t.Error("last_used not recorded")
	}

	if err := s.RevokeAPIKey(ctx, "abc123"); err != nil {
		t.Fatalf("RevokeAPIKey: %v", err)
	}
	got, _ = s.GetAPIKeyByHash(ctx, "abc123hash")
	if got.IsActive {
		t.Error("key still active after revoke")
	}

	if err := s.RevokeAPIKey(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("revoke unknown prefix: got %v, want ErrNotFound", err)
	}
}

func TestCollectionUpsertAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTenant(t, s, "gpt-1")

	schema := json.RawMessage(`{"type":"object"}`)
	c, err := s.UpsertCollection(ctx, &model.Collection{TenantID: "gpt-1", Name: "notes", Schema: schema})
	if err != nil {
		t.Fatalf("UpsertCollection: %v", err)
	}
	if c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		t.Error("upsert must assign id and created_at")
	}

	// Second upsert replaces the schema, keeps identity.
	schema2 := json.RawMessage(`{"type":"object","required":["a"]}`)
	c2, err := s.UpsertCollection(ctx, &model.Collection{TenantID: "gpt-1", Name: "notes", Schema: schema2})
	if err != nil {
		t.Fatalf("second UpsertCollection: %v", err)
	}
	if c2.ID != c.ID {
		t.Error("upsert changed collection identity")
	}
	if string(c2.Schema) != string(schema2) {
		t.Errorf("schema: got %s", c2.Schema)
	}

	if err := s.InsertObject(ctx, &model.Object{TenantID: "gpt-1", Collection: "notes", Body: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("InsertObject: %v", err)
	}
	if err := s.DeleteCollection(ctx, "gpt-1", "notes"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	objs, err := s.ListObjects(ctx, "gpt-1", "notes", Window{Order: pagination.OrderDesc, Limit: 10})
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(objs) != 0 {
		t.Errorf("objects survived collection delete: %d", len(objs))
	}
	if err := s.DeleteCollection(ctx, "gpt-1", "notes"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete absent collection: got %v, want ErrNotFound", err)
	}
}

func TestObjectCRUDAndIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTenant(t, s, "tenant-a")
	seedTenant(t, s, "tenant-b")
	seedCollection(t, s, "tenant-a", "docs")
	seedCollection(t, s, "tenant-b", "docs")

	o := &model.Object{TenantID: "tenant-a", Collection: "docs", Body: json.RawMessage(`{"v":1}`)}
	if err := s.InsertObject(ctx, o); err != nil {
		t.Fatalf("InsertObject: %v", err)
	}

	// Tenant B must not see tenant A's object, by ID or by listing.
	if _, err := s.GetObject(ctx, "tenant-b", "docs", o.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant get: got %v, want ErrNotFound", err)
	}
	rows, err := s.ListObjects(ctx, "tenant-b", "docs", Window{Order: pagination.OrderDesc, Limit: 10})
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("cross-tenant list: got %d rows", len(rows))
	}

	o.Body = json.RawMessage(`{"v":2}`)
	if err := s.UpdateObject(ctx, o); err != nil {
		t.Fatalf("UpdateObject: %v", err)
	}
	got, err := s.GetObject(ctx, "tenant-a", "docs", o.ID)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if string(got.Body) != `{"v":2}` {
		t.Errorf("body: got %s", got.Body)
	}
	if !got.CreatedAt.Equal(o.CreatedAt) {
		t.Error("update must not move the position key")
	}

	if err := s.DeleteObject(ctx, "tenant-a", "docs", o.ID); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if err := s.DeleteObject(ctx, "tenant-a", "docs", o.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestListObjectsWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTenant(t, s, "gpt-1")
	seedCollection(t, s, "gpt-1", "docs")

	var inserted []model.Object
	for i := 0; i < 7; i++ {
		o := model.Object{TenantID: "gpt-1", Collection: "docs", Body: json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))}
		if err := s.InsertObject(ctx, &o); err != nil {
			t.Fatalf("InsertObject %d: %v", i, err)
		}
		inserted = append(inserted, o)
		time.Sleep(2 * time.Millisecond) // distinct created_at values
	}

	// Descending first window: newest three.
	rows, err := s.ListObjects(ctx, "gpt-1", "docs", Window{Order: pagination.OrderDesc, Limit: 3})
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(rows) != 3 || rows[0].ID != inserted[6].ID || rows[2].ID != inserted[4].ID {
		t.Fatalf("desc window wrong: %+v", rows)
	}

	// Strictly beyond the last row of that page.
	boundary := &pagination.Position{CreatedAt: rows[2].CreatedAt, ID: rows[2].ID}
	rows, err = s.ListObjects(ctx, "gpt-1", "docs", Window{Boundary: boundary, Order: pagination.OrderDesc, Limit: 10})
	if err != nil {
		t.Fatalf("ListObjects with boundary: %v", err)
	}
	if len(rows) != 4 || rows[0].ID != inserted[3].ID || rows[3].ID != inserted[0].ID {
		t.Fatalf("desc continuation wrong: got %d rows", len(rows))
	}

	// Ascending traversal starts at the oldest.
	rows, err = s.ListObjects(ctx, "gpt-1", "docs", Window{Order: pagination.OrderAsc, Limit: 2})
	if err != nil {
		t.Fatalf("ListObjects asc: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != inserted[0].ID {
		t.Fatalf("asc window wrong")
	}
}
