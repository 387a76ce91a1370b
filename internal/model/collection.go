package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Collection is a named bucket of objects under a tenant. Schema, when set,
// holds the JSON Schema document supplied by the client; it is stored verbatim
// and returned on reads, enforcement is the storage layer's concern.
type Collection struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	TenantID  string          `json:"gpt_id" db:"tenant_id"`
	Name      string          `json:"name" db:"name"`
	Schema    json.RawMessage `json:"schema,omitempty" db:"schema"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Position returns the seek-pagination sort key for the collection.
func (c Collection) Position() (time.Time, uuid.UUID) {
	return c.CreatedAt, c.ID
}
