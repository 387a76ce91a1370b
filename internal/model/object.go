package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Object is a single JSON document stored in a collection. Body is the raw
// client-supplied JSON, kept opaque end to end.
type Object struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	TenantID   string          `json:"gpt_id" db:"tenant_id"`
	Collection string          `json:"collection" db:"collection"`
	Body       json.RawMessage `json:"body" db:"body"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// Position returns the seek-pagination sort key for the object.
func (o Object) Position() (time.Time, uuid.UUID) {
	return o.CreatedAt, o.ID
}
