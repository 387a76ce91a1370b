// Package pagination implements seek (keyset) pagination: opaque cursor
// tokens over the (created_at, id) sort key, request parameter parsing, and
// page post-processing. Everything here is pure computation; no I/O happens
// on any code path.
package pagination

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Order is the traversal direction for a listing.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder validates an order query parameter. Empty means most-recent-first.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "":
		return OrderDesc, nil
	case string(OrderAsc):
		return OrderAsc, nil
	case string(OrderDesc):
		return OrderDesc, nil
	}
	return "", fmt.Errorf("%w: order must be asc or desc, got %q", ErrInvalidOrder, s)
}

// Position is the seek boundary: the sort key of the last row of the previous
// page. Rows strictly beyond it (in the cursor's direction) form the next page.
type Position struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// ErrInvalidCursor covers every cursor decode failure: corrupt encoding,
// missing fields, and filter fingerprint mismatches. Callers map it to a 400.
var ErrInvalidCursor = errors.New("invalid cursor")

// Fingerprint computes the filter fingerprint bound into cursors: a stable
// hash of the filter parameters active when the cursor was issued. The empty
// filter set hashes to a fixed well-known value and is checked like any other;
// there is no exemption for filterless requests.
func Fingerprint(filters map[string]string) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(filters[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// cursorPayload is the serialized form of a cursor. Field names are short
// because the token travels in every Link header and next_cursor field.
type cursorPayload struct {
	CreatedAt string `json:"c"`
	ID        string `json:"i"`
	Order     string `json:"o"`
	Filters   string `json:"f"`
}

// checksumLen is the number of truncated SHA-256 bytes appended to the
// payload. Not a cryptographic signature; it exists so a corrupted token can
// never decode into a different valid-looking position.
const checksumLen = 6

var cursorEncoding = base64.RawURLEncoding.Strict()

// Encode serializes a position into an opaque, URL-safe token bound to the
// given order and filter fingerprint.
func Encode(pos Position, order Order, fingerprint string) string {
	payload, _ := json.Marshal(cursorPayload{
		CreatedAt: pos.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID:        pos.ID.String(),
		Order:     string(order),
		Filters:   fingerprint,
	})
	sum := sha256.Sum256(payload)
	raw := append(payload, '.')
	raw = append(raw, hex.EncodeToString(sum[:checksumLen])...)
	return cursorEncoding.EncodeToString(raw)
}

// Decode parses a token and verifies it against the current request's filter
// fingerprint. A fingerprint mismatch means the client is replaying a cursor
// issued under different filters, which is a client error rather than
// something to silently ignore.
func Decode(token, expectedFingerprint string) (Position, Order, error) {
	raw, err := cursorEncoding.DecodeString(token)
	if err != nil {
		return Position{}, "", fmt.Errorf("%w: undecodable token", ErrInvalidCursor)
	}

	i := bytes.LastIndexByte(raw, '.')
	if i < 0 {
		return Position{}, "", fmt.Errorf("%w: missing checksum", ErrInvalidCursor)
	}
	payload, sumHex := raw[:i], raw[i+1:]
	sum := sha256.Sum256(payload)
	if string(sumHex) != hex.EncodeToString(sum[:checksumLen]) {
		return Position{}, "", fmt.Errorf("%w: checksum mismatch", ErrInvalidCursor)
	}

	var p cursorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Position{}, "", fmt.Errorf("%w: malformed payload", ErrInvalidCursor)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
	if err != nil {
		return Position{}, "", fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return Position{}, "", fmt.Errorf("%w: bad id", ErrInvalidCursor)
	}
	order, err := ParseOrder(p.Order)
	if err != nil || p.Order == "" {
		return Position{}, "", fmt.Errorf("%w: bad order", ErrInvalidCursor)
	}
	if p.Filters != expectedFingerprint {
		return Position{}, "", fmt.Errorf("%w: cursor was issued under different filters", ErrInvalidCursor)
	}

	return Position{CreatedAt: createdAt, ID: id}, order, nil
}
