package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidLimit is returned for non-numeric or negative limit values.
	// Out-of-range numeric values are clamped instead.
	ErrInvalidLimit = errors.New("invalid limit")
	// ErrInvalidOrder is returned for order values other than asc/desc.
	ErrInvalidOrder = errors.New("invalid order")
)

// Limits holds the configured page-size bounds.
type Limits struct {
	Default int
	Max     int
}

// Params are the parsed pagination query parameters of a list request.
type Params struct {
	Limit  int
	Order  Order
	Cursor string
}

// ParseParams extracts limit/order/cursor from a query string. Numeric limits
// outside [1, max] are clamped; a missing limit uses the default.
func ParseParams(q url.Values, l Limits) (Params, error) {
	p := Params{Limit: l.Default, Cursor: q.Get("cursor")}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidLimit, raw)
		}
		if n < 0 {
			return Params{}, fmt.Errorf("%w: must not be negative", ErrInvalidLimit)
		}
		p.Limit = clamp(n, 1, l.Max)
	}

	order, err := ParseOrder(q.Get("order"))
	if err != nil {
		return Params{}, err
	}
	p.Order = order
	return p, nil
}

// Item is any row with a (created_at, id) position, the tuple that gives the
// listing a total order even when timestamps collide.
type Item interface {
	Position() (time.Time, uuid.UUID)
}

// Paginate post-processes rows fetched with the limit+1 convention: callers
// request one row beyond the page size, and the presence of that extra row is
// the has-more signal. The next cursor is encoded from the last row of the
// trimmed page, so replaying the cursor chain visits every row exactly once.
func Paginate[T Item](rows []T, limit int, order Order, fingerprint string) (items []T, nextCursor string, hasMore bool) {
	if len(rows) <= limit {
		if rows == nil {
			// Keep the items field an array on the wire; an empty page must
			// serialize as [] and not null.
			rows = []T{}
		}
		return rows, "", false
	}
	items = rows[:limit]
	createdAt, id := items[len(items)-1].Position()
	nextCursor = Encode(Position{CreatedAt: createdAt, ID: id}, order, fingerprint)
	return items, nextCursor, true
}

// LinkHeader builds the RFC 8288 next-page link for a list response.
func LinkHeader(path string, q url.Values, nextCursor string) string {
	next := url.Values{}
	for k, vs := range q {
		next[k] = append([]string(nil), vs...)
	}
	next.Set("cursor", nextCursor)
	return "<" + path + "?" + next.Encode() + `>; rel="next"`
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
