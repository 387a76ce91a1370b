package pagination

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type row struct {
	createdAt time.Time
	id        uuid.UUID
}

func (r row) Position() (time.Time, uuid.UUID) { return r.createdAt, r.id }

// makeRows builds n rows where every third row shares its timestamp with the
// previous one, exercising the id tie-break.
func makeRows(n int) []row {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]row, n)
	for i := range rows {
		ts := base.Add(time.Duration(i/3) * time.Second)
		rows[i] = row{createdAt: ts, id: uuid.New()}
	}
	return rows
}

// sortRows orders rows the way the storage engine would: (created_at, id)
// lexicographically, direction per order. IDs compare as strings, matching
// the TEXT column comparison in the store.
func sortRows(rows []row, order Order) []row {
	cmp := func(a, b row) int {
		if a.createdAt.Before(b.createdAt) {
			return -1
		}
		if a.createdAt.After(b.createdAt) {
			return 1
		}
		return strings.Compare(a.id.String(), b.id.String())
	}
	out := append([]row(nil), rows...)
	sort.Slice(out, func(i, j int) bool {
		if order == OrderDesc {
			return cmp(out[i], out[j]) > 0
		}
		return cmp(out[i], out[j]) < 0
	})
	return out
}

// fetch emulates the storage collaborator: rows strictly beyond the boundary
// in the given direction, at most limit rows.
func fetch(sorted []row, boundary *Position, order Order, limit int) []row {
	var out []row
	for _, r := range sorted {
		if boundary != nil {
			beyond := r.createdAt.Before(boundary.CreatedAt) ||
				(r.createdAt.Equal(boundary.CreatedAt) && r.id.String() < boundary.ID.String())
			if order == OrderAsc {
				beyond = r.createdAt.After(boundary.CreatedAt) ||
					(r.createdAt.Equal(boundary.CreatedAt) && r.id.String() > boundary.ID.String())
			}
			if !beyond {
				continue
			}
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

// TestCursorCompleteness replays full cursor chains over a static dataset:
// every row must appear exactly once, in the declared order, for any limit.
func TestCursorCompleteness(t *testing.T) {
	const n = 23
	rows := makeRows(n)
	fp := Fingerprint(nil)

	for _, order := range []Order{OrderAsc, OrderDesc} {
		sorted := sortRows(rows, order)
		for limit := 1; limit <= n+5; limit++ {
			var seen []row
			var boundary *Position
			for page := 0; ; page++ {
				if page > n+1 {
					t.Fatalf("order=%s limit=%d: cursor chain did not terminate", order, limit)
				}
				batch := fetch(sorted, boundary, order, limit+1)
				items, next, hasMore := Paginate(batch, limit, order, fp)
				seen = append(seen, items...)
				if !hasMore {
					if next != "" {
						t.Fatalf("order=%s limit=%d: next cursor on final page", order, limit)
					}
					break
				}
				pos, decodedOrder, err := Decode(next, fp)
				if err != nil {
					t.Fatalf("order=%s limit=%d: decode next cursor: %v", order, limit, err)
				}
				if decodedOrder != order {
					t.Fatalf("order=%s limit=%d: cursor order drifted to %s", order, limit, decodedOrder)
				}
				boundary = &pos
			}

			if len(seen) != n {
				t.Fatalf("order=%s limit=%d: got %d rows, want %d", order, limit, len(seen), n)
			}
			for i := range seen {
				if seen[i].id != sorted[i].id {
					t.Fatalf("order=%s limit=%d: row %d out of order", order, limit, i)
				}
			}
		}
	}
}

func TestPaginateBoundaries(t *testing.T) {
	rows := makeRows(4)
	fp := Fingerprint(nil)

	// Fewer rows than limit+1: no next cursor.
	items, next, hasMore := Paginate(rows[:2], 3, OrderDesc, fp)
	if hasMore || next != "" || len(items) != 2 {
		t.Errorf("short page: items=%d next=%q hasMore=%v", len(items), next, hasMore)
	}

	// Exactly limit+1: extra row dropped, cursor from the new last item.
	items, next, hasMore = Paginate(rows, 3, OrderDesc, fp)
	if !hasMore || next == "" || len(items) != 3 {
		t.Fatalf("full page: items=%d next=%q hasMore=%v", len(items), next, hasMore)
	}
	pos, _, err := Decode(next, fp)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantTS, wantID := items[2].Position()
	if !pos.CreatedAt.Equal(wantTS) || pos.ID != wantID {
		t.Error("next cursor must point at the last returned item")
	}
}

func TestPaginateEmptyPageIsArray(t *testing.T) {
	items, next, hasMore := Paginate([]row(nil), 5, OrderDesc, Fingerprint(nil))
	if items == nil {
		t.Fatal("empty page returned a nil slice")
	}
	if len(items) != 0 || next != "" || hasMore {
		t.Fatalf("empty page: items=%d next=%q hasMore=%v", len(items), next, hasMore)
	}

	// The wire contract: an empty listing is [], never null.
	data, err := json.Marshal(struct {
		Items []row `json:"items"`
	}{items})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"items":[]`) {
		t.Errorf("empty page serialized as %s, want \"items\":[]", data)
	}
}

func TestParseParams(t *testing.T) {
	limits := Limits{Default: 50, Max: 200}
	cases := []struct {
		name    string
		query   string
		want    Params
		wantErr error
	}{
		{"defaults", "", Params{Limit: 50, Order: OrderDesc}, nil},
		{"explicit", "limit=10&order=asc", Params{Limit: 10, Order: OrderAsc}, nil},
		{"clamp high", "limit=9999", Params{Limit: 200, Order: OrderDesc}, nil},
		{"clamp zero", "limit=0", Params{Limit: 1, Order: OrderDesc}, nil},
		{"negative", "limit=-1", Params{}, ErrInvalidLimit},
		{"non-numeric", "limit=abc", Params{}, ErrInvalidLimit},
		{"bad order", "order=sideways", Params{}, ErrInvalidOrder},
		{"cursor passthrough", "cursor=abc123", Params{Limit: 50, Order: OrderDesc, Cursor: "abc123"}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tc.query)
			got, err := ParseParams(q, limits)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err: got %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseParams: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestLinkHeader(t *testing.T) {
	q, _ := url.ParseQuery("limit=1&order=desc")
	h := LinkHeader("/v1/gpts/g1/collections/notes/objects", q, "CURSOR")
	want := fmt.Sprintf("<%s?%s>; rel=%q", "/v1/gpts/g1/collections/notes/objects", "cursor=CURSOR&limit=1&order=desc", "next")
	if h != want {
		t.Errorf("got %q, want %q", h, want)
	}
}
