package model

// Page is the standard envelope for list endpoints. NextCursor is present
// only when more pages exist; replaying it resumes the listing exactly where
// this page ended.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}
