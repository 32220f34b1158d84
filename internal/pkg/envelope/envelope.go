// Package envelope unwraps the inconsistent response shapes returned by the backend.
//
// List endpoints answer with one of: a bare array, {data: [...]}, {data: {data: [...]}}
// or {data: {rows: [...], count}}. Pagination metadata, when present at all, uses several
// field spellings. Everything here works on values produced by encoding/json decoding
// into `any`, and never panics on unexpected shapes.
package envelope

import (
	"encoding/json"
	"errors"
	"math"
)

// Normalize extracts the row array from a decoded response body.
// Shapes it does not recognise yield an empty, non-nil slice.
func Normalize(raw any) []any {
	if body, ok := raw.(map[string]any); ok {
		if rows, ok := body["data"].([]any); ok {
			return rows
		}
		if data, ok := body["data"].(map[string]any); ok {
			if rows, ok := data["data"].([]any); ok {
				return rows
			}
			if rows, ok := data["rows"].([]any); ok {
				return rows
			}
		}
	}
	if rows, ok := raw.([]any); ok {
		return rows
	}
	return []any{}
}

// Pagination is the reconciled paging state of one list response.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalCount  int
	HasNext     bool
	HasPrev     bool
}

// Reconcile derives pagination state from whatever metadata the envelope carries,
// falling back to values computed from the request when the backend sends none.
// TotalPages is never less than one.
func Reconcile(raw any, rowCount, requestedPage, pageSize int) Pagination {
	body, _ := raw.(map[string]any)
	meta, _ := body["pagination"].(map[string]any)

	currentPage, ok := firstInt(meta, "currentPage", "page")
	if !ok {
		currentPage = requestedPage
	}

	totalCount, ok := firstInt(meta, "totalCount")
	if !ok {
		if totalCount, ok = firstInt(body, "total", "count"); !ok {
			totalCount = rowCount
		}
	}

	totalPages, ok := firstInt(meta, "totalPages", "pages")
	if !ok {
		totalPages = 1
		if pageSize > 0 {
			totalPages = int(math.Ceil(float64(totalCount) / float64(pageSize)))
		}
	}
	if totalPages < 1 {
		totalPages = 1
	}

	hasNext, ok := boolField(meta, "hasNextPage")
	if !ok {
		hasNext = currentPage < totalPages
	}
	hasPrev, ok := boolField(meta, "hasPrevPage")
	if !ok {
		hasPrev = currentPage > 1
	}

	return Pagination{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
		HasNext:     hasNext,
		HasPrev:     hasPrev,
	}
}

// PageWindow returns the page numbers a pager should show: a contiguous run of at most
// width pages around current, clamped to [1, total].
func PageWindow(current, total, width int) []int {
	if total < 1 {
		total = 1
	}
	if width < 1 {
		width = 1
	}
	if width > total {
		width = total
	}
	current = min(max(current, 1), total)

	start := current - width/2
	start = max(start, 1)
	start = min(start, total-width+1)

	pages := make([]int, 0, width)
	for p := start; p < start+width; p++ {
		pages = append(pages, p)
	}
	return pages
}

// MessageFrom returns the backend's human-readable message from a decoded error body,
// preferring "message" over "error". It returns "" when neither is a non-empty string.
func MessageFrom(data any) string {
	body, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	if msg, ok := body["message"].(string); ok && msg != "" {
		return msg
	}
	if msg, ok := body["error"].(string); ok && msg != "" {
		return msg
	}
	return ""
}

// responder is implemented by errors that carry a decoded backend response body.
type responder interface {
	ResponseData() any
}

// ErrorMessage picks the string shown to the user for a failed action:
// the body's message, then its error, then the error's own text, then fallback.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var r responder
	if errors.As(err, &r) {
		if msg := MessageFrom(r.ResponseData()); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

func firstInt(m map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return int(v), true
		case int:
			return v, true
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n), true
			}
		}
	}
	return 0, false
}

func boolField(m map[string]any, key string) (bool, bool) {
	v, ok := m[key].(bool)
	return v, ok
}
