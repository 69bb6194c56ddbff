package storage

import (
	"strings"

	"github.com/xrf-labs/asset-registry/internal/app/fault"
)

// Listing bounds shared by the paginated and streamed read paths.
const (
	MinLimit = 1
	MaxLimit = 100

	// StreamBatchSize caps how many records a single streamed chunk query
	// pulls from the store.
	StreamBatchSize = 1000
)

// SortField names a column assets may be ordered by.
type SortField string

const (
	SortByName      SortField = "name"
	SortBySymbol    SortField = "symbol"
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
)

// SortDir is the ordering direction.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// Sort is a whitelisted field+direction pair.
type Sort struct {
	Field SortField
	Dir   SortDir
}

var sortFields = map[string]SortField{
	"name":       SortByName,
	"symbol":     SortBySymbol,
	"created_at": SortByCreatedAt,
	"updated_at": SortByUpdatedAt,
}

// ParseSort resolves a caller-supplied sort_order value. Accepted forms are
// "", "asc", "desc" (ordering by name) and "<field>_asc" / "<field>_desc"
// for whitelisted fields. Anything else fails with InvalidArgument.
func ParseSort(s string) (Sort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Sort{Field: SortByName, Dir: Asc}, nil
	case "desc":
		return Sort{Field: SortByName, Dir: Desc}, nil
	}

	lowered := strings.ToLower(strings.TrimSpace(s))
	var dir SortDir
	var fieldPart string
	switch {
	case strings.HasSuffix(lowered, "_asc"):
		dir = Asc
		fieldPart = strings.TrimSuffix(lowered, "_asc")
	case strings.HasSuffix(lowered, "_desc"):
		dir = Desc
		fieldPart = strings.TrimSuffix(lowered, "_desc")
	default:
		return Sort{}, fault.Errorf(fault.InvalidArgument, "unknown sort_order %q", s)
	}

	field, ok := sortFields[fieldPart]
	if !ok {
		return Sort{}, fault.Errorf(fault.InvalidArgument, "unknown sort_order %q", s)
	}
	return Sort{Field: field, Dir: dir}, nil
}

// Window is a deterministic, stable page over an ordered result set. The
// same window with the same filter yields the same records whether it is
// materialized in bulk or emitted in chunks.
type Window struct {
	Offset int
	Limit  int
	Sort   Sort
}

// NewWindow builds a validated window from caller-supplied values.
func NewWindow(offset, limit int, sortOrder string) (Window, error) {
	sort, err := ParseSort(sortOrder)
	if err != nil {
		return Window{}, err
	}
	w := Window{Offset: offset, Limit: limit, Sort: sort}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate enforces the registry's offset and limit bounds.
func (w Window) Validate() error {
	if w.Offset < 0 {
		return fault.New(fault.InvalidArgument, "offset must not be negative")
	}
	if w.Limit < MinLimit || w.Limit > MaxLimit {
		return fault.Errorf(fault.InvalidArgument, "limit must be between %d and %d", MinLimit, MaxLimit)
	}
	return nil
}

// Slice maps the window onto an in-memory result of length n, returning the
// half-open index range [start, end).
func (w Window) Slice(n int) (int, int) {
	start := w.Offset
	if start > n {
		start = n
	}
	end := start + w.Limit
	if end > n {
		end = n
	}
	return start, end
}

// Chunks splits the window into consecutive sub-windows of at most size
// records each, preserving order. The streamed listing emits one chunk per
// sub-window.
func (w Window) Chunks(size int) []Window {
	if size < 1 {
		size = 1
	}
	var out []Window
	remaining := w.Limit
	offset := w.Offset
	for remaining > 0 {
		n := size
		if n > remaining {
			n = remaining
		}
		out = append(out, Window{Offset: offset, Limit: n, Sort: w.Sort})
		offset += n
		remaining -= n
	}
	return out
}
