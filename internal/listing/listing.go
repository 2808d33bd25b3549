// Package listing implements the shared table controller: free-text
// filtering, column sorting through a typed comparator registry, and fixed
// size pagination. Every listing endpoint derives its page through one of
// these controllers, so their behavior is identical across entity types.
package listing

import (
	"errors"
	"slices"
	"strings"
	"time"
)

const (
	// AdminPageSize is used by every staff-facing table.
	AdminPageSize = 7
	// PatientGridPageSize is used by the patient service grid.
	PatientGridPageSize = 12
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func ParseDirection(raw string) Direction {
	if strings.EqualFold(strings.TrimSpace(raw), "asc") {
		return Ascending
	}
	return Descending
}

// Comparator follows the cmp convention: negative when a sorts before b.
type Comparator[T any] func(a, b T) int

var (
	ErrNoPageSize    = errors.New("page size must be positive")
	ErrNoSearchText  = errors.New("search text extractor is required")
	ErrNoIdentity    = errors.New("identity comparator is required")
	ErrNilComparator = errors.New("nil comparator registered")
)

type Controller[T any] struct {
	comparators map[string]Comparator[T]
	byID        Comparator[T]
	searchText  func(T) []string
	pageSize    int
}

// NewController validates the comparator registry up front so an unknown or
// nil column binding is a startup error, not a silent runtime fallback.
func NewController[T any](pageSize int, searchText func(T) []string, byID Comparator[T], comparators map[string]Comparator[T]) (*Controller[T], error) {
	if pageSize <= 0 {
		return nil, ErrNoPageSize
	}
	if searchText == nil {
		return nil, ErrNoSearchText
	}
	if byID == nil {
		return nil, ErrNoIdentity
	}
	registry := make(map[string]Comparator[T], len(comparators))
	for key, cmp := range comparators {
		if cmp == nil {
			return nil, ErrNilComparator
		}
		registry[key] = cmp
	}
	return &Controller[T]{
		comparators: registry,
		byID:        byID,
		searchText:  searchText,
		pageSize:    pageSize,
	}, nil
}

func (c *Controller[T]) PageSize() int {
	return c.pageSize
}

// Filter keeps the items whose search text contains the query as a
// case-insensitive substring; the empty query keeps everything.
func (c *Controller[T]) Filter(items []T, query string) []T {
	out := make([]T, 0, len(items))
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append(out, items...)
	}
	for _, item := range items {
		for _, field := range c.searchText(item) {
			if strings.Contains(strings.ToLower(field), query) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Sort orders a copy of items by the registered comparator for column.
// Descending flips the comparator's operand order. A column with no
// registered comparator orders by descending identifier (newest first) for
// BOTH directions; the requested direction is ignored on that path. That
// quirk is load-bearing for existing clients, so it is pinned by tests
// instead of corrected.
func (c *Controller[T]) Sort(items []T, column string, dir Direction) []T {
	out := append(make([]T, 0, len(items)), items...)
	cmp, ok := c.comparators[column]
	if !ok {
		slices.SortStableFunc(out, func(a, b T) int { return c.byID(b, a) })
		return out
	}
	if dir == Ascending {
		slices.SortStableFunc(out, func(a, b T) int { return cmp(a, b) })
		return out
	}
	slices.SortStableFunc(out, func(a, b T) int { return cmp(b, a) })
	return out
}

// Page slices out the requested zero-based page; out-of-range pages are
// empty, never an error.
func (c *Controller[T]) Page(items []T, page int) []T {
	if page < 0 {
		page = 0
	}
	start := page * c.pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + c.pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (c *Controller[T]) PageCount(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + c.pageSize - 1) / c.pageSize
}

// ByString builds a comparator over a string attribute, compared
// case-insensitively the way the tables collate names.
func ByString[T any](key func(T) string) Comparator[T] {
	return func(a, b T) int {
		return strings.Compare(strings.ToLower(key(a)), strings.ToLower(key(b)))
	}
}

// ByNumber builds a comparator over a numeric attribute.
func ByNumber[T any](key func(T) float64) Comparator[T] {
	return func(a, b T) int {
		switch av, bv := key(a), key(b); {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
}

// ByTime builds a comparator over a time attribute via epoch comparison.
func ByTime[T any](key func(T) time.Time) Comparator[T] {
	return func(a, b T) int {
		av, bv := key(a).UnixMilli(), key(b).UnixMilli()
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
}
