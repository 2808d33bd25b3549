package listing

// Session holds one table's transient view state: base collection, query,
// sort column/direction and current page. Changing the query or the base
// collection's length resets the page to 0.
type Session[T any] struct {
	ctrl   *Controller[T]
	items  []T
	query  string
	column string
	dir    Direction
	page   int
}

func NewSession[T any](ctrl *Controller[T]) *Session[T] {
	return &Session[T]{ctrl: ctrl, dir: Descending}
}

func (s *Session[T]) SetItems(items []T) {
	if len(items) != len(s.items) {
		s.page = 0
	}
	s.items = items
}

func (s *Session[T]) SetQuery(query string) {
	if query != s.query {
		s.page = 0
	}
	s.query = query
}

func (s *Session[T]) SetSort(column string, dir Direction) {
	s.column = column
	s.dir = dir
}

func (s *Session[T]) SetPage(page int) {
	if page < 0 {
		page = 0
	}
	s.page = page
}

func (s *Session[T]) Page() int {
	return s.page
}

// View recomputes the filtered, sorted, page-sliced subset in full. The
// derivation is synchronous and total on purpose: no memoization, no
// incremental updates, correctness over cleverness.
func (s *Session[T]) View() []T {
	filtered := s.ctrl.Filter(s.items, s.query)
	sorted := s.ctrl.Sort(filtered, s.column, s.dir)
	return s.ctrl.Page(sorted, s.page)
}

// Total reports how many items survive the filter, before pagination.
func (s *Session[T]) Total() int {
	return len(s.ctrl.Filter(s.items, s.query))
}
