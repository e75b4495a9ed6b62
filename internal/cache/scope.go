package cache

// Scope tracks the lifetime of a mounted view. Async results check their
// Ticket before writing; a stale ticket means the result must be dropped.
type Scope struct {
	closed bool
	gen    uint64
}

// NewScope returns an open scope.
func NewScope() *Scope { return &Scope{} }

// Ticket starts a new fetch generation. Tickets issued earlier become stale,
// so a dependency change (new search, new product id) supersedes older fetches.
func (s *Scope) Ticket() Ticket {
	s.gen++
	return Ticket{s: s, gen: s.gen}
}

// Close marks the scope unmounted; every outstanding ticket becomes stale.
func (s *Scope) Close() { s.closed = true }

// Closed reports whether the view has been unmounted.
func (s *Scope) Closed() bool { return s == nil || s.closed }

// Ticket identifies one fetch issued within a Scope.
type Ticket struct {
	s   *Scope
	gen uint64
}

// Stale reports whether the fetch result should be dropped.
func (t Ticket) Stale() bool {
	return t.s == nil || t.s.closed || t.s.gen != t.gen
}
