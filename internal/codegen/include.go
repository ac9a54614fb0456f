package codegen

// Include is one include directive demanded during generation.
type Include struct {
	Path   string
	System bool
}

// IncludeSet keeps include directives deduplicated in first-demand order.
// Per-file generation is single-threaded, so the order is deterministic for
// a given input tree.
type IncludeSet struct {
	seen  map[Include]struct{}
	order []Include
}

// NewIncludeSet creates an empty set.
func NewIncludeSet() *IncludeSet {
	return &IncludeSet{seen: make(map[Include]struct{})}
}

// Add records an include; duplicates are absorbed.
func (s *IncludeSet) Add(inc Include) {
	if _, ok := s.seen[inc]; ok {
		return
	}
	s.seen[inc] = struct{}{}
	s.order = append(s.order, inc)
}

// Has reports whether the include was demanded.
func (s *IncludeSet) Has(inc Include) bool {
	_, ok := s.seen[inc]
	return ok
}

// All returns the includes in first-demand order.
func (s *IncludeSet) All() []Include { return s.order }

// Len reports the number of distinct includes.
func (s *IncludeSet) Len() int { return len(s.order) }
