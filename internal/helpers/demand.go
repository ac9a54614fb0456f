// Package helpers synthesizes the overflow-safe arithmetic and checked
// division functions demanded during code generation. Demands accumulate as
// (operation, type) pairs; each pair is materialized at most once per build,
// in lexicographic key order, regardless of discovery order.
package helpers

import (
	"sort"

	"cnext/internal/types"
)

// Op is one helper operation.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	default:
		return "invalid"
	}
}

// Mode selects the globally configured overflow behavior.
type Mode uint8

const (
	// ModeClamp saturates to the type bounds on overflow.
	ModeClamp Mode = iota
	// ModePanic reports a diagnostic and aborts on overflow.
	ModePanic
)

func (m Mode) String() string {
	if m == ModePanic {
		return "panic"
	}
	return "clamp"
}

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "clamp", "":
		return ModeClamp, true
	case "panic":
		return ModePanic, true
	default:
		return ModeClamp, false
	}
}

// Demand is one requested helper.
type Demand struct {
	Op   Op
	Type types.Primitive
}

// Key is the deduplication and ordering key, e.g. "add_u8".
func (d Demand) Key() string { return d.Op.String() + "_" + d.Type.String() }

// Name is the C function name for the helper.
func (d Demand) Name() string {
	switch d.Op {
	case OpDiv, OpMod:
		return "safe_" + d.Key()
	default:
		return d.Key()
	}
}

// Set accumulates demands with deduplication.
type Set struct {
	m map[Demand]struct{}
}

// NewSet creates an empty demand set.
func NewSet() *Set { return &Set{m: make(map[Demand]struct{})} }

// Add records a demand; duplicates are absorbed.
func (s *Set) Add(d Demand) {
	if !d.Type.IsInteger() {
		return
	}
	s.m[d] = struct{}{}
}

// Merge folds another set into this one.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for d := range other.m {
		s.m[d] = struct{}{}
	}
}

// Len reports the number of distinct demands.
func (s *Set) Len() int { return len(s.m) }

// Has reports whether the demand was recorded.
func (s *Set) Has(d Demand) bool {
	_, ok := s.m[d]
	return ok
}

// Sorted returns the distinct demands in lexicographic key order.
func (s *Set) Sorted() []Demand {
	out := make([]Demand, 0, len(s.m))
	for d := range s.m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
