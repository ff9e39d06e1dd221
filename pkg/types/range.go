package types

import (
	"cmp"
	"fmt"
)

// Range is an immutable interval over an ordered type. Boundary inclusion is
// controlled per side.
type Range[T cmp.Ordered] struct {
	Min          T    `json:"min"`
	Max          T    `json:"max"`
	MinInclusive bool `json:"isMinInclusive"`
	MaxInclusive bool `json:"isMaxInclusive"`
}

// NewRange creates a range with explicit boundary flags.
func NewRange[T cmp.Ordered](min, max T, minInclusive, maxInclusive bool) Range[T] {
	return Range[T]{Min: min, Max: max, MinInclusive: minInclusive, MaxInclusive: maxInclusive}
}

// NewHalfOpenRange creates the range [min, max).
func NewHalfOpenRange[T cmp.Ordered](min, max T) Range[T] {
	return NewRange(min, max, true, false)
}

// NewPointRange creates the range [v, v].
func NewPointRange[T cmp.Ordered](v T) Range[T] {
	return NewRange(v, v, true, true)
}

// IsSingleValue reports whether the range holds exactly one value.
func (r Range[T]) IsSingleValue() bool {
	return r.MinInclusive && r.MaxInclusive && r.Min == r.Max
}

// IsEmpty reports whether no value satisfies the range.
func (r Range[T]) IsEmpty() bool {
	c := cmp.Compare(r.Min, r.Max)
	if c > 0 {
		return true
	}
	return c == 0 && !(r.MinInclusive && r.MaxInclusive)
}

// Contains reports whether v lies within the range.
func (r Range[T]) Contains(v T) bool {
	lo := cmp.Compare(r.Min, v)
	if lo > 0 || (lo == 0 && !r.MinInclusive) {
		return false
	}
	hi := cmp.Compare(v, r.Max)
	if hi > 0 || (hi == 0 && !r.MaxInclusive) {
		return false
	}
	return true
}

// Overlaps reports whether the two ranges share at least one value.
func (r Range[T]) Overlaps(other Range[T]) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}

	// r ends before other starts
	c := cmp.Compare(r.Max, other.Min)
	if c < 0 || (c == 0 && !(r.MaxInclusive && other.MinInclusive)) {
		return false
	}

	// other ends before r starts
	c = cmp.Compare(other.Max, r.Min)
	if c < 0 || (c == 0 && !(other.MaxInclusive && r.MinInclusive)) {
		return false
	}
	return true
}

// ContainsRange reports whether every value of other lies within r.
func (r Range[T]) ContainsRange(other Range[T]) bool {
	if other.IsEmpty() {
		return true
	}
	lo := cmp.Compare(r.Min, other.Min)
	if lo > 0 || (lo == 0 && !r.MinInclusive && other.MinInclusive) {
		return false
	}
	hi := cmp.Compare(other.Max, r.Max)
	if hi > 0 || (hi == 0 && !r.MaxInclusive && other.MaxInclusive) {
		return false
	}
	return true
}

func (r Range[T]) String() string {
	open, close := "(", ")"
	if r.MinInclusive {
		open = "["
	}
	if r.MaxInclusive {
		close = "]"
	}
	return fmt.Sprintf("%s%v,%v%s", open, r.Min, r.Max, close)
}
