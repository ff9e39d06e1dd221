// Package routingmap tracks which physical partition key range owns which
// slice of the effective partition key space.
package routingmap

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
	"github.com/arkilian/pkrouting/internal/partition"
	"github.com/arkilian/pkrouting/pkg/types"
)

// PartitionKeyRange is one physical range of the effective key space.
type PartitionKeyRange struct {
	ID           string   `json:"id"`
	MinInclusive string   `json:"minInclusive"`
	MaxExclusive string   `json:"maxExclusive"`
	Parents      []string `json:"parents,omitempty"`
}

// Range returns the half-open effective key range covered by r.
func (r PartitionKeyRange) Range() types.Range[string] {
	return types.NewHalfOpenRange(r.MinInclusive, r.MaxExclusive)
}

// Map is an immutable, complete routing map: its ranges are sorted, do not
// overlap and together cover ["", "ff").
type Map struct {
	ranges []PartitionKeyRange
	byID   map[string]PartitionKeyRange
	gone   map[string]struct{}
	logger *zap.Logger
}

// Option configures a Map.
type Option func(*Map)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Map) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New builds a routing map from ranges in any order.
func New(ranges []PartitionKeyRange, opts ...Option) (*Map, error) {
	m := &Map{logger: zap.NewNop(), gone: make(map[string]struct{})}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.reset(ranges); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Map) reset(ranges []PartitionKeyRange) error {
	sorted := make([]PartitionKeyRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinInclusive < sorted[j].MinInclusive
	})
	if err := Validate(sorted); err != nil {
		return err
	}
	m.ranges = sorted
	m.byID = lo.KeyBy(sorted, func(r PartitionKeyRange) string { return r.ID })
	return nil
}

// Validate checks that sorted ranges are well formed and tile the whole
// effective key space.
func Validate(sorted []PartitionKeyRange) error {
	if len(sorted) == 0 {
		return invalid("routing map has no ranges")
	}
	ids := lo.Map(sorted, func(r PartitionKeyRange, _ int) string { return r.ID })
	if len(lo.Uniq(ids)) != len(ids) {
		return invalid("routing map has duplicate range ids")
	}
	if first := sorted[0]; first.MinInclusive != partition.MinInclusiveEffectiveKey {
		return invalid(fmt.Sprintf("range %s starts at %q, expected the minimum", first.ID, first.MinInclusive))
	}
	if last := sorted[len(sorted)-1]; last.MaxExclusive != partition.MaxExclusiveEffectiveKey {
		return invalid(fmt.Sprintf("range %s ends at %q, expected the maximum", last.ID, last.MaxExclusive))
	}
	for i, r := range sorted {
		if r.MinInclusive >= r.MaxExclusive {
			return invalid(fmt.Sprintf("range %s is empty: [%q, %q)", r.ID, r.MinInclusive, r.MaxExclusive))
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		switch {
		case prev.MaxExclusive < r.MinInclusive:
			return invalid(fmt.Sprintf("gap between range %s and %s at [%q, %q)", prev.ID, r.ID, prev.MaxExclusive, r.MinInclusive))
		case prev.MaxExclusive > r.MinInclusive:
			return invalid(fmt.Sprintf("range %s overlaps range %s", prev.ID, r.ID))
		}
	}
	return nil
}

// Ranges returns the ranges in key order.
func (m *Map) Ranges() []PartitionKeyRange {
	out := make([]PartitionKeyRange, len(m.ranges))
	copy(out, m.ranges)
	return out
}

// Len returns the number of ranges.
func (m *Map) Len() int {
	return len(m.ranges)
}

// RangeByID looks up a range by id.
func (m *Map) RangeByID(id string) (PartitionKeyRange, bool) {
	r, ok := m.byID[id]
	return r, ok
}

// IsGone reports whether id belonged to a range that has since been split.
func (m *Map) IsGone(id string) bool {
	_, ok := m.gone[id]
	return ok
}

// RangeByEffectiveKey returns the range owning epk.
func (m *Map) RangeByEffectiveKey(epk string) (PartitionKeyRange, error) {
	if epk >= partition.MaxExclusiveEffectiveKey {
		return PartitionKeyRange{}, pkerrors.NewInvalidArgument(pkerrors.CodeRangeOverflow,
			fmt.Sprintf("effective key %q is outside the key space", epk))
	}
	i := sort.Search(len(m.ranges), func(i int) bool {
		return m.ranges[i].MaxExclusive > epk
	})
	r := m.ranges[i]
	m.logger.Debug("resolved effective key",
		zap.String("epk", epk),
		zap.String("range", r.ID))
	return r, nil
}

// OverlappingRanges returns the ranges intersecting q, in key order.
func (m *Map) OverlappingRanges(q types.Range[string]) []PartitionKeyRange {
	return lo.Filter(m.ranges, func(r PartitionKeyRange, _ int) bool {
		return r.Range().Overlaps(q)
	})
}

// TryCombine applies split results: ranges named as parents are replaced by
// their children. It reports false when the children received so far leave
// part of the key space uncovered; the caller should wait for the rest.
func (m *Map) TryCombine(children []PartitionKeyRange) (*Map, bool) {
	parents := make(map[string]struct{})
	for _, c := range children {
		for _, p := range c.Parents {
			parents[p] = struct{}{}
		}
	}

	kept := lo.Filter(m.ranges, func(r PartitionKeyRange, _ int) bool {
		_, replaced := parents[r.ID]
		return !replaced
	})
	fresh := lo.Filter(children, func(c PartitionKeyRange, _ int) bool {
		_, known := m.byID[c.ID]
		_, gone := m.gone[c.ID]
		return !known && !gone
	})

	next := &Map{logger: m.logger, gone: make(map[string]struct{}, len(m.gone)+len(parents))}
	for id := range m.gone {
		next.gone[id] = struct{}{}
	}
	for id := range parents {
		next.gone[id] = struct{}{}
	}
	if err := next.reset(append(kept, fresh...)); err != nil {
		m.logger.Debug("routing map incomplete after combine",
			zap.Int("children", len(children)),
			zap.Error(err))
		return nil, false
	}
	m.logger.Debug("combined routing map",
		zap.Int("replaced", len(parents)),
		zap.Int("ranges", next.Len()))
	return next, true
}

func invalid(message string) error {
	return pkerrors.NewInvalidArgument(pkerrors.CodeInvalidRange, message)
}
