// Package partition implements the partition-key codec: the component value
// model, its hashing and sortable encodings, effective partition key
// computation and the range math used to split hash ranges.
package partition

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arkilian/pkrouting/pkg/types"
)

// Router computes effective partition keys for one partition key definition.
// It holds no mutable state and is safe for concurrent use.
type Router struct {
	def    types.PartitionKeyDefinition
	strict bool
	logger *zap.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStrictArity rejects keys with more components than declared paths.
func WithStrictArity(strict bool) RouterOption {
	return func(r *Router) {
		r.strict = strict
	}
}

// NewRouter creates a router for the given definition.
func NewRouter(def types.PartitionKeyDefinition, opts ...RouterOption) (*Router, error) {
	if err := ValidateDefinition(def); err != nil {
		return nil, err
	}
	r := &Router{def: def, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(
		zap.String("kind", string(def.Kind)),
		zap.Int("version", int(def.EffectiveVersion())),
		zap.Int("paths", def.PathCount()),
	)
	return r, nil
}

// Definition returns the partition key definition the router was built for.
func (r *Router) Definition() types.PartitionKeyDefinition {
	return r.def
}

// EffectiveKey computes the effective partition key of key.
func (r *Router) EffectiveKey(key Key) (string, error) {
	epk, err := key.effectiveKey(r.def, r.strict)
	if err != nil {
		return "", err
	}
	r.logger.Debug("computed effective partition key",
		zap.Stringer("key", key),
		zap.String("epk", epk))
	return epk, nil
}

// EffectiveKeyFor converts native Go values to a key and computes its
// effective partition key.
func (r *Router) EffectiveKeyFor(values ...any) (string, error) {
	key, err := KeyFromValues(values...)
	if err != nil {
		return "", err
	}
	return r.EffectiveKey(key)
}

// EffectiveRange returns the effective key range addressed by key. Partial
// MultiHash keys yield a prefix range.
func (r *Router) EffectiveRange(key Key) (types.Range[string], error) {
	rng, err := key.effectiveRange(r.def, r.strict)
	if err != nil {
		return types.Range[string]{}, err
	}
	r.logger.Debug("computed effective key range",
		zap.Stringer("key", key),
		zap.Stringer("range", rng))
	return rng, nil
}

// RouteKeys groups keys by their effective partition key.
func (r *Router) RouteKeys(keys []Key) (map[string][]Key, error) {
	groups := make(map[string][]Key)
	for i, key := range keys {
		epk, err := r.EffectiveKey(key)
		if err != nil {
			return nil, fmt.Errorf("routing: failed to route key %d: %w", i, err)
		}
		groups[epk] = append(groups[epk], key)
	}
	return groups, nil
}

// MiddleKey returns a split point inside [minInclusive, maxExclusive).
func (r *Router) MiddleKey(minInclusive, maxExclusive string) (string, error) {
	mid, err := MiddleEffectiveKey(minInclusive, maxExclusive, r.def)
	if err != nil {
		return "", err
	}
	r.logger.Debug("computed middle effective key",
		zap.String("min", minInclusive),
		zap.String("max", maxExclusive),
		zap.String("mid", mid))
	return mid, nil
}

// SubRanges cuts [minInclusive, maxExclusive) into n equally wide ranges.
func (r *Router) SubRanges(minInclusive, maxExclusive string, n int) ([]types.Range[string], error) {
	points, err := NEqualRangeEffectiveKeys(minInclusive, maxExclusive, r.def, n)
	if err != nil {
		return nil, err
	}
	bounds := make([]string, 0, n+1)
	bounds = append(bounds, minInclusive)
	bounds = append(bounds, points...)
	bounds = append(bounds, maxExclusive)

	ranges := make([]types.Range[string], 0, n)
	for i := 0; i < n; i++ {
		ranges = append(ranges, types.NewHalfOpenRange(bounds[i], bounds[i+1]))
	}
	r.logger.Debug("split effective key range",
		zap.String("min", minInclusive),
		zap.String("max", maxExclusive),
		zap.Int("count", n))
	return ranges, nil
}

// Width returns the share of the hash space covered by the range.
func (r *Router) Width(minInclusive, maxExclusive string) (float64, error) {
	return WidthRatio(minInclusive, maxExclusive, r.def)
}
