package partition

import (
	"fmt"
	"strings"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
	"github.com/arkilian/pkrouting/internal/murmur"
	"github.com/arkilian/pkrouting/pkg/types"
)

const (
	// MinInclusiveEffectiveKey is the effective key of Empty, the lowest
	// point of every key space.
	MinInclusiveEffectiveKey = ""

	// MaxExclusiveEffectiveKey is the effective key of ExclusiveMaximum. It
	// sorts after every real effective key because hashed keys never start
	// above 0x3F and sortable keys never start with 0xFF.
	MaxExclusiveEffectiveKey = "ff"

	// hashV2Mask clears the top two bits of the leading hash byte.
	hashV2Mask = 0x3F

	// hashV2Bytes is the width of one 128-bit hash segment.
	hashV2Bytes = 16
)

// Key is an ordered, immutable tuple of components.
type Key struct {
	components []Component
}

// Reserved keys.
var (
	// Empty is the inclusive minimum of the key space.
	Empty = Key{}

	// ExclusiveMaximum is the exclusive maximum of the key space.
	ExclusiveMaximum = Key{components: []Component{Infinity}}

	// UndefinedKey stands for "no partition key supplied".
	UndefinedKey = Key{components: []Component{Undefined}}
)

// NewKey builds a key from components. The slice is copied.
func NewKey(components ...Component) Key {
	if len(components) == 0 {
		return Empty
	}
	cp := make([]Component, len(components))
	copy(cp, components)
	return Key{components: cp}
}

// KeyFromValues converts native Go values into a key; see FromValue.
func KeyFromValues(values ...any) (Key, error) {
	components := make([]Component, 0, len(values))
	for i, v := range values {
		c, err := FromValue(v)
		if err != nil {
			return Key{}, fmt.Errorf("component %d: %w", i, err)
		}
		components = append(components, c)
	}
	return Key{components: components}, nil
}

// Len returns the number of components.
func (k Key) Len() int {
	return len(k.components)
}

// Component returns the i-th component.
func (k Key) Component(i int) Component {
	return k.components[i]
}

// Components returns a copy of the components.
func (k Key) Components() []Component {
	cp := make([]Component, len(k.components))
	copy(cp, k.components)
	return cp
}

// IsEmpty reports whether k is the reserved Empty key.
func (k Key) IsEmpty() bool {
	return len(k.components) == 0
}

// IsExclusiveMaximum reports whether k is the reserved ExclusiveMaximum key.
func (k Key) IsExclusiveMaximum() bool {
	return len(k.components) == 1 && k.components[0].typ == TypeInfinity
}

// Compare orders keys component by component (ordinal, then payload). When
// one key is a prefix of the other, the shorter one sorts first.
func (k Key) Compare(other Key) int {
	n := min(len(k.components), len(other.components))
	for i := 0; i < n; i++ {
		if c := k.components[i].compareOrdered(other.components[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k.components) < len(other.components):
		return -1
	case len(k.components) > len(other.components):
		return 1
	default:
		return 0
	}
}

// Equal reports whether both keys hold the same components.
func (k Key) Equal(other Key) bool {
	return k.Compare(other) == 0
}

// Truncate returns the key with every string component truncated.
func (k Key) Truncate() Key {
	if len(k.components) == 0 {
		return k
	}
	out := make([]Component, len(k.components))
	for i, c := range k.components {
		out[i] = c.Truncate()
	}
	return Key{components: out}
}

func (k Key) String() string {
	if k.IsExclusiveMaximum() {
		return "Infinity"
	}
	parts := make([]string, len(k.components))
	for i, c := range k.components {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// EffectiveKey computes the effective partition key of k under def. Keys may
// carry more components than the definition has paths; use
// EffectiveKeyStrict to reject them.
func (k Key) EffectiveKey(def types.PartitionKeyDefinition) (string, error) {
	return k.effectiveKey(def, false)
}

// EffectiveKeyStrict is EffectiveKey with an upper bound on the component
// count.
func (k Key) EffectiveKeyStrict(def types.PartitionKeyDefinition) (string, error) {
	return k.effectiveKey(def, true)
}

func (k Key) effectiveKey(def types.PartitionKeyDefinition, strict bool) (string, error) {
	if k.IsEmpty() {
		return MinInclusiveEffectiveKey, nil
	}
	if k.IsExclusiveMaximum() {
		return MaxExclusiveEffectiveKey, nil
	}

	if err := ValidateDefinition(def); err != nil {
		return "", err
	}
	if err := k.checkArity(def, strict); err != nil {
		return "", err
	}

	switch def.Kind {
	case types.KindRange:
		return ToHex(EncodeBinary(k.components)), nil

	case types.KindHash:
		if def.EffectiveVersion() == types.VersionV1 {
			return k.effectiveKeyHashV1()
		}
		return k.effectiveKeyHashV2()

	case types.KindMultiHash:
		return k.effectiveKeyMultiHash()
	}
	return "", pkerrors.NewUnsupported(pkerrors.CodeUnsupportedKind,
		fmt.Sprintf("unsupported partition kind %q", def.Kind))
}

func (k Key) checkArity(def types.PartitionKeyDefinition, strict bool) error {
	paths := def.PathCount()
	if len(k.components) < paths && def.Kind != types.KindMultiHash {
		return pkerrors.NewInvalidArgument(pkerrors.CodeTooFewComponents,
			fmt.Sprintf("partition key has %d components, definition declares %d paths", len(k.components), paths))
	}
	if strict && len(k.components) > paths {
		return pkerrors.NewInvalidArgument(pkerrors.CodeTooManyComponents,
			fmt.Sprintf("partition key has %d components, definition declares %d paths", len(k.components), paths))
	}
	return nil
}

// effectiveKeyHashV1 prepends the 32-bit hash of the truncated tuple as a
// Number component and emits the sortable encoding of the result.
func (k Key) effectiveKeyHashV1() (string, error) {
	truncated := k.Truncate().components

	var scratch [MaxKeyBytes]byte
	buf := scratch[:0]
	var err error
	for _, c := range truncated {
		if buf, err = c.AppendForHashing(buf); err != nil {
			return "", err
		}
	}
	hash := murmur.Hash32(buf, 0)

	withHash := make([]Component, 0, len(truncated)+1)
	withHash = append(withHash, Number(float64(hash)))
	withHash = append(withHash, truncated...)
	return ToHex(EncodeBinary(withHash)), nil
}

func (k Key) effectiveKeyHashV2() (string, error) {
	var scratch [MaxKeyBytes]byte
	buf := scratch[:0]
	var err error
	for _, c := range k.components {
		if buf, err = c.AppendForHashingV2(buf); err != nil {
			return "", err
		}
	}
	return hashV2Segment(buf), nil
}

// effectiveKeyMultiHash hashes every component on its own and concatenates
// the segments, so a key prefix yields an effective key prefix.
func (k Key) effectiveKeyMultiHash() (string, error) {
	var sb strings.Builder
	sb.Grow(len(k.components) * hashV2Bytes * 2)

	var scratch [MaxKeyBytes]byte
	for _, c := range k.components {
		buf, err := c.AppendForHashingV2(scratch[:0])
		if err != nil {
			return "", err
		}
		sb.WriteString(hashV2Segment(buf))
	}
	return sb.String(), nil
}

// hashV2Segment hashes buf with a zero seed and renders the digest most
// significant byte first, with the top two bits cleared.
func hashV2Segment(buf []byte) string {
	digest := murmur.Hash128(buf, murmur.Uint128{}).BigEndianBytes()
	digest[0] &= hashV2Mask
	return ToHex(digest[:])
}

// EffectiveRange returns the range of effective keys addressed by k. A
// MultiHash key with fewer components than paths addresses every key that
// shares its prefix; any other key addresses a single point.
func (k Key) EffectiveRange(def types.PartitionKeyDefinition) (types.Range[string], error) {
	return k.effectiveRange(def, false)
}

func (k Key) effectiveRange(def types.PartitionKeyDefinition, strict bool) (types.Range[string], error) {
	epk, err := k.effectiveKey(def, strict)
	if err != nil {
		return types.Range[string]{}, err
	}
	if def.Kind == types.KindMultiHash && len(k.components) < def.PathCount() && !k.IsExclusiveMaximum() {
		return types.NewHalfOpenRange(epk, epk+MaxExclusiveEffectiveKey), nil
	}
	return types.NewPointRange(epk), nil
}

// ValidateDefinition checks that def names a kind/version pair with a
// defined algorithm.
func ValidateDefinition(def types.PartitionKeyDefinition) error {
	switch def.Kind {
	case types.KindHash, types.KindRange:
		switch def.EffectiveVersion() {
		case types.VersionV1, types.VersionV2:
		default:
			return pkerrors.NewUnsupported(pkerrors.CodeUnsupportedVersion,
				fmt.Sprintf("unsupported partition key version %d for kind %s", def.Version, def.Kind))
		}
	case types.KindMultiHash:
		if def.EffectiveVersion() != types.VersionV2 {
			return pkerrors.NewUnsupported(pkerrors.CodeUnsupportedVersion,
				fmt.Sprintf("kind MultiHash requires version 2, got %d", def.Version))
		}
	default:
		return pkerrors.NewUnsupported(pkerrors.CodeUnsupportedKind,
			fmt.Sprintf("unsupported partition kind %q", def.Kind))
	}
	if def.PathCount() == 0 {
		return pkerrors.NewInvalidArgument(pkerrors.CodeInvalidDefinition, "partition key definition has no paths")
	}
	return nil
}
