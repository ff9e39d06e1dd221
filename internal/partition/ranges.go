package partition

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
	"github.com/arkilian/pkrouting/pkg/types"
)

var (
	// maxHashV1 is the value ExclusiveMaximum stands for in the V1 space.
	maxHashV1 = new(big.Int).SetUint64(math.MaxUint32)

	// maxHashV2 is the value ExclusiveMaximum stands for in the V2 space:
	// every bit below the two masked ones set.
	maxHashV2 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 126), big.NewInt(1))

	bigOne = big.NewInt(1)
)

// hashSpace converts effective keys of one hashed scheme to and from
// fixed-width integers. Keys with several hash segments (MultiHash) become
// one integer per segment.
type hashSpace struct {
	segments int
	max      *big.Int
	// openSuffix accepts a trailing "ff" after whole segments, as produced
	// for partial MultiHash keys, meaning every remaining segment is at max.
	openSuffix bool
	decode     func(epk string) ([]*big.Int, error)
	encode     func(values []*big.Int) string
}

func newHashSpace(def types.PartitionKeyDefinition, op string) (*hashSpace, error) {
	if err := ValidateDefinition(def); err != nil {
		return nil, err
	}
	switch def.Kind {
	case types.KindRange:
		return nil, pkerrors.NewUnsupported(pkerrors.CodeUnsupportedKind,
			fmt.Sprintf("cannot %s for range partitioning", op))
	case types.KindHash:
		if def.EffectiveVersion() == types.VersionV1 {
			return &hashSpace{segments: 1, max: maxHashV1, decode: decodeV1Boundary, encode: encodeV1Boundary}, nil
		}
		return &hashSpace{segments: 1, max: maxHashV2, decode: decodeV2Segments, encode: encodeV2Segments}, nil
	default:
		return &hashSpace{segments: def.PathCount(), max: maxHashV2, openSuffix: true, decode: decodeV2Segments, encode: encodeV2Segments}, nil
	}
}

// boundaries decodes both ends of a range, padded to the full segment count.
// A missing trailing segment is zero; the exclusive maximum is the space
// maximum in every segment.
func (s *hashSpace) boundaries(minInclusive, maxExclusive string) (lo, hi []*big.Int, err error) {
	if lo, err = s.boundary(minInclusive); err != nil {
		return nil, nil, err
	}
	if hi, err = s.boundary(maxExclusive); err != nil {
		return nil, nil, err
	}
	for i := range lo {
		if c := lo[i].Cmp(hi[i]); c != 0 {
			if c > 0 {
				return nil, nil, pkerrors.NewInvalidArgument(pkerrors.CodeInvalidRange,
					fmt.Sprintf("min %q is above max %q", minInclusive, maxExclusive))
			}
			break
		}
	}
	return lo, hi, nil
}

func (s *hashSpace) boundary(epk string) ([]*big.Int, error) {
	values := make([]*big.Int, s.segments)
	open := false
	switch {
	case epk == MaxExclusiveEffectiveKey:
		for i := range values {
			values[i] = new(big.Int).Set(s.max)
		}
		return values, nil
	case epk == MinInclusiveEffectiveKey:
	default:
		body := epk
		if s.openSuffix && len(epk) > len(MaxExclusiveEffectiveKey) && strings.HasSuffix(epk, MaxExclusiveEffectiveKey) &&
			(len(epk)-len(MaxExclusiveEffectiveKey))%(2*hashV2Bytes) == 0 {
			body, open = strings.TrimSuffix(epk, MaxExclusiveEffectiveKey), true
		}
		decoded, err := s.decode(body)
		if err != nil {
			return nil, err
		}
		if len(decoded) > s.segments {
			return nil, pkerrors.NewInvalidArgument(pkerrors.CodeInvalidRange,
				fmt.Sprintf("effective key %q has %d hash segments, expected at most %d", epk, len(decoded), s.segments))
		}
		for i, v := range decoded {
			if v.Cmp(s.max) > 0 {
				return nil, pkerrors.NewInvalidArgument(pkerrors.CodeRangeOverflow,
					fmt.Sprintf("effective key %q exceeds the hash space", epk))
			}
			values[i] = v
		}
	}
	for i := range values {
		switch {
		case values[i] != nil:
		case open:
			values[i] = new(big.Int).Set(s.max)
		default:
			values[i] = new(big.Int)
		}
	}
	return values, nil
}

// splitPoint finds the segment at which the range [lo, hi) can be divided.
// Equal leading segments are shared prefix. Where segments differ by exactly
// one, the lower value is kept and the remaining upper segments open up to
// the space maximum.
func (s *hashSpace) splitPoint(lo, hi []*big.Int) (idx int, width *big.Int, ok bool) {
	upper := make([]*big.Int, len(hi))
	copy(upper, hi)

	for i := range lo {
		d := new(big.Int).Sub(upper[i], lo[i])
		switch d.Sign() {
		case 0:
			continue
		case -1:
			return 0, nil, false
		}
		if d.Cmp(bigOne) > 0 {
			return i, d, true
		}
		for j := i + 1; j < len(upper); j++ {
			upper[j] = s.max
		}
	}
	return 0, nil, false
}

func (s *hashSpace) point(lo []*big.Int, idx int, v *big.Int) string {
	values := make([]*big.Int, idx+1)
	copy(values, lo[:idx])
	values[idx] = v
	return s.encode(values)
}

// MiddleEffectiveKey returns an effective key strictly inside
// [minInclusive, maxExclusive), at the midpoint of the first splittable hash
// segment.
func MiddleEffectiveKey(minInclusive, maxExclusive string, def types.PartitionKeyDefinition) (string, error) {
	s, err := newHashSpace(def, "compute a middle key")
	if err != nil {
		return "", err
	}
	lo, hi, err := s.boundaries(minInclusive, maxExclusive)
	if err != nil {
		return "", err
	}
	idx, width, ok := s.splitPoint(lo, hi)
	if !ok {
		return "", pkerrors.NewInvalidArgument(pkerrors.CodeNotSplittable,
			fmt.Sprintf("range [%q, %q) cannot be split", minInclusive, maxExclusive))
	}
	mid := new(big.Int).Rsh(width, 1)
	mid.Add(mid, lo[idx])
	return s.point(lo, idx, mid), nil
}

// NEqualRangeEffectiveKeys returns the n-1 interior boundaries that cut
// [minInclusive, maxExclusive) into n equally wide sub-ranges.
func NEqualRangeEffectiveKeys(minInclusive, maxExclusive string, def types.PartitionKeyDefinition, n int) ([]string, error) {
	if n < 1 {
		return nil, pkerrors.NewInvalidArgument(pkerrors.CodeInvalidSubRanges,
			fmt.Sprintf("number of sub-ranges must be positive, got %d", n))
	}
	s, err := newHashSpace(def, "compute sub-ranges")
	if err != nil {
		return nil, err
	}
	lo, hi, err := s.boundaries(minInclusive, maxExclusive)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		return []string{}, nil
	}

	idx, width, ok := s.splitPoint(lo, hi)
	count := big.NewInt(int64(n))
	if !ok || width.Cmp(count) < 0 {
		return nil, pkerrors.NewInvalidArgument(pkerrors.CodeInsufficientRange,
			fmt.Sprintf("range [%q, %q) is too narrow for %d sub-ranges", minInclusive, maxExclusive, n))
	}

	step := new(big.Int).Quo(width, count)
	points := make([]string, 0, n-1)
	cur := new(big.Int).Set(lo[idx])
	for i := 1; i < n; i++ {
		cur = new(big.Int).Add(cur, step)
		points = append(points, s.point(lo, idx, cur))
	}
	return points, nil
}

// WidthRatio returns the share of the whole hash space covered by
// [minInclusive, maxExclusive), in [0, 1].
func WidthRatio(minInclusive, maxExclusive string, def types.PartitionKeyDefinition) (float64, error) {
	s, err := newHashSpace(def, "determine width")
	if err != nil {
		return 0, err
	}
	lo, hi, err := s.boundaries(minInclusive, maxExclusive)
	if err != nil {
		return 0, err
	}

	// Segments are digits in base max+1.
	base := new(big.Int).Add(s.max, bigOne)
	loNum, hiNum, full := new(big.Int), new(big.Int), new(big.Int)
	maxVals := make([]*big.Int, s.segments)
	for i := range maxVals {
		maxVals[i] = s.max
	}
	for _, acc := range []struct {
		dst    *big.Int
		digits []*big.Int
	}{{loNum, lo}, {hiNum, hi}, {full, maxVals}} {
		for _, d := range acc.digits {
			acc.dst.Mul(acc.dst, base)
			acc.dst.Add(acc.dst, d)
		}
	}

	width := new(big.Float).SetInt(new(big.Int).Sub(hiNum, loNum))
	ratio, _ := new(big.Float).Quo(width, new(big.Float).SetInt(full)).Float64()
	return ratio, nil
}

func decodeV1Boundary(epk string) ([]*big.Int, error) {
	raw, err := FromHex(epk)
	if err != nil {
		return nil, err
	}
	components, err := DecodeBinary(raw)
	if err != nil {
		return nil, err
	}
	if len(components) == 0 || components[0].typ != TypeNumber {
		return nil, pkerrors.NewInvalidArgument(pkerrors.CodeInvalidRange,
			fmt.Sprintf("effective key %q does not start with a hash value", epk))
	}
	v := components[0].num
	if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
		return nil, pkerrors.NewInvalidArgument(pkerrors.CodeRangeOverflow,
			fmt.Sprintf("effective key %q carries hash %v outside the 32-bit space", epk, v))
	}
	return []*big.Int{new(big.Int).SetUint64(uint64(v))}, nil
}

func encodeV1Boundary(values []*big.Int) string {
	return ToHex(Number(float64(values[0].Uint64())).AppendBinaryEncoding(nil))
}

func decodeV2Segments(epk string) ([]*big.Int, error) {
	raw, err := FromHex(epk)
	if err != nil {
		return nil, err
	}
	if len(raw)%hashV2Bytes != 0 {
		return nil, pkerrors.NewInvalidArgument(pkerrors.CodeInvalidRange,
			fmt.Sprintf("effective key %q is not a whole number of 128-bit hash segments", epk))
	}
	values := make([]*big.Int, 0, len(raw)/hashV2Bytes)
	for off := 0; off < len(raw); off += hashV2Bytes {
		values = append(values, new(big.Int).SetBytes(raw[off:off+hashV2Bytes]))
	}
	return values, nil
}

func encodeV2Segments(values []*big.Int) string {
	var sb strings.Builder
	sb.Grow(len(values) * hashV2Bytes * 2)
	var seg [hashV2Bytes]byte
	for _, v := range values {
		v.FillBytes(seg[:])
		sb.WriteString(ToHex(seg[:]))
	}
	return sb.String()
}
