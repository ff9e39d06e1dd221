package partition

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
)

func TestMiddleEffectiveKey_HashV2(t *testing.T) {
	mid, err := MiddleEffectiveKey("", "ff", hashV2)
	require.NoError(t, err)
	assert.Equal(t, "1fffffffffffffffffffffffffffffff", mid)

	mid, err = MiddleEffectiveKey("00000000000000000000000000000010", "00000000000000000000000000000020", hashV2)
	require.NoError(t, err)
	assert.Equal(t, "00000000000000000000000000000018", mid)
}

func TestMiddleEffectiveKey_HashV1(t *testing.T) {
	mid, err := MiddleEffectiveKey("", "ff", hashV1)
	require.NoError(t, err)
	assert.Equal(t, "05c1dffffffffc", mid)

	// Boundaries computed from real keys decode through their leading hash.
	lo := mustEPK(t, NewKey(Number(42)), hashV1)
	mid, err = MiddleEffectiveKey(lo, "ff", hashV1)
	require.NoError(t, err)
	assert.Greater(t, mid, lo)
	assert.Less(t, mid, "ff")
}

func TestMiddleEffectiveKey_MultiHash(t *testing.T) {
	mid, err := MiddleEffectiveKey("", "ff", multiHash)
	require.NoError(t, err)
	assert.Equal(t, "1fffffffffffffffffffffffffffffff", mid)

	// Equal first segments are kept as prefix; the split happens in the second.
	prefix := "0dae0b8467b011e957bc0b8b0deb5aca"
	mid, err = MiddleEffectiveKey(prefix, prefix+"ff", multiHash)
	require.NoError(t, err)
	assert.Equal(t, prefix+"1fffffffffffffffffffffffffffffff", mid)

	// First segments differ by one: keep the lower one and split the rest.
	lo := "00000000000000000000000000000005" + "30000000000000000000000000000000"
	hi := "00000000000000000000000000000006"
	mid, err = MiddleEffectiveKey(lo, hi, multiHash)
	require.NoError(t, err)
	assert.Equal(t, "00000000000000000000000000000005"+"37ffffffffffffffffffffffffffffff", mid)
	assert.Greater(t, mid, lo)
	assert.Less(t, mid, hi)
}

func TestMiddleEffectiveKey_Faults(t *testing.T) {
	_, err := MiddleEffectiveKey("", "ff", rangeTwo)
	assert.Equal(t, pkerrors.ErrCategoryUnsupported, pkerrors.GetCategory(err))

	_, err = MiddleEffectiveKey("00000000000000000000000000000010", "00000000000000000000000000000011", hashV2)
	assert.Equal(t, pkerrors.CodeNotSplittable, pkerrors.GetCode(err))

	_, err = MiddleEffectiveKey("00000000000000000000000000000020", "00000000000000000000000000000010", hashV2)
	assert.Equal(t, pkerrors.CodeInvalidRange, pkerrors.GetCode(err))

	_, err = MiddleEffectiveKey("ffffffffffffffffffffffffffffffff", "ff", hashV2)
	assert.Equal(t, pkerrors.CodeRangeOverflow, pkerrors.GetCode(err))

	_, err = MiddleEffectiveKey("0a0", "ff", hashV2)
	assert.Equal(t, pkerrors.CodeOddHexLength, pkerrors.GetCode(err))

	_, err = MiddleEffectiveKey("zz", "ff", hashV2)
	assert.Equal(t, pkerrors.CodeInvalidHex, pkerrors.GetCode(err))

	_, err = MiddleEffectiveKey("0a", "ff", hashV2)
	assert.Equal(t, pkerrors.CodeInvalidRange, pkerrors.GetCode(err))
}

func TestNEqualRangeEffectiveKeys(t *testing.T) {
	points, err := NEqualRangeEffectiveKeys("", "ff", hashV2, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0fffffffffffffffffffffffffffffff",
		"1ffffffffffffffffffffffffffffffe",
		"2ffffffffffffffffffffffffffffffd",
	}, points)

	points, err = NEqualRangeEffectiveKeys("", "ff", hashV1, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"05c1cffffffff8", "05c1dffffffff8", "05c1e7fffffffa"}, points)

	points, err = NEqualRangeEffectiveKeys("", "ff", hashV2, 1)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestNEqualRangeEffectiveKeys_Faults(t *testing.T) {
	_, err := NEqualRangeEffectiveKeys("", "ff", hashV2, 0)
	assert.Equal(t, pkerrors.CodeInvalidSubRanges, pkerrors.GetCode(err))

	_, err = NEqualRangeEffectiveKeys("00000000000000000000000000000010", "00000000000000000000000000000013", hashV2, 4)
	assert.Equal(t, pkerrors.CodeInsufficientRange, pkerrors.GetCode(err))

	points, err := NEqualRangeEffectiveKeys("00000000000000000000000000000010", "00000000000000000000000000000014", hashV2, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"00000000000000000000000000000011",
		"00000000000000000000000000000012",
		"00000000000000000000000000000013",
	}, points)

	_, err = NEqualRangeEffectiveKeys("", "ff", rangeTwo, 2)
	assert.Equal(t, pkerrors.ErrCategoryUnsupported, pkerrors.GetCategory(err))
}

func TestWidthRatio(t *testing.T) {
	w, err := WidthRatio("", "ff", hashV2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w, 1e-12)

	w, err = WidthRatio("", "1fffffffffffffffffffffffffffffff", hashV2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w, 1e-12)

	w, err = WidthRatio("", "05c1dffffffffc", hashV1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w, 1e-9)

	w, err = WidthRatio("", "ff", multiHash)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w, 1e-12)

	w, err = WidthRatio("", "1fffffffffffffffffffffffffffffff", multiHash)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w, 1e-12)

	_, err = WidthRatio("", "ff", rangeTwo)
	require.Error(t, err)
	assert.Equal(t, pkerrors.ErrCategoryUnsupported, pkerrors.GetCategory(err))
	assert.Contains(t, err.Error(), "cannot determine width for range partitioning")
}

func hashV2Hex(v *big.Int) string {
	var b [16]byte
	v.FillBytes(b[:])
	return ToHex(b[:])
}

func TestProperty_RangeSplits(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("N-1 strictly increasing interior points", prop.ForAll(
		func(a, b uint64, n int) bool {
			lo, hi := new(big.Int).SetUint64(a), new(big.Int).SetUint64(b)
			lo.Lsh(lo, 60)
			hi.Lsh(hi, 60)
			if lo.Cmp(hi) > 0 {
				lo, hi = hi, lo
			}
			minKey, maxKey := hashV2Hex(lo), hashV2Hex(hi)

			points, err := NEqualRangeEffectiveKeys(minKey, maxKey, hashV2, n)
			width := new(big.Int).Sub(hi, lo)
			if width.Cmp(big.NewInt(int64(n))) < 0 {
				return n == 1 || pkerrors.GetCode(err) == pkerrors.CodeInsufficientRange
			}
			if err != nil || len(points) != n-1 {
				return false
			}
			prev := minKey
			for _, p := range points {
				if p <= prev {
					return false
				}
				prev = p
			}
			return len(points) == 0 || points[len(points)-1] < maxKey
		},
		gen.UInt64Range(0, 1<<60), gen.UInt64Range(0, 1<<60), gen.IntRange(1, 64),
	))

	properties.Property("middle key lies strictly inside the range", prop.ForAll(
		func(a, b uint64) bool {
			lo, hi := new(big.Int).SetUint64(a), new(big.Int).SetUint64(b)
			if lo.Cmp(hi) > 0 {
				lo, hi = hi, lo
			}
			minKey, maxKey := hashV2Hex(lo), hashV2Hex(hi)
			mid, err := MiddleEffectiveKey(minKey, maxKey, hashV2)
			if new(big.Int).Sub(hi, lo).Cmp(big.NewInt(1)) <= 0 {
				return pkerrors.GetCode(err) == pkerrors.CodeNotSplittable
			}
			return err == nil && mid > minKey && mid < maxKey
		},
		gen.UInt64(), gen.UInt64(),
	))

	properties.TestingRun(t)
}
