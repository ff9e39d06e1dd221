package routingmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
	"github.com/arkilian/pkrouting/internal/partition"
	"github.com/arkilian/pkrouting/pkg/types"
)

func threeRanges() []PartitionKeyRange {
	return []PartitionKeyRange{
		{ID: "2", MinInclusive: "2a", MaxExclusive: "ff"},
		{ID: "0", MinInclusive: "", MaxExclusive: "15"},
		{ID: "1", MinInclusive: "15", MaxExclusive: "2a"},
	}
}

func newTestMap(t *testing.T) *Map {
	t.Helper()
	m, err := New(threeRanges(), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return m
}

func TestNew_SortsRanges(t *testing.T) {
	m := newTestMap(t)
	require.Equal(t, 3, m.Len())
	ids := []string{}
	for _, r := range m.Ranges() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"0", "1", "2"}, ids)

	r, ok := m.RangeByID("1")
	require.True(t, ok)
	assert.Equal(t, "15", r.MinInclusive)
	_, ok = m.RangeByID("9")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		ranges []PartitionKeyRange
	}{
		{"no ranges", nil},
		{"missing start", []PartitionKeyRange{{ID: "0", MinInclusive: "05", MaxExclusive: "ff"}}},
		{"missing end", []PartitionKeyRange{{ID: "0", MinInclusive: "", MaxExclusive: "3f"}}},
		{"gap", []PartitionKeyRange{
			{ID: "0", MinInclusive: "", MaxExclusive: "10"},
			{ID: "1", MinInclusive: "20", MaxExclusive: "ff"},
		}},
		{"overlap", []PartitionKeyRange{
			{ID: "0", MinInclusive: "", MaxExclusive: "20"},
			{ID: "1", MinInclusive: "10", MaxExclusive: "ff"},
		}},
		{"empty range", []PartitionKeyRange{
			{ID: "0", MinInclusive: "", MaxExclusive: ""},
			{ID: "1", MinInclusive: "", MaxExclusive: "ff"},
		}},
		{"duplicate ids", []PartitionKeyRange{
			{ID: "0", MinInclusive: "", MaxExclusive: "10"},
			{ID: "0", MinInclusive: "10", MaxExclusive: "ff"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.ranges)
			require.Error(t, err)
			assert.Equal(t, pkerrors.CodeInvalidRange, pkerrors.GetCode(err))
		})
	}
}

func TestRangeByEffectiveKey(t *testing.T) {
	m := newTestMap(t)

	tests := []struct {
		epk  string
		want string
	}{
		{"", "0"},
		{"05c1e75fcb273a05c04580", "0"},
		{"14ffffffff", "0"},
		{"15", "1"},
		{"1fffffffffffffffffffffffffffffff", "1"},
		{"2a", "2"},
		{"3fffffffffffffffffffffffffffffff", "2"},
	}
	for _, tt := range tests {
		r, err := m.RangeByEffectiveKey(tt.epk)
		require.NoError(t, err, tt.epk)
		assert.Equal(t, tt.want, r.ID, tt.epk)
	}

	_, err := m.RangeByEffectiveKey(partition.MaxExclusiveEffectiveKey)
	assert.Equal(t, pkerrors.CodeRangeOverflow, pkerrors.GetCode(err))
}

func TestRangeByEffectiveKey_RoutesComputedKeys(t *testing.T) {
	m := newTestMap(t)
	def := types.PartitionKeyDefinition{Paths: []string{"/id"}, Kind: types.KindHash, Version: types.VersionV2}
	router, err := partition.NewRouter(def)
	require.NoError(t, err)

	for _, v := range []any{1, "a", true, nil, 3.5, "tenant-42"} {
		epk, err := router.EffectiveKeyFor(v)
		require.NoError(t, err)
		r, err := m.RangeByEffectiveKey(epk)
		require.NoError(t, err)
		assert.True(t, r.Range().Contains(epk), "%v -> %s not in %s", v, epk, r.ID)
	}
}

func TestOverlappingRanges(t *testing.T) {
	m := newTestMap(t)

	ids := func(rs []PartitionKeyRange) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"0", "1"}, ids(m.OverlappingRanges(types.NewHalfOpenRange("10", "20"))))
	assert.Equal(t, []string{"2"}, ids(m.OverlappingRanges(types.NewPointRange("2a"))))
	assert.Equal(t, []string{"0"}, ids(m.OverlappingRanges(types.NewHalfOpenRange("", "15"))))
	assert.Equal(t, []string{"0", "1", "2"}, ids(m.OverlappingRanges(types.NewHalfOpenRange("", "ff"))))
	assert.Empty(t, m.OverlappingRanges(types.NewHalfOpenRange("20", "20")))
}

func TestTryCombine(t *testing.T) {
	m := newTestMap(t)
	left := PartitionKeyRange{ID: "3", MinInclusive: "15", MaxExclusive: "20", Parents: []string{"1"}}
	right := PartitionKeyRange{ID: "4", MinInclusive: "20", MaxExclusive: "2a", Parents: []string{"1"}}

	_, ok := m.TryCombine([]PartitionKeyRange{left})
	assert.False(t, ok, "half a split leaves a gap")

	next, ok := m.TryCombine([]PartitionKeyRange{left, right})
	require.True(t, ok)
	assert.Equal(t, 4, next.Len())
	assert.True(t, next.IsGone("1"))
	assert.False(t, m.IsGone("1"), "original map is unchanged")

	r, err := next.RangeByEffectiveKey("25")
	require.NoError(t, err)
	assert.Equal(t, "4", r.ID)

	// Replaying the same split is a no-op.
	again, ok := next.TryCombine([]PartitionKeyRange{left, right})
	require.True(t, ok)
	assert.Equal(t, next.Ranges(), again.Ranges())
}
