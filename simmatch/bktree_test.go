package simmatch

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hitValues(hits []Hit[uint32]) []uint32 {
	out := make([]uint32, len(hits))
	for i, h := range hits {
		out[i] = h.Value
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestTreeQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	values := make([]uint32, 500)
	tree := NewTree(Distance)
	for i := range values {
		// cluster the values so small thresholds find something
		values[i] = rng.Uint32() & 0x00ff00ff
		tree.Insert(values[i])
	}
	require.Equal(t, len(values), tree.Len())

	for _, threshold := range []int{0, 1, 3, 7, 12, 32} {
		for q := 0; q < 50; q++ {
			query := rng.Uint32() & 0x00ff00ff
			var want []uint32
			for _, v := range values {
				if Distance(query, v) <= threshold {
					want = append(want, v)
				}
			}
			sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
			hits := tree.Query(query, threshold)
			for _, h := range hits {
				assert.Equal(t, Distance(query, h.Value), h.Distance)
			}
			if len(want) == 0 {
				assert.Empty(t, hits)
				continue
			}
			assert.Equal(t, want, hitValues(hits), "threshold %d", threshold)
		}
	}
}

func TestTreeKeepsDuplicates(t *testing.T) {
	tree := NewTree(Distance)
	tree.Insert(7)
	tree.Insert(7)
	tree.Insert(7)
	assert.Len(t, tree.Query(7, 0), 3)
}

func TestTreeEmpty(t *testing.T) {
	tree := NewTree(Distance)
	assert.True(t, tree.Empty())
	assert.Nil(t, tree.Query(1, 32))
	called := false
	tree.Walk(func(uint32, int, int) { called = true })
	assert.False(t, called)
}

func TestTreeWalkPreOrder(t *testing.T) {
	tree := NewTree(Distance)
	for _, v := range []uint32{0, 1, 3, 2} {
		tree.Insert(v)
	}
	type visit struct {
		v           uint32
		slot, depth int
	}
	var got []visit
	tree.Walk(func(v uint32, slot, depth int) {
		got = append(got, visit{v, slot, depth})
	})
	// 1 and 2 both sit at distance 1 from the root, so 2 descends under 1.
	assert.Equal(t, []visit{
		{0, -1, 0},
		{1, 1, 1},
		{2, 2, 2},
		{3, 2, 1},
	}, got)
}

func TestTreeQueryHugeThreshold(t *testing.T) {
	tree := NewTree(Distance)
	values := []uint32{0, 0xffffffff, 0x0000ffff, 0x12345678}
	for _, v := range values {
		tree.Insert(v)
	}
	hits := tree.Query(0, math.MaxInt)
	assert.Len(t, hits, len(values))
	assert.Empty(t, tree.Query(0, -1))
}
