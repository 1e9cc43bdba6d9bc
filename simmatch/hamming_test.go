package simmatch

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMatchesPopcount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		a, b := rng.Uint32(), rng.Uint32()
		assert.Equal(t, bits.OnesCount32(a^b), Distance(a, b))
	}
	assert.Equal(t, 32, Distance(0, 0xffffffff))
	assert.Equal(t, 1, Distance(0x10000, 0))
}

func TestDistanceLaws(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		a, b, c := rng.Uint32(), rng.Uint32(), rng.Uint32()
		assert.Zero(t, Distance(a, a))
		assert.Equal(t, Distance(a, b), Distance(b, a))
		assert.LessOrEqual(t, Distance(a, c), Distance(a, b)+Distance(b, c))
	}
}
