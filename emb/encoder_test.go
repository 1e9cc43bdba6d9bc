package emb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanPoolIgnoresMaskedTokens(t *testing.T) {
	hidden := []float32{
		3, 0,
		0, 4,
		100, 100,
	}
	vec := meanPool(hidden, []int64{1, 1, 0}, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestMeanPoolUnitLength(t *testing.T) {
	vec := meanPool([]float32{1, 2, 3, 4, 5, 6}, []int64{1, 1}, 3)
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestMeanPoolAllMasked(t *testing.T) {
	vec := meanPool([]float32{1, 2}, []int64{0}, 2)
	assert.Equal(t, []float32{0, 0}, vec)
}

func TestEncodeWithoutInit(t *testing.T) {
	var e Encoder
	_, err := e.Encode("hello")
	assert.Error(t, err)
	e.Close()
}

func TestLoadTokenizerRequiresPath(t *testing.T) {
	_, err := LoadTokenizer("")
	assert.Error(t, err)
}
