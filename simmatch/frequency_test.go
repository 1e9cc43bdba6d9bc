package simmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrequencyTableWeights(t *testing.T) {
	// 4 occurrences in total: "ab" twice, "cd" and "ef" once each.
	table := NewFrequencyTable([][]string{{"ab", "cd"}, {"ab", "ef"}})
	assert.Equal(t, 20, table.Weight("ab"))
	assert.Equal(t, 40, table.Weight("cd"))
	assert.Equal(t, 40, table.Weight("ef"))
	assert.Equal(t, 1, table.Weight("zz"))
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 4, table.Total())
	assert.Equal(t, 61, table.WeightedSum([]string{"ab", "cd", "zz"}))
	assert.Zero(t, table.WeightedSum(nil))
}

func TestFrequencyTableRounds(t *testing.T) {
	// total 3, count 2: 3/2*10 = 15; count 1: 30.
	table := NewFrequencyTable([][]string{{"ab"}, {"ab", "cd"}})
	assert.Equal(t, 15, table.Weight("ab"))
	assert.Equal(t, 30, table.Weight("cd"))
}

func TestNilFrequencyTable(t *testing.T) {
	var table *FrequencyTable
	assert.Equal(t, 1, table.Weight("ab"))
	assert.Equal(t, 2, table.WeightedSum([]string{"ab", "cd"}))
	assert.Zero(t, table.Len())
}
