package simmatch

import "math"

// FrequencyTable maps n-grams to inverse-frequency weights. Rare n-grams
// weigh more than common ones. N-grams absent from the table weigh 1.
type FrequencyTable struct {
	weights map[string]int
	total   int
}

// NewFrequencyTable counts n-grams over the given per-item n-gram lists and
// stores round(total/count*10) for each distinct n-gram.
func NewFrequencyTable(corpus [][]string) *FrequencyTable {
	counts := make(map[string]int)
	total := 0
	for _, ngrams := range corpus {
		for _, ngram := range ngrams {
			counts[ngram]++
			total++
		}
	}
	weights := make(map[string]int, len(counts))
	for ngram, count := range counts {
		w := int(math.Round(float64(total) / float64(count) * 10))
		if w < 1 {
			w = 1
		}
		weights[ngram] = w
	}
	return &FrequencyTable{weights: weights, total: total}
}

// Weight returns the weight of a single n-gram. A nil table weighs every
// n-gram 1.
func (f *FrequencyTable) Weight(ngram string) int {
	if f == nil {
		return 1
	}
	if w, ok := f.weights[ngram]; ok {
		return w
	}
	return 1
}

// WeightedSum sums the weights of ngrams. Empty input sums to 0.
func (f *FrequencyTable) WeightedSum(ngrams []string) int {
	sum := 0
	for _, ngram := range ngrams {
		sum += f.Weight(ngram)
	}
	return sum
}

// Len returns the number of distinct n-grams in the table.
func (f *FrequencyTable) Len() int {
	if f == nil {
		return 0
	}
	return len(f.weights)
}

// Total returns the number of n-gram occurrences counted.
func (f *FrequencyTable) Total() int {
	if f == nil {
		return 0
	}
	return f.total
}
