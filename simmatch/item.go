package simmatch

import (
	"fmt"
	"sync"
)

// Item wraps one opaque record and caches what is expensive to derive from
// it. Text is read and normalized when the item is created; n-grams,
// weighted sum and fingerprint are computed once on first use.
type Item struct {
	opaque any
	str    string
	index  int
	gen    *generation

	ngramsOnce sync.Once
	ngrams     []string
	ngramSet   map[string]struct{}

	sumOnce sync.Once
	sum     int

	fpOnce sync.Once
	fp     uint32
}

func newItem(gen *generation, opaque any, index int) (*Item, error) {
	text, err := gen.stages.read(opaque)
	if err != nil {
		return nil, err
	}
	return &Item{
		opaque: opaque,
		str:    gen.stages.normalize(text),
		index:  index,
		gen:    gen,
	}, nil
}

// Opaque returns the record the item was created from.
func (it *Item) Opaque() any { return it.opaque }

// String returns the normalized text.
func (it *Item) String() string { return it.str }

// Index returns the position of the item in the list it was imported from.
func (it *Item) Index() int { return it.index }

// Ngrams returns the unique n-grams of the normalized text.
func (it *Item) Ngrams() []string {
	it.ngramsOnce.Do(func() {
		it.ngrams = it.gen.stages.ngram(it.str)
		it.ngramSet = make(map[string]struct{}, len(it.ngrams))
		for _, ngram := range it.ngrams {
			it.ngramSet[ngram] = struct{}{}
		}
	})
	return it.ngrams
}

// Has reports whether ngram is one of the item's n-grams.
func (it *Item) Has(ngram string) bool {
	it.Ngrams()
	_, ok := it.ngramSet[ngram]
	return ok
}

// Shared returns the n-grams of it that other also has.
func (it *Item) Shared(other *Item) []string {
	var shared []string
	for _, ngram := range it.Ngrams() {
		if other.Has(ngram) {
			shared = append(shared, ngram)
		}
	}
	return shared
}

// WeightedSum returns the frequency weighted sum of the item's n-grams.
func (it *Item) WeightedSum() int {
	it.sumOnce.Do(func() {
		it.sum = it.gen.freq.WeightedSum(it.Ngrams())
	})
	return it.sum
}

// Fingerprint returns the frequency weighted SimHash of the item's n-grams.
func (it *Item) Fingerprint() uint32 {
	it.fpOnce.Do(func() {
		it.fp = Fingerprint(it.Ngrams(), it.gen.freq.Weight)
	})
	return it.fp
}

// GoString keeps debug output short.
func (it *Item) GoString() string { return fmt.Sprintf("%q", it.str) }

func itemDistance(a, b *Item) int {
	return Distance(a.Fingerprint(), b.Fingerprint())
}
