package simmatch

import "sync"

// Candidate is a potential match between a needle and a haystack item. Its
// score is computed once.
type Candidate struct {
	Needle   *Item
	Haystack *Item

	once  sync.Once
	score float64
}

// Score returns the memoized score, computing it with fn on first call.
func (c *Candidate) Score(fn ScoreFunc) float64 {
	c.once.Do(func() {
		c.score = clamp01(fn(c.Needle, c.Haystack))
	})
	return c.score
}

// DiceScore is the frequency weighted Dice coefficient (2*c)/(a+b), where a
// and b are the weighted sums of each item's n-grams and c the weighted sum
// of the n-grams they share.
func DiceScore(a, b *Item) float64 {
	shared := a.Shared(b)
	if len(shared) == 0 {
		return 0
	}
	c := a.gen.freq.WeightedSum(shared)
	return (2.0 * float64(c)) / float64(a.WeightedSum()+b.WeightedSum())
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
