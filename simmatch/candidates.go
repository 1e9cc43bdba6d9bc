package simmatch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultNgramOverlaps is the minimum number of shared n-grams for the
	// ngrams strategy.
	DefaultNgramOverlaps = 3
	// DefaultSimhashMaxHamming is the maximum fingerprint distance for the
	// simhash strategy.
	DefaultSimhashMaxHamming = 7
	// allCandidatesLimit is the needles*haystack product below which the
	// automatic choice is the exhaustive strategy.
	allCandidatesLimit = 200000
)

// StrategyKind names a candidate generation method.
type StrategyKind string

const (
	// StrategyAuto picks all or simhash from the input sizes.
	StrategyAuto StrategyKind = ""
	// StrategyAll pairs every needle with every haystack item.
	StrategyAll StrategyKind = "all"
	// StrategyNgrams pairs items sharing at least Param n-grams.
	StrategyNgrams StrategyKind = "ngrams"
	// StrategySimhash pairs items whose fingerprints are within Param bits.
	StrategySimhash StrategyKind = "simhash"
)

// Strategy is a parsed candidates setting. Param is the overlap count for
// ngrams and the maximum Hamming distance for simhash.
type Strategy struct {
	Kind  StrategyKind
	Param int
}

var strategyParam = regexp.MustCompile(`^(ngrams|simhash)=(\d+)$`)

// ParseStrategy parses "all", "ngrams", "ngrams=K", "simhash", "simhash=H"
// or "" for automatic selection.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "":
		return Strategy{Kind: StrategyAuto}, nil
	case "all":
		return Strategy{Kind: StrategyAll}, nil
	case "ngrams":
		return Strategy{Kind: StrategyNgrams, Param: DefaultNgramOverlaps}, nil
	case "simhash":
		return Strategy{Kind: StrategySimhash, Param: DefaultSimhashMaxHamming}, nil
	}
	m := strategyParam.FindStringSubmatch(s)
	if m == nil {
		return Strategy{}, fmt.Errorf("%w %q", ErrUnsupportedCandidates, s)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return Strategy{}, fmt.Errorf("%w %q: %v", ErrUnsupportedCandidates, s, err)
	}
	return Strategy{Kind: StrategyKind(m[1]), Param: n}, nil
}

// String formats the strategy the way ParseStrategy accepts it.
func (s Strategy) String() string {
	switch s.Kind {
	case StrategyNgrams, StrategySimhash:
		return fmt.Sprintf("%s=%d", s.Kind, s.Param)
	}
	return string(s.Kind)
}

// resolve picks the concrete strategy for an automatic setting.
func (s Strategy) resolve(needles, haystack int) Strategy {
	if s.Kind != StrategyAuto {
		return s
	}
	if needles*haystack < allCandidatesLimit {
		return Strategy{Kind: StrategyAll}
	}
	return Strategy{Kind: StrategySimhash, Param: DefaultSimhashMaxHamming}
}

// pairFunc returns the haystack candidates for one needle.
type pairFunc func(n *Item) []*Item

func (m *Matcher) candidates(ctx context.Context, gen *generation, needles []*Item, strategy Strategy, self bool) ([]*Candidate, error) {
	var pairs pairFunc
	switch strategy.Kind {
	case StrategyAll:
		pairs = func(*Item) []*Item { return gen.haystack }
	case StrategyNgrams:
		pairs = ngramPairs(gen.haystack, strategy.Param)
	case StrategySimhash:
		tree, err := m.bkTree(ctx, gen)
		if err != nil {
			return nil, err
		}
		pairs = simhashPairs(tree, strategy.Param)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedCandidates, strategy.String())
	}

	perNeedle := make([][]*Item, len(needles))
	bar := m.progress(fmt.Sprintf(" %s", strategy), len(needles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers())
	for i, n := range needles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perNeedle[i] = pairs(n)
			bar.add()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	bar.finish()

	var out []*Candidate
	for i, hs := range perNeedle {
		for _, h := range hs {
			if self && needles[i] == h {
				continue
			}
			out = append(out, &Candidate{Needle: needles[i], Haystack: h})
		}
	}
	return out, nil
}

// ngramPairs emits a haystack item as soon as it shares overlaps n-grams
// with the needle. Zero overlaps keeps every item.
func ngramPairs(haystack []*Item, overlaps int) pairFunc {
	if overlaps <= 0 {
		return func(*Item) []*Item { return haystack }
	}
	return func(n *Item) []*Item {
		var out []*Item
		for _, h := range haystack {
			count := 0
			for _, ngram := range h.Ngrams() {
				if !n.Has(ngram) {
					continue
				}
				count++
				if count == overlaps {
					out = append(out, h)
					break
				}
			}
		}
		return out
	}
}

func simhashPairs(tree *Tree[*Item], maxHamming int) pairFunc {
	return func(n *Item) []*Item {
		hits := tree.Query(n, maxHamming)
		out := make([]*Item, len(hits))
		for i, hit := range hits {
			out[i] = hit.Value
		}
		return out
	}
}
