package simmatch

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// fingerprints computes item fingerprints in parallel so the BK-tree build
// only reads memoized values.
func (m *Matcher) fingerprints(ctx context.Context, items []*Item) error {
	bar := m.progress(" simhash", len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers())
	for _, it := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			it.Fingerprint()
			bar.add()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	bar.finish()
	return nil
}

func (m *Matcher) scoreAll(ctx context.Context, gen *generation, cands []*Candidate) error {
	bar := m.progress("Scoring", len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers())
	for _, c := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.Score(gen.stages.score)
			bar.add()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	bar.finish()
	return nil
}

// pickWinners walks the scored candidates from best to worst. Ties keep
// generation order. In one-to-one mode a candidate is taken only if neither
// of its items has been claimed yet; in best mode only the needle is
// claimed. Results follow needle order.
func pickWinners(needles []*Item, cands []*Candidate, mode AssignMode, minScore float64) []Result {
	ranked := make([]*Candidate, 0, len(cands))
	for _, c := range cands {
		if c.score >= minScore {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	claimed := make(map[*Item]struct{}, 2*len(needles))
	won := make(map[*Item]*Candidate, len(needles))
	for _, c := range ranked {
		if _, ok := claimed[c.Needle]; ok {
			continue
		}
		if mode == AssignOneToOne {
			if _, ok := claimed[c.Haystack]; ok {
				continue
			}
			claimed[c.Haystack] = struct{}{}
		}
		claimed[c.Needle] = struct{}{}
		won[c.Needle] = c
	}

	results := make([]Result, len(needles))
	for i, n := range needles {
		results[i] = Result{Needle: n.Opaque(), MatchIndex: -1}
		if c, ok := won[n]; ok {
			results[i].Match = c.Haystack.Opaque()
			results[i].MatchIndex = c.Haystack.Index()
			results[i].Score = c.score
			results[i].Matched = true
		}
	}
	return results
}
