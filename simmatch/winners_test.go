package simmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scored(n, h *Item, score float64) *Candidate {
	c := &Candidate{Needle: n, Haystack: h}
	c.Score(func(*Item, *Item) float64 { return score })
	return c
}

func testItems(names ...string) []*Item {
	items := make([]*Item, len(names))
	for i, name := range names {
		items[i] = &Item{opaque: name, str: name, index: i}
	}
	return items
}

func TestPickWinnersGreedy(t *testing.T) {
	needles := testItems("n0", "n1", "n2")
	hay := testItems("h0", "h1")
	cands := []*Candidate{
		scored(needles[0], hay[0], 0.8),
		scored(needles[0], hay[1], 0.7),
		scored(needles[1], hay[0], 0.9),
		scored(needles[2], hay[1], 0.2),
	}
	results := pickWinners(needles, cands, AssignOneToOne, 0)
	assert.Equal(t, []Result{
		{Needle: "n0", Match: "h1", MatchIndex: 1, Score: 0.7, Matched: true},
		{Needle: "n1", Match: "h0", MatchIndex: 0, Score: 0.9, Matched: true},
		{Needle: "n2", MatchIndex: -1},
	}, results)
}

func TestPickWinnersTiesKeepGenerationOrder(t *testing.T) {
	needles := testItems("n0", "n1")
	hay := testItems("h0")
	cands := []*Candidate{
		scored(needles[1], hay[0], 0.5),
		scored(needles[0], hay[0], 0.5),
	}
	results := pickWinners(needles, cands, AssignOneToOne, 0)
	assert.False(t, results[0].Matched)
	assert.True(t, results[1].Matched)
}

func TestPickWinnersBestReusesHaystack(t *testing.T) {
	needles := testItems("n0", "n1")
	hay := testItems("h0", "h1")
	cands := []*Candidate{
		scored(needles[0], hay[0], 0.9),
		scored(needles[0], hay[1], 0.1),
		scored(needles[1], hay[0], 0.8),
		scored(needles[1], hay[1], 0.3),
	}
	results := pickWinners(needles, cands, AssignBest, 0)
	assert.Equal(t, "h0", results[0].Match)
	assert.Equal(t, "h0", results[1].Match)
	assert.Equal(t, 0.8, results[1].Score)
}

func TestPickWinnersMinScore(t *testing.T) {
	needles := testItems("n0")
	hay := testItems("h0", "h1")
	cands := []*Candidate{
		scored(needles[0], hay[0], 0.39),
		scored(needles[0], hay[1], 0.4),
	}
	results := pickWinners(needles, cands, AssignOneToOne, 0.4)
	assert.Equal(t, "h1", results[0].Match)
	results = pickWinners(needles, cands, AssignOneToOne, 0.41)
	assert.False(t, results[0].Matched)
}

func TestPickWinnersSharedClaimsInSelfMatching(t *testing.T) {
	items := testItems("a", "b")
	cands := []*Candidate{
		scored(items[0], items[1], 1),
		scored(items[1], items[0], 1),
	}
	results := pickWinners(items, cands, AssignOneToOne, 0)
	assert.Equal(t, "b", results[0].Match)
	assert.False(t, results[1].Matched)
}
