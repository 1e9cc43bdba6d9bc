package simmatch

import "sort"

// Group is a set of corpus records linked by dedupe matches.
type Group struct {
	Indices []int   `json:"indices"`
	Records []any   `json:"records"`
	Score   float64 `json:"score"`
}

// Groups clusters the results of Dedupe into connected groups. Result i
// must describe corpus record i. Score is the weakest link that joined the
// group. Matches scoring 0 share no n-gram and link nothing. Records
// without any link are left out. Groups are ordered by size, then by their
// first index.
func Groups(results []Result) []Group {
	parent := make([]int, len(results))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	weakest := make(map[int]float64)
	linked := make([]bool, len(results))
	for i, r := range results {
		if !r.Matched || r.Score <= 0 || r.MatchIndex < 0 || r.MatchIndex >= len(results) {
			continue
		}
		a, b := find(i), find(r.MatchIndex)
		score := r.Score
		for _, root := range []int{a, b} {
			if s, ok := weakest[root]; ok && s < score {
				score = s
			}
		}
		if a != b {
			if b < a {
				a, b = b, a
			}
			parent[b] = a
			delete(weakest, b)
		}
		weakest[a] = score
		linked[i], linked[r.MatchIndex] = true, true
	}

	byRoot := make(map[int]*Group)
	var order []int
	for i, r := range results {
		if !linked[i] {
			continue
		}
		root := find(i)
		g, ok := byRoot[root]
		if !ok {
			g = &Group{Score: weakest[root]}
			byRoot[root] = g
			order = append(order, root)
		}
		g.Indices = append(g.Indices, i)
		g.Records = append(g.Records, r.Needle)
	}
	out := make([]Group, 0, len(order))
	for _, root := range order {
		out = append(out, *byRoot[root])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Indices) > len(out[j].Indices)
	})
	return out
}
