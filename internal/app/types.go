package app

// ResultRow is one line of the results table.
type ResultRow struct {
	Needle  string
	Match   string
	Score   float64
	Matched bool
	// Group is the 1-based duplicate group in dedupe mode, 0 otherwise.
	Group int
}
