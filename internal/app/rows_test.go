package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/simmatch/simmatch"
)

func TestRowsFromResults(t *testing.T) {
	rows := rowsFromResults([]simmatch.Result{
		{Needle: "a", Match: simmatch.Record{ID: "7", Text: "b"}, MatchIndex: 0, Score: 0.5, Matched: true},
		{Needle: "c", MatchIndex: -1},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "7: b", rows[0].Match)
	assert.Equal(t, "0.500", formatScore(rows[0]))
	assert.Equal(t, "", formatScore(rows[1]))
	assert.Equal(t, "", formatGroup(rows[1]))
}

func TestWriteRowsCSV(t *testing.T) {
	rows := []ResultRow{
		{Needle: "a", Match: "b", Score: 0.5, Matched: true, Group: 1},
		{Needle: "b", Group: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, writeRowsCSV(&buf, rows, true))
	assert.Equal(t, "group,needle,match,score\n1,a,b,0.5000\n1,b,,\n", buf.String())

	buf.Reset()
	require.NoError(t, writeRowsCSV(&buf, rows[:1], false))
	assert.Equal(t, "needle,match,score\na,b,0.5000\n", buf.String())
}
