package simmatch

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestReadRecordsPlainText(t *testing.T) {
	path := writeFile(t, "in.txt", "alpha\n\n  beta  \r\ngamma")
	recs, err := ReadRecordsFile(path, RecordParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Record{{Text: "alpha"}, {Text: "beta"}, {Text: "gamma"}}, recs)
}

func TestReadRecordsCSVDetectsColumns(t *testing.T) {
	path := writeFile(t, "in.csv", "\ufeffID,Name,Notes\n1,Black Sabbath,x\n2,,y\n3,The Doors,z\n")
	recs, err := ReadRecordsFile(path, RecordParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Record{{ID: "1", Text: "Black Sabbath"}, {ID: "3", Text: "The Doors"}}, recs)
}

func TestReadRecordsExplicitColumns(t *testing.T) {
	path := writeFile(t, "in.tsv", "a\tb\nx1\ty1\nx2\ty2\n")
	recs, err := ReadRecordsFile(path, RecordParseOptions{TextColumn: "b", IDColumn: "#1"})
	require.NoError(t, err)
	assert.Equal(t, []Record{{ID: "x1", Text: "y1"}, {ID: "x2", Text: "y2"}}, recs)

	_, err = ReadRecordsFile(path, RecordParseOptions{TextColumn: "missing"})
	assert.Error(t, err)
	_, err = ReadRecordsFile(path, RecordParseOptions{TextColumn: "#9"})
	assert.Error(t, err)
	_, err = ReadRecordsFile(path, RecordParseOptions{TextColumn: "#0"})
	assert.Error(t, err)
}

func TestReadRecordsHeaderless(t *testing.T) {
	path := writeFile(t, "in.csv", "Black Sabbath\nThe Doors\n")
	recs, err := ReadRecordsFile(path, RecordParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Record{{Text: "Black Sabbath"}, {Text: "The Doors"}}, recs)
}

func TestInspectRecords(t *testing.T) {
	meta, err := InspectRecords(strings.NewReader("no,title,notes\n1,,\n2,Neil Young,x\n"), "in.csv", ColumnCandidates{})
	require.NoError(t, err)
	assert.True(t, meta.Delimited)
	assert.True(t, meta.HasHeader)
	assert.Equal(t, []ColumnInfo{
		{Name: "no", Sample: "1"},
		{Name: "title", Sample: "Neil Young"},
		{Name: "notes", Sample: "x"},
	}, meta.Columns)
	assert.Equal(t, RecordParseOptions{IDColumn: "no", TextColumn: "title"}, meta.Suggested)
	assert.Equal(t, "notes", meta.ColumnRef(2))

	meta, err = InspectRecords(strings.NewReader("a\tb\nc\td\te\n"), "in.tsv", ColumnCandidates{})
	require.NoError(t, err)
	assert.False(t, meta.HasHeader)
	require.Len(t, meta.Columns, 3)
	assert.Equal(t, ColumnInfo{Sample: "a"}, meta.Columns[0])
	assert.Equal(t, "#1", meta.Suggested.TextColumn)
	assert.Equal(t, "#3", meta.ColumnRef(2))

	meta, err = InspectRecords(strings.NewReader("x"), "in.txt", ColumnCandidates{})
	require.NoError(t, err)
	assert.False(t, meta.Delimited)
	assert.Empty(t, meta.Columns)

	_, err = InspectRecords(strings.NewReader(""), "in.csv", ColumnCandidates{})
	assert.Error(t, err)
}

func TestReadRecordsChosenColumn(t *testing.T) {
	data := "id,name,alias\n1,Black Sabbath,Sabbath\n2,The Doors,Doors\n"
	meta, err := InspectRecords(strings.NewReader(data), "bands.csv", ColumnCandidates{})
	require.NoError(t, err)
	opts := meta.Suggested
	opts.TextColumn = meta.ColumnRef(2)
	recs, err := ReadRecords(strings.NewReader(data), "bands.csv", opts)
	require.NoError(t, err)
	assert.Equal(t, []Record{{ID: "1", Text: "Sabbath"}, {ID: "2", Text: "Doors"}}, recs)
}

func TestReadRecordsCustomColumns(t *testing.T) {
	path := writeFile(t, "in.csv", "id,band\n7,Neil Young\n")
	recs, err := ReadRecordsFile(path, RecordParseOptions{Columns: ColumnCandidates{Text: []string{"band"}}})
	require.NoError(t, err)
	assert.Equal(t, []Record{{ID: "7", Text: "Neil Young"}}, recs)

	recs, err = ReadRecordsFile(path, RecordParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Record{{ID: "7", Text: "Neil Young"}}, recs)
	assert.Equal(t, DefaultColumnCandidates().Text, ColumnCandidates{}.orDefault().Text)
}

func TestParseRecords(t *testing.T) {
	assert.Equal(t, []Record{{Text: "a"}, {Text: "b"}}, ParseRecords(" a \n\n b"))
	assert.Empty(t, ParseRecords(""))
}

func TestWriteResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteResultsCSV(&buf, []Result{
		{Needle: "blak sabbath", Match: Record{ID: "1", Text: "Black Sabbath"}, Score: 0.5, Matched: true},
		{Needle: Record{Text: "qq"}, MatchIndex: -1},
	})
	require.NoError(t, err)
	assert.Equal(t, "needle,match,score\nblak sabbath,1: Black Sabbath,0.5000\nqq,,\n", buf.String())
}

func TestOpaques(t *testing.T) {
	recs := []Record{{Text: "a"}}
	assert.Equal(t, []any{Record{Text: "a"}}, Opaques(recs))
}
