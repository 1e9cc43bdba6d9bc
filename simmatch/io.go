package simmatch

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Record is a line of an input file. DefaultRead matches on Text.
type Record struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// RecordParseOptions chooses which CSV/TSV columns map to record fields.
// Columns are header names or 1-based "#N" positions; empty means detect
// by the names in Columns.
type RecordParseOptions struct {
	IDColumn   string
	TextColumn string
	Columns    ColumnCandidates
}

// ColumnInfo describes one column of a CSV/TSV input.
type ColumnInfo struct {
	// Name is the header cell, empty when the input has no header row.
	Name string
	// Sample is the first non-empty value below the header.
	Sample string
}

// FileMetadata describes an input before its records are read. Only
// CSV/TSV inputs are Delimited and carry columns.
type FileMetadata struct {
	Delimited bool
	HasHeader bool
	Columns   []ColumnInfo
	Suggested RecordParseOptions
}

// ColumnRef returns the reference RecordParseOptions accepts for column i.
func (m FileMetadata) ColumnRef(i int) string {
	if m.HasHeader && i < len(m.Columns) && m.Columns[i].Name != "" {
		return m.Columns[i].Name
	}
	return fmt.Sprintf("#%d", i+1)
}

// ReadRecordsFile reads .csv and .tsv files by column and any other file as
// one record per non-empty line.
func ReadRecordsFile(path string, opts RecordParseOptions) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return ReadRecords(f, path, opts)
}

// ReadRecords reads records from r. The extension of name selects CSV, TSV
// or plain lines.
func ReadRecords(r io.Reader, name string, opts RecordParseOptions) ([]Record, error) {
	comma := delimiterFor(name)
	if comma == 0 {
		return readLines(r)
	}
	rows, err := readRows(r, comma)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(name), err)
	}
	l, err := resolveLayout(rows[0], opts)
	if err != nil {
		return nil, err
	}
	if l.header {
		rows = rows[1:]
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{Text: cell(row, l.text.index), ID: cell(row, l.id.index)}
		if rec.Text != "" {
			records = append(records, rec)
		}
	}
	return records, nil
}

// InspectRecords reports the columns of a CSV/TSV input with a sample value
// each and the columns ReadRecords would pick on its own.
func InspectRecords(r io.Reader, name string, columns ColumnCandidates) (FileMetadata, error) {
	comma := delimiterFor(name)
	if comma == 0 {
		return FileMetadata{}, nil
	}
	rows, err := readRows(r, comma)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("read %s: %w", filepath.Base(name), err)
	}
	l, err := resolveLayout(rows[0], RecordParseOptions{Columns: columns})
	if err != nil {
		return FileMetadata{}, err
	}
	meta := FileMetadata{Delimited: true, HasHeader: l.header}
	body := rows
	if l.header {
		body = rows[1:]
	}
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	meta.Columns = make([]ColumnInfo, width)
	for i := range meta.Columns {
		if l.header {
			meta.Columns[i].Name = cell(rows[0], i)
		}
		for _, row := range body {
			if v := cell(row, i); v != "" {
				meta.Columns[i].Sample = v
				break
			}
		}
	}
	meta.Suggested.TextColumn = meta.ColumnRef(l.text.index)
	if l.id.index >= 0 {
		meta.Suggested.IDColumn = meta.ColumnRef(l.id.index)
	}
	return meta, nil
}

// ParseRecords splits pasted text into one record per non-empty line.
func ParseRecords(data string) []Record {
	records, _ := readLines(strings.NewReader(data))
	return records
}

// Opaques converts records for Matcher calls.
func Opaques(records []Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}

func delimiterFor(name string) rune {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ','
	case ".tsv":
		return '\t'
	}
	return 0
}

func readLines(r io.Reader) ([]Record, error) {
	var out []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	for scanner.Scan() {
		if line := cleanCell(scanner.Text()); line != "" {
			out = append(out, Record{Text: line})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return out, nil
}

// readRows reads every row of a delimited input. The result is never empty.
func readRows(r io.Reader, comma rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}
	return rows, nil
}

// WriteResultsCSV writes one row per result: needle, match, score.
// Unmatched needles have empty match and score cells.
func WriteResultsCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"needle", "match", "score"}); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{RecordText(r.Needle), "", ""}
		if r.Matched {
			row[1] = RecordText(r.Match)
			row[2] = strconv.FormatFloat(r.Score, 'f', 4, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RecordText renders an opaque record for output.
func RecordText(opaque any) string {
	switch v := opaque.(type) {
	case nil:
		return ""
	case string:
		return v
	case Record:
		if v.ID != "" {
			return v.ID + ": " + v.Text
		}
		return v.Text
	case *Record:
		if v != nil {
			return RecordText(*v)
		}
		return ""
	}
	return fmt.Sprint(opaque)
}

func cleanCell(v string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "\ufeff"))
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return cleanCell(row[i])
}

// column is a resolved column position. named reports it was found by its
// header cell, which marks the first row as a header.
type column struct {
	index int
	named bool
}

type layout struct {
	id, text column
	header   bool
}

// resolveLayout places the id and text columns. Without a detected text
// column the text is the first column that is not the id.
func resolveLayout(header []string, opts RecordParseOptions) (layout, error) {
	names := opts.Columns.orDefault()
	id, err := resolveColumn(header, opts.IDColumn, names.ID)
	if err != nil {
		return layout{}, err
	}
	text, err := resolveColumn(header, opts.TextColumn, names.Text)
	if err != nil {
		return layout{}, err
	}
	l := layout{id: id, text: text, header: id.named || text.named}
	if l.text.index < 0 {
		l.text.index = 0
		if l.id.index == 0 && len(header) > 1 {
			l.text.index = 1
		}
	}
	return l, nil
}

func resolveColumn(header []string, ref string, names []string) (column, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		i := headerIndex(cleanRow(header), names)
		return column{index: i, named: i >= 0}, nil
	}
	if i := headerIndex(cleanRow(header), []string{ref}); i >= 0 {
		return column{index: i, named: true}, nil
	}
	if !strings.HasPrefix(ref, "#") {
		return column{index: -1}, fmt.Errorf("column %q not found", ref)
	}
	n, err := strconv.Atoi(strings.TrimSpace(ref[1:]))
	switch {
	case err != nil:
		return column{index: -1}, fmt.Errorf("invalid column index %q", ref)
	case n < 1:
		return column{index: -1}, fmt.Errorf("column indices are 1-based: %q", ref)
	case n > len(header):
		return column{index: -1}, fmt.Errorf("column index %s is out of range", ref)
	}
	return column{index: n - 1}, nil
}

func cleanRow(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cleanCell(v)
	}
	return out
}
