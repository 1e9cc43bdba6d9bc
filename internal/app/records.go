package app

import (
	"fmt"
	"strings"

	"yashubustudio/simmatch/simmatch"
)

// recordSource remembers the records last loaded into an entry. While the
// entry still shows exactly what was loaded the records keep their ids;
// edited text is parsed again line by line.
type recordSource struct {
	loaded []simmatch.Record
	text   string
}

// load stores records and returns the text to show for them.
func (s *recordSource) load(records []simmatch.Record) string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.Text
	}
	s.loaded = append([]simmatch.Record(nil), records...)
	s.text = strings.Join(lines, "\n")
	return s.text
}

func (s *recordSource) records(current string) []simmatch.Record {
	if s.loaded != nil && current == s.text {
		return append([]simmatch.Record(nil), s.loaded...)
	}
	return simmatch.ParseRecords(current)
}

const sampleRunes = 20

func columnChoiceLabel(meta simmatch.FileMetadata, i int) string {
	col := meta.Columns[i]
	name := col.Name
	if name == "" {
		name = fmt.Sprintf("列%d", i+1)
	}
	label := fmt.Sprintf("[%d] %s", i+1, name)
	if col.Sample == "" {
		return label
	}
	sample := []rune(col.Sample)
	if len(sample) > sampleRunes {
		sample = append(sample[:sampleRunes], '…')
	}
	return fmt.Sprintf("%s (例: %s)", label, string(sample))
}

// suggestedColumn returns the index of the column meta suggests for text.
func suggestedColumn(meta simmatch.FileMetadata) int {
	for i := range meta.Columns {
		if meta.ColumnRef(i) == meta.Suggested.TextColumn {
			return i
		}
	}
	return 0
}
