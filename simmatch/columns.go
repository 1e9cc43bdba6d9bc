package simmatch

import "strings"

// ColumnCandidates lists the header names tried, ignoring case, when a
// CSV/TSV column is not named explicitly. An empty list falls back to the
// built-in names.
type ColumnCandidates struct {
	Text []string `json:"text,omitempty" yaml:"text,omitempty"`
	ID   []string `json:"id,omitempty" yaml:"id,omitempty"`
}

// DefaultColumnCandidates returns the built-in header names.
func DefaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Text: []string{"text", "name", "title", "address", "本文", "名称", "タイトル", "住所"},
		ID:   []string{"id", "index", "no", "key", "番号"},
	}
}

func (c ColumnCandidates) orDefault() ColumnCandidates {
	out := DefaultColumnCandidates()
	if len(c.Text) > 0 {
		out.Text = append([]string(nil), c.Text...)
	}
	if len(c.ID) > 0 {
		out.ID = append([]string(nil), c.ID...)
	}
	return out
}

// headerIndex returns the first header cell equal to one of names, or -1.
func headerIndex(header, names []string) int {
	for i, cell := range header {
		for _, name := range names {
			if strings.EqualFold(cell, name) {
				return i
			}
		}
	}
	return -1
}
