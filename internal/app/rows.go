package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"yashubustudio/simmatch/simmatch"
)

func rowsFromResults(results []simmatch.Result) []ResultRow {
	rows := make([]ResultRow, len(results))
	for i, r := range results {
		rows[i] = ResultRow{
			Needle:  simmatch.RecordText(r.Needle),
			Match:   simmatch.RecordText(r.Match),
			Score:   r.Score,
			Matched: r.Matched,
		}
	}
	return rows
}

// rowsFromGroups lists every group member with the record it was paired
// with.
func rowsFromGroups(results []simmatch.Result, groups []simmatch.Group) []ResultRow {
	var rows []ResultRow
	for gi, g := range groups {
		for _, idx := range g.Indices {
			r := results[idx]
			rows = append(rows, ResultRow{
				Needle:  simmatch.RecordText(r.Needle),
				Match:   simmatch.RecordText(r.Match),
				Score:   r.Score,
				Matched: r.Matched,
				Group:   gi + 1,
			})
		}
	}
	return rows
}

func formatScore(r ResultRow) string {
	if !r.Matched {
		return ""
	}
	return fmt.Sprintf("%.3f", r.Score)
}

func formatGroup(r ResultRow) string {
	if r.Group == 0 {
		return ""
	}
	return strconv.Itoa(r.Group)
}

func writeRowsCSV(w io.Writer, rows []ResultRow, withGroups bool) error {
	cw := csv.NewWriter(w)
	header := []string{"needle", "match", "score"}
	if withGroups {
		header = append([]string{"group"}, header...)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		score := ""
		if r.Matched {
			score = strconv.FormatFloat(r.Score, 'f', 4, 64)
		}
		record := []string{r.Needle, r.Match, score}
		if withGroups {
			record = append([]string{formatGroup(r)}, record...)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
