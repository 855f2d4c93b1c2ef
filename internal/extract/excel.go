package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel reads every sheet row by row. Two-column rows are treated as
// (speaker, utterance) pairs and rendered "Speaker: utterance"; wider rows are
// tab-joined.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			cells := trimCells(row)
			switch len(cells) {
			case 0:
				continue
			case 2:
				if cells[0] != "" && cells[1] != "" {
					lines = append(lines, cells[0]+": "+cells[1])
					continue
				}
			}
			if line := strings.TrimSpace(strings.Join(cells, "\t")); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// trimCells trims each cell and drops trailing empty cells.
func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
