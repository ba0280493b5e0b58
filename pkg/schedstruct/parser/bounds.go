package parser

import (
	"strings"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// minTimetableCells is the fewest cells with text a sheet needs before its
// header rows are analyzed.
const minTimetableCells = 3

func hasText(cell string) bool {
	return strings.TrimSpace(cell) != ""
}

// lastTextRow returns the index of the last row with text, or -1.
func lastTextRow(rows [][]string) int {
	for r := len(rows) - 1; r >= 0; r-- {
		for _, cell := range rows[r] {
			if hasText(cell) {
				return r
			}
		}
	}
	return -1
}

// textCells counts cells with text, stopping at limit.
func textCells(rows [][]string, limit int) int {
	n := 0
	for _, row := range rows {
		for _, cell := range row {
			if !hasText(cell) {
				continue
			}
			if n++; n >= limit {
				return n
			}
		}
	}
	return n
}

// trimGrid drops rows below the last row with text and the empty tail of
// each remaining row. Leading rows and columns stay so cell coordinates match
// the worksheet.
func trimGrid(rows [][]string) [][]string {
	last := lastTextRow(rows)
	if last < 0 {
		return nil
	}
	rows = rows[:last+1]
	for i, row := range rows {
		end := len(row)
		for end > 0 && !hasText(row[end-1]) {
			end--
		}
		rows[i] = row[:end]
	}
	return rows
}

// IsBlank reports whether a grid holds too little text to be a timetable.
func IsBlank(g *models.RawGrid) bool {
	return textCells(g.Cells, minTimetableCells) < minTimetableCells
}
