// Package models defines data structures for timetable extraction.
package models

// RawGrid is the full cell matrix of one worksheet.
type RawGrid struct {
	// Sheet is the worksheet name.
	Sheet string `json:"sheet"`
	// Cells holds cell text by row then column (0-based). Rows may be ragged.
	Cells [][]string `json:"cells"`
	// Merges lists merged-cell rectangles.
	Merges []MergedRange `json:"merges,omitempty"`
}

// MergedRange represents the bounds of a merged-cell region.
type MergedRange struct {
	// R1 is the start row (0-based).
	R1 int `json:"r1"`
	// C1 is the start column (0-based).
	C1 int `json:"c1"`
	// R2 is the end row (0-based, inclusive).
	R2 int `json:"r2"`
	// C2 is the end column (0-based, inclusive).
	C2 int `json:"c2"`
}

// Contains reports whether the cell at row, col lies inside the range.
func (m MergedRange) Contains(row, col int) bool {
	return row >= m.R1 && row <= m.R2 && col >= m.C1 && col <= m.C2
}

// IsAnchor reports whether row, col is the top-left cell of the range.
func (m MergedRange) IsAnchor(row, col int) bool {
	return row == m.R1 && col == m.C1
}

// At returns the cell text at row, col, or "" when out of bounds.
func (g *RawGrid) At(row, col int) string {
	if row < 0 || row >= len(g.Cells) {
		return ""
	}
	r := g.Cells[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Width returns the length of the longest row.
func (g *RawGrid) Width() int {
	w := 0
	for _, r := range g.Cells {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// MergeAt returns the merged range covering row, col, if any.
func (g *RawGrid) MergeAt(row, col int) (MergedRange, bool) {
	for _, m := range g.Merges {
		if m.Contains(row, col) {
			return m, true
		}
	}
	return MergedRange{}, false
}
