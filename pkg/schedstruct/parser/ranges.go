package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/xuri/excelize/v2"
)

// ParseRange parses an A1 range such as "$B$3:D4" into a 0-based MergedRange.
func ParseRange(rangeStr string) (models.MergedRange, error) {
	area, err := parseRangeToMerge(rangeStr)
	if err != nil {
		return models.MergedRange{}, err
	}
	return *area, nil
}

// parseRangeToMerge parses a range string like $A$1:$D$10.
// A single cell reference yields a one-cell range.
func parseRangeToMerge(rangeStr string) (*models.MergedRange, error) {
	rangeStr = strings.ReplaceAll(strings.TrimSpace(rangeStr), "$", "")
	if idx := strings.LastIndex(rangeStr, "!"); idx >= 0 {
		rangeStr = rangeStr[idx+1:]
	}

	parts := strings.Split(rangeStr, ":")
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid range %q", rangeStr)
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return nil, err
	}
	endCol, endRow, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return nil, err
	}
	if endRow < startRow {
		startRow, endRow = endRow, startRow
	}
	if endCol < startCol {
		startCol, endCol = endCol, startCol
	}

	return &models.MergedRange{
		R1: startRow - 1,
		C1: startCol - 1,
		R2: endRow - 1,
		C2: endCol - 1,
	}, nil
}

// sortMerges orders ranges top-to-bottom, left-to-right.
func sortMerges(merges []models.MergedRange) {
	sort.Slice(merges, func(i, j int) bool {
		if merges[i].R1 != merges[j].R1 {
			return merges[i].R1 < merges[j].R1
		}
		return merges[i].C1 < merges[j].C1
	})
}

// CellName returns the A1 reference for a 0-based row and column.
func CellName(row, col int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return ""
	}
	return name
}
