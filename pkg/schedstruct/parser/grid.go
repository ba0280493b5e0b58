package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/xuri/excelize/v2"
)

// ErrMergedCells marks failures reading a sheet's merged regions.
var ErrMergedCells = errors.New("merged cells")

// ReadGrid reads one worksheet into a RawGrid.
// Cell text is taken as formatted by excelize; merged ranges are attached.
func ReadGrid(f *excelize.File, sheetName string) (models.RawGrid, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return models.RawGrid{}, err
	}

	merges, err := f.GetMergeCells(sheetName)
	if err != nil {
		return models.RawGrid{}, fmt.Errorf("%w: %w", ErrMergedCells, err)
	}

	grid := models.RawGrid{
		Sheet: sheetName,
		Cells: trimGrid(normalizeRows(rows)),
	}
	for _, mc := range merges {
		area, err := parseRangeToMerge(mc.GetStartAxis() + ":" + mc.GetEndAxis())
		if err != nil {
			return models.RawGrid{}, fmt.Errorf("%w: range %q: %w", ErrMergedCells, mc.GetStartAxis(), err)
		}
		grid.Merges = append(grid.Merges, *area)
	}
	sortMerges(grid.Merges)

	return grid, nil
}

// normalizeRows converts Windows line endings and non-breaking spaces so
// downstream patterns only deal with '\n' and ' '.
func normalizeRows(rows [][]string) [][]string {
	r := strings.NewReplacer("\r\n", "\n", "\r", "\n", "\u00a0", " ")
	for i, row := range rows {
		for j, cell := range row {
			rows[i][j] = r.Replace(cell)
		}
	}
	return rows
}
