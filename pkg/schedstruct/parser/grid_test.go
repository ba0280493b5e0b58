package parser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/xuri/excelize/v2"
)

func TestReadGrid(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"
	require.NoError(t, f.SetCellValue(sheetName, "A1", "Date"))
	require.NoError(t, f.SetCellValue(sheetName, "C1", "Time"))
	require.NoError(t, f.SetCellValue(sheetName, "D2", "Databases  lecture\r\nJ. Doe"))
	require.NoError(t, f.SetCellValue(sheetName, "A3", 100))
	require.NoError(t, f.MergeCell(sheetName, "D2", "F2"))

	tmpFile := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.SaveAs(tmpFile))

	f2, err := excelize.OpenFile(tmpFile)
	require.NoError(t, err)
	defer f2.Close()

	grid, err := ReadGrid(f2, sheetName)
	require.NoError(t, err)

	assert.Equal(t, sheetName, grid.Sheet)
	require.Len(t, grid.Cells, 3)
	assert.Equal(t, "Date", grid.At(0, 0))
	assert.Equal(t, "Time", grid.At(0, 2))
	assert.Equal(t, "Databases  lecture\nJ. Doe", grid.At(1, 3))
	assert.Equal(t, "100", grid.At(2, 0))
	assert.Equal(t, "", grid.At(5, 5))

	require.Len(t, grid.Merges, 1)
	assert.Equal(t, models.MergedRange{R1: 1, C1: 3, R2: 1, C2: 5}, grid.Merges[0])

	m, ok := grid.MergeAt(1, 4)
	require.True(t, ok)
	assert.True(t, m.IsAnchor(1, 3))
	assert.False(t, m.IsAnchor(1, 4))
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		input    string
		expected models.MergedRange
		wantErr  bool
	}{
		{"A1:B2", models.MergedRange{R1: 0, C1: 0, R2: 1, C2: 1}, false},
		{"$D$4:$F$4", models.MergedRange{R1: 3, C1: 3, R2: 3, C2: 5}, false},
		{"'Winter'!C3:C5", models.MergedRange{R1: 2, C1: 2, R2: 4, C2: 2}, false},
		{"B2", models.MergedRange{R1: 1, C1: 1, R2: 1, C2: 1}, false},
		{"F4:D2", models.MergedRange{R1: 1, C1: 3, R2: 3, C2: 5}, false},
		{"A1:B2:C3", models.MergedRange{}, true},
		{"nonsense", models.MergedRange{}, true},
	}

	for _, tt := range tests {
		got, err := ParseRange(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}
}

func TestTrimGrid(t *testing.T) {
	rows := [][]string{
		{"a", "", ""},
		{"", "b", " "},
		{"", "", ""},
		{},
	}
	got := trimGrid(rows)

	assert.Equal(t, [][]string{{"a"}, {"", "b"}}, got)
	assert.Nil(t, trimGrid([][]string{{""}, {" "}}))
}

func TestTextCells(t *testing.T) {
	rows := [][]string{{"a", " ", "b"}, {}, {"", "c", "d"}}
	assert.Equal(t, 4, textCells(rows, 10))
	assert.Equal(t, 2, textCells(rows, 2))
	assert.Equal(t, 2, lastTextRow(rows))
	assert.Equal(t, -1, lastTextRow([][]string{{""}}))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(&models.RawGrid{}))
	assert.True(t, IsBlank(&models.RawGrid{Cells: [][]string{{"Notes", ""}}}))
	assert.False(t, IsBlank(&models.RawGrid{Cells: [][]string{{"a", "b"}, {"c"}}}))
}

func TestParseTimeSlot(t *testing.T) {
	tests := []struct {
		input   string
		want    models.TimeRange
		ok      bool
		wantErr bool
	}{
		{"08:00-09:30", models.TimeRange{Start: "08:00", End: "09:30"}, true, false},
		{"8.00 – 9.30", models.TimeRange{Start: "08:00", End: "09:30"}, true, false},
		{"12:00\n13:30", models.TimeRange{Start: "12:00", End: "13:30"}, true, false},
		{"24:00-25:00", models.TimeRange{}, true, true},
		{"Time", models.TimeRange{}, false, false},
		{"", models.TimeRange{}, false, false},
	}

	for _, tt := range tests {
		got, ok, err := ParseTimeSlot(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidTimeRange, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}
