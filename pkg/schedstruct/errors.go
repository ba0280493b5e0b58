package schedstruct

import (
	"errors"
	"fmt"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/parser"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidFormat indicates the input is not a readable xlsx workbook.
var ErrInvalidFormat = errors.New("invalid xlsx format")

// ErrNoRegistry indicates extraction was started without a registry snapshot.
var ErrNoRegistry = errors.New("entity registry not loaded")

// ErrInvalidTimeRange indicates a time range that cannot be parsed.
var ErrInvalidTimeRange = parser.ErrInvalidTimeRange

// Stage names the part of reading a sheet that failed.
type Stage string

const (
	// StageRows is reading cell text.
	StageRows Stage = "rows"
	// StageMerges is reading merged regions.
	StageMerges Stage = "merges"
)

// ExtractionError is a run-level failure reading one worksheet. It aborts
// the run; cell-level problems never surface as an ExtractionError.
type ExtractionError struct {
	SheetName string
	Component Stage
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("timetable sheet %q: reading %s: %v", e.SheetName, e.Component, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// sheetError classifies a ReadGrid failure by stage.
func sheetError(sheet string, err error) *ExtractionError {
	stage := StageRows
	if errors.Is(err, parser.ErrMergedCells) {
		stage = StageMerges
	}
	return &ExtractionError{SheetName: sheet, Component: stage, Err: err}
}
