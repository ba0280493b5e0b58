package schedstruct

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/parser"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/report"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/resolver"
	"github.com/xuri/excelize/v2"
)

// Extract converts worksheet grids into schedule entries. It performs no I/O
// and returns the same entries, in the same order, for the same input.
// DebugInfo holds one record per non-empty cell in ModeVerbose; ModeStandard
// keeps only cells with warnings or errors and ModeLight keeps none.
func Extract(grids []models.RawGrid, reg *models.Registry, opts Options) (*models.ExtractionResult, error) {
	if reg == nil && opts.Resolver == nil {
		return nil, ErrNoRegistry
	}
	started := time.Now()

	res := opts.Resolver
	if res == nil {
		res = resolver.New(resolver.NewIndex(reg))
	}
	collector := report.NewCollector(opts.retention())

	result := &models.ExtractionResult{
		Entries:  []models.ScheduleEntry{},
		Sections: make(map[string][]models.SectionConfig),
	}
	for i := range grids {
		grid := &grids[i]
		layout := parser.AnalyzeLayout(grid, opts.Layout)
		collector.Sections(len(layout.Sections))
		if len(layout.Sections) == 0 {
			continue
		}
		result.Sections[grid.Sheet] = layout.Sections

		b := newSheetBuilder(grid, layout, opts, res, collector)
		result.Entries = append(result.Entries, b.build()...)
	}

	result.Stats, result.DebugInfo = collector.Finish(time.Since(started))
	return result, nil
}

// ExtractFile reads a workbook from disk and extracts it.
// An unreadable workbook fails the whole run.
func ExtractFile(path string, reg *models.Registry, opts Options) (*models.ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}
	return ExtractBytes(filepath.Base(path), data, reg, opts)
}

// ExtractBytes extracts a workbook held in memory.
func ExtractBytes(name string, data []byte, reg *models.Registry, opts Options) (*models.ExtractionResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()

	grids, err := ReadGrids(f)
	if err != nil {
		return nil, err
	}

	result, err := Extract(grids, reg, opts)
	if err != nil {
		return nil, err
	}
	result.BookName = name
	result.SourceHash = ContentHash(data)
	return result, nil
}

// ReadGrids reads every worksheet of an open workbook, skipping sheets
// too sparse to hold a timetable.
func ReadGrids(f *excelize.File) ([]models.RawGrid, error) {
	var grids []models.RawGrid
	for _, name := range f.GetSheetList() {
		g, err := parser.ReadGrid(f, name)
		if err != nil {
			return nil, sheetError(name, err)
		}
		if parser.IsBlank(&g) {
			continue
		}
		grids = append(grids, g)
	}
	return grids, nil
}

// ContentHash returns the hex SHA-256 of workbook bytes, used to key snapshots.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
