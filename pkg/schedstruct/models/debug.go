package models

import "time"

// Interpreted cell types recorded in CellDebugInfo.
const (
	CellTypeClass       = "class"
	CellTypePlaceholder = "placeholder"
	CellTypeCovered     = "merged_covered"
	CellTypeInvalid     = "invalid"
)

// CellDebugInfo records how one non-empty cell was interpreted.
type CellDebugInfo struct {
	// Sheet is the worksheet name.
	Sheet string `json:"sheet"`
	// Row is the row index (1-based).
	Row int `json:"row"`
	// Col is the column index (1-based).
	Col int `json:"col"`
	// Cell is the A1-style reference.
	Cell string `json:"cell"`
	// RawValue is the cell text.
	RawValue string `json:"raw_value"`
	// InterpretedType is one of the CellType constants.
	InterpretedType string `json:"interpreted_type"`
	// ParsedValue is the structured result, if any.
	ParsedValue interface{} `json:"parsed_value,omitempty"`
	// Confidence is the resolution confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// MatchedEntity is the resolved subject ID, if any.
	MatchedEntity string `json:"matched_entity,omitempty"`
	// Warnings lists non-fatal findings.
	Warnings []string `json:"warnings,omitempty"`
	// Errors lists failures that prevented an entry.
	Errors []string `json:"errors,omitempty"`
	// Context is the section context string.
	Context string `json:"context,omitempty"`
}

// MentionStats aggregates occurrences of one unresolved mention.
type MentionStats struct {
	// Mention is the text as first seen.
	Mention string `json:"mention"`
	// Occurrences counts sightings.
	Occurrences int `json:"occurrences"`
	// Contexts lists distinct section contexts, sorted.
	Contexts []string `json:"contexts"`
}

// ParseStats holds run-wide counters.
type ParseStats struct {
	TotalCells        int `json:"total_cells"`
	ParsedCells       int `json:"parsed_cells"`
	EmptyCells        int `json:"empty_cells"`
	ErrorCells        int `json:"error_cells"`
	TotalEntries      int `json:"total_entries"`
	SuccessfulEntries int `json:"successful_entries"`
	FailedEntries     int `json:"failed_entries"`
	SkippedRows       int `json:"skipped_rows"`
	Sections          int `json:"sections"`

	// ProcessingTime is the wall time of the run.
	ProcessingTime time.Duration `json:"processing_time_ns"`

	// UnknownInstructors is keyed by mention text.
	UnknownInstructors map[string]*MentionStats `json:"unknown_instructors"`
	// UnknownSubjects is keyed by "mention @ context".
	UnknownSubjects map[string]*MentionStats `json:"unknown_subjects"`
}
