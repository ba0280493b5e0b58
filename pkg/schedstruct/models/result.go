package models

// ExtractionResult is the output of one extraction run.
type ExtractionResult struct {
	// BookName is the workbook file name (no path), when known.
	BookName string `json:"book_name,omitempty"`
	// SourceHash is the hex SHA-256 of the source bytes, when known.
	SourceHash string `json:"source_hash,omitempty"`
	// Entries lists schedule entries in sheet, section, row, column order.
	Entries []ScheduleEntry `json:"entries"`
	// Sections maps sheet name to its discovered sections.
	Sections map[string][]SectionConfig `json:"sections"`
	// Stats holds run counters.
	Stats ParseStats `json:"stats"`
	// DebugInfo holds per-cell records retained by the debug mode.
	DebugInfo []CellDebugInfo `json:"debug_info,omitempty"`
}
