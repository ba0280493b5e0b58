package models

import (
	"strconv"
	"strings"
)

// Study modes.
const (
	ModeStandard = "standard"
	ModeExtended = "extended"
)

// Degree levels.
const (
	DegreeLevelI  = "I"
	DegreeLevelII = "II"
)

// SectionContext identifies the program block a cell belongs to.
type SectionContext struct {
	// Program is the study program name.
	Program string `json:"program"`
	// DegreeLevel is the Roman-numeral degree level.
	DegreeLevel string `json:"degree_level"`
	// Year is the year of study.
	Year int `json:"year"`
	// Semester is the semester number.
	Semester int `json:"semester"`
	// Mode is ModeStandard or ModeExtended.
	Mode string `json:"mode"`
}

// String renders the context as program|level|year|semester|mode.
func (c SectionContext) String() string {
	return strings.Join([]string{
		c.Program,
		c.DegreeLevel,
		strconv.Itoa(c.Year),
		strconv.Itoa(c.Semester),
		c.Mode,
	}, "|")
}

// SectionConfig describes one discovered section of a sheet.
type SectionConfig struct {
	SectionContext

	// StartCol is the column of the section marker (0-based).
	StartCol int `json:"start_col"`
	// EndCol is the last column the section may claim (0-based, inclusive).
	EndCol int `json:"end_col"`
	// Groups lists group labels in column order.
	Groups []string `json:"groups"`
	// ColumnByGroup maps each group label to its column.
	ColumnByGroup map[string]int `json:"column_by_group"`
}

// GroupAt returns the group owning col, if any.
func (s *SectionConfig) GroupAt(col int) (string, bool) {
	for _, g := range s.Groups {
		if s.ColumnByGroup[g] == col {
			return g, true
		}
	}
	return "", false
}
