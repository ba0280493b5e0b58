// Package schedstruct extracts normalized class entries from timetable workbooks.
package schedstruct

import (
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/parser"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/report"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/resolver"
)

// Mode represents the diagnostic detail kept by an extraction run.
type Mode string

const (
	// ModeLight keeps statistics only.
	ModeLight Mode = "light"
	// ModeStandard keeps debug records for cells with warnings or errors.
	ModeStandard Mode = "standard"
	// ModeVerbose keeps a debug record for every non-empty cell.
	ModeVerbose Mode = "verbose"
)

// Options configures extraction behavior.
type Options struct {
	// Mode specifies the debug detail (light, standard, verbose).
	Mode Mode
	// Layout configures header discovery.
	Layout parser.LayoutOptions
	// DateCol, WeekdayCol and TimeCol locate the row context columns (0-based).
	// DateCol and WeekdayCol may be the same column.
	DateCol    int
	WeekdayCol int
	TimeCol    int
	// AcademicYearStart completes day.month dates that carry no year:
	// months from September on belong to this year, earlier ones to the next.
	// Zero leaves such dates as written.
	AcademicYearStart int
	// Resolver overrides the registry-backed resolver.
	Resolver resolver.EntityResolver
}

// DefaultOptions returns default extraction options. The default mode keeps
// a debug record for every non-empty cell.
func DefaultOptions() Options {
	return Options{
		Mode:       ModeVerbose,
		Layout:     parser.DefaultLayoutOptions(),
		DateCol:    0,
		WeekdayCol: 1,
		TimeCol:    2,
	}
}

// ParseMode parses a mode name. Unknown names are rejected.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeLight, ModeStandard, ModeVerbose:
		return Mode(s), true
	}
	return "", false
}

// retention maps the mode to the collector policy.
func (o Options) retention() report.Retention {
	switch o.Mode {
	case ModeLight:
		return report.RetainNone
	case ModeVerbose:
		return report.RetainAll
	default:
		return report.RetainIssues
	}
}
