package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// LayoutOptions controls header discovery.
type LayoutOptions struct {
	// HeaderRows is how many top rows may hold headers.
	HeaderRows int
	// DegreeRow, SectionRow and GroupRow pin header rows (0-based); -1 detects them.
	DegreeRow  int
	SectionRow int
	GroupRow   int
	// MaxGroupScan is how many columns right of a section marker may hold groups.
	MaxGroupScan int
	// DefaultProgram is used when no program name is found near a marker.
	DefaultProgram string
	// SemesterForYear derives the semester when the header has none.
	SemesterForYear func(year int) int
}

// DefaultLayoutOptions returns the default header discovery settings.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		HeaderRows:      7,
		DegreeRow:       -1,
		SectionRow:      -1,
		GroupRow:        -1,
		MaxGroupScan:    15,
		SemesterForYear: DefaultSemesterForYear,
	}
}

// DefaultSemesterForYear assumes two sequential semesters per year and
// returns the first semester of the year.
func DefaultSemesterForYear(year int) int {
	return 2*year - 1
}

// Layout is the header analysis of one sheet.
type Layout struct {
	Sections []models.SectionConfig
	// DegreeRow, SectionRow and GroupRow are the rows used, or -1.
	DegreeRow  int
	SectionRow int
	GroupRow   int
	// DataStart is the first data row.
	DataStart int
}

const (
	romanNumeral = `IX|IV|VI{0,3}|X|I{1,3}`
	notWord      = `(?:^|[^\p{L}\d])`
	endWord      = `(?:$|[^\p{L}\d])`
	degreeWord   = `(?i:degree|stopie[nń]|stopnia|cycle)`
)

var (
	degreePatterns = []*regexp.Regexp{
		regexp.MustCompile(notWord + `(IV|I{1,3})[\s\-.]*` + degreeWord),
		regexp.MustCompile(degreeWord + `\s*[:\-]?\s*(IV|I{1,3})` + endWord),
		regexp.MustCompile(notWord + `([1-4])(?i:st|nd|rd|th)?[\s\-]*(?i:degree|cycle)`),
	}
	yearPatterns = []*regexp.Regexp{
		regexp.MustCompile(notWord + `((?i:year|rok)\s*[:.]?\s*(\d|` + romanNumeral + `))` + endWord),
		regexp.MustCompile(notWord + `((\d|` + romanNumeral + `)(?i:st|nd|rd|th)?\.?\s*(?i:year|rok|roku))` + endWord),
	}
	semesterPatterns = []*regexp.Regexp{
		regexp.MustCompile(notWord + `((?i:semester|semestr|sem)\.?\s*[:.]?\s*(\d{1,2}|` + romanNumeral + `))` + endWord),
		regexp.MustCompile(notWord + `((\d{1,2}|` + romanNumeral + `)(?i:st|nd|rd|th)?\.?\s*(?i:semester|semestr|sem))` + endWord),
	}
	groupCodePattern = regexp.MustCompile(`^(?:\p{L}{1,3}\d+|\d{1,2})$`)
)

type degreeRange struct {
	start, end int
	level      string
}

type sectionMarker struct {
	col      int
	year     int
	semester int
	text     string
	// yearAt is the byte offset of the year marker in text.
	yearAt int
}

// AnalyzeLayout discovers the sections of a sheet from its header rows.
func AnalyzeLayout(g *models.RawGrid, opts LayoutOptions) Layout {
	if opts.SemesterForYear == nil {
		opts.SemesterForYear = DefaultSemesterForYear
	}
	if opts.MaxGroupScan <= 0 {
		opts.MaxGroupScan = 15
	}
	headerRows := opts.HeaderRows
	if headerRows <= 0 || headerRows > len(g.Cells) {
		headerRows = len(g.Cells)
	}
	width := g.Width()

	layout := Layout{DegreeRow: -1, SectionRow: -1, GroupRow: -1, DataStart: headerRows}

	layout.DegreeRow = pickRow(opts.DegreeRow, 0, headerRows, len(g.Cells), func(r int) bool {
		return rowHas(g, r, func(s string) bool { _, ok := degreeMarker(s); return ok })
	})
	ranges := degreeRanges(g, layout.DegreeRow, width)

	layout.SectionRow = pickRow(opts.SectionRow, 0, headerRows, len(g.Cells), func(r int) bool {
		return rowHas(g, r, func(s string) bool { _, _, ok := yearMarker(s); return ok })
	})
	if layout.SectionRow < 0 {
		return layout
	}

	layout.GroupRow = pickRow(opts.GroupRow, layout.SectionRow+1, headerRows, len(g.Cells), func(r int) bool {
		return rowHas(g, r, func(s string) bool { _, ok := groupCode(s); return ok })
	})
	if layout.GroupRow < 0 {
		layout.DataStart = layout.SectionRow + 1
		return layout
	}
	layout.DataStart = layout.GroupRow + 1

	markers := sectionMarkers(g, layout.SectionRow, opts)
	claimed := make(map[int]bool)

	for i, m := range markers {
		sec := models.SectionConfig{
			SectionContext: models.SectionContext{
				Year:     m.year,
				Semester: m.semester,
				Mode:     models.ModeStandard,
			},
			StartCol:      m.col,
			ColumnByGroup: make(map[string]int),
		}
		if isExtendedMode(m.text) {
			sec.Mode = models.ModeExtended
		}

		lo, hi := 0, width-1
		rng := enclosingRange(ranges, m.col)
		switch {
		case len(ranges) == 0:
			sec.DegreeLevel = models.DegreeLevelI
		case rng != nil:
			sec.DegreeLevel = rng.level
			lo, hi = rng.start, rng.end
		case m.semester <= 6:
			sec.DegreeLevel = models.DegreeLevelI
		default:
			sec.DegreeLevel = models.DegreeLevelII
		}

		sec.Program = programFor(g, layout.SectionRow, m, lo, opts.DefaultProgram)

		end := m.col + opts.MaxGroupScan - 1
		if end > hi {
			end = hi
		}
		if i+1 < len(markers) && markers[i+1].col-1 < end {
			end = markers[i+1].col - 1
		}
		sec.EndCol = end

		yearDigit := strconv.Itoa(m.year)[0]
		for col := m.col; col <= end; col++ {
			if claimed[col] {
				continue
			}
			code, ok := groupCode(g.At(layout.GroupRow, col))
			if !ok {
				continue
			}
			if isDigits(code) && code[0] != yearDigit {
				continue
			}
			if _, dup := sec.ColumnByGroup[code]; dup {
				continue
			}
			sec.Groups = append(sec.Groups, code)
			sec.ColumnByGroup[code] = col
			claimed[col] = true
		}

		if len(sec.Groups) == 0 {
			continue
		}
		layout.Sections = append(layout.Sections, sec)
	}

	return layout
}

// pickRow returns pinned if set, otherwise the first row in [from, to) matching.
// A pinned row outside the grid's rows yields -1.
func pickRow(pinned, from, to, rows int, match func(r int) bool) int {
	if pinned >= rows {
		return -1
	}
	if pinned >= 0 {
		return pinned
	}
	for r := from; r < to; r++ {
		if match(r) {
			return r
		}
	}
	return -1
}

func rowHas(g *models.RawGrid, r int, match func(string) bool) bool {
	if r < 0 || r >= len(g.Cells) {
		return false
	}
	for _, cell := range g.Cells[r] {
		if cell != "" && match(cell) {
			return true
		}
	}
	return false
}

// degreeRanges partitions the sheet horizontally by degree markers.
func degreeRanges(g *models.RawGrid, row, width int) []degreeRange {
	if row < 0 || row >= len(g.Cells) {
		return nil
	}
	var ranges []degreeRange
	for col, cell := range g.Cells[row] {
		level, ok := degreeMarker(cell)
		if !ok {
			continue
		}
		if n := len(ranges); n > 0 {
			ranges[n-1].end = col - 1
		}
		ranges = append(ranges, degreeRange{start: col, end: width - 1, level: level})
	}
	return ranges
}

func enclosingRange(ranges []degreeRange, col int) *degreeRange {
	for i := range ranges {
		if col >= ranges[i].start && col <= ranges[i].end {
			return &ranges[i]
		}
	}
	return nil
}

func sectionMarkers(g *models.RawGrid, row int, opts LayoutOptions) []sectionMarker {
	var markers []sectionMarker
	for col, cell := range g.Cells[row] {
		year, at, ok := yearMarker(cell)
		if !ok || year <= 0 {
			continue
		}
		semester, ok := semesterMarker(cell)
		if !ok {
			semester = opts.SemesterForYear(year)
		}
		markers = append(markers, sectionMarker{col: col, year: year, semester: semester, text: cell, yearAt: at})
	}
	return markers
}

// degreeMarker returns the Roman degree level named in s.
func degreeMarker(s string) (string, bool) {
	for _, re := range degreePatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		switch m[1] {
		case "1":
			return "I", true
		case "2":
			return "II", true
		case "3":
			return "III", true
		case "4":
			return "IV", true
		}
		return m[1], true
	}
	return "", false
}

// yearMarker returns the year of study and the offset where its marker starts.
func yearMarker(s string) (year, at int, ok bool) {
	for _, re := range yearPatterns {
		loc := re.FindStringSubmatchIndex(s)
		if loc == nil {
			continue
		}
		if n, ok := parseNumeral(s[loc[4]:loc[5]]); ok {
			return n, loc[2], true
		}
	}
	return 0, 0, false
}

func semesterMarker(s string) (int, bool) {
	for _, re := range semesterPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if n, ok := parseNumeral(m[2]); ok && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// programFor resolves the program name of a section marker: text before the
// year marker in the same cell, else the nearest non-empty cell above and to
// the left within the degree range, else the default.
func programFor(g *models.RawGrid, row int, m sectionMarker, lo int, fallback string) string {
	if p := cleanProgram(m.text[:m.yearAt]); p != "" {
		return p
	}
	for r := row - 1; r >= 0; r-- {
		for c := m.col; c >= lo; c-- {
			cell := g.At(r, c)
			if strings.TrimSpace(cell) == "" {
				continue
			}
			if p := cleanProgram(cell); p != "" {
				return p
			}
			break
		}
	}
	return fallback
}

// cleanProgram strips degree and mode markers from header text and returns
// what remains if it contains letters.
func cleanProgram(s string) string {
	for _, re := range degreePatterns {
		s = re.ReplaceAllString(s, " ")
	}
	if _, at, ok := yearMarker(s); ok {
		s = s[:at]
	}
	s = extendedPattern.ReplaceAllString(s, " ")
	s = collapseSpaces(strings.Trim(s, subjectTrimSet+")"))
	if strings.IndexFunc(s, unicode.IsLetter) < 0 {
		return ""
	}
	return s
}

// groupCode returns the first group-code token of a header cell.
func groupCode(s string) (string, bool) {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if groupCodePattern.MatchString(tok) {
			return tok, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// parseNumeral parses an Arabic or Roman numeral.
func parseNumeral(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	values := map[rune]int{'I': 1, 'V': 5, 'X': 10}
	total, prev := 0, 0
	for i := len(s) - 1; i >= 0; i-- {
		v, ok := values[rune(s[i])]
		if !ok {
			return 0, false
		}
		if v < prev {
			total -= v
		} else {
			total += v
			prev = v
		}
	}
	return total, total > 0
}
