package schedstruct

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/parser"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/report"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/resolver"
)

// entryNamespace seeds deterministic entry IDs.
var entryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ukaji3/schedstruct-go/entry"))

// rowContext is the time and day context of one data row.
type rowContext struct {
	slot    models.TimeRange
	date    string
	weekday string
	valid   bool
}

// sheetBuilder assembles the entries of one sheet.
type sheetBuilder struct {
	grid     *models.RawGrid
	layout   parser.Layout
	opts     Options
	resolver resolver.EntityResolver
	report   *report.Collector
	rows     []rowContext
}

func newSheetBuilder(grid *models.RawGrid, layout parser.Layout, opts Options, res resolver.EntityResolver, col *report.Collector) *sheetBuilder {
	b := &sheetBuilder{
		grid:     grid,
		layout:   layout,
		opts:     opts,
		resolver: res,
		report:   col,
	}
	b.scanRows()
	return b
}

// scanRows derives the row contexts, carrying date and weekday forward.
func (b *sheetBuilder) scanRows() {
	b.rows = make([]rowContext, len(b.grid.Cells))
	var date, weekday string

	for r := b.layout.DataStart; r < len(b.grid.Cells); r++ {
		dateText := strings.TrimSpace(b.grid.At(r, b.opts.DateCol))
		weekdayText := strings.TrimSpace(b.grid.At(r, b.opts.WeekdayCol))

		if dateText != "" {
			d, rest, ok := normalizeDate(dateText, b.opts.AcademicYearStart)
			if !ok {
				d = dateText
			}
			date = d
			switch {
			case b.opts.DateCol == b.opts.WeekdayCol && ok:
				weekdayText = rest
			case b.opts.DateCol == b.opts.WeekdayCol:
				weekdayText = ""
			}
			if weekdayText == "" {
				weekday = weekdayOf(date)
			}
		}
		if weekdayText != "" {
			weekday = weekdayText
		}

		slot, ok, err := parser.ParseTimeSlot(b.grid.At(r, b.opts.TimeCol))
		if !ok || err != nil || (date == "" && weekday == "") {
			b.report.SkipRow()
			continue
		}
		b.rows[r] = rowContext{slot: slot, date: date, weekday: weekday, valid: true}
	}
}

// build returns the entries of every section in column order, row by row.
func (b *sheetBuilder) build() []models.ScheduleEntry {
	var entries []models.ScheduleEntry
	for i := range b.layout.Sections {
		sec := &b.layout.Sections[i]
		for r := b.layout.DataStart; r < len(b.grid.Cells); r++ {
			if !b.rows[r].valid {
				continue
			}
			for _, group := range sec.Groups {
				col := sec.ColumnByGroup[group]
				if e, ok := b.buildCell(sec, r, col, group); ok {
					entries = append(entries, e)
				}
			}
		}
	}
	return entries
}

// buildCell produces the entry for one group cell. A merged region yields one
// entry per section with group columns inside it, built at that section's
// first covered group column on the region's first row.
func (b *sheetBuilder) buildCell(sec *models.SectionConfig, r, col int, group string) (models.ScheduleEntry, bool) {
	anchorRow, anchorCol := r, col
	endRow := r
	groups := []string{group}
	var spanWarning string

	if m, merged := b.grid.MergeAt(r, col); merged {
		if r != m.R1 || firstGroupCol(sec, m) != col {
			return models.ScheduleEntry{}, false
		}
		anchorRow, anchorCol = m.R1, m.C1
		endRow = m.R2
		groups = groupsWithin(sec, m)
		if n := b.sectionsCovering(m); n > 1 {
			spanWarning = fmt.Sprintf("merged region %s:%s spans %d sections",
				parser.CellName(m.R1, m.C1), parser.CellName(m.R2, m.C2), n)
		}
	}

	b.report.Cell()
	raw := b.grid.At(anchorRow, anchorCol)
	if strings.TrimSpace(raw) == "" {
		b.report.Empty()
		return models.ScheduleEntry{}, false
	}

	debug := models.CellDebugInfo{
		Sheet:    b.grid.Sheet,
		Row:      anchorRow + 1,
		Col:      anchorCol + 1,
		Cell:     parser.CellName(anchorRow, anchorCol),
		RawValue: raw,
		Context:  sec.SectionContext.String(),
	}

	info, err := parser.Segment(raw)
	if err != nil {
		b.report.Error()
		b.report.Entry(false)
		debug.InterpretedType = models.CellTypeInvalid
		debug.Errors = append(debug.Errors, err.Error())
		b.report.Record(debug)
		return models.ScheduleEntry{}, false
	}
	if info == nil {
		b.report.Empty()
		debug.InterpretedType = models.CellTypePlaceholder
		b.report.Record(debug)
		return models.ScheduleEntry{}, false
	}
	b.report.Parsed()

	subject := b.resolver.Subject(info.SubjectText, sec.SectionContext)
	if subject.Outcome != resolver.Unresolved {
		info.ResolvedSubjectID = subject.EntityID
	}
	instructors := make([]resolver.Result, len(info.Instructors))
	for i, m := range info.Instructors {
		instructors[i] = b.resolver.Instructor(m.Text, sec.SectionContext)
		if instructors[i].Outcome == resolver.Resolved {
			info.Instructors[i].ResolvedID = instructors[i].EntityID
		}
	}
	b.report.Fold(append([]resolver.Result{subject}, instructors...)...)

	if spanWarning != "" {
		debug.Warnings = append(debug.Warnings, spanWarning)
	}
	if info.SubjectText == "" {
		debug.Warnings = append(debug.Warnings, "empty subject")
	}
	for _, res := range append([]resolver.Result{subject}, instructors...) {
		if w := res.Warning(); w != "" {
			debug.Warnings = append(debug.Warnings, w)
		}
	}

	ctx := b.rows[r]
	start, end := ctx.slot.Start, ctx.slot.End
	if endRow > r {
		if last := b.lastSlotEnd(r, endRow); last != "" {
			end = last
		}
	}
	if info.TimeOverride != nil {
		start, end = info.TimeOverride.Start, info.TimeOverride.End
	}

	label := strings.Join(groups, ", ")
	entry := models.ScheduleEntry{
		ID:             entryID(b.grid.Sheet, anchorRow, anchorCol, ctx.date, start, end, label),
		Sheet:          b.grid.Sheet,
		Date:           ctx.date,
		Weekday:        ctx.weekday,
		StartTime:      start,
		EndTime:        end,
		GroupLabel:     label,
		Class:          *info,
		SectionContext: sec.SectionContext,
		Row:            anchorRow + 1,
		Col:            anchorCol + 1,
	}
	b.report.Entry(true)

	debug.InterpretedType = models.CellTypeClass
	debug.ParsedValue = info
	debug.MatchedEntity = info.ResolvedSubjectID
	debug.Confidence = resolver.CellConfidence(subject, instructors)
	b.report.Record(debug)

	return entry, true
}

// lastSlotEnd returns the end time of the last valid row in (r, endRow].
func (b *sheetBuilder) lastSlotEnd(r, endRow int) string {
	for i := endRow; i > r; i-- {
		if i < len(b.rows) && b.rows[i].valid {
			return b.rows[i].slot.End
		}
	}
	return ""
}

// sectionsCovering counts the sections with a group column inside m.
func (b *sheetBuilder) sectionsCovering(m models.MergedRange) int {
	n := 0
	for i := range b.layout.Sections {
		if firstGroupCol(&b.layout.Sections[i], m) >= 0 {
			n++
		}
	}
	return n
}

// firstGroupCol returns the leftmost group column of sec inside m, or -1.
func firstGroupCol(sec *models.SectionConfig, m models.MergedRange) int {
	first := -1
	for _, g := range sec.Groups {
		c := sec.ColumnByGroup[g]
		if c >= m.C1 && c <= m.C2 && (first < 0 || c < first) {
			first = c
		}
	}
	return first
}

// groupsWithin returns the sorted group labels of sec whose columns lie in m.
func groupsWithin(sec *models.SectionConfig, m models.MergedRange) []string {
	var groups []string
	for _, g := range sec.Groups {
		if c := sec.ColumnByGroup[g]; c >= m.C1 && c <= m.C2 {
			groups = append(groups, g)
		}
	}
	sort.Strings(groups)
	return groups
}

func entryID(sheet string, row, col int, date, start, end, group string) string {
	key := strings.Join([]string{
		sheet,
		strconv.Itoa(row),
		strconv.Itoa(col),
		date,
		start,
		end,
		group,
	}, "|")
	return uuid.NewSHA1(entryNamespace, []byte(key)).String()
}
