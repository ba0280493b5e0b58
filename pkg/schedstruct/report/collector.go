// Package report accumulates per-cell diagnostics and run statistics.
package report

import (
	"sort"
	"time"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/resolver"
)

// Retention selects which CellDebugInfo records are kept.
type Retention int

const (
	// RetainNone keeps no records; statistics are still complete.
	RetainNone Retention = iota
	// RetainIssues keeps records carrying warnings or errors.
	RetainIssues
	// RetainAll keeps every record.
	RetainAll
)

// Collector is the accumulator for one extraction run. It is not safe for
// concurrent use.
type Collector struct {
	retention Retention
	stats     models.ParseStats
	debug     []models.CellDebugInfo
	contexts  map[string]map[string]struct{}
}

// NewCollector returns an empty Collector.
func NewCollector(retention Retention) *Collector {
	return &Collector{
		retention: retention,
		stats: models.ParseStats{
			UnknownInstructors: make(map[string]*models.MentionStats),
			UnknownSubjects:    make(map[string]*models.MentionStats),
		},
		contexts: make(map[string]map[string]struct{}),
	}
}

// Cell counts one examined group cell.
func (c *Collector) Cell() { c.stats.TotalCells++ }

// Empty counts a blank or placeholder cell.
func (c *Collector) Empty() { c.stats.EmptyCells++ }

// Parsed counts a cell that yielded a ClassInfo.
func (c *Collector) Parsed() { c.stats.ParsedCells++ }

// SkipRow counts a data row without time or date context.
func (c *Collector) SkipRow() { c.stats.SkippedRows++ }

// Sections adds discovered sections.
func (c *Collector) Sections(n int) { c.stats.Sections += n }

// Entry counts an entry build attempt.
func (c *Collector) Entry(ok bool) {
	c.stats.TotalEntries++
	if ok {
		c.stats.SuccessfulEntries++
	} else {
		c.stats.FailedEntries++
	}
}

// Error counts a cell whose content could not be segmented.
func (c *Collector) Error() { c.stats.ErrorCells++ }

// Record stores a debug record subject to the retention policy.
func (c *Collector) Record(info models.CellDebugInfo) {
	info.Confidence = clamp(info.Confidence)
	switch c.retention {
	case RetainAll:
	case RetainIssues:
		if len(info.Warnings) == 0 && len(info.Errors) == 0 {
			return
		}
	default:
		return
	}
	c.debug = append(c.debug, info)
}

// Fold adds unresolved results to the unknown-mention maps. Resolved and
// context-mismatched results leave the maps unchanged.
func (c *Collector) Fold(results ...resolver.Result) {
	for _, r := range results {
		if r.Outcome != resolver.Unresolved || r.Mention == "" {
			continue
		}
		switch r.Kind {
		case resolver.KindInstructor:
			c.add(c.stats.UnknownInstructors, "i:", r.Mention, r.Mention, r.Context)
		case resolver.KindSubject:
			c.add(c.stats.UnknownSubjects, "s:", r.Mention+" @ "+r.Context, r.Mention, r.Context)
		}
	}
}

func (c *Collector) add(m map[string]*models.MentionStats, ns, key, mention, context string) {
	ms, ok := m[key]
	if !ok {
		ms = &models.MentionStats{Mention: mention, Contexts: []string{}}
		m[key] = ms
	}
	ms.Occurrences++

	seen, ok := c.contexts[ns+key]
	if !ok {
		seen = make(map[string]struct{})
		c.contexts[ns+key] = seen
	}
	if _, dup := seen[context]; !dup && context != "" {
		seen[context] = struct{}{}
		ms.Contexts = append(ms.Contexts, context)
		sort.Strings(ms.Contexts)
	}
}

// Finish returns the accumulated statistics and retained records.
func (c *Collector) Finish(elapsed time.Duration) (models.ParseStats, []models.CellDebugInfo) {
	c.stats.ProcessingTime = elapsed
	return c.stats, c.debug
}

func clamp(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
