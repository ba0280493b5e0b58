// Package changes computes the changelog between two extraction snapshots.
package changes

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// key identifies an entry across snapshots. seq disambiguates entries that
// share the same slot and group within one snapshot.
type key struct {
	date, start, end, group string
	seq                     int
}

func (k key) less(o key) bool {
	switch {
	case k.date != o.date:
		return k.date < o.date
	case k.start != o.start:
		return k.start < o.start
	case k.end != o.end:
		return k.end < o.end
	case k.group != o.group:
		return k.group < o.group
	}
	return k.seq < o.seq
}

// field is one compared entry field.
type field struct {
	name  string
	value func(e *models.ScheduleEntry) string
}

// fields lists the compared fields in output order.
var fields = []field{
	{models.FieldSubject, func(e *models.ScheduleEntry) string { return e.Class.SubjectText }},
	{models.FieldInstructor, func(e *models.ScheduleEntry) string { return strings.Join(e.Class.InstructorTexts(), "; ") }},
	{models.FieldRoom, func(e *models.ScheduleEntry) string { return e.Class.Room() }},
	{models.FieldClassType, func(e *models.ScheduleEntry) string { return string(e.Class.ClassType) }},
	{models.FieldIsRemote, func(e *models.ScheduleEntry) string { return strconv.FormatBool(e.Class.IsRemote) }},
}

// Diff returns the changes that turn oldEntries into newEntries: removed
// records, then added, then one modified record per differing field, each
// group ordered by date, start, end and group label.
func Diff(oldEntries, newEntries []models.ScheduleEntry) []models.ScheduleChange {
	oldByKey, oldKeys := index(oldEntries)
	newByKey, newKeys := index(newEntries)

	var removed, added, modified []models.ScheduleChange

	for _, k := range oldKeys {
		if _, ok := newByKey[k]; !ok {
			removed = append(removed, record(models.ChangeRemoved, oldByKey[k]))
		}
	}
	for _, k := range newKeys {
		old, ok := oldByKey[k]
		if !ok {
			added = append(added, record(models.ChangeAdded, newByKey[k]))
			continue
		}
		cur := newByKey[k]
		for _, f := range fields {
			ov, nv := f.value(old), f.value(cur)
			if ov == nv {
				continue
			}
			c := record(models.ChangeModified, cur)
			c.FieldName = f.name
			c.OldValue = ov
			c.NewValue = nv
			modified = append(modified, c)
		}
	}

	out := make([]models.ScheduleChange, 0, len(removed)+len(added)+len(modified))
	out = append(out, removed...)
	out = append(out, added...)
	return append(out, modified...)
}

// index keys entries and returns the keys in sorted order.
func index(entries []models.ScheduleEntry) (map[key]*models.ScheduleEntry, []key) {
	byKey := make(map[key]*models.ScheduleEntry, len(entries))
	seen := make(map[key]int)
	keys := make([]key, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		k := key{date: e.Date, start: e.StartTime, end: e.EndTime, group: e.GroupLabel}
		k.seq = seen[k]
		seen[key{date: k.date, start: k.start, end: k.end, group: k.group}]++
		byKey[k] = e
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return byKey, keys
}

func record(t models.ChangeType, e *models.ScheduleEntry) models.ScheduleChange {
	return models.ScheduleChange{
		ChangeType: t,
		EntryID:    e.ID,
		Date:       e.Date,
		StartTime:  e.StartTime,
		EndTime:    e.EndTime,
		GroupLabel: e.GroupLabel,
		Subject:    e.Class.SubjectText,
	}
}

// Summary counts changes by type.
type Summary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

// Summarize counts changes by type.
func Summarize(changes []models.ScheduleChange) Summary {
	var s Summary
	for _, c := range changes {
		switch c.ChangeType {
		case models.ChangeAdded:
			s.Added++
		case models.ChangeRemoved:
			s.Removed++
		case models.ChangeModified:
			s.Modified++
		}
	}
	return s
}
