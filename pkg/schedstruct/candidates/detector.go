// Package candidates builds curation queues from extracted mentions that
// the registry does not account for.
package candidates

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/resolver"
)

// Candidate kinds, as stored in ignore lists.
const (
	KindInstructor = "instructor"
	KindSubject    = "subject"
	KindRelation   = "relation"
)

// Options tunes detection.
type Options struct {
	// MinPossibleMatchLen is the fewest letters a mention needs before it
	// is suggested as part of a registered name.
	MinPossibleMatchLen int
	// MaxSamples caps the sample entry IDs per candidate.
	MaxSamples int
}

// DefaultOptions returns the default detection settings.
func DefaultOptions() Options {
	return Options{MinPossibleMatchLen: 4, MaxSamples: 3}
}

// Ignored holds curator-dismissed candidates by kind. Subjects may be keyed
// by mention or by SubjectKey; relations by RelationKey or RelationMentionKey.
type Ignored struct {
	Instructors map[string]struct{}
	Subjects    map[string]struct{}
	Relations   map[string]struct{}
}

// NewIgnored builds an Ignored set from raw keys.
func NewIgnored(instructors, subjects, relations []string) Ignored {
	ig := Ignored{
		Instructors: make(map[string]struct{}, len(instructors)),
		Subjects:    make(map[string]struct{}, len(subjects)),
		Relations:   make(map[string]struct{}, len(relations)),
	}
	for _, k := range instructors {
		ig.Instructors[resolver.NormalizeKey(k)] = struct{}{}
	}
	for _, k := range subjects {
		if mention, ctx, ok := strings.Cut(k, " @ "); ok {
			ig.Subjects[SubjectKey(mention, ctx)] = struct{}{}
			continue
		}
		ig.Subjects[resolver.NormalizeKey(k)] = struct{}{}
	}
	for _, k := range relations {
		if subject, instructor, ok := strings.Cut(k, "|"); ok {
			ig.Relations[RelationMentionKey(subject, instructor)] = struct{}{}
			continue
		}
		ig.Relations[strings.TrimSpace(k)] = struct{}{}
	}
	return ig
}

// SubjectKey is the ignore key of a subject mention within one context.
func SubjectKey(mention, context string) string {
	return resolver.NormalizeKey(mention) + " @ " + context
}

// RelationKey is the ignore key of a subject/instructor pair.
func RelationKey(subjectID, instructorID string) string {
	return subjectID + ":" + instructorID
}

// RelationMentionKey is the ignore key of a pair by mention text.
func RelationMentionKey(subjectMention, instructorMention string) string {
	return resolver.NormalizeKey(subjectMention) + "|" + resolver.NormalizeKey(instructorMention)
}

func contains(set map[string]struct{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}

// aggregate accumulates one candidate's sightings.
type aggregate struct {
	mention     string
	context     string
	occurrences int
	contexts    []string
	seenCtx     map[string]bool
	samples     []string
	subjectID   string
	instrID     string
	instrText   string
}

func (a *aggregate) add(context, entryID string, maxSamples int) {
	a.occurrences++
	if !a.seenCtx[context] {
		a.seenCtx[context] = true
		a.contexts = append(a.contexts, context)
	}
	if len(a.samples) < maxSamples && (len(a.samples) == 0 || a.samples[len(a.samples)-1] != entryID) {
		a.samples = append(a.samples, entryID)
	}
}

type aggregates struct {
	byKey map[string]*aggregate
	order []string
}

func newAggregates() *aggregates {
	return &aggregates{byKey: make(map[string]*aggregate)}
}

func (as *aggregates) get(key, mention string) *aggregate {
	a, ok := as.byKey[key]
	if !ok {
		a = &aggregate{mention: mention, seenCtx: make(map[string]bool)}
		as.byKey[key] = a
		as.order = append(as.order, key)
	}
	return a
}

// Detect computes the three review queues over the extracted history.
func Detect(entries []models.ScheduleEntry, idx *resolver.Index, ignored Ignored, opts Options) models.CandidateReport {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = DefaultOptions().MaxSamples
	}
	res := resolver.New(idx)

	instructors := newAggregates()
	subjects := newAggregates()
	relations := newAggregates()

	for i := range entries {
		e := &entries[i]
		ctx := e.SectionContext.String()

		subj := res.Subject(e.Class.SubjectText, e.SectionContext)
		if e.Class.SubjectText != "" && subj.Outcome != resolver.Resolved {
			key := SubjectKey(e.Class.SubjectText, ctx)
			if !contains(ignored.Subjects, key, resolver.NormalizeKey(e.Class.SubjectText)) {
				a := subjects.get(key, e.Class.SubjectText)
				a.context = ctx
				a.add(ctx, e.ID, opts.MaxSamples)
			}
		}

		for _, m := range e.Class.Instructors {
			ir := res.Instructor(m.Text, e.SectionContext)
			if ir.Outcome != resolver.Resolved {
				key := resolver.NormalizeKey(m.Text)
				if key != "" && !contains(ignored.Instructors, key) {
					instructors.get(key, m.Text).add(ctx, e.ID, opts.MaxSamples)
				}
				continue
			}
			if subj.Outcome == resolver.Unresolved || idx.HasRelation(subj.EntityID, ir.EntityID) {
				continue
			}
			key := RelationKey(subj.EntityID, ir.EntityID)
			if contains(ignored.Relations, key, RelationMentionKey(e.Class.SubjectText, m.Text)) {
				continue
			}
			a := relations.get(key, e.Class.SubjectText)
			if a.occurrences == 0 {
				a.subjectID, a.instrID, a.instrText = subj.EntityID, ir.EntityID, m.Text
			}
			a.add(ctx, e.ID, opts.MaxSamples)
		}
	}

	report := models.CandidateReport{
		Instructors: []models.InstructorCandidate{},
		Subjects:    []models.SubjectCandidate{},
		Relations:   []models.RelationCandidate{},
	}
	for _, key := range instructors.order {
		a := instructors.byKey[key]
		c := models.InstructorCandidate{
			MentionText:   a.mention,
			Occurrences:   a.occurrences,
			Contexts:      sorted(a.contexts),
			SampleEntries: a.samples,
		}
		if in, ok := possibleMatch(idx, a.mention, opts.MinPossibleMatchLen); ok {
			c.PossibleMatch = in.ID
			c.PossibleMatchName = in.PrimaryName
		}
		report.Instructors = append(report.Instructors, c)
	}
	for _, key := range subjects.order {
		a := subjects.byKey[key]
		report.Subjects = append(report.Subjects, models.SubjectCandidate{
			MentionText:   a.mention,
			Context:       a.context,
			Occurrences:   a.occurrences,
			SampleEntries: a.samples,
		})
	}
	for _, key := range relations.order {
		a := relations.byKey[key]
		report.Relations = append(report.Relations, models.RelationCandidate{
			SubjectMention:       a.mention,
			InstructorMention:    a.instrText,
			ResolvedSubjectID:    a.subjectID,
			ResolvedInstructorID: a.instrID,
			Occurrences:          a.occurrences,
			Contexts:             sorted(a.contexts),
		})
	}

	sort.SliceStable(report.Instructors, func(i, j int) bool {
		a, b := report.Instructors[i], report.Instructors[j]
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		return a.MentionText < b.MentionText
	})
	sort.SliceStable(report.Subjects, func(i, j int) bool {
		a, b := report.Subjects[i], report.Subjects[j]
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		if a.MentionText != b.MentionText {
			return a.MentionText < b.MentionText
		}
		return a.Context < b.Context
	})
	sort.SliceStable(report.Relations, func(i, j int) bool {
		a, b := report.Relations[i], report.Relations[j]
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		if a.SubjectMention != b.SubjectMention {
			return a.SubjectMention < b.SubjectMention
		}
		return a.InstructorMention < b.InstructorMention
	})

	return report
}

// possibleMatch returns the first registered instructor, in registry order,
// whose primary name contains the mention. Mentions shorter than minLen
// letters are never matched.
func possibleMatch(idx *resolver.Index, mention string, minLen int) (models.Instructor, bool) {
	needles := []string{resolver.NormalizeKey(mention)}
	if bare := resolver.NormalizeKey(resolver.BareName(mention)); bare != needles[0] {
		needles = append(needles, bare)
	}
	for _, in := range idx.Instructors() {
		name := resolver.NormalizeKey(in.PrimaryName)
		for _, n := range needles {
			if letterCount(n) >= minLen && strings.Contains(name, n) {
				return in, true
			}
		}
	}
	return models.Instructor{}, false
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func sorted(s []string) []string {
	out := append([]string{}, s...)
	sort.Strings(out)
	return out
}
