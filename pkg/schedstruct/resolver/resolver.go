package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// Outcome tags a resolution result.
type Outcome int

const (
	// Unresolved means no registry entity matched.
	Unresolved Outcome = iota
	// Resolved means an entity matched in the expected context.
	Resolved
	// ContextMismatch means only entities from other sections matched.
	ContextMismatch
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case ContextMismatch:
		return "context_mismatch"
	default:
		return "unresolved"
	}
}

// Kind is the entity kind a mention was resolved as.
type Kind string

// Entity kinds.
const (
	KindSubject    Kind = "subject"
	KindInstructor Kind = "instructor"
)

// Confidence levels.
const (
	ConfidenceExact           = 1.0
	ConfidenceContextMismatch = 0.5
	ConfidenceNone            = 0.0
)

// Result is the outcome of resolving one mention.
type Result struct {
	Kind       Kind
	Outcome    Outcome
	Mention    string
	EntityID   string
	EntityName string
	Confidence float64
	// Context is the section context of the cell the mention came from.
	Context string
}

// Warning returns the diagnostic message for a non-exact result, or "".
func (r Result) Warning() string {
	switch r.Outcome {
	case ContextMismatch:
		return fmt.Sprintf("context mismatch: %s %q matched %s outside %s", r.Kind, r.Mention, r.EntityID, r.Context)
	case Unresolved:
		if r.Mention == "" {
			return ""
		}
		return fmt.Sprintf("unknown %s %q", r.Kind, r.Mention)
	}
	return ""
}

// EntityResolver resolves mentions. Implementations must not mutate shared state.
type EntityResolver interface {
	Subject(mention string, ctx models.SectionContext) Result
	Instructor(mention string, ctx models.SectionContext) Result
}

// Resolver performs exact, case-insensitive lookups against an EntityIndex.
type Resolver struct {
	index EntityIndex
}

// New returns a Resolver over index.
func New(index EntityIndex) *Resolver {
	return &Resolver{index: index}
}

// Subject resolves a subject mention, preferring the entity registered for
// the same program, degree level, year and semester.
func (r *Resolver) Subject(mention string, ctx models.SectionContext) Result {
	res := Result{Kind: KindSubject, Mention: mention, Context: ctx.String()}
	matches := r.index.Subjects(mention)
	if len(matches) == 0 {
		return res
	}
	for _, s := range matches {
		if InContext(s.SectionContext, ctx) {
			res.Outcome = Resolved
			res.EntityID = s.ID
			res.EntityName = s.Name
			res.Confidence = ConfidenceExact
			return res
		}
	}
	res.Outcome = ContextMismatch
	res.EntityID = matches[0].ID
	res.EntityName = matches[0].Name
	res.Confidence = ConfidenceContextMismatch
	return res
}

var (
	leadingTitles  = regexp.MustCompile(`(?i)^(?:(?:dr|prof|mgr|inż|inz|hab|lic|ph\.?\s?d)\.?\s+)+`)
	trailingTitles = regexp.MustCompile(`(?i),\s*(?:prof|ph\.?\s?d|d\.?sc|m\.?sc|eng|inż)\.?.*$`)
)

// Instructor resolves an instructor mention by primary name or alternate
// form. Academic titles are tried both kept and removed.
func (r *Resolver) Instructor(mention string, ctx models.SectionContext) Result {
	res := Result{Kind: KindInstructor, Mention: mention, Context: ctx.String()}
	for _, key := range instructorKeys(mention) {
		if in, ok := r.index.Instructor(key); ok {
			res.Outcome = Resolved
			res.EntityID = in.ID
			res.EntityName = in.PrimaryName
			res.Confidence = ConfidenceExact
			return res
		}
	}
	return res
}

func instructorKeys(mention string) []string {
	keys := []string{mention}
	bare := strings.TrimSpace(trailingTitles.ReplaceAllString(mention, ""))
	if bare != mention {
		keys = append(keys, bare)
	}
	if stripped := BareName(mention); stripped != bare && stripped != "" {
		keys = append(keys, stripped)
	}
	return keys
}

// BareName removes academic titles before and after a name.
func BareName(mention string) string {
	bare := strings.TrimSpace(trailingTitles.ReplaceAllString(mention, ""))
	return strings.TrimSpace(leadingTitles.ReplaceAllString(bare, ""))
}

// InContext reports whether a registered subject belongs to the cell context.
// Study mode is not part of the comparison.
func InContext(subject, cell models.SectionContext) bool {
	return NormalizeKey(subject.Program) == NormalizeKey(cell.Program) &&
		subject.DegreeLevel == cell.DegreeLevel &&
		subject.Year == cell.Year &&
		subject.Semester == cell.Semester
}

// CellConfidence averages the subject confidence with the mean instructor
// confidence; a cell without instructors counts 0 for the latter.
func CellConfidence(subject Result, instructors []Result) float64 {
	var inst float64
	if len(instructors) > 0 {
		for _, r := range instructors {
			inst += r.Confidence
		}
		inst /= float64(len(instructors))
	}
	c := (subject.Confidence + inst) / 2
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
