// Package resolver matches subject and instructor mentions against the
// canonical registry.
package resolver

import (
	"strings"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// EntityIndex looks entities up by normalized text.
type EntityIndex interface {
	Instructor(text string) (*models.Instructor, bool)
	Subjects(text string) []*models.Subject
}

type relationKey struct {
	subjectID, instructorID string
}

// Index is an immutable lookup table over one registry snapshot.
// Primary names and alternate forms share one map per entity kind.
type Index struct {
	instructors    map[string]*models.Instructor
	subjects       map[string][]*models.Subject
	instructorByID map[string]*models.Instructor
	subjectByID    map[string]*models.Subject
	relations      map[relationKey]struct{}
	ordered        []models.Instructor
}

// NewIndex builds the lookup tables. The registry is copied.
func NewIndex(reg *models.Registry) *Index {
	idx := &Index{
		instructors:    make(map[string]*models.Instructor),
		subjects:       make(map[string][]*models.Subject),
		instructorByID: make(map[string]*models.Instructor),
		subjectByID:    make(map[string]*models.Subject),
		relations:      make(map[relationKey]struct{}),
	}
	if reg == nil {
		return idx
	}

	idx.ordered = append([]models.Instructor(nil), reg.Instructors...)
	for i := range idx.ordered {
		in := &idx.ordered[i]
		idx.instructorByID[in.ID] = in
		for _, form := range append([]string{in.PrimaryName}, in.AlternateForms...) {
			key := NormalizeKey(form)
			if key == "" {
				continue
			}
			if _, taken := idx.instructors[key]; !taken {
				idx.instructors[key] = in
			}
		}
	}

	subjects := append([]models.Subject(nil), reg.Subjects...)
	for i := range subjects {
		s := &subjects[i]
		idx.subjectByID[s.ID] = s
		seen := make(map[string]bool)
		for _, form := range append([]string{s.Name}, s.AlternateForms...) {
			key := NormalizeKey(form)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			idx.subjects[key] = append(idx.subjects[key], s)
		}
	}

	for _, r := range reg.Relations {
		idx.relations[relationKey{r.SubjectID, r.InstructorID}] = struct{}{}
	}
	return idx
}

// NormalizeKey folds case and collapses whitespace.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Instructor returns the instructor registered under text.
func (idx *Index) Instructor(text string) (*models.Instructor, bool) {
	in, ok := idx.instructors[NormalizeKey(text)]
	return in, ok
}

// Subjects returns every subject registered under text, in registry order.
func (idx *Index) Subjects(text string) []*models.Subject {
	return idx.subjects[NormalizeKey(text)]
}

// InstructorByID returns the instructor with the given ID.
func (idx *Index) InstructorByID(id string) (*models.Instructor, bool) {
	in, ok := idx.instructorByID[id]
	return in, ok
}

// SubjectByID returns the subject with the given ID.
func (idx *Index) SubjectByID(id string) (*models.Subject, bool) {
	s, ok := idx.subjectByID[id]
	return s, ok
}

// HasRelation reports whether the instructor is recorded as teaching the subject.
func (idx *Index) HasRelation(subjectID, instructorID string) bool {
	_, ok := idx.relations[relationKey{subjectID, instructorID}]
	return ok
}

// Instructors returns the registered instructors in registry order.
func (idx *Index) Instructors() []models.Instructor {
	return idx.ordered
}
