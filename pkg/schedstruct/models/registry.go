package models

// Instructor is a canonical instructor record.
type Instructor struct {
	ID             string   `json:"id"`
	PrimaryName    string   `json:"primary_name"`
	AlternateForms []string `json:"alternate_forms,omitempty"`
}

// Subject is a canonical subject record scoped to one section context.
type Subject struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	AlternateForms []string `json:"alternate_forms,omitempty"`

	SectionContext
}

// Relation records that an instructor teaches a subject.
type Relation struct {
	SubjectID    string `json:"subject_id"`
	InstructorID string `json:"instructor_id"`
}

// Registry is the canonical entity list loaded before a run.
type Registry struct {
	Instructors []Instructor `json:"instructors"`
	Subjects    []Subject    `json:"subjects"`
	Relations   []Relation   `json:"relations,omitempty"`
}
