package models

// InstructorCandidate is an unregistered instructor mention.
type InstructorCandidate struct {
	MentionText   string   `json:"mention_text"`
	Occurrences   int      `json:"occurrences"`
	Contexts      []string `json:"contexts"`
	SampleEntries []string `json:"sample_entries"`
	// PossibleMatch is the ID of a registered instructor whose primary
	// name contains the mention.
	PossibleMatch string `json:"possible_match,omitempty"`
	// PossibleMatchName is that instructor's primary name.
	PossibleMatchName string `json:"possible_match_name,omitempty"`
}

// SubjectCandidate is a subject mention unregistered in its context.
type SubjectCandidate struct {
	MentionText   string   `json:"mention_text"`
	Context       string   `json:"context"`
	Occurrences   int      `json:"occurrences"`
	SampleEntries []string `json:"sample_entries"`
}

// RelationCandidate is a subject/instructor pair seen together but not related.
type RelationCandidate struct {
	SubjectMention       string   `json:"subject_mention"`
	InstructorMention    string   `json:"instructor_mention"`
	ResolvedSubjectID    string   `json:"resolved_subject_id"`
	ResolvedInstructorID string   `json:"resolved_instructor_id"`
	Occurrences          int      `json:"occurrences"`
	Contexts             []string `json:"contexts"`
}

// CandidateReport holds the three review queues.
type CandidateReport struct {
	Instructors []InstructorCandidate `json:"instructors"`
	Subjects    []SubjectCandidate    `json:"subjects"`
	Relations   []RelationCandidate   `json:"relations"`
}
