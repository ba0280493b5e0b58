package models

// ChangeType classifies a ScheduleChange.
type ChangeType string

// Change types.
const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// Compared entry fields.
const (
	FieldSubject    = "subject"
	FieldInstructor = "instructor"
	FieldRoom       = "room"
	FieldClassType  = "classType"
	FieldIsRemote   = "isRemote"
)

// ScheduleChange is one changelog record between two snapshots.
type ScheduleChange struct {
	ChangeType ChangeType `json:"change_type"`
	EntryID    string     `json:"entry_id"`
	// FieldName is set for modified records only.
	FieldName  string `json:"field_name,omitempty"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	GroupLabel string `json:"group_label"`
	Subject    string `json:"subject"`
}
