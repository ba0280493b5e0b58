package models

// ClassType is the kind of class held in a slot.
type ClassType string

// Class types.
const (
	ClassLecture  ClassType = "lecture"
	ClassLab      ClassType = "lab"
	ClassExercise ClassType = "exercise"
	ClassProject  ClassType = "project"
	ClassSeminar  ClassType = "seminar"
	ClassUnknown  ClassType = "unknown"
)

// TimeRange is a start/end pair in HH:MM form.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// InstructorMention is one instructor name found in a cell.
type InstructorMention struct {
	// Text is the mention as written.
	Text string `json:"text"`
	// ResolvedID is the registry instructor ID when resolved.
	ResolvedID string `json:"resolved_id,omitempty"`
}

// ClassInfo is the structured content of one timetable cell.
type ClassInfo struct {
	// SubjectText is the subject mention.
	SubjectText string `json:"subject_text"`
	// ResolvedSubjectID is the registry subject ID when resolved.
	ResolvedSubjectID string `json:"resolved_subject_id,omitempty"`
	// ClassType is the detected class type.
	ClassType ClassType `json:"class_type"`
	// Instructors lists instructor mentions in cell order.
	Instructors []InstructorMention `json:"instructors"`
	// RoomText is the room marker text. Nil when remote or absent.
	RoomText *string `json:"room_text"`
	// IsRemote marks a remote class.
	IsRemote bool `json:"is_remote"`
	// RawCellText is the unmodified cell text.
	RawCellText string `json:"raw_cell_text"`
	// TimeOverride replaces the slot time for this cell only.
	TimeOverride *TimeRange `json:"time_override,omitempty"`
}

// Room returns the room text or "".
func (c *ClassInfo) Room() string {
	if c.RoomText == nil {
		return ""
	}
	return *c.RoomText
}

// InstructorTexts returns the mention texts in order.
func (c *ClassInfo) InstructorTexts() []string {
	out := make([]string, 0, len(c.Instructors))
	for _, m := range c.Instructors {
		out = append(out, m.Text)
	}
	return out
}

// ScheduleEntry is one normalized class occurrence.
type ScheduleEntry struct {
	// ID is a deterministic identifier derived from the entry position.
	ID string `json:"id"`
	// Sheet is the source worksheet.
	Sheet string `json:"sheet"`
	// Date is the class date (YYYY-MM-DD when parseable).
	Date string `json:"date"`
	// Weekday is the weekday label.
	Weekday string `json:"weekday"`
	// StartTime is HH:MM.
	StartTime string `json:"start_time"`
	// EndTime is HH:MM.
	EndTime string `json:"end_time"`
	// GroupLabel is one group or several joined by ", " for merged cells.
	GroupLabel string `json:"group_label"`
	// Class is the cell content.
	Class ClassInfo `json:"class"`

	SectionContext

	// Row is the source row (1-based).
	Row int `json:"row"`
	// Col is the source column (1-based).
	Col int `json:"col"`
}
