package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

func TestSegmentTypeAnchor(t *testing.T) {
	info, err := Segment("Databases  lecture  dr A. Example  room 114")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "Databases", info.SubjectText)
	assert.Equal(t, models.ClassLecture, info.ClassType)
	assert.Equal(t, []string{"dr A. Example"}, info.InstructorTexts())
	require.NotNil(t, info.RoomText)
	assert.Equal(t, "room 114", *info.RoomText)
	assert.False(t, info.IsRemote)
	assert.Nil(t, info.TimeOverride)
	assert.Equal(t, "Databases  lecture  dr A. Example  room 114", info.RawCellText)
}

func TestSegmentRemote(t *testing.T) {
	info, err := Segment("Big Data  lecture  J. Doe  REMOTE")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "Big Data", info.SubjectText)
	assert.True(t, info.IsRemote)
	assert.Nil(t, info.RoomText)
	assert.Equal(t, []string{"J. Doe"}, info.InstructorTexts())
}

func TestSegmentRemoteDropsRoom(t *testing.T) {
	info, err := Segment("Big Data  lecture  J. Doe  room 5  online")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.True(t, info.IsRemote)
	assert.Nil(t, info.RoomText)
	assert.Equal(t, []string{"J. Doe"}, info.InstructorTexts())
}

func TestSegmentTimeOverride(t *testing.T) {
	info, err := Segment("13:45-16:15 Databases lecture J. Doe room 1")
	require.NoError(t, err)
	require.NotNil(t, info)

	require.NotNil(t, info.TimeOverride)
	assert.Equal(t, models.TimeRange{Start: "13:45", End: "16:15"}, *info.TimeOverride)
	assert.Equal(t, "Databases", info.SubjectText)
	assert.Equal(t, models.ClassLecture, info.ClassType)
	assert.Equal(t, []string{"J. Doe"}, info.InstructorTexts())
	require.NotNil(t, info.RoomText)
	assert.Equal(t, "room 1", *info.RoomText)
}

func TestSegmentInvalidTimeOverride(t *testing.T) {
	_, err := Segment("25:00-26:10 Databases lecture J. Doe")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = Segment("16:00-14:00 Databases lecture J. Doe")
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestSegmentPlaceholders(t *testing.T) {
	for _, raw := range []string{"", "   ", "---", "-", "—", "x", "\n"} {
		info, err := Segment(raw)
		assert.NoError(t, err, "Segment(%q)", raw)
		assert.Nil(t, info, "Segment(%q)", raw)
	}
}

func TestSegmentKeywordAtStart(t *testing.T) {
	info, err := Segment("Lecture: Operating Systems\nJ. Doe\nroom 7")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "Operating Systems", info.SubjectText)
	assert.Equal(t, models.ClassLecture, info.ClassType)
	assert.Equal(t, []string{"J. Doe"}, info.InstructorTexts())
	require.NotNil(t, info.RoomText)
	assert.Equal(t, "room 7", *info.RoomText)
}

func TestSegmentKeywordAloneOnFirstLine(t *testing.T) {
	info, err := Segment("lab\nChemistry\nA. Smith")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "Chemistry", info.SubjectText)
	assert.Equal(t, models.ClassLab, info.ClassType)
	assert.Equal(t, []string{"A. Smith"}, info.InstructorTexts())
}

func TestSegmentKeywordInsideSubject(t *testing.T) {
	info, err := Segment("Project Management lecture J. Doe")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "Project Management", info.SubjectText)
	assert.Equal(t, models.ClassLecture, info.ClassType)
}

func TestSegmentMultipleInstructors(t *testing.T) {
	info, err := Segment("Algorithms  lab  dr hab. J. Doe, prof. UW / A. Smith  room 2.14")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "Algorithms", info.SubjectText)
	assert.Equal(t, models.ClassLab, info.ClassType)
	assert.Equal(t, []string{"dr hab. J. Doe, prof. UW", "A. Smith"}, info.InstructorTexts())
	require.NotNil(t, info.RoomText)
	assert.Equal(t, "room 2.14", *info.RoomText)
}

func TestSegmentStripsTrailingCodes(t *testing.T) {
	info, err := Segment("Physics  exercise  J. Doe  GR1")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, models.ClassExercise, info.ClassType)
	assert.Equal(t, []string{"J. Doe"}, info.InstructorTexts())
}

func TestSegmentKeepsInitialsOnlyMention(t *testing.T) {
	info, err := Segment("Physics  exercise  JKD")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, []string{"JKD"}, info.InstructorTexts())
}

func TestSegmentPolishKeywords(t *testing.T) {
	info, err := Segment("Bazy danych  wykład  dr A. Nowak  sala 12  zdalnie")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "Bazy danych", info.SubjectText)
	assert.Equal(t, models.ClassLecture, info.ClassType)
	assert.True(t, info.IsRemote)
	assert.Nil(t, info.RoomText)
	assert.Equal(t, []string{"dr A. Nowak"}, info.InstructorTexts())
}

func TestSegmentDelimitedFallback(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		subject     string
		classType   models.ClassType
		instructors []string
		room        string
	}{
		{
			name:        "positional fields with type code",
			input:       "Computer Networks\tW\tdr K. Nowak\tsala 12",
			subject:     "Computer Networks",
			classType:   models.ClassLecture,
			instructors: []string{"dr K. Nowak"},
			room:        "sala 12",
		},
		{
			name:        "location without room marker",
			input:       "Math\tW\tJ. Doe\tB-101",
			subject:     "Math",
			classType:   models.ClassLecture,
			instructors: []string{"J. Doe"},
			room:        "B-101",
		},
		{
			name:        "several instructors then location",
			input:       "Math\tC\tJ. Doe, A. Smith\tHall C",
			subject:     "Math",
			classType:   models.ClassExercise,
			instructors: []string{"J. Doe", "A. Smith"},
			room:        "Hall C",
		},
		{
			name:        "positional fields without type",
			input:       "Math\tJ. Doe\tB-101",
			subject:     "Math",
			classType:   models.ClassUnknown,
			instructors: []string{"J. Doe"},
			room:        "B-101",
		},
		{
			name:        "remote location field",
			input:       "Math\tW\tJ. Doe\tonline",
			subject:     "Math",
			classType:   models.ClassLecture,
			instructors: []string{"J. Doe"},
		},
		{
			name:        "two fields without type",
			input:       "Statistics\nJ. Doe room 3",
			subject:     "Statistics",
			classType:   models.ClassUnknown,
			instructors: []string{"J. Doe"},
			room:        "room 3",
		},
		{
			name:        "single field split at comma",
			input:       "Statistics, J. Doe",
			subject:     "Statistics",
			classType:   models.ClassUnknown,
			instructors: []string{"J. Doe"},
		},
		{
			name:        "subject only",
			input:       "Physical Education",
			subject:     "Physical Education",
			classType:   models.ClassUnknown,
			instructors: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Segment(tt.input)
			require.NoError(t, err)
			require.NotNil(t, info)

			assert.Equal(t, tt.subject, info.SubjectText)
			assert.Equal(t, tt.classType, info.ClassType)
			assert.Equal(t, tt.instructors, info.InstructorTexts())
			assert.Equal(t, tt.room, info.Room())
		})
	}
}

func TestPickAnchor(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Databases  lecture  J. Doe", "lecture"},
		{"Project Management lecture J. Doe", "lecture"},
		{"Diploma Seminar, seminar J. Doe", "seminar"},
		{"Lecture Databases", "Lecture"},
	}

	for _, tt := range tests {
		hit, ok := pickAnchor(tt.input, findTypeKeywords(tt.input))
		require.True(t, ok, tt.input)
		assert.Equal(t, tt.want, tt.input[hit.start:hit.end], tt.input)
	}
}

func TestFindTypeKeywordsBoundaries(t *testing.T) {
	tests := []struct {
		input string
		count int
	}{
		{"Collaboration", 0},
		{"Labour Law", 0},
		{"Databases lab", 1},
		{"Databases (lab)", 1},
		{"Databases ćw. J. Doe", 1},
		{"Seminars", 0},
	}

	for _, tt := range tests {
		assert.Len(t, findTypeKeywords(tt.input), tt.count, tt.input)
	}
}
