package candidates

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/resolver"
)

var (
	year1 = models.SectionContext{Program: "Informatics", DegreeLevel: "I", Year: 1, Semester: 1, Mode: models.ModeStandard}
	year2 = models.SectionContext{Program: "Informatics", DegreeLevel: "I", Year: 2, Semester: 3, Mode: models.ModeStandard}
)

func testIndex() *resolver.Index {
	return resolver.NewIndex(&models.Registry{
		Instructors: []models.Instructor{
			{ID: "i1", PrimaryName: "Anna Kowalska", AlternateForms: []string{"A. Kowalska"}},
			{ID: "i2", PrimaryName: "John Doe", AlternateForms: []string{"J. Doe"}},
		},
		Subjects: []models.Subject{
			{ID: "s1", Name: "Databases", SectionContext: year1},
		},
		Relations: []models.Relation{{SubjectID: "s1", InstructorID: "i1"}},
	})
}

func entry(id string, ctx models.SectionContext, subject string, instructors ...string) models.ScheduleEntry {
	e := models.ScheduleEntry{ID: id, SectionContext: ctx, Class: models.ClassInfo{SubjectText: subject}}
	for _, in := range instructors {
		e.Class.Instructors = append(e.Class.Instructors, models.InstructorMention{Text: in})
	}
	return e
}

func history() []models.ScheduleEntry {
	return []models.ScheduleEntry{
		entry("e1", year1, "Databases", "A. Kowalska", "Kowalska"),
		entry("e2", year1, "Databases", "J. Doe"),
		entry("e3", year2, "Databases", "Doe"),
		entry("e4", year1, "Physics", "Kowalska"),
		entry("e5", year1, "databases", "J. Doe"),
	}
}

func TestDetect(t *testing.T) {
	report := Detect(history(), testIndex(), Ignored{}, DefaultOptions())

	require.Len(t, report.Instructors, 2)
	kowalska := report.Instructors[0]
	assert.Equal(t, "Kowalska", kowalska.MentionText)
	assert.Equal(t, 2, kowalska.Occurrences)
	assert.Equal(t, []string{year1.String()}, kowalska.Contexts)
	assert.Equal(t, []string{"e1", "e4"}, kowalska.SampleEntries)
	assert.Equal(t, "i1", kowalska.PossibleMatch)
	assert.Equal(t, "Anna Kowalska", kowalska.PossibleMatchName)

	doe := report.Instructors[1]
	assert.Equal(t, "Doe", doe.MentionText)
	assert.Empty(t, doe.PossibleMatch, "mentions under the minimum length are not matched")

	require.Len(t, report.Subjects, 2)
	assert.Equal(t, "Databases", report.Subjects[0].MentionText)
	assert.Equal(t, year2.String(), report.Subjects[0].Context)
	assert.Equal(t, "Physics", report.Subjects[1].MentionText)
	assert.Equal(t, year1.String(), report.Subjects[1].Context)

	require.Len(t, report.Relations, 1)
	rel := report.Relations[0]
	assert.Equal(t, "s1", rel.ResolvedSubjectID)
	assert.Equal(t, "i2", rel.ResolvedInstructorID)
	assert.Equal(t, "Databases", rel.SubjectMention)
	assert.Equal(t, "J. Doe", rel.InstructorMention)
	assert.Equal(t, 2, rel.Occurrences)
	assert.Equal(t, []string{year1.String()}, rel.Contexts)
}

func TestDetectIgnored(t *testing.T) {
	tests := []struct {
		name        string
		ignored     Ignored
		instructors int
		subjects    int
		relations   int
	}{
		{
			name:        "nothing ignored",
			ignored:     NewIgnored(nil, nil, nil),
			instructors: 2, subjects: 2, relations: 1,
		},
		{
			name:        "instructor by normalized mention",
			ignored:     NewIgnored([]string{"  KOWALSKA "}, nil, nil),
			instructors: 1, subjects: 2, relations: 1,
		},
		{
			name:        "subject in every context",
			ignored:     NewIgnored(nil, []string{"databases"}, nil),
			instructors: 2, subjects: 1, relations: 1,
		},
		{
			name:        "subject in one context",
			ignored:     NewIgnored(nil, []string{"Physics @ " + year2.String()}, nil),
			instructors: 2, subjects: 2, relations: 1,
		},
		{
			name:        "subject in its context",
			ignored:     NewIgnored(nil, []string{"Physics @ " + year1.String()}, nil),
			instructors: 2, subjects: 1, relations: 1,
		},
		{
			name:        "relation by ids",
			ignored:     NewIgnored(nil, nil, []string{RelationKey("s1", "i2")}),
			instructors: 2, subjects: 2, relations: 0,
		},
		{
			name:        "relation by mentions",
			ignored:     NewIgnored(nil, nil, []string{"DATABASES|j. doe"}),
			instructors: 2, subjects: 2, relations: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Detect(history(), testIndex(), tt.ignored, DefaultOptions())
			assert.Len(t, report.Instructors, tt.instructors)
			assert.Len(t, report.Subjects, tt.subjects)
			assert.Len(t, report.Relations, tt.relations)
		})
	}
}

func TestDetectRegisteredPairIsNotACandidate(t *testing.T) {
	report := Detect([]models.ScheduleEntry{entry("e1", year1, "Databases", "Anna Kowalska")}, testIndex(), Ignored{}, DefaultOptions())
	assert.Empty(t, report.Instructors)
	assert.Empty(t, report.Subjects)
	assert.Empty(t, report.Relations)
}

func TestDetectSampleCap(t *testing.T) {
	var entries []models.ScheduleEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, entry(fmt.Sprintf("e%d", i), year1, "Databases", "Nowak"))
	}

	report := Detect(entries, testIndex(), Ignored{}, DefaultOptions())
	require.Len(t, report.Instructors, 1)
	assert.Equal(t, 5, report.Instructors[0].Occurrences)
	assert.Equal(t, []string{"e0", "e1", "e2"}, report.Instructors[0].SampleEntries)
}

func TestDetectEmptyHistory(t *testing.T) {
	report := Detect(nil, testIndex(), Ignored{}, DefaultOptions())
	assert.NotNil(t, report.Instructors)
	assert.NotNil(t, report.Subjects)
	assert.NotNil(t, report.Relations)
}

func TestPossibleMatch(t *testing.T) {
	idx := testIndex()
	tests := []struct {
		mention string
		minLen  int
		want    string
	}{
		{"Kowalska", 4, "i1"},
		{"dr Kowalska", 4, "i1"},
		{"anna", 4, "i1"},
		{"Doe", 4, ""},
		{"Doe", 3, "i2"},
		{"Nowak", 4, ""},
		// Registry order decides between several containing names.
		{"n", 1, "i1"},
	}

	for _, tt := range tests {
		in, ok := possibleMatch(idx, tt.mention, tt.minLen)
		assert.Equal(t, tt.want != "", ok, tt.mention)
		assert.Equal(t, tt.want, in.ID, tt.mention)
	}
}
