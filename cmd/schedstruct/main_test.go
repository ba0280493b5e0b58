package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/changes"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/xuri/excelize/v2"
)

func timetable(room string) map[string]string {
	return map[string]string{
		"D1": "Informatics - I degree",
		"D2": "year 1, semester 1",
		"A3": "Date", "B3": "Day", "C3": "Time", "D3": "11", "E3": "12",
		"A4": "2024-10-07", "B4": "Monday", "C4": "08:00-09:30",
		"D4": "Databases  lecture  J. Doe  room " + room,
		"E4": "Algorithms  lab  Z. Unknown  room 2",
	}
}

func writeWorkbook(t *testing.T, dir, name string, cells map[string]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Winter"))
	for ref, v := range cells {
		require.NoError(t, f.SetCellValue("Winter", ref, v))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func writeRegistry(t *testing.T, dir string) string {
	t.Helper()
	reg := models.Registry{
		Instructors: []models.Instructor{{ID: "i-doe", PrimaryName: "John Doe", AlternateForms: []string{"J. Doe"}}},
		Subjects: []models.Subject{{
			ID:   "s-db",
			Name: "Databases",
			SectionContext: models.SectionContext{
				Program: "Informatics", DegreeLevel: "I", Year: 1, Semester: 1, Mode: models.ModeStandard,
			},
		}},
		Relations: []models.Relation{{SubjectID: "s-db", InstructorID: "i-doe"}},
	}
	data, err := json.Marshal(reg)
	require.NoError(t, err)
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	wb := writeWorkbook(t, dir, "winter.xlsx", timetable("114"))
	reg := writeRegistry(t, dir)

	out, err := run(t, "extract", "--registry", reg, "--mode", "verbose", wb)
	require.NoError(t, err)

	var result models.ExtractionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "winter.xlsx", result.BookName)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "s-db", result.Entries[0].Class.ResolvedSubjectID)
	assert.NotEmpty(t, result.DebugInfo)
	assert.Contains(t, result.Stats.UnknownInstructors, "Z. Unknown")
}

func TestExtractCommandSheetsDir(t *testing.T) {
	dir := t.TempDir()
	wb := writeWorkbook(t, dir, "winter.xlsx", timetable("114"))
	reg := writeRegistry(t, dir)
	sheets := filepath.Join(dir, "sheets")

	out, err := run(t, "extract", "--registry", reg, "--sheets-dir", sheets, wb)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(filepath.Join(sheets, "Winter.json"))
	require.NoError(t, err)
	var entries []models.ScheduleEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, 2)
}

func TestExtractCommandErrors(t *testing.T) {
	dir := t.TempDir()
	reg := writeRegistry(t, dir)

	_, err := run(t, "extract", "--registry", reg, filepath.Join(dir, "missing.xlsx"))
	assert.ErrorContains(t, err, "file not found")

	wb := writeWorkbook(t, dir, "winter.xlsx", timetable("114"))
	_, err = run(t, "extract", "--registry", reg, "--mode", "loud", wb)
	assert.ErrorContains(t, err, "invalid mode")
}

func TestDiffCommand(t *testing.T) {
	dir := t.TempDir()
	reg := writeRegistry(t, dir)
	oldOut := filepath.Join(dir, "old.json")
	newOut := filepath.Join(dir, "new.json")

	_, err := run(t, "extract", "--registry", reg, "-o", oldOut, writeWorkbook(t, dir, "v1.xlsx", timetable("114")))
	require.NoError(t, err)
	_, err = run(t, "extract", "--registry", reg, "-o", newOut, writeWorkbook(t, dir, "v2.xlsx", timetable("120")))
	require.NoError(t, err)

	out, err := run(t, "diff", oldOut, newOut)
	require.NoError(t, err)
	var diff []models.ScheduleChange
	require.NoError(t, json.Unmarshal([]byte(out), &diff))
	require.Len(t, diff, 1)
	assert.Equal(t, models.FieldRoom, diff[0].FieldName)

	out, err = run(t, "diff", "--summary", oldOut, oldOut)
	require.NoError(t, err)
	var summary changes.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, changes.Summary{}, summary)
}

func TestCandidatesCommandFromFiles(t *testing.T) {
	dir := t.TempDir()
	reg := writeRegistry(t, dir)
	res := filepath.Join(dir, "result.json")
	_, err := run(t, "extract", "--registry", reg, "-o", res, writeWorkbook(t, dir, "winter.xlsx", timetable("114")))
	require.NoError(t, err)

	out, err := run(t, "candidates", "--registry", reg, res)
	require.NoError(t, err)
	var report models.CandidateReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Instructors, 1)
	assert.Equal(t, "Z. Unknown", report.Instructors[0].MentionText)
	require.Len(t, report.Subjects, 1)
	assert.Equal(t, "Algorithms", report.Subjects[0].MentionText)
}

func TestIngestCommandUsesDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCHEDSTRUCT_DATABASE_DSN", "file:"+filepath.Join(dir, "cli.db"))
	t.Setenv("SCHEDSTRUCT_METRICS_ENABLED", "false")
	reg := writeRegistry(t, dir)

	_, err := run(t, "registry", "import", reg)
	require.NoError(t, err)

	out, err := run(t, "ingest", writeWorkbook(t, dir, "winter.xlsx", timetable("114")))
	require.NoError(t, err)
	assert.Contains(t, out, `"outcome":"stored"`)

	out, err = run(t, "candidates")
	require.NoError(t, err)
	assert.Contains(t, out, "Z. Unknown")

	_, err = run(t, "candidates", "ignore", "instructor", "Z. Unknown")
	require.NoError(t, err)
	out, err = run(t, "candidates")
	require.NoError(t, err)
	assert.NotContains(t, out, "Z. Unknown")

	out, err = run(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1")
}
