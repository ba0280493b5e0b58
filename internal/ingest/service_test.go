package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/internal/metrics"
	"github.com/ukaji3/schedstruct-go/internal/store"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/candidates"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/xuri/excelize/v2"
)

var informatics1 = models.SectionContext{Program: "Informatics", DegreeLevel: "I", Year: 1, Semester: 1, Mode: models.ModeStandard}

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

func workbook(t *testing.T, cells map[string]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for ref, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", ref, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func testRegistry() *models.Registry {
	return &models.Registry{
		Instructors: []models.Instructor{
			{ID: "i-doe", PrimaryName: "John Doe", AlternateForms: []string{"J. Doe"}},
		},
		Subjects: []models.Subject{
			{ID: "s-db", Name: "Databases", SectionContext: informatics1},
		},
		Relations: []models.Relation{{SubjectID: "s-db", InstructorID: "i-doe"}},
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "ingest.db")
	s, err := store.Open(ctx, store.Config{Driver: store.DialectSQLite, DSN: dsn}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.MigrateUp())
	require.NoError(t, s.SaveRegistry(ctx, testRegistry()))
	return s
}

type fakePublisher struct {
	calls   int
	changes []models.ScheduleChange
	err     error
}

func (p *fakePublisher) PublishChanges(_ context.Context, _ int64, _ string, changes []models.ScheduleChange) error {
	p.calls++
	p.changes = append(p.changes, changes...)
	return p.err
}

type fakeObjects struct {
	objects  map[string][]byte
	archived []string
}

func (o *fakeObjects) Fetch(_ context.Context, key string) ([]byte, error) {
	data, ok := o.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (o *fakeObjects) Archive(_ context.Context, hash, _ string, _ []byte) (string, error) {
	key := "workbooks/" + hash + ".xlsx"
	o.archived = append(o.archived, key)
	return key, nil
}

type fakeCache struct {
	reg  *models.Registry
	sets int
}

func (c *fakeCache) Get(context.Context) (*models.Registry, bool, error) {
	return c.reg, c.reg != nil, nil
}

func (c *fakeCache) Set(_ context.Context, reg *models.Registry) error {
	c.reg = reg
	c.sets++
	return nil
}

type fakeLocks struct {
	mu       sync.Mutex
	held     map[string]bool
	released int
}

func (l *fakeLocks) lock(_ context.Context, name string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[name] {
		return nil, ErrInProgress
	}
	l.held[name] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, name)
		l.released++
		return nil
	}, nil
}

func TestIngestRevisions(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	pub := &fakePublisher{}
	objs := &fakeObjects{}
	locks := &fakeLocks{}
	m := metrics.New(false)
	svc := NewService(Deps{
		Store:     st,
		Publisher: pub,
		Objects:   objs,
		Lock:      locks.lock,
		Metrics:   m,
	}, schedstruct.DefaultOptions(), candidates.DefaultOptions())

	v1 := workbook(t, timetable("114"))
	first, err := svc.Ingest(ctx, Source{Name: "winter.xlsx", Data: v1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, first.Outcome)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, 2, first.Snapshot.EntryCount)
	assert.Empty(t, first.Changes, "first revision is a baseline")
	assert.Equal(t, 0, pub.calls)
	assert.Equal(t, []string{"workbooks/" + schedstruct.ContentHash(v1) + ".xlsx"}, objs.archived)
	assert.Equal(t, 1, locks.released)

	again, err := svc.Ingest(ctx, Source{Name: "winter.xlsx", Data: v1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, again.Outcome)
	assert.Nil(t, again.Snapshot)

	v2 := workbook(t, timetable("120"))
	second, err := svc.Ingest(ctx, Source{Name: "winter.xlsx", Data: v2})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, second.Outcome)
	require.Len(t, second.Changes, 1)
	assert.Equal(t, models.ChangeModified, second.Changes[0].ChangeType)
	assert.Equal(t, models.FieldRoom, second.Changes[0].FieldName)
	assert.Equal(t, 1, pub.calls)

	stored, err := st.Changes(ctx, second.Snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Changes, stored)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Ingestions.WithLabelValues(metrics.ResultStored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ingestions.WithLabelValues(metrics.ResultUnchanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Changes.WithLabelValues("modified")))
}

func TestIngestSources(t *testing.T) {
	ctx := context.Background()
	data := workbook(t, timetable("114"))

	t.Run("path", func(t *testing.T) {
		svc := NewService(Deps{Store: openStore(t)}, schedstruct.DefaultOptions(), candidates.DefaultOptions())
		path := filepath.Join(t.TempDir(), "winter.xlsx")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		res, err := svc.Ingest(ctx, Source{Path: path})
		require.NoError(t, err)
		assert.Equal(t, "winter.xlsx", res.SourceName)
		assert.Equal(t, OutcomeStored, res.Outcome)
	})

	t.Run("object key", func(t *testing.T) {
		objs := &fakeObjects{objects: map[string][]byte{"uploads/summer.xlsx": data}}
		svc := NewService(Deps{Store: openStore(t), Objects: objs}, schedstruct.DefaultOptions(), candidates.DefaultOptions())

		res, err := svc.Ingest(ctx, Source{ObjectKey: "uploads/summer.xlsx"})
		require.NoError(t, err)
		assert.Equal(t, "summer.xlsx", res.SourceName)
	})

	t.Run("errors", func(t *testing.T) {
		svc := NewService(Deps{Store: openStore(t)}, schedstruct.DefaultOptions(), candidates.DefaultOptions())

		_, err := svc.Ingest(ctx, Source{})
		assert.ErrorIs(t, err, ErrNoSource)
		_, err = svc.Ingest(ctx, Source{ObjectKey: "a.xlsx"})
		assert.ErrorIs(t, err, ErrNoObjectStore)
		_, err = svc.Ingest(ctx, Source{Path: filepath.Join(t.TempDir(), "missing.xlsx")})
		assert.ErrorIs(t, err, schedstruct.ErrFileNotFound)
		_, err = svc.Ingest(ctx, Source{Name: "bad.xlsx", Data: []byte("not a workbook")})
		assert.ErrorIs(t, err, schedstruct.ErrInvalidFormat)
	})
}

func TestIngestLockHeld(t *testing.T) {
	ctx := context.Background()
	data := workbook(t, timetable("114"))
	locks := &fakeLocks{}
	m := metrics.New(false)
	svc := NewService(Deps{Store: openStore(t), Lock: locks.lock, Metrics: m}, schedstruct.DefaultOptions(), candidates.DefaultOptions())

	release, err := locks.lock(ctx, "ingest:"+schedstruct.ContentHash(data))
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, Source{Name: "winter.xlsx", Data: data})
	assert.ErrorIs(t, err, ErrInProgress)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ingestions.WithLabelValues(metrics.ResultLocked)))

	require.NoError(t, release(ctx))
	res, err := svc.Ingest(ctx, Source{Name: "winter.xlsx", Data: data})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, res.Outcome)
}

func TestIngestPublishFailureKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewService(Deps{Store: st, Publisher: pub}, schedstruct.DefaultOptions(), candidates.DefaultOptions())

	_, err := svc.Ingest(ctx, Source{Name: "winter.xlsx", Data: workbook(t, timetable("114"))})
	require.NoError(t, err)
	res, err := svc.Ingest(ctx, Source{Name: "winter.xlsx", Data: workbook(t, timetable("120"))})
	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)

	stored, err := st.Changes(ctx, res.Snapshot.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRegistryUsesCache(t *testing.T) {
	ctx := context.Background()
	c := &fakeCache{}
	svc := NewService(Deps{Store: openStore(t), Cache: c}, schedstruct.DefaultOptions(), candidates.DefaultOptions())

	reg, err := svc.Registry(ctx)
	require.NoError(t, err)
	assert.Len(t, reg.Instructors, 1)
	assert.Equal(t, 1, c.sets)

	cached := &models.Registry{}
	c.reg = cached
	reg, err = svc.Registry(ctx)
	require.NoError(t, err)
	assert.Same(t, cached, reg)
	assert.Equal(t, 1, c.sets)
}

func TestCandidates(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	svc := NewService(Deps{Store: st}, schedstruct.DefaultOptions(), candidates.DefaultOptions())

	_, err := svc.Ingest(ctx, Source{Name: "winter.xlsx", Data: workbook(t, timetable("114"))})
	require.NoError(t, err)

	report, err := svc.Candidates(ctx)
	require.NoError(t, err)
	require.Len(t, report.Instructors, 1)
	assert.Equal(t, "Z. Unknown", report.Instructors[0].MentionText)
	require.Len(t, report.Subjects, 1)
	assert.Equal(t, "Algorithms", report.Subjects[0].MentionText)
	assert.Empty(t, report.Relations)

	require.NoError(t, st.IgnoreCandidate(ctx, candidates.KindInstructor, "Z. Unknown"))
	report, err = svc.Candidates(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Instructors)
	assert.Len(t, report.Subjects, 1)
}
