package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/remote"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func TestLastActiveLabel(t *testing.T) {
	assert.Equal(t, "Just now", LastActiveLabel(ago(30*time.Minute), now))
	assert.Equal(t, "1h ago", LastActiveLabel(ago(90*time.Minute), now))
	assert.Equal(t, "5h ago", LastActiveLabel(ago(5*time.Hour), now))
	assert.Equal(t, "23h ago", LastActiveLabel(ago(23*time.Hour+59*time.Minute), now))
	assert.Equal(t, "1d ago", LastActiveLabel(ago(24*time.Hour), now))
	assert.Equal(t, "2d ago", LastActiveLabel(ago(50*time.Hour), now))
	assert.Equal(t, "Never", LastActiveLabel(nil, now))
}

type fixture struct {
	profiles []models.Profile
	topics   []models.Topic
	rows     []models.UserProgress
	ada      uuid.UUID
	bob      uuid.UUID
}

func newFixture() fixture {
	ada, bob, admin := uuid.New(), uuid.New(), uuid.New()
	return fixture{
		ada: ada,
		bob: bob,
		profiles: []models.Profile{
			{ID: ada, Email: "ada@example.com", FullName: "Ada Lovelace", Role: models.RoleIntern},
			{ID: bob, Email: "bob@example.com", Role: models.RoleIntern},
			{ID: admin, Email: "boss@example.com", FullName: "Boss", Role: models.RoleAdmin},
		},
		topics: []models.Topic{
			{Slug: "n8n", Title: "n8n Automation", TotalModules: 9},
			{Slug: "vibe-coding", Title: "Vibe Coding", TotalModules: 5},
		},
		rows: []models.UserProgress{
			{UserID: ada, TopicSlug: "n8n", CompletedDays: []int{1, 3, 5}, LastActive: now.Add(-50 * time.Hour),
				Notes: models.Notes{"3": "third", "1": "first", models.ChecklistKey: []any{"Final Documentation"}}},
			{UserID: ada, TopicSlug: "vibe-coding", CompletedDays: []int{1, 2, 3, 4, 5}, LastActive: now.Add(-5 * time.Hour)},
			{UserID: admin, TopicSlug: "n8n", CompletedDays: []int{1}, LastActive: now},
		},
	}
}

func TestBuildCohort(t *testing.T) {
	f := newFixture()
	c := BuildCohort(f.profiles, f.topics, f.rows, now)

	require.Len(t, c.Topics, 2)
	require.Len(t, c.Students, 2, "admins are excluded")

	ada, ok := c.Student(f.ada)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", ada.Name)
	assert.Equal(t, 33, ada.Progress["n8n"])
	assert.Equal(t, 100, ada.Progress["vibe-coding"])
	assert.Equal(t, 67, ada.Average, "(33+100)/2 rounded, not weighted by module count")
	assert.Equal(t, "5h ago", ada.LastActive)

	bob, ok := c.Student(f.bob)
	require.True(t, ok)
	assert.Equal(t, "bob@example.com", bob.Name)
	assert.Equal(t, 0, bob.Average)
	assert.Equal(t, "Never", bob.LastActive)

	s := c.Summary()
	assert.Equal(t, 2, s.Students)
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 34, s.AvgCompletion)
}

func TestBuildCohortWithoutTopics(t *testing.T) {
	f := newFixture()
	c := BuildCohort(f.profiles, nil, f.rows, now)
	require.Len(t, c.Students, 2)
	assert.Equal(t, 0, c.Students[0].Average)
}

func TestFilter(t *testing.T) {
	f := newFixture()
	c := BuildCohort(f.profiles, f.topics, f.rows, now)

	assert.Len(t, c.Filter("LOVELACE").Students, 1)
	assert.Len(t, c.Filter("bob@").Students, 1)
	assert.Len(t, c.Filter("example").Students, 2)
	assert.Len(t, c.Filter("   ").Students, 2)
	assert.Empty(t, c.Filter("nobody").Students)
}

func TestWriteCSV(t *testing.T) {
	f := newFixture()
	c := BuildCohort(f.profiles, f.topics, f.rows, now)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, c))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Name", "Email", "Role", "Last Active", "n8n Automation", "Vibe Coding", "Average Progress"}, records[0])
	assert.Equal(t, []string{"Ada Lovelace", "ada@example.com", "intern", "5h ago", "33", "100", "67"}, records[1])
	assert.Equal(t, []string{"bob@example.com", "bob@example.com", "intern", "Never", "0", "0", "0"}, records[2])
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "vidana_cohort_export_2024-06-10.csv", ExportFilename(now))
}

func TestInspect(t *testing.T) {
	f := newFixture()
	c := BuildCohort(f.profiles, f.topics, f.rows, now)
	ada, _ := c.Student(f.ada)
	modules := []models.Module{
		{TopicSlug: "n8n", DayNumber: 2, Title: "Data Flow"},
		{TopicSlug: "n8n", DayNumber: 1, Title: "Mental Model"},
		{TopicSlug: "vibe-coding", DayNumber: 1, Title: "Intro"},
	}

	in := Inspect(*ada, c.Topics, modules, "")
	assert.Equal(t, "n8n", in.ActiveTopic)
	assert.Equal(t, 33, in.Percent)
	assert.Equal(t, 3, in.CompletedCount)
	assert.Equal(t, 2, in.NotesWritten)
	require.Len(t, in.Modules, 2)
	assert.Equal(t, ModuleCheck{Day: 1, Title: "Mental Model", Completed: true}, in.Modules[0])
	assert.Equal(t, ModuleCheck{Day: 2, Title: "Data Flow", Completed: false}, in.Modules[1])
	assert.Equal(t, []string{"Final Documentation"}, in.Checklist)
	assert.Equal(t, []DailyNote{{Day: "1", Label: "Day 1", Text: "first"}, {Day: "3", Label: "Day 3", Text: "third"}}, in.DailyNotes)

	empty := Inspect(*ada, c.Topics, modules, "unknown")
	assert.Equal(t, 0, empty.NotesWritten)
	assert.Empty(t, empty.Modules)
}

type stubSources struct{ f fixture }

func (s stubSources) ListStudents(ctx context.Context) ([]models.Profile, error) {
	return s.f.profiles, nil
}

func (s stubSources) ListTopics(ctx context.Context) ([]models.Topic, error) {
	return s.f.topics, nil
}

func (s stubSources) Curriculum(ctx context.Context, slug string) ([]models.Module, error) {
	return []models.Module{{TopicSlug: slug, DayNumber: 1, Title: "Day one"}}, nil
}

func (s stubSources) ListAll(ctx context.Context) ([]models.UserProgress, error) {
	return s.f.rows, nil
}

func TestServiceInspect(t *testing.T) {
	f := newFixture()
	src := stubSources{f: f}
	svc := NewService(src, src, src)
	svc.now = func() time.Time { return now }

	in, err := svc.Inspect(context.Background(), f.ada, "vibe-coding")
	require.NoError(t, err)
	assert.Equal(t, 100, in.Percent)
	require.Len(t, in.Modules, 1)
	assert.True(t, in.Modules[0].Completed)

	_, err = svc.Inspect(context.Background(), uuid.New(), "")
	assert.True(t, remote.IsNotFound(err))
}
