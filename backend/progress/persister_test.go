package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/profiles"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/testutil"
)

type failingRepair struct{ calls int }

func (f *failingRepair) EnsureProfile(ctx context.Context, identity models.Identity) error {
	f.calls++
	return errors.New("permission denied")
}

func setup(t *testing.T) (*remote.Client, models.Identity) {
	t.Helper()
	client := remote.NewClient(testutil.DB(t), nil)
	require.NoError(t, client.Topics.Insert(context.Background(), &models.Topic{Slug: "n8n", Title: "n8n Automation", TotalModules: 9}))
	identity := models.Identity{ID: uuid.New(), Email: "intern@example.com", Name: "Intern One", Role: models.RoleIntern}
	return client, identity
}

func newPersister(client *remote.Client, repair ProfileRepairer) *Persister {
	if repair == nil {
		repair = profiles.NewService(client.Profiles, testutil.Logger())
	}
	return NewPersister(client.Progress, repair, testutil.Logger())
}

func TestSaveRepairsMissingProfileOnce(t *testing.T) {
	ctx := context.Background()
	client, identity := setup(t)
	p := newPersister(client, nil)

	row, err := p.Save(ctx, identity, "n8n", []int{1, 3, 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, []int(row.CompletedDays))

	profile, err := client.Profiles.SelectOne(ctx, remote.Where(remote.Eq("id", identity.ID)))
	require.NoError(t, err)
	assert.Equal(t, "Intern One", profile.FullName)
	assert.Equal(t, models.RoleIntern, profile.Role)
}

func TestSaveSurfacesRepairFailure(t *testing.T) {
	ctx := context.Background()
	client, identity := setup(t)
	repair := &failingRepair{}
	p := newPersister(client, repair)

	_, err := p.Save(ctx, identity, "n8n", []int{1}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, repair.calls)

	rows, err := client.Progress.Select(ctx, remote.Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSaveRepairsOnlyOnForeignKeyViolation(t *testing.T) {
	ctx := context.Background()
	client, identity := setup(t)
	require.NoError(t, client.Profiles.Insert(ctx, &models.Profile{ID: identity.ID, Email: identity.Email, Role: models.RoleIntern}))
	repair := &failingRepair{}
	p := newPersister(client, repair)

	_, err := p.Save(ctx, identity, "unknown-topic", []int{1}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, repair.calls, "a missing topic also violates a foreign key")

	_, err = p.Save(ctx, identity, "n8n", []int{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repair.calls)
}

func TestSaveTwiceKeepsOneRowAndStampsLastActive(t *testing.T) {
	ctx := context.Background()
	client, identity := setup(t)
	p := newPersister(client, nil)

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return first }
	_, err := p.Save(ctx, identity, "n8n", []int{1, 2}, models.Notes{"1": "a"})
	require.NoError(t, err)

	second := first.Add(time.Hour)
	p.now = func() time.Time { return second }
	row, err := p.Save(ctx, identity, "n8n", []int{1, 2}, models.Notes{"1": "a"})
	require.NoError(t, err)

	rows, err := client.Progress.Select(ctx, remote.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []int{1, 2}, []int(row.CompletedDays))
	assert.Equal(t, "a", row.Notes.Day(1))
	assert.True(t, row.LastActive.Equal(second), "got %v", row.LastActive)
}

func TestLoadMissingRowIsEmpty(t *testing.T) {
	client, identity := setup(t)
	p := newPersister(client, nil)

	row, err := p.Load(context.Background(), identity.ID, "n8n")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestToggleDayNotesAndChecklist(t *testing.T) {
	ctx := context.Background()
	client, identity := setup(t)
	p := newPersister(client, nil)

	row, complete, err := p.ToggleDay(ctx, identity, "n8n", 3)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, []int{3}, []int(row.CompletedDays))

	_, err = p.SetDayNote(ctx, identity, "n8n", 3, "webhooks are neat")
	require.NoError(t, err)

	row, added, err := p.ToggleChecklist(ctx, identity, "n8n", CapstoneTasks[0])
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{CapstoneTasks[0]}, row.Notes.Checklist())
	assert.Equal(t, "webhooks are neat", row.Notes.Day(3))

	row, complete, err = p.ToggleDay(ctx, identity, "n8n", 3)
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Empty(t, row.CompletedDays)
	assert.Equal(t, "webhooks are neat", row.Notes.Day(3), "toggling a day keeps notes")

	row, err = p.SaveNotes(ctx, identity, "n8n", models.Notes{"1": "fresh"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", row.Notes.Day(1))
	assert.Empty(t, row.Notes.Day(3))

	row, added, err = p.ToggleChecklist(ctx, identity, "n8n", CapstoneTasks[0])
	require.NoError(t, err)
	assert.True(t, added, "checklist was replaced by SaveNotes")
	assert.Equal(t, []string{CapstoneTasks[0]}, row.Notes.Checklist())
}
