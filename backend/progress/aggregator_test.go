package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidana-academy/learning-hub/backend/models"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		want      int
	}{
		{"none", 0, 9, 0},
		{"three of nine", 3, 9, 33},
		{"rounds half up", 1, 8, 13},
		{"two of three", 2, 3, 67},
		{"complete", 5, 5, 100},
		{"over complete is not clamped", 12, 10, 120},
		{"zero total treated as one", 1, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentage(tt.completed, tt.total))
		})
	}
}

func TestTotalModules(t *testing.T) {
	assert.Equal(t, DefaultTotalModules, TotalModules(nil))
	assert.Equal(t, 1, TotalModules(&models.Topic{TotalModules: 0}))
	assert.Equal(t, 1, TotalModules(&models.Topic{TotalModules: -3}))
	assert.Equal(t, 9, TotalModules(&models.Topic{TotalModules: 9}))
}

func TestBuildDashboard(t *testing.T) {
	topics := []models.Topic{
		{Slug: "ai-tools", Title: "AI Tools Suite", TotalModules: 6},
		{Slug: "n8n", Title: "n8n Automation", TotalModules: 9},
		{Slug: "prompt-engineering", Title: "Prompt Engineering", TotalModules: 4},
		{Slug: "vibe-coding", Title: "Vibe Coding", TotalModules: 5},
	}
	user := uuid.New()
	rows := []models.UserProgress{
		{UserID: user, TopicSlug: "n8n", CompletedDays: []int{1, 3, 5}, LastActive: time.Now()},
		{UserID: user, TopicSlug: "prompt-engineering", CompletedDays: []int{1, 2, 3, 4}},
	}

	d := BuildDashboard(topics, rows)
	require.Len(t, d.Topics, 4)

	assert.Equal(t, "n8n", d.Topics[0].Slug)
	assert.Equal(t, 33, d.Topics[0].Percent)
	assert.Equal(t, StatusInProgress, d.Topics[0].Status)
	assert.NotNil(t, d.Topics[0].LastActive)

	assert.Equal(t, []string{"ai-tools", "prompt-engineering", "vibe-coding"},
		[]string{d.Topics[1].Slug, d.Topics[2].Slug, d.Topics[3].Slug})
	assert.Equal(t, StatusCompleted, d.Topics[2].Status)
	assert.Equal(t, StatusNotStarted, d.Topics[1].Status)
	assert.Equal(t, 0, d.Topics[1].Percent)

	// (33 + 0 + 100 + 0) / 4
	assert.Equal(t, 33, d.Overall)
	assert.Equal(t, 1, d.Active)
	assert.Equal(t, 7, d.CompletedDays)
	assert.Equal(t, 25, d.ActiveFraction)
}

func TestBuildDashboardEmpty(t *testing.T) {
	d := BuildDashboard(nil, nil)
	assert.Empty(t, d.Topics)
	assert.Equal(t, 0, d.Overall)
}

func TestBuildTopicView(t *testing.T) {
	topic := models.Topic{Slug: "vibe-coding", Title: "Vibe Coding", TotalModules: 5}
	modules := []models.Module{
		{TopicSlug: "vibe-coding", DayNumber: 1, Title: "Introductions"},
		{TopicSlug: "vibe-coding", DayNumber: 2, Title: "Prompt-Driven Development"},
		{TopicSlug: "vibe-coding", DayNumber: 3, Title: "Debugging with AI"},
	}
	row := &models.UserProgress{
		TopicSlug:     "vibe-coding",
		CompletedDays: []int{2},
		Notes:         models.Notes{"2": "went well", models.ChecklistKey: []any{"Final Documentation"}},
	}

	v := BuildTopicView(topic, modules, row, nil, func(slug string, day int) string { return slug })
	require.Len(t, v.Days, 3)
	assert.False(t, v.Days[0].Completed)
	assert.True(t, v.Days[1].Completed)
	assert.Equal(t, "went well", v.Days[1].Note)
	assert.Equal(t, "vibe-coding", v.Days[0].CoverImage)
	assert.Equal(t, []string{}, v.Days[0].Outcomes)
	assert.Equal(t, 33, v.Percent)
	assert.Equal(t, 1, v.CompletedCount)
	assert.Equal(t, []string{"Final Documentation"}, v.Checklist)
	assert.Equal(t, CapstoneTasks, v.CapstoneTasks)
	assert.NotNil(t, v.Resources)
}

func TestBuildTopicViewWithoutProgress(t *testing.T) {
	v := BuildTopicView(models.Topic{Slug: "n8n"}, []models.Module{{DayNumber: 1}}, nil, nil, nil)
	assert.Equal(t, 0, v.Percent)
	assert.Empty(t, v.Notes)
	assert.Equal(t, []int{}, v.CompletedDays)
	assert.Equal(t, []string{}, v.Checklist)
}
