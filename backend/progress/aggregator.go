// Package progress turns progress rows into learner views and persists progress
// changes.
package progress

import (
	"math"
	"sort"
	"time"

	"github.com/vidana-academy/learning-hub/backend/models"
)

// DefaultTotalModules applies when the topic of a progress row is unknown.
const DefaultTotalModules = 10

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// CapstoneTasks is the fixed checklist offered on the workbook.
var CapstoneTasks = []string{
	"Define Problem Statement & Goals",
	"Research & Architecture Diagram",
	"Define API / Data Requirements",
	"Core Implementation (MVP)",
	"Error Handling & Reliability",
	"Final Documentation",
}

// Percentage is round(100*completed/total). It is not clamped: completing more
// days than the topic declares yields more than 100.
func Percentage(completed, total int) int {
	if total <= 0 {
		total = 1
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// TotalModules is the denominator used for a topic.
func TotalModules(topic *models.Topic) int {
	if topic == nil {
		return DefaultTotalModules
	}
	if topic.TotalModules <= 0 {
		return 1
	}
	return topic.TotalModules
}

func StatusOf(percent int) Status {
	switch {
	case percent <= 0:
		return StatusNotStarted
	case percent >= 100:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

type TopicProgress struct {
	Slug           string     `json:"slug"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Icon           string     `json:"icon"`
	TotalModules   int        `json:"total_modules"`
	CompletedCount int        `json:"completed_modules"`
	Percent        int        `json:"progress"`
	Status         Status     `json:"status"`
	LastActive     *time.Time `json:"last_active,omitempty"`
}

type Dashboard struct {
	Topics         []TopicProgress `json:"topics"`
	Overall        int             `json:"overall_progress"`
	Active         int             `json:"active_topics"`
	CompletedDays  int             `json:"completed_modules"`
	ActiveFraction int             `json:"active_fraction"`
}

// IndexBySlug keys progress rows by topic. Later rows win on duplicates.
func IndexBySlug(rows []models.UserProgress) map[string]*models.UserProgress {
	out := make(map[string]*models.UserProgress, len(rows))
	for i := range rows {
		out[rows[i].TopicSlug] = &rows[i]
	}
	return out
}

func topicProgress(topic *models.Topic, row *models.UserProgress) TopicProgress {
	total := TotalModules(topic)
	completed := 0
	var lastActive *time.Time
	if row != nil {
		completed = len(row.CompletedDays)
		if !row.LastActive.IsZero() {
			la := row.LastActive
			lastActive = &la
		}
	}
	percent := Percentage(completed, total)
	return TopicProgress{
		Slug:           topic.Slug,
		Title:          topic.Title,
		Description:    topic.Description,
		Icon:           topic.Icon,
		TotalModules:   total,
		CompletedCount: completed,
		Percent:        percent,
		Status:         StatusOf(percent),
		LastActive:     lastActive,
	}
}

// BuildDashboard merges topics with one learner's progress rows. Topics with no
// row count as not started. In-progress topics are moved to the front; the rest
// keep their order.
func BuildDashboard(topics []models.Topic, rows []models.UserProgress) Dashboard {
	bySlug := IndexBySlug(rows)

	items := make([]TopicProgress, 0, len(topics))
	for i := range topics {
		items = append(items, topicProgress(&topics[i], bySlug[topics[i].Slug]))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Status == StatusInProgress && items[j].Status != StatusInProgress
	})

	d := Dashboard{Topics: items}
	sum := 0
	for _, it := range items {
		sum += it.Percent
		d.CompletedDays += it.CompletedCount
		if it.Status == StatusInProgress {
			d.Active++
		}
	}
	n := len(items)
	if n == 0 {
		n = 1
	}
	d.Overall = int(math.Round(float64(sum) / float64(n)))
	d.ActiveFraction = int(math.Round(100 * float64(d.Active) / float64(n)))
	return d
}

type DayView struct {
	Day          int      `json:"day"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	TimeEstimate string   `json:"time_estimate"`
	Outcomes     []string `json:"outcomes"`
	KeyConcepts  []string `json:"key_concepts"`
	Homework     string   `json:"homework"`
	Completed    bool     `json:"is_completed"`
	Note         string   `json:"note,omitempty"`
	CoverImage   string   `json:"cover_image,omitempty"`
}

type TopicView struct {
	Topic          models.Topic      `json:"topic"`
	Days           []DayView         `json:"curriculum"`
	CompletedDays  []int             `json:"completed_days"`
	CompletedCount int               `json:"completed_count"`
	Percent        int               `json:"progress"`
	Notes          models.Notes      `json:"notes"`
	Checklist      []string          `json:"capstone_checklist"`
	CapstoneTasks  []string          `json:"capstone_tasks"`
	Resources      []models.Resource `json:"resources"`
}

// BuildTopicView assembles the curriculum page of one topic. The percentage on
// this page is measured against the curriculum actually shown.
func BuildTopicView(topic models.Topic, modules []models.Module, row *models.UserProgress, resources []models.Resource, cover func(slug string, day int) string) TopicView {
	notes := models.Notes{}
	completed := []int{}
	if row != nil {
		if row.Notes != nil {
			notes = row.Notes.Clone()
		}
		completed = append(completed, row.CompletedDays...)
	}

	days := make([]DayView, 0, len(modules))
	for _, m := range modules {
		dv := DayView{
			Day:          m.DayNumber,
			Title:        m.Title,
			Description:  m.Description,
			TimeEstimate: m.TimeEstimate,
			Outcomes:     nonNil(m.Outcomes),
			KeyConcepts:  nonNil(m.KeyConcepts),
			Homework:     m.HomeworkDescription,
			Completed:    row.HasDay(m.DayNumber),
			Note:         notes.Day(m.DayNumber),
		}
		if cover != nil {
			dv.CoverImage = cover(topic.Slug, m.DayNumber)
		}
		days = append(days, dv)
	}
	if resources == nil {
		resources = []models.Resource{}
	}

	return TopicView{
		Topic:          topic,
		Days:           days,
		CompletedDays:  completed,
		CompletedCount: len(completed),
		Percent:        Percentage(len(completed), len(modules)),
		Notes:          notes,
		Checklist:      notes.Checklist(),
		CapstoneTasks:  CapstoneTasks,
		Resources:      resources,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
