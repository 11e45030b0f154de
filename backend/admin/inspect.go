package admin

import (
	"sort"
	"strconv"

	"github.com/vidana-academy/learning-hub/backend/models"
)

type ModuleCheck struct {
	Day       int    `json:"day"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type DailyNote struct {
	Day   string `json:"day"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

type TopicTab struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// Inspection is the per-student drill-down for one topic.
type Inspection struct {
	Student        StudentRow    `json:"student"`
	Topics         []TopicTab    `json:"topics"`
	ActiveTopic    string        `json:"active_topic"`
	Percent        int           `json:"progress"`
	CompletedCount int           `json:"completed_count"`
	NotesWritten   int           `json:"notes_written"`
	Modules        []ModuleCheck `json:"modules"`
	Checklist      []string      `json:"capstone_checklist"`
	DailyNotes     []DailyNote   `json:"daily_notes"`
}

// Inspect builds the drill-down of student for slug. An empty slug selects the
// first topic of the cohort.
func Inspect(student StudentRow, topics []TopicColumn, modules []models.Module, slug string) Inspection {
	tabs := make([]TopicTab, 0, len(topics))
	for _, t := range topics {
		tabs = append(tabs, TopicTab{Slug: t.Slug, Title: t.Title})
	}
	if slug == "" {
		slug = "n8n"
		if len(topics) > 0 {
			slug = topics[0].Slug
		}
	}

	row := student.Details[slug]
	notes := models.Notes{}
	if row != nil && row.Notes != nil {
		notes = row.Notes
	}

	topicModules := make([]models.Module, 0, len(modules))
	for _, m := range modules {
		if m.TopicSlug == slug {
			topicModules = append(topicModules, m)
		}
	}
	sort.SliceStable(topicModules, func(i, j int) bool {
		return topicModules[i].DayNumber < topicModules[j].DayNumber
	})
	checks := make([]ModuleCheck, 0, len(topicModules))
	for _, m := range topicModules {
		checks = append(checks, ModuleCheck{Day: m.DayNumber, Title: m.Title, Completed: row.HasDay(m.DayNumber)})
	}

	keys := notes.DayKeys()
	daily := make([]DailyNote, 0, len(keys))
	for _, k := range keys {
		text, _ := notes[k].(string)
		daily = append(daily, DailyNote{Day: k, Label: dayLabel(k), Text: text})
	}

	completed := 0
	if row != nil {
		completed = len(row.CompletedDays)
	}

	return Inspection{
		Student:        student,
		Topics:         tabs,
		ActiveTopic:    slug,
		Percent:        student.Progress[slug],
		CompletedCount: completed,
		NotesWritten:   len(daily),
		Modules:        checks,
		Checklist:      notes.Checklist(),
		DailyNotes:     daily,
	}
}

func dayLabel(key string) string {
	if n, err := strconv.Atoi(key); err == nil {
		return "Day " + strconv.Itoa(n)
	}
	return key
}
