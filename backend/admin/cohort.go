// Package admin builds the cohort views shown to administrators.
package admin

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/progress"
)

const NeverActive = "Never"

// TopicColumn is one per-topic column of the cohort matrix.
type TopicColumn struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Total int    `json:"total_modules"`
}

type StudentRow struct {
	ID           uuid.UUID                       `json:"id"`
	Name         string                          `json:"name"`
	Email        string                          `json:"email"`
	Role         models.Role                     `json:"role"`
	AvatarURL    string                          `json:"avatar_url,omitempty"`
	Progress     map[string]int                  `json:"progress"`
	Average      int                             `json:"average_progress"`
	LastActive   string                          `json:"last_active"`
	LastActiveAt *time.Time                      `json:"last_active_at,omitempty"`
	Details      map[string]*models.UserProgress `json:"-"`
}

type Cohort struct {
	Topics   []TopicColumn `json:"topics"`
	Students []StudentRow  `json:"students"`
}

// Summary holds the headline figures above the cohort table.
type Summary struct {
	Students      int `json:"students"`
	Active        int `json:"active_students"`
	AvgCompletion int `json:"average_completion"`
}

// LastActiveLabel buckets the time since last activity. A nil time means no
// activity was ever recorded.
func LastActiveLabel(last *time.Time, now time.Time) string {
	if last == nil {
		return NeverActive
	}
	hours := int(math.Floor(now.Sub(*last).Hours()))
	switch {
	case hours < 1:
		return "Just now"
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	default:
		return fmt.Sprintf("%dd ago", hours/24)
	}
}

// BuildCohort produces one row per non-admin profile. The average divides the
// summed topic percentages by the number of topics, without weighting by module
// count.
func BuildCohort(profiles []models.Profile, topics []models.Topic, rows []models.UserProgress, now time.Time) Cohort {
	columns := make([]TopicColumn, 0, len(topics))
	for i := range topics {
		columns = append(columns, TopicColumn{
			Slug:  topics[i].Slug,
			Title: topics[i].Title,
			Total: progress.TotalModules(&topics[i]),
		})
	}

	byUser := make(map[uuid.UUID]map[string]*models.UserProgress)
	for i := range rows {
		r := &rows[i]
		if byUser[r.UserID] == nil {
			byUser[r.UserID] = map[string]*models.UserProgress{}
		}
		byUser[r.UserID][r.TopicSlug] = r
	}

	students := make([]StudentRow, 0, len(profiles))
	for _, p := range profiles {
		if p.Role == models.RoleAdmin {
			continue
		}
		userRows := byUser[p.ID]
		row := StudentRow{
			ID:        p.ID,
			Name:      p.DisplayName(),
			Email:     p.Email,
			Role:      p.Role,
			AvatarURL: p.AvatarURL,
			Progress:  make(map[string]int, len(columns)),
			Details:   make(map[string]*models.UserProgress, len(columns)),
		}

		sum := 0
		for _, col := range columns {
			r := userRows[col.Slug]
			completed := 0
			if r != nil {
				completed = len(r.CompletedDays)
			}
			percent := progress.Percentage(completed, col.Total)
			row.Progress[col.Slug] = percent
			row.Details[col.Slug] = r
			sum += percent
		}
		if len(columns) > 0 {
			row.Average = int(math.Round(float64(sum) / float64(len(columns))))
		}

		for _, r := range userRows {
			if r.LastActive.IsZero() {
				continue
			}
			if row.LastActiveAt == nil || r.LastActive.After(*row.LastActiveAt) {
				la := r.LastActive
				row.LastActiveAt = &la
			}
		}
		row.LastActive = LastActiveLabel(row.LastActiveAt, now)
		students = append(students, row)
	}

	return Cohort{Topics: columns, Students: students}
}

// Filter keeps students whose name or email contains term, ignoring case.
func (c Cohort) Filter(term string) Cohort {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return c
	}
	out := Cohort{Topics: c.Topics, Students: make([]StudentRow, 0, len(c.Students))}
	for _, s := range c.Students {
		if strings.Contains(strings.ToLower(s.Name), term) || strings.Contains(strings.ToLower(s.Email), term) {
			out.Students = append(out.Students, s)
		}
	}
	return out
}

func (c Cohort) Summary() Summary {
	s := Summary{Students: len(c.Students)}
	sum := 0
	for _, st := range c.Students {
		if st.LastActive != NeverActive {
			s.Active++
		}
		sum += st.Average
	}
	if s.Students > 0 {
		s.AvgCompletion = int(math.Round(float64(sum) / float64(s.Students)))
	}
	return s
}

func (c Cohort) Student(id uuid.UUID) (*StudentRow, bool) {
	for i := range c.Students {
		if c.Students[i].ID == id {
			return &c.Students[i], true
		}
	}
	return nil, false
}
