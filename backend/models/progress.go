package models

import (
	"database/sql/driver"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ChecklistKey is the reserved notes key holding the capstone checklist.
const ChecklistKey = "_capstone_checklist"

// UserProgress is one row per (user, topic).
type UserProgress struct {
	ID            uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_user_progress_user_topic" json:"user_id"`
	TopicSlug     string                   `gorm:"not null;uniqueIndex:idx_user_progress_user_topic" json:"topic_slug"`
	CompletedDays datatypes.JSONSlice[int] `json:"completed_days"`
	Notes         Notes                    `json:"notes"`
	LastActive    time.Time                `json:"last_active"`

	Profile *Profile `gorm:"foreignKey:UserID;references:ID" json:"-"`
	Topic   *Topic   `gorm:"foreignKey:TopicSlug;references:Slug" json:"-"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

func (p *UserProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasDay reports whether day is in the completed set.
func (p *UserProgress) HasDay(day int) bool {
	if p == nil {
		return false
	}
	for _, d := range p.CompletedDays {
		if d == day {
			return true
		}
	}
	return false
}

// Notes maps a day number (as a string) to free text, plus ChecklistKey to a list of tasks.
type Notes map[string]any

func (n Notes) Value() (driver.Value, error) {
	return datatypes.JSONMap(n).Value()
}

func (n *Notes) Scan(value any) error {
	var m datatypes.JSONMap
	if err := m.Scan(value); err != nil {
		return err
	}
	*n = Notes(m)
	return nil
}

func (Notes) GormDataType() string {
	return "jsonmap"
}

func (Notes) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return datatypes.JSONMap{}.GormDBDataType(db, field)
}

// Clone returns a shallow copy; the checklist slice is copied too.
func (n Notes) Clone() Notes {
	out := make(Notes, len(n))
	for k, v := range n {
		out[k] = v
	}
	if list := n.Checklist(); len(list) > 0 {
		out[ChecklistKey] = list
	}
	return out
}

func (n Notes) Day(day int) string {
	s, _ := n[strconv.Itoa(day)].(string)
	return s
}

func (n Notes) SetDay(day int, text string) {
	n[strconv.Itoa(day)] = text
}

// Checklist returns the capstone checklist; a malformed value reads as empty.
func (n Notes) Checklist() []string {
	switch v := n[ChecklistKey].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

// ToggleChecklist adds task when absent, removes it otherwise.
func (n Notes) ToggleChecklist(task string) bool {
	current := n.Checklist()
	updated := make([]string, 0, len(current)+1)
	found := false
	for _, t := range current {
		if t == task {
			found = true
			continue
		}
		updated = append(updated, t)
	}
	if !found {
		updated = append(updated, task)
	}
	n[ChecklistKey] = updated
	return !found
}

// DayKeys returns the daily note keys (reserved keys excluded) in day order.
func (n Notes) DayKeys() []string {
	keys := make([]string, 0, len(n))
	for k := range n {
		if strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return keys
}
