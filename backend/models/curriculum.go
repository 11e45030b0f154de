package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Topic struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug         string    `gorm:"uniqueIndex;not null" json:"slug"`
	Title        string    `gorm:"not null" json:"title"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon"`
	TotalModules int       `gorm:"default:0" json:"total_modules"`
	CreatedAt    time.Time `json:"created_at"`
}

func (t *Topic) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Module is one day of a topic's curriculum. (TopicSlug, DayNumber) is unique.
type Module struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	TopicSlug           string                      `gorm:"not null;uniqueIndex:idx_modules_topic_day" json:"topic_slug"`
	DayNumber           int                         `gorm:"not null;uniqueIndex:idx_modules_topic_day" json:"day_number"`
	Title               string                      `gorm:"not null" json:"title"`
	Description         string                      `json:"description"`
	TimeEstimate        string                      `json:"time_estimate"`
	Outcomes            datatypes.JSONSlice[string] `json:"outcomes"`
	KeyConcepts         datatypes.JSONSlice[string] `json:"key_concepts"`
	HomeworkDescription string                      `json:"homework_description"`
	CreatedAt           time.Time                   `json:"created_at"`

	Topic *Topic `gorm:"foreignKey:TopicSlug;references:Slug;constraint:OnDelete:CASCADE" json:"-"`
}

func (m *Module) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Outcomes == nil {
		m.Outcomes = datatypes.JSONSlice[string]{}
	}
	if m.KeyConcepts == nil {
		m.KeyConcepts = datatypes.JSONSlice[string]{}
	}
	return nil
}

type ResourceType string

const (
	ResourceVideo    ResourceType = "video"
	ResourceArticle  ResourceType = "article"
	ResourceWorkflow ResourceType = "workflow"
	ResourcePDF      ResourceType = "pdf"
)

const DefaultDifficulty = "Beginner"

type Resource struct {
	ID         uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID   *uuid.UUID                  `gorm:"type:uuid" json:"module_id,omitempty"`
	Title      string                      `gorm:"not null" json:"title"`
	Type       ResourceType                `json:"type"`
	URL        string                      `gorm:"not null" json:"url"`
	Duration   string                      `json:"duration,omitempty"`
	Difficulty string                      `json:"difficulty"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt  time.Time                   `json:"created_at"`

	Module *Module `gorm:"foreignKey:ModuleID;constraint:OnDelete:SET NULL" json:"-"`
}

func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
