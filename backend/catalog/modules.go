package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/remote"
)

// sentinelDay is far beyond any real curriculum so the sentinel row cannot collide.
const sentinelDay = 9999

var ErrNothingDeleted = errors.New("database returned 0 deleted rows; check permissions or if the id exists")

// ModuleInput is the editable payload of a module.
type ModuleInput struct {
	TopicSlug           string   `json:"topic_slug" validate:"required"`
	DayNumber           int      `json:"day_number" validate:"required,min=1"`
	Title               string   `json:"title" validate:"required,max=200"`
	Description         string   `json:"description"`
	TimeEstimate        string   `json:"time_estimate"`
	Outcomes            []string `json:"outcomes"`
	KeyConcepts         []string `json:"key_concepts"`
	HomeworkDescription string   `json:"homework_description"`
}

// cleanLines drops the blank entries textarea input leaves behind.
func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (in ModuleInput) toModule() models.Module {
	return models.Module{
		TopicSlug:           strings.TrimSpace(in.TopicSlug),
		DayNumber:           in.DayNumber,
		Title:               strings.TrimSpace(in.Title),
		Description:         in.Description,
		TimeEstimate:        in.TimeEstimate,
		Outcomes:            cleanLines(in.Outcomes),
		KeyConcepts:         cleanLines(in.KeyConcepts),
		HomeworkDescription: in.HomeworkDescription,
	}
}

// ListModules returns the modules of a topic by day. A non-empty search keeps
// modules whose title or description contains it, ignoring case.
func (s *Service) ListModules(ctx context.Context, topic, search string) ([]models.Module, error) {
	rows, err := s.modules.Select(ctx, remote.Where(remote.Eq("topic_slug", topic)).OrderBy("day_number", false))
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return rows, nil
	}
	out := rows[:0]
	for _, m := range rows {
		if strings.Contains(strings.ToLower(m.Title), term) || strings.Contains(strings.ToLower(m.Description), term) {
			out = append(out, m)
		}
	}
	return out, nil
}

// NextDayNumber is one past the highest day of the topic, or 1 for an empty topic.
func (s *Service) NextDayNumber(ctx context.Context, topic string) (int, error) {
	rows, err := s.modules.Select(ctx, remote.Where(remote.Eq("topic_slug", topic)).OrderBy("day_number", true).Take(1))
	if err != nil {
		return 0, fmt.Errorf("next day number: %w", err)
	}
	if len(rows) == 0 {
		return 1, nil
	}
	return rows[0].DayNumber + 1, nil
}

// CreateModule inserts a module. A day already used in the topic fails with a
// unique violation.
func (s *Service) CreateModule(ctx context.Context, in ModuleInput) (*models.Module, error) {
	m := in.toModule()
	if err := s.modules.Insert(ctx, &m); err != nil {
		return nil, err
	}
	s.log.Info("module created", "topic", m.TopicSlug, "day", m.DayNumber, "id", m.ID)
	return &m, nil
}

func (s *Service) UpdateModule(ctx context.Context, id uuid.UUID, in ModuleInput) (*models.Module, error) {
	m := in.toModule()
	n, err := s.modules.Update(ctx, remote.Where(remote.Eq("id", id)), map[string]any{
		"topic_slug":           m.TopicSlug,
		"day_number":           m.DayNumber,
		"title":                m.Title,
		"description":          m.Description,
		"time_estimate":        m.TimeEstimate,
		"outcomes":             m.Outcomes,
		"key_concepts":         m.KeyConcepts,
		"homework_description": m.HomeworkDescription,
	})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &remote.Error{Code: remote.CodeNotFound, Message: "module not found"}
	}
	s.log.Info("module updated", "id", id)
	return s.modules.SelectOne(ctx, remote.Where(remote.Eq("id", id)))
}

// DeleteModule removes a module. Deleting nothing is an error.
func (s *Service) DeleteModule(ctx context.Context, id uuid.UUID) error {
	n, err := s.modules.Delete(ctx, remote.Where(remote.Eq("id", id)))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNothingDeleted
	}
	s.log.Info("module deleted", "id", id)
	return nil
}

// VerifyWriteAccess inserts and removes a sentinel module in topic to prove the
// caller may write the modules collection.
func (s *Service) VerifyWriteAccess(ctx context.Context, topic string) error {
	sentinel := models.Module{
		TopicSlug:    topic,
		DayNumber:    sentinelDay,
		Title:        "PERMISSION_TEST",
		Description:  "Temporary test row",
		TimeEstimate: "1m",
	}
	if err := s.modules.Insert(ctx, &sentinel); err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	n, err := s.modules.Delete(ctx, remote.Where(remote.Eq("id", sentinel.ID)))
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete failed: %w", ErrNothingDeleted)
	}
	return nil
}
