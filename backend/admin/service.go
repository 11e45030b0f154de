package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/remote"
)

type StudentSource interface {
	ListStudents(ctx context.Context) ([]models.Profile, error)
}

type TopicSource interface {
	ListTopics(ctx context.Context) ([]models.Topic, error)
	Curriculum(ctx context.Context, slug string) ([]models.Module, error)
}

type ProgressSource interface {
	ListAll(ctx context.Context) ([]models.UserProgress, error)
}

// Service loads the data behind the admin console.
type Service struct {
	students StudentSource
	topics   TopicSource
	progress ProgressSource
	now      func() time.Time
}

func NewService(students StudentSource, topics TopicSource, progress ProgressSource) *Service {
	return &Service{students: students, topics: topics, progress: progress, now: time.Now}
}

func (s *Service) Cohort(ctx context.Context) (Cohort, error) {
	topics, err := s.topics.ListTopics(ctx)
	if err != nil {
		return Cohort{}, err
	}
	students, err := s.students.ListStudents(ctx)
	if err != nil {
		return Cohort{}, err
	}
	rows, err := s.progress.ListAll(ctx)
	if err != nil {
		return Cohort{}, err
	}
	return BuildCohort(students, topics, rows, s.now()), nil
}

func (s *Service) Inspect(ctx context.Context, id uuid.UUID, slug string) (*Inspection, error) {
	cohort, err := s.Cohort(ctx)
	if err != nil {
		return nil, err
	}
	student, ok := cohort.Student(id)
	if !ok {
		return nil, &remote.Error{Code: remote.CodeNotFound, Message: "student not found"}
	}
	if slug == "" && len(cohort.Topics) > 0 {
		slug = cohort.Topics[0].Slug
	}
	modules, err := s.topics.Curriculum(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("inspect student: %w", err)
	}
	in := Inspect(*student, cohort.Topics, modules, slug)
	return &in, nil
}
