package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/datatypes"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

var (
	progressWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "learning_hub_progress_writes_total",
		Help: "Progress upserts by outcome.",
	}, []string{"result"})
	profileRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "learning_hub_profile_repairs_total",
		Help: "Minimal profile inserts triggered by a missing profile on progress save.",
	}, []string{"result"})
)

var progressConflict = remote.OnConflict{
	Columns: []string{"user_id", "topic_slug"},
	Update:  []string{"completed_days", "notes", "last_active"},
}

// ProfileRepairer creates the minimal profile a progress row can reference.
type ProfileRepairer interface {
	EnsureProfile(ctx context.Context, identity models.Identity) error
}

type Persister struct {
	rows     remote.Collection[models.UserProgress]
	profiles ProfileRepairer
	log      *utils.Logger
	now      func() time.Time
}

func NewPersister(rows remote.Collection[models.UserProgress], profiles ProfileRepairer, log *utils.Logger) *Persister {
	return &Persister{
		rows:     rows,
		profiles: profiles,
		log:      log.With("component", "progress"),
		now:      time.Now,
	}
}

// Load returns the row of (user, topic), or nil when the learner has not started it.
func (p *Persister) Load(ctx context.Context, userID uuid.UUID, slug string) (*models.UserProgress, error) {
	row, err := p.rows.SelectOne(ctx, remote.Where(remote.Eq("user_id", userID), remote.Eq("topic_slug", slug)))
	if remote.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return row, nil
}

func (p *Persister) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.UserProgress, error) {
	rows, err := p.rows.Select(ctx, remote.Where(remote.Eq("user_id", userID)))
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

func (p *Persister) ListAll(ctx context.Context) ([]models.UserProgress, error) {
	rows, err := p.rows.Select(ctx, remote.Query{})
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

func uniqueDays(days []int) datatypes.JSONSlice[int] {
	out := make(datatypes.JSONSlice[int], 0, len(days))
	seen := make(map[int]struct{}, len(days))
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// Save writes the full progress state of one topic and stamps last_active.
// When the learner's profile is missing the profile is created once and the
// write retried once; any other failure is returned as is.
func (p *Persister) Save(ctx context.Context, identity models.Identity, slug string, days []int, notes models.Notes) (*models.UserProgress, error) {
	if notes == nil {
		notes = models.Notes{}
	}
	row := &models.UserProgress{
		UserID:        identity.ID,
		TopicSlug:     slug,
		CompletedDays: uniqueDays(days),
		Notes:         notes,
		LastActive:    p.now().UTC(),
	}

	err := p.rows.Upsert(ctx, row, progressConflict)
	if remote.IsForeignKeyViolation(err) {
		p.log.Warn("progress save hit missing profile, repairing", "user_id", identity.ID, "topic", slug)
		if repairErr := p.profiles.EnsureProfile(ctx, identity); repairErr != nil {
			profileRepairs.WithLabelValues("failed").Inc()
			progressWrites.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("repair profile: %w", repairErr)
		}
		profileRepairs.WithLabelValues("ok").Inc()

		retry := *row
		retry.ID = uuid.Nil
		err = p.rows.Upsert(ctx, &retry, progressConflict)
	}
	if err != nil {
		progressWrites.WithLabelValues("failed").Inc()
		p.log.Error("progress save failed", "user_id", identity.ID, "topic", slug, "error", err)
		return nil, fmt.Errorf("save progress: %w", err)
	}
	progressWrites.WithLabelValues("ok").Inc()

	return p.Load(ctx, identity.ID, slug)
}

func currentState(row *models.UserProgress) ([]int, models.Notes) {
	if row == nil {
		return []int{}, models.Notes{}
	}
	notes := models.Notes{}
	if row.Notes != nil {
		notes = row.Notes.Clone()
	}
	return append([]int{}, row.CompletedDays...), notes
}

// ToggleDay flips one day in the completed set and reports whether it is now complete.
func (p *Persister) ToggleDay(ctx context.Context, identity models.Identity, slug string, day int) (*models.UserProgress, bool, error) {
	current, err := p.Load(ctx, identity.ID, slug)
	if err != nil {
		return nil, false, err
	}
	days, notes := currentState(current)

	nowComplete := !current.HasDay(day)
	if nowComplete {
		days = append(days, day)
	} else {
		kept := days[:0]
		for _, d := range days {
			if d != day {
				kept = append(kept, d)
			}
		}
		days = kept
	}

	row, err := p.Save(ctx, identity, slug, days, notes)
	if err != nil {
		return nil, false, err
	}
	return row, nowComplete, nil
}

// SaveNotes replaces the whole notes map and keeps the completed days.
func (p *Persister) SaveNotes(ctx context.Context, identity models.Identity, slug string, notes models.Notes) (*models.UserProgress, error) {
	current, err := p.Load(ctx, identity.ID, slug)
	if err != nil {
		return nil, err
	}
	days, _ := currentState(current)
	return p.Save(ctx, identity, slug, days, notes)
}

func (p *Persister) SetDayNote(ctx context.Context, identity models.Identity, slug string, day int, text string) (*models.UserProgress, error) {
	current, err := p.Load(ctx, identity.ID, slug)
	if err != nil {
		return nil, err
	}
	days, notes := currentState(current)
	notes.SetDay(day, text)
	return p.Save(ctx, identity, slug, days, notes)
}

// ToggleChecklist flips a capstone task and reports whether it is now checked.
func (p *Persister) ToggleChecklist(ctx context.Context, identity models.Identity, slug, task string) (*models.UserProgress, bool, error) {
	current, err := p.Load(ctx, identity.ID, slug)
	if err != nil {
		return nil, false, err
	}
	days, notes := currentState(current)
	added := notes.ToggleChecklist(task)

	row, err := p.Save(ctx, identity, slug, days, notes)
	if err != nil {
		return nil, false, err
	}
	return row, added, nil
}
