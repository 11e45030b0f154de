// Package catalog serves topics, their day-by-day modules and learning resources.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

var (
	topicCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "learning_hub_topic_cache_hits_total",
		Help: "Topic list lookups served from the in-memory cache.",
	})
	topicCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "learning_hub_topic_cache_misses_total",
		Help: "Topic list lookups that went to the database.",
	})
)

const allTopicsKey = "all"

type Service struct {
	topics    remote.Collection[models.Topic]
	modules   remote.Collection[models.Module]
	resources remote.Collection[models.Resource]
	cache     *expirable.LRU[string, []models.Topic]
	log       *utils.Logger
}

func NewService(client *remote.Client, cacheTTL time.Duration, log *utils.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{
		topics:    client.Topics,
		modules:   client.Modules,
		resources: client.Resources,
		cache:     expirable.NewLRU[string, []models.Topic](8, nil, cacheTTL),
		log:       log.With("component", "catalog"),
	}
}

// ListTopics returns all topics ordered by slug.
func (s *Service) ListTopics(ctx context.Context) ([]models.Topic, error) {
	if cached, ok := s.cache.Get(allTopicsKey); ok {
		topicCacheHits.Inc()
		return append([]models.Topic(nil), cached...), nil
	}
	topicCacheMisses.Inc()

	rows, err := s.topics.Select(ctx, remote.Query{}.OrderBy("slug", false))
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	s.cache.Add(allTopicsKey, rows)
	return append([]models.Topic(nil), rows...), nil
}

func (s *Service) invalidate() {
	s.cache.Purge()
}

func (s *Service) GetTopic(ctx context.Context, slug string) (*models.Topic, error) {
	return s.topics.SelectOne(ctx, remote.Where(remote.Eq("slug", slug)))
}

// EnsureTopic returns the topic, inserting it from the built-in catalog when the
// database does not know it yet.
func (s *Service) EnsureTopic(ctx context.Context, slug string) (*models.Topic, error) {
	topic, err := s.GetTopic(ctx, slug)
	if err == nil || !remote.IsNotFound(err) {
		return topic, err
	}

	seed, ok := findSeed(slug)
	if !ok {
		return nil, err
	}
	row := seed.Topic
	if err := s.topics.Upsert(ctx, &row, remote.OnConflict{Columns: []string{"slug"}}); err != nil {
		s.log.Warn("auto-seed topic failed", "slug", slug, "error", err)
		return &seed.Topic, nil
	}
	s.invalidate()
	s.log.Info("topic auto-seeded", "slug", slug)
	return s.GetTopic(ctx, slug)
}

// Curriculum returns the stored modules of a topic by day, falling back to the
// built-in curriculum when none were authored.
func (s *Service) Curriculum(ctx context.Context, slug string) ([]models.Module, error) {
	rows, err := s.modules.Select(ctx, remote.Where(remote.Eq("topic_slug", slug)).OrderBy("day_number", false))
	if err != nil {
		return nil, fmt.Errorf("load curriculum %s: %w", slug, err)
	}
	if len(rows) > 0 {
		return rows, nil
	}
	return SeedCurriculum(slug), nil
}

// Resources returns the resources linked to the topic's modules or tagged with
// the topic. Without any stored match the built-in list for the topic is used.
func (s *Service) Resources(ctx context.Context, slug string) ([]models.Resource, error) {
	all, err := s.resources.Select(ctx, remote.Query{}.OrderBy("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	modules, err := s.modules.Select(ctx, remote.Where(remote.Eq("topic_slug", slug)))
	if err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	moduleIDs := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		moduleIDs[m.ID.String()] = struct{}{}
	}

	tag := topicTag(slug)
	out := make([]models.Resource, 0, len(all))
	for _, r := range all {
		linked := false
		if r.ModuleID != nil {
			_, linked = moduleIDs[r.ModuleID.String()]
		}
		if linked || hasTag(r.Tags, tag) {
			out = append(out, withDefaults(r))
		}
	}
	if len(out) == 0 {
		for _, r := range builtinResources {
			if hasTag(r.Tags, tag) {
				out = append(out, withDefaults(r))
			}
		}
	}
	return out, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.Contains(t, tag) {
			return true
		}
	}
	return false
}

func withDefaults(r models.Resource) models.Resource {
	if r.Difficulty == "" {
		r.Difficulty = models.DefaultDifficulty
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return r
}

// Seed inserts the built-in topics, modules and resources. Existing rows are kept,
// so running it twice changes nothing.
func (s *Service) Seed(ctx context.Context) error {
	for _, seed := range builtin {
		topic := seed.Topic
		if err := s.topics.Upsert(ctx, &topic, remote.OnConflict{Columns: []string{"slug"}}); err != nil {
			return fmt.Errorf("seed topic %s: %w", topic.Slug, err)
		}
		for _, m := range seed.Modules {
			mod := m
			err := s.modules.Upsert(ctx, &mod, remote.OnConflict{Columns: []string{"topic_slug", "day_number"}})
			if err != nil {
				return fmt.Errorf("seed module %s/%d: %w", mod.TopicSlug, mod.DayNumber, err)
			}
		}
	}

	existing, err := s.resources.Select(ctx, remote.Query{})
	if err != nil {
		return fmt.Errorf("seed resources: %w", err)
	}
	urls := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		urls[r.URL] = struct{}{}
	}
	for _, r := range builtinResources {
		if _, ok := urls[r.URL]; ok {
			continue
		}
		res := r
		if err := s.resources.Insert(ctx, &res); err != nil {
			return fmt.Errorf("seed resource %q: %w", r.Title, err)
		}
	}

	s.invalidate()
	s.log.Info("catalog seeded", "topics", len(builtin), "resources", len(builtinResources))
	return nil
}

var coverImages = []string{
	"https://images.unsplash.com/photo-1518770660439-4636190af475?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1555066931-4365d14bab8c?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1620712943543-bcc4688e7485?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1526374965328-7f61d4dc18c5?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1531297425937-2591b6c61989?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1485827404703-89b55fcc595e?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1551288049-bebda4e38f71?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1519389950473-47ba0277781c?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1581091226825-a6a2a5aee158?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1504384308090-c54be3855833?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1550751827-4bd374c3f58b?auto=format&fit=crop&w=1000&q=80",
	"https://images.unsplash.com/photo-1516110833967-0b5716ca1387?auto=format&fit=crop&w=1000&q=80",
}

// CoverImage picks a stable cover for a topic day.
func CoverImage(slug string, day int) string {
	sum := 0
	for _, r := range slug {
		sum += int(r)
	}
	idx := (sum + day) % len(coverImages)
	if idx < 0 {
		idx += len(coverImages)
	}
	return coverImages[idx]
}
