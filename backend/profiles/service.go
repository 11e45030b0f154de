// Package profiles owns the application profile that mirrors each identity.
// Every path that may find the profile missing goes through this service so the
// repair behaviour stays in one place.
package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

type Service struct {
	profiles remote.Collection[models.Profile]
	log      *utils.Logger
}

func NewService(profiles remote.Collection[models.Profile], log *utils.Logger) *Service {
	return &Service{profiles: profiles, log: log.With("component", "profiles")}
}

// IdentityFromUser derives the optimistic identity from session metadata.
func IdentityFromUser(u remote.User) models.Identity {
	name := u.MetaString("full_name", "name")
	if name == "" {
		name = models.FallbackName(u.Email)
	}
	return models.Identity{
		ID:        u.ID,
		Email:     u.Email,
		Name:      name,
		Role:      models.RoleIntern,
		AvatarURL: u.MetaString("avatar_url", "picture"),
	}
}

// IdentityFromProfile merges a stored profile over an identity, keeping identity
// values where the profile has none.
func IdentityFromProfile(base models.Identity, p *models.Profile) models.Identity {
	out := base
	out.ID = p.ID
	if p.Email != "" {
		out.Email = p.Email
	}
	if p.FullName != "" {
		out.Name = p.FullName
	}
	if p.Role != "" {
		out.Role = p.Role
	}
	if p.AvatarURL != "" {
		out.AvatarURL = p.AvatarURL
	}
	return out
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return s.profiles.SelectOne(ctx, remote.Where(remote.Eq("id", id)))
}

// FetchOrCreate returns the stored profile of the identity, creating it from the
// identity when missing. Calling it twice never produces a second profile.
func (s *Service) FetchOrCreate(ctx context.Context, identity models.Identity) (*models.Profile, error) {
	profile, err := s.Get(ctx, identity.ID)
	if err == nil {
		return profile, nil
	}
	if !remote.IsNotFound(err) {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	if err := s.EnsureProfile(ctx, identity); err != nil {
		return nil, err
	}
	profile, err = s.Get(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile after create: %w", err)
	}
	return profile, nil
}

// EnsureProfile inserts a minimal profile for the identity. An existing profile
// is left untouched.
func (s *Service) EnsureProfile(ctx context.Context, identity models.Identity) error {
	role := identity.Role
	if role == "" {
		role = models.RoleIntern
	}
	name := identity.Name
	if name == "" {
		name = models.FallbackName(identity.Email)
	}
	row := &models.Profile{
		ID:        identity.ID,
		Email:     identity.Email,
		FullName:  name,
		Role:      role,
		AvatarURL: identity.AvatarURL,
	}
	err := s.profiles.Upsert(ctx, row, remote.OnConflict{Columns: []string{"id"}})
	if err != nil && !remote.IsUniqueViolation(err) {
		return fmt.Errorf("create profile: %w", err)
	}
	s.log.Info("profile ensured", "user_id", identity.ID)
	return nil
}

type UpdateInput struct {
	FullName  *string `json:"full_name" validate:"omitempty,max=120"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

// Update writes the editable profile fields. Role is never user-editable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Profile, error) {
	values := map[string]any{}
	if in.FullName != nil {
		values["full_name"] = strings.TrimSpace(*in.FullName)
	}
	if in.AvatarURL != nil {
		values["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}
	if len(values) > 0 {
		n, err := s.profiles.Update(ctx, remote.Where(remote.Eq("id", id)), values)
		if err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		if n == 0 {
			return nil, &remote.Error{Code: remote.CodeNotFound, Message: "profile not found"}
		}
	}
	return s.Get(ctx, id)
}

// ListStudents returns every non-admin profile ordered by name.
func (s *Service) ListStudents(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.profiles.Select(ctx, remote.Where(remote.Neq("role", models.RoleAdmin)).OrderBy("full_name", false))
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return rows, nil
}
