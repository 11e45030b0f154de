package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vidana-academy/learning-hub/backend/middleware"
	"github.com/vidana-academy/learning-hub/backend/profiles"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

type UserController struct {
	Profiles *profiles.Service
	Auth     remote.Auth
	Log      *utils.Logger
}

func NewUserController(profileService *profiles.Service, auth remote.Auth, log *utils.Logger) *UserController {
	return &UserController{Profiles: profileService, Auth: auth, Log: log.With("component", "users")}
}

// GetProfile godoc
// @Summary Get the signed-in user
// @Description Returns the session identity and the stored profile
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/me [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)

	profile, err := uc.Profiles.FetchOrCreate(c.UserContext(), identity)
	if err != nil {
		// The session identity is still usable without the stored profile.
		uc.Log.Warn("profile lookup failed", "user_id", identity.ID, "error", err)
		return utils.Success(c, fiber.StatusOK, fiber.Map{"identity": identity, "profile": nil})
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"identity": profiles.IdentityFromProfile(identity, profile),
		"profile":  profile,
	})
}

// UpdateProfile godoc
// @Summary Update the signed-in user's name or avatar
// @Tags users
// @Accept json
// @Produce json
// @Param input body profiles.UpdateInput true "Profile fields"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/me [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)

	var input profiles.UpdateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.Validate(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	if err := uc.Profiles.EnsureProfile(c.UserContext(), identity); err != nil {
		uc.Log.Error("ensure profile before update", "user_id", identity.ID, "error", err)
		return utils.InternalServerError(c, "Failed to update profile.")
	}
	profile, err := uc.Profiles.Update(c.UserContext(), identity.ID, input)
	if remote.IsNotFound(err) {
		return utils.NotFound(c, "Profile not found")
	}
	if err != nil {
		uc.Log.Error("update profile", "user_id", identity.ID, "error", err)
		return utils.InternalServerError(c, "Failed to update profile.")
	}

	// Keep the session metadata in step; session stores reconcile on the resulting event.
	metadata := map[string]any{}
	if input.FullName != nil {
		metadata["full_name"] = profile.FullName
	}
	if input.AvatarURL != nil {
		metadata["avatar_url"] = profile.AvatarURL
	}
	if len(metadata) > 0 {
		if _, err := uc.Auth.UpdateUser(c.UserContext(), utils.ExtractToken(c), metadata); err != nil {
			uc.Log.Warn("sync session metadata", "user_id", identity.ID, "error", err)
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"identity": profiles.IdentityFromProfile(identity, profile),
		"profile":  profile,
	})
}
