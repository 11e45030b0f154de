package controllers

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/vidana-academy/learning-hub/backend/config"
	"github.com/vidana-academy/learning-hub/backend/middleware"
	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/session"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

type AuthController struct {
	Auth     remote.Auth
	Sessions *session.Registry
	Cfg      *config.Config
	Log      *utils.Logger
}

func NewAuthController(auth remote.Auth, sessions *session.Registry, cfg *config.Config, log *utils.Logger) *AuthController {
	return &AuthController{Auth: auth, Sessions: sessions, Cfg: cfg, Log: log.With("component", "auth")}
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"max=120"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Session  *remote.Session  `json:"session"`
	User     *models.Identity `json:"user"`
	Redirect string           `json:"redirect"`
}

// signedIn settles the session store for a fresh session so the profile exists
// before the client navigates.
func (ac *AuthController) signedIn(c *fiber.Ctx, sess *remote.Session) error {
	store, err := ac.Sessions.Resolve(c.UserContext(), sess.AccessToken)
	if err != nil {
		ac.Log.Error("resolve session after sign-in", "user_id", sess.User.ID, "error", err)
		return utils.InternalServerError(c, "An unexpected error occurred.")
	}
	resp := sessionResponse{Session: sess, Redirect: session.InternHomePath}
	if identity, ok := store.Identity(); ok {
		resp.User = &identity
		resp.Redirect = session.HomePath(identity.Role)
	}
	return utils.Success(c, fiber.StatusOK, resp)
}

// Signup godoc
// @Summary Register with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Sign-up data"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/auth/signup [post]
func (ac *AuthController) Signup(c *fiber.Ctx) error {
	var input SignupRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.Validate(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	var metadata map[string]any
	if input.FullName != "" {
		metadata = map[string]any{"full_name": input.FullName}
	}
	sess, err := ac.Auth.SignUp(c.UserContext(), input.Email, input.Password, metadata)
	switch {
	case errors.Is(err, remote.ErrAlreadyRegistered):
		return utils.Conflict(c, utils.FriendlyAuthMessage(err))
	case errors.Is(err, remote.ErrWeakPassword):
		return utils.BadRequest(c, utils.FriendlyAuthMessage(err))
	case err != nil:
		ac.Log.Error("sign up failed", "error", err)
		return utils.InternalServerError(c, utils.FriendlyAuthMessage(err))
	}
	return ac.signedIn(c, sess)
}

// Login godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /api/auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input LoginRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.Validate(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	sess, err := ac.Auth.SignInWithPassword(c.UserContext(), input.Email, input.Password)
	if errors.Is(err, remote.ErrInvalidLogin) {
		return utils.Unauthorized(c, utils.FriendlyAuthMessage(err))
	}
	if err != nil {
		ac.Log.Error("sign in failed", "error", err)
		return utils.InternalServerError(c, utils.FriendlyAuthMessage(err))
	}
	return ac.signedIn(c, sess)
}

func (ac *AuthController) Logout(c *fiber.Ctx) error {
	var err error
	if store := middleware.CurrentStore(c); store != nil {
		err = store.SignOut(c.UserContext())
	} else if token := utils.ExtractToken(c); token != "" {
		err = ac.Auth.SignOut(c.UserContext(), token)
	}
	if err != nil {
		// The local state is already cleared; the client proceeds to the login page either way.
		ac.Log.Warn("sign out failed", "error", err)
	}
	return utils.SuccessMessage(c, "Signed out", fiber.Map{"redirect": session.LoginPath})
}

func (ac *AuthController) Refresh(c *fiber.Ctx) error {
	var input struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.Validate(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	sess, err := ac.Auth.RefreshSession(c.UserContext(), input.RefreshToken)
	if errors.Is(err, remote.ErrNoSession) {
		return utils.Unauthorized(c, "Session expired. Please sign in again.", fiber.Map{"redirect": session.LoginPath})
	}
	if err != nil {
		ac.Log.Error("refresh failed", "error", err)
		return utils.InternalServerError(c, "An unexpected error occurred.")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"session": sess})
}

// redirectAllowed reports whether target may receive tokens after an auth flow.
func (ac *AuthController) redirectAllowed(target string) bool {
	return utils.RedirectAllowed(target, ac.Cfg.RedirectOrigins())
}

// ResetPassword sends a recovery link. The answer is the same whether or not the address is known.
func (ac *AuthController) ResetPassword(c *fiber.Ctx) error {
	var input struct {
		Email      string `json:"email" validate:"required,email"`
		RedirectTo string `json:"redirect_to" validate:"omitempty,url"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.Validate(input); errs != nil {
		return utils.ValidationError(c, errs)
	}
	if !ac.redirectAllowed(input.RedirectTo) {
		input.RedirectTo = ac.Cfg.SiteURL + session.LoginPath
	}

	if err := ac.Auth.ResetPasswordForEmail(c.UserContext(), input.Email, input.RedirectTo); err != nil {
		ac.Log.Error("password reset mail failed", "error", err)
		return utils.InternalServerError(c, "Could not send the reset email. Please try again.")
	}
	return utils.SuccessMessage(c, "Check your email for the password reset link.", nil)
}

func (ac *AuthController) UpdatePassword(c *fiber.Ctx) error {
	var input struct {
		AccessToken string `json:"access_token" validate:"required"`
		Password    string `json:"password" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.Validate(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	err := ac.Auth.UpdatePassword(c.UserContext(), input.AccessToken, input.Password)
	switch {
	case errors.Is(err, remote.ErrWeakPassword):
		return utils.BadRequest(c, utils.FriendlyAuthMessage(err))
	case errors.Is(err, remote.ErrNoSession):
		return utils.Unauthorized(c, "The reset link is invalid or has expired.")
	case err != nil:
		ac.Log.Error("update password failed", "error", err)
		return utils.InternalServerError(c, "An unexpected error occurred.")
	}
	return utils.SuccessMessage(c, "Password updated. You can sign in now.", fiber.Map{"redirect": session.LoginPath})
}

// OAuth redirects the browser to the provider consent page.
func (ac *AuthController) OAuth(c *fiber.Ctx) error {
	redirectTo := c.Query("redirect_to")
	if !ac.redirectAllowed(redirectTo) {
		redirectTo = ac.Cfg.SiteURL
	}
	consentURL, err := ac.Auth.SignInWithOAuth(c.UserContext(), c.Params("provider"), redirectTo)
	if errors.Is(err, remote.ErrUnsupportedProvider) {
		return utils.NotFound(c, "Sign-in provider is not configured")
	}
	if err != nil {
		ac.Log.Error("oauth start failed", "provider", c.Params("provider"), "error", err)
		return utils.InternalServerError(c, "An unexpected error occurred.")
	}
	return c.Redirect(consentURL, fiber.StatusFound)
}

// OAuthCallback finishes the provider flow and hands the tokens to the client
// in the URL fragment of the role's home page.
func (ac *AuthController) OAuthCallback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	if reason := c.Query("error"); reason != "" {
		return c.Redirect(ac.Cfg.SiteURL+session.LoginPath+"?error="+url.QueryEscape(reason), fiber.StatusFound)
	}

	sess, redirectTo, err := ac.Auth.ExchangeOAuthCode(c.UserContext(), provider, c.Query("code"), c.Query("state"))
	if errors.Is(err, remote.ErrUnsupportedProvider) {
		return utils.NotFound(c, "Sign-in provider is not configured")
	}
	if err != nil {
		ac.Log.Warn("oauth callback failed", "provider", provider, "error", err)
		return c.Redirect(ac.Cfg.SiteURL+session.LoginPath+"?error=oauth", fiber.StatusFound)
	}

	home := session.InternHomePath
	if store, err := ac.Sessions.Resolve(c.UserContext(), sess.AccessToken); err == nil {
		if identity, ok := store.Identity(); ok {
			home = session.HomePath(identity.Role)
		}
	}
	if !ac.redirectAllowed(redirectTo) || redirectTo == ac.Cfg.SiteURL {
		redirectTo = ac.Cfg.SiteURL + home
	}

	fragment := url.Values{}
	fragment.Set("access_token", sess.AccessToken)
	fragment.Set("refresh_token", sess.RefreshToken)
	fragment.Set("expires_at", strconv.FormatInt(sess.ExpiresAt.Unix(), 10))
	return c.Redirect(redirectTo+"#"+fragment.Encode(), fiber.StatusFound)
}

// Session reports the state of the caller's session store.
func (ac *AuthController) Session(c *fiber.Ctx) error {
	store := middleware.CurrentStore(c)
	if store == nil {
		return utils.Success(c, fiber.StatusOK, fiber.Map{"state": session.StateAnonymous})
	}
	data := fiber.Map{"state": store.State()}
	if identity, ok := store.Identity(); ok {
		data["user"] = identity
		data["redirect"] = session.HomePath(identity.Role)
	}
	return utils.Success(c, fiber.StatusOK, data)
}
