package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/session"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

const (
	storeKey    = "session"
	identityKey = "identity"
)

// Session resolves the bearer token of every request into a session store.
// Anonymous requests get a settled anonymous store.
func Session(registry *session.Registry, log *utils.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		store, err := registry.Resolve(c.UserContext(), utils.ExtractToken(c))
		if err != nil {
			log.Warn("session lookup failed", "path", c.Path(), "error", err)
			return c.Next()
		}
		c.Locals(storeKey, store)
		if identity, ok := store.Identity(); ok {
			c.Locals(identityKey, identity)
		}
		return c.Next()
	}
}

// CurrentStore returns the session store attached by Session, if any.
func CurrentStore(c *fiber.Ctx) *session.Store {
	store, _ := c.Locals(storeKey).(*session.Store)
	return store
}

func CurrentIdentity(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals(identityKey).(models.Identity)
	return identity, ok
}

func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentIdentity(c); !ok {
			return utils.Unauthorized(c, "Authentication required", fiber.Map{"redirect": session.LoginPath})
		}
		return c.Next()
	}
}

// RequireRole rejects signed-in users of another role and tells the client where they belong.
func RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := CurrentIdentity(c)
		if !ok {
			return utils.Unauthorized(c, "Authentication required", fiber.Map{"redirect": session.LoginPath})
		}
		if identity.Role != role {
			return utils.Forbidden(c, "Forbidden", fiber.Map{"redirect": session.HomePath(identity.Role)})
		}
		return c.Next()
	}
}
