package session

import (
	"strings"

	"github.com/vidana-academy/learning-hub/backend/models"
)

const (
	LoginPath        = "/login"
	InternHomePath   = "/dashboard"
	AdminHomePath    = "/admin-dashboard"
	topicPathPrefix  = "/topic/"
	protectedAnyRole = models.Role("")
)

type clientRoute struct {
	path   string
	prefix bool
	role   models.Role
}

var clientRoutes = []clientRoute{
	{path: "/dashboard", role: models.RoleIntern},
	{path: topicPathPrefix, prefix: true, role: protectedAnyRole},
	{path: "/admin-dashboard", role: models.RoleAdmin},
	{path: "/admin-modules", role: models.RoleAdmin},
	{path: "/admin-students", role: models.RoleAdmin},
}

// HomePath is where a signed-in user lands by default.
func HomePath(role models.Role) string {
	if role == models.RoleAdmin {
		return AdminHomePath
	}
	return InternHomePath
}

// Guard decides whether identity may open the client route path. It returns an
// empty redirect when access is allowed. Unknown paths are public.
func Guard(path string, identity *models.Identity) string {
	path = "/" + strings.Trim(path, "/")
	for _, r := range clientRoutes {
		match := path == r.path
		if r.prefix {
			match = strings.HasPrefix(path, r.path) && len(path) > len(r.path)
		}
		if !match {
			continue
		}
		if identity == nil {
			return LoginPath
		}
		if r.role != protectedAnyRole && identity.Role != r.role {
			return HomePath(identity.Role)
		}
		return ""
	}
	return ""
}
