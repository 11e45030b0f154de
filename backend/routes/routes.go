package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/vidana-academy/learning-hub/backend/admin"
	"github.com/vidana-academy/learning-hub/backend/catalog"
	"github.com/vidana-academy/learning-hub/backend/config"
	"github.com/vidana-academy/learning-hub/backend/controllers"
	"github.com/vidana-academy/learning-hub/backend/middleware"
	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/profiles"
	"github.com/vidana-academy/learning-hub/backend/progress"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/session"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

// Services is everything the HTTP layer depends on.
type Services struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Log      *utils.Logger
	Client   *remote.Client
	Profiles *profiles.Service
	Catalog  *catalog.Service
	Progress *progress.Persister
	Admin    *admin.Service
	Sessions *session.Registry
}

// NewServices wires the domain services on top of db and auth.
func NewServices(db *gorm.DB, cfg *config.Config, auth remote.Auth, log *utils.Logger) *Services {
	client := remote.NewClient(db, auth)
	profileService := profiles.NewService(client.Profiles, log)
	catalogService := catalog.NewService(client, cfg.TopicCacheTTL, log)
	persister := progress.NewPersister(client.Progress, profileService, log)

	return &Services{
		DB:       db,
		Cfg:      cfg,
		Log:      log,
		Client:   client,
		Profiles: profileService,
		Catalog:  catalogService,
		Progress: persister,
		Admin:    admin.NewService(profileService, catalogService, persister),
		Sessions: session.NewRegistry(auth, profileService, cfg.SessionCacheSize, cfg.AccessTokenTTL, log),
	}
}

// Close releases the session registry.
func (s *Services) Close() {
	s.Sessions.Close()
}

func SetupRoutes(app *fiber.App, s *Services) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", middleware.Session(s.Sessions, s.Log))

	navigationController := controllers.NewNavigationController(s.DB)
	api.Get("/health", navigationController.Health)
	api.Get("/navigation", navigationController.Navigate)

	// Auth routes
	authController := controllers.NewAuthController(s.Client.Auth, s.Sessions, s.Cfg, s.Log)
	auth := api.Group("/auth")
	auth.Post("/signup", authController.Signup)
	auth.Post("/login", authController.Login)
	auth.Post("/logout", authController.Logout)
	auth.Post("/refresh", authController.Refresh)
	auth.Post("/reset-password", authController.ResetPassword)
	auth.Post("/update-password", authController.UpdatePassword)
	auth.Get("/session", authController.Session)
	auth.Get("/oauth/:provider", authController.OAuth)
	auth.Get("/oauth/:provider/callback", authController.OAuthCallback)

	requireAuth := middleware.RequireAuth()

	// User routes
	userController := controllers.NewUserController(s.Profiles, s.Client.Auth, s.Log)
	api.Get("/me", requireAuth, userController.GetProfile)
	api.Put("/me", requireAuth, userController.UpdateProfile)

	// Progress routes
	progressController := controllers.NewProgressController(s.Catalog, s.Progress, s.Log)
	api.Get("/topics", progressController.ListTopics)
	api.Get("/dashboard", middleware.RequireRole(models.RoleIntern), progressController.Dashboard)

	topics := api.Group("/topics/:slug")
	topics.Get("/", requireAuth, progressController.TopicView)
	topics.Put("/progress", requireAuth, progressController.SaveProgress)
	topics.Post("/days/:day/toggle", requireAuth, progressController.ToggleDay)
	topics.Put("/notes", requireAuth, progressController.SaveNotes)
	topics.Put("/notes/:day", requireAuth, progressController.SaveDayNote)
	topics.Post("/checklist", requireAuth, progressController.ToggleChecklist)

	// Admin routes
	adminController := controllers.NewAdminController(s.Admin, s.Catalog, s.Log)
	adminGroup := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	adminGroup.Get("/topics", adminController.Topics)
	adminGroup.Get("/students", adminController.Students)
	adminGroup.Get("/students/export", adminController.Export)
	adminGroup.Get("/students/:id", adminController.Student)

	modulesController := controllers.NewModulesController(s.Catalog, s.Log)
	adminModules := adminGroup.Group("/modules")
	adminModules.Get("/", modulesController.List)
	adminModules.Get("/next-day", modulesController.NextDay)
	adminModules.Post("/verify-access", modulesController.VerifyAccess)
	adminModules.Post("/", modulesController.Create)
	adminModules.Put("/:id", modulesController.Update)
	adminModules.Delete("/:id", modulesController.Delete)
}

// NewApp builds the Fiber application with the shared middleware chain.
func NewApp(cfg *config.Config, log *utils.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "learning-hub",
		ErrorHandler: utils.ErrorHandler,
	})
	app.Use(middleware.MetricsMiddleware())
	app.Use(middleware.LoggingMiddleware(log.With("component", "http")))
	return app
}
