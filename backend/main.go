package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/vidana-academy/learning-hub/backend/catalog"
	"github.com/vidana-academy/learning-hub/backend/config"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/routes"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

func main() {
	app := &cli.App{
		Name:  "learning-hub",
		Usage: "learning hub backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "override SERVER_PORT"},
		},
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API", Action: serve},
			{Name: "migrate", Usage: "create or update the database schema", Action: migrate},
			{Name: "seed", Usage: "load the built-in topic catalog", Action: seed},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runtime struct {
	cfg *config.Config
	log *utils.Logger
	db  *gorm.DB
}

func bootstrap(c *cli.Context) (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if port := c.String("port"); port != "" {
		cfg.ServerPort = port
	}

	logger, err := utils.InitLogger(cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := utils.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, log: logger, db: db}, nil
}

func newAuth(rt *runtime) *remote.LocalAuth {
	providers := map[string]remote.OAuthProvider{}
	if rt.cfg.GoogleClientID != "" {
		providers["google"] = remote.OAuthProvider{
			Config: &oauth2.Config{
				ClientID:     rt.cfg.GoogleClientID,
				ClientSecret: rt.cfg.GoogleClientSecret,
				RedirectURL:  rt.cfg.GoogleRedirectURL,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
			UserInfoURL: googleUserInfoURL,
		}
	}

	var mailer remote.Mailer
	if rt.cfg.SendgridAPIKey != "" {
		mailer = remote.NewSendgridMailer(rt.cfg.SendgridAPIKey, "Learning Hub", rt.cfg.MailFrom)
	}

	return remote.NewLocalAuth(rt.db, remote.LocalAuthConfig{
		Secret:          rt.cfg.JWTSecret,
		AccessTTL:       rt.cfg.AccessTokenTTL,
		RefreshTTL:      rt.cfg.RefreshTokenTTL,
		Providers:       providers,
		Mailer:          mailer,
		SiteURL:         rt.cfg.SiteURL,
		RedirectOrigins: rt.cfg.AuthRedirectOrigins,
	}, rt.log)
}

func serve(c *cli.Context) error {
	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	if err := utils.Migrate(rt.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	services := routes.NewServices(rt.db, rt.cfg, newAuth(rt), rt.log)
	defer services.Close()

	if err := services.Catalog.Seed(c.Context); err != nil {
		rt.log.Warn("seeding catalog failed", "error", err)
	}

	app := routes.NewApp(rt.cfg, rt.log)
	app.Use(recover.New(recover.Config{EnableStackTrace: !rt.cfg.Production()}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: rt.cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	routes.SetupRoutes(app, services)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		rt.log.Info("shutting down")
		_ = app.Shutdown()
	}()

	rt.log.Info("listening", "port", rt.cfg.ServerPort, "env", rt.cfg.AppEnv)
	return app.Listen(":" + rt.cfg.ServerPort)
}

func migrate(c *cli.Context) error {
	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	if err := utils.Migrate(rt.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	rt.log.Info("schema up to date")
	return nil
}

func seed(c *cli.Context) error {
	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	if err := utils.Migrate(rt.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	client := remote.NewClient(rt.db, newAuth(rt))
	if err := catalog.NewService(client, rt.cfg.TopicCacheTTL, rt.log).Seed(c.Context); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	rt.log.Info("catalog seeded", "topics", len(catalog.SeedTopics()))
	return nil
}
