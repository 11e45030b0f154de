package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	ServerPort  string
	SiteURL     string
	CORSOrigins string

	// AuthRedirectOrigins are accepted as post-login and recovery redirect
	// targets in addition to SiteURL.
	AuthRedirectOrigins []string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	SendgridAPIKey string
	MailFrom       string

	TopicCacheTTL    time.Duration
	SessionCacheSize int
}

const defaultJWTSecret = "secret"

var ErrDefaultJWTSecret = errors.New("JWT_SECRET must be set in production")

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		SiteURL:     strings.TrimRight(getEnv("SITE_URL", "http://localhost:5173"), "/"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		AuthRedirectOrigins: getList("AUTH_REDIRECT_ORIGINS"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "learning_hub"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:       getEnv("JWT_SECRET", defaultJWTSecret),
		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/oauth/google/callback"),

		SendgridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFrom:       getEnv("MAIL_FROM", "noreply@localhost"),

		TopicCacheTTL:    getDuration("TOPIC_CACHE_TTL", 5*time.Minute),
		SessionCacheSize: getInt("SESSION_CACHE_SIZE", 1024),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate refuses settings that are only acceptable in development.
func (c *Config) Validate() error {
	if c.Production() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		return ErrDefaultJWTSecret
	}
	return nil
}

// RedirectOrigins lists the origins auth flows may redirect to: SiteURL first.
func (c *Config) RedirectOrigins() []string {
	return append([]string{c.SiteURL}, c.AuthRedirectOrigins...)
}

// Production reports whether the service runs with production logging and error pages.
func (c *Config) Production() bool {
	switch strings.ToLower(c.AppEnv) {
	case "prod", "production":
		return true
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}
