package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the server settings. Values come from LABELKIT_* environment
// variables; a .env file in the working directory is loaded first when present.
type Config struct {
	Addr          string
	DBPath        string
	MigrationsDir string

	JWTSecret   string
	JWTAudience string
	TokenTTL    time.Duration
	AdminEmails map[string]bool

	RateLimit  int
	RateWindow time.Duration

	Commit    string
	BuildTime string
}

const devSecret = "dev-secret-change-in-production"

// Load reads the configuration from the environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:          env("LABELKIT_ADDR", ":8080"),
		DBPath:        env("LABELKIT_DB_PATH", "./data/labelkit.db"),
		MigrationsDir: os.Getenv("LABELKIT_MIGRATIONS_DIR"),
		JWTSecret:     env("LABELKIT_JWT_SECRET", devSecret),
		JWTAudience:   env("LABELKIT_JWT_AUDIENCE", "authenticated"),
		TokenTTL:      envDuration("LABELKIT_TOKEN_TTL", 24*time.Hour),
		AdminEmails:   parseAdminEmails(os.Getenv("LABELKIT_ADMIN_EMAILS")),
		RateLimit:     envInt("LABELKIT_RATE_LIMIT", 100),
		RateWindow:    envDuration("LABELKIT_RATE_WINDOW", time.Minute),
		Commit:        os.Getenv("LABELKIT_COMMIT"),
		BuildTime:     os.Getenv("LABELKIT_BUILD_TIME"),
	}
	if cfg.JWTSecret == devSecret {
		log.Printf("config: LABELKIT_JWT_SECRET not set, using the development secret")
	}
	return cfg
}

// env returns the variable's value, or fallback when unset or empty.
func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

// parseAdminEmails splits a comma-separated list into a lowercase lookup set.
func parseAdminEmails(raw string) map[string]bool {
	out := make(map[string]bool)
	for _, e := range strings.Split(raw, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out[e] = true
		}
	}
	return out
}
