package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr             string
	LogLevel         string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	JWTSecret        string
	MaxConcurrentJob int
	MaxShopJobs      int
	ShutdownTimeout  time.Duration

	RenderAPIURL       string
	RenderAPIKey       string
	RenderPollInterval time.Duration
	RenderTimeout      time.Duration
}

// Load reads WRAPREEL_* variables. A .env file in the working directory is
// applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Addr:             env("WRAPREEL_ADDR", ":8080"),
		LogLevel:         env("WRAPREEL_LOG_LEVEL", "info"),
		AccessTTL:        envDuration("WRAPREEL_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:       envDuration("WRAPREEL_REFRESH_TTL", 14*24*time.Hour),
		JWTSecret:        env("WRAPREEL_JWT_SECRET", "dev-change-me"),
		MaxConcurrentJob: envInt("WRAPREEL_MAX_CONCURRENT_TASKS", 20),
		MaxShopJobs:      envInt("WRAPREEL_MAX_SHOP_JOBS", 3),
		ShutdownTimeout:  envDuration("WRAPREEL_SHUTDOWN_TIMEOUT", 10*time.Second),

		RenderAPIURL:       env("WRAPREEL_RENDER_API_URL", "https://api.creatomate.com/v1"),
		RenderAPIKey:       env("WRAPREEL_RENDER_API_KEY", ""),
		RenderPollInterval: envDuration("WRAPREEL_RENDER_POLL_INTERVAL", 3*time.Second),
		RenderTimeout:      envDuration("WRAPREEL_RENDER_TIMEOUT", 10*time.Minute),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
