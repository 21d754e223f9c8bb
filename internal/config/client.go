package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultAPIURL = "http://localhost:8000"

// ClientConfig configures the admin CLI and its API client.
type ClientConfig struct {
	APIURL      string
	SessionFile string
	HTTPTimeout time.Duration
	LogLevel    slog.Level
}

func LoadClient() (*ClientConfig, error) {
	// .env.local wins over .env; godotenv never overrides variables already set.
	for _, file := range []string{".env.local", ".env"} {
		_ = godotenv.Load(file)
	}

	cfg := &ClientConfig{
		APIURL:      strings.TrimRight(getEnv("JEWELFLOW_API_URL", DefaultAPIURL), "/"),
		SessionFile: getEnv("JEWELFLOW_SESSION_FILE", defaultSessionFile()),
		HTTPTimeout: getDuration("JEWELFLOW_HTTP_TIMEOUT", 15*time.Second),
		LogLevel:    parseLevel(getEnv("JEWELFLOW_LOG_LEVEL", "warn")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("JEWELFLOW_API_URL must be an absolute URL, got %q", c.APIURL)
	}

	if strings.TrimSpace(c.SessionFile) == "" {
		return fmt.Errorf("JEWELFLOW_SESSION_FILE cannot be empty")
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("JEWELFLOW_HTTP_TIMEOUT must be positive")
	}

	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".jewelflow", "session.json")
	}
	return filepath.Join(dir, "jewelflow", "session.json")
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelWarn
	}
	return level
}
