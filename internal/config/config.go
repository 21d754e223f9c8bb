package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config configures the development API server.
type Config struct {
	Env                     string
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	JWTSecret               string
	JWTAccessTTL            time.Duration
	JWTRefreshTTL           time.Duration
	CORSOrigins             []string
	RateLimitRPM            int
	AuthRateLimitRPM        int
	MaxFailedLogins         int
	LockoutDuration         time.Duration
	BcryptCost              int
	TokenCleanupInterval    time.Duration
	DatabaseURL             string
	DBMaxConns              int32
	DBMinConns              int32
	RedisURL                string
	SendGridAPIKey          string
	MailFromName            string
	MailFromEmail           string
	SeedAdminEmail          string
	SeedAdminPassword       string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                     strings.ToUpper(getEnv("ENV", "DEV")),
		ServerPort:              getEnv("SERVER_PORT", "8000"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL:            getDuration("JWT_ACCESS_TTL", 5*time.Minute),
		JWTRefreshTTL:           getDuration("JWT_REFRESH_TTL", 24*time.Hour),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 20),
		MaxFailedLogins:         getInt("MAX_FAILED_LOGINS", 5),
		LockoutDuration:         getDuration("LOCKOUT_DURATION", 15*time.Minute),
		BcryptCost:              getInt("BCRYPT_COST", 12),
		TokenCleanupInterval:    getDuration("TOKEN_CLEANUP_INTERVAL", time.Hour),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		RedisURL:                strings.TrimSpace(os.Getenv("REDIS_URL")),
		SendGridAPIKey:          strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		MailFromName:            getEnv("MAIL_FROM_NAME", "JewelFlow"),
		MailFromEmail:           getEnv("MAIL_FROM_EMAIL", "no-reply@jewelflow.local"),
		SeedAdminEmail:          getEnv("SEED_ADMIN_EMAIL", "admin@jewelflow.local"),
		SeedAdminPassword:       getEnv("SEED_ADMIN_PASSWORD", "Admin123!"),
	}

	if cfg.JWTSecret == "" && cfg.Env == "DEV" {
		cfg.JWTSecret = "jewelflow-dev-secret"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required outside DEV")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}

	if c.JWTRefreshTTL < c.JWTAccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL must not be shorter than JWT_ACCESS_TTL")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.MaxFailedLogins <= 0 {
		return fmt.Errorf("MAX_FAILED_LOGINS must be positive")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}

	if c.DatabaseURL != "" && c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS must be >= DB_MIN_CONNS")
	}

	if c.SendGridAPIKey != "" && strings.TrimSpace(c.MailFromEmail) == "" {
		return fmt.Errorf("MAIL_FROM_EMAIL is required when SENDGRID_API_KEY is set")
	}

	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "DEV"
}
