package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string // SCRAV_DATABASE_URL (required)
	HTTPAddr    string // SCRAV_HTTP_ADDR (default ":8080")
	NATSURL     string // SCRAV_NATS_URL (optional, empty = no events)
	AuthToken   string // SCRAV_AUTH_TOKEN (optional, empty = auth disabled)

	// Blob storage settings
	S3Bucket   string // SCRAV_S3_BUCKET (required)
	S3Endpoint string // SCRAV_S3_ENDPOINT (custom endpoint for MinIO)
	S3Region   string // SCRAV_S3_REGION (default "us-east-1")

	// Portal settings
	PortalURL      string // SCRAV_PORTAL_URL (default official portal)
	PortalUsername string // SCRAV_PORTAL_USERNAME (required for automation)
	PortalPassword string // SCRAV_PORTAL_PASSWORD (required for automation)

	// Browser settings
	DevToolsURL    string        // SCRAV_DEVTOOLS_URL (attach to running browser when set)
	Headless       bool          // SCRAV_HEADLESS (default true)
	StepTimeout    time.Duration // SCRAV_STEP_TIMEOUT (default 30s)
	SessionTimeout time.Duration // SCRAV_SESSION_TIMEOUT (default 5m)
	MaxSessions    int           // SCRAV_MAX_SESSIONS (default 4, 0 = unlimited)

	// Signed URL settings
	SignedURLTTL time.Duration // SCRAV_SIGNED_URL_TTL (default 1h)
	URLCacheTTL  time.Duration // SCRAV_URL_CACHE_TTL (default 45m, must be < SignedURLTTL)
}

const DefaultPortalURL = "https://scra.dmdc.osd.mil/scra/#/single-record"

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("SCRAV_DATABASE_URL"),
		HTTPAddr:       envOrDefault("SCRAV_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("SCRAV_NATS_URL"),
		AuthToken:      os.Getenv("SCRAV_AUTH_TOKEN"),
		S3Bucket:       os.Getenv("SCRAV_S3_BUCKET"),
		S3Endpoint:     os.Getenv("SCRAV_S3_ENDPOINT"),
		S3Region:       envOrDefault("SCRAV_S3_REGION", "us-east-1"),
		PortalURL:      envOrDefault("SCRAV_PORTAL_URL", DefaultPortalURL),
		PortalUsername: os.Getenv("SCRAV_PORTAL_USERNAME"),
		PortalPassword: os.Getenv("SCRAV_PORTAL_PASSWORD"),
		DevToolsURL:    os.Getenv("SCRAV_DEVTOOLS_URL"),
		Headless:       envOrDefault("SCRAV_HEADLESS", "true") != "false",
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("SCRAV_DATABASE_URL is required")
	}
	if c.S3Bucket == "" {
		return nil, fmt.Errorf("SCRAV_S3_BUCKET is required")
	}

	var err error
	if c.StepTimeout, err = durationOrDefault("SCRAV_STEP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if c.SessionTimeout, err = durationOrDefault("SCRAV_SESSION_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if c.SignedURLTTL, err = durationOrDefault("SCRAV_SIGNED_URL_TTL", time.Hour); err != nil {
		return nil, err
	}
	if c.URLCacheTTL, err = durationOrDefault("SCRAV_URL_CACHE_TTL", 45*time.Minute); err != nil {
		return nil, err
	}
	if c.URLCacheTTL >= c.SignedURLTTL {
		return nil, fmt.Errorf("SCRAV_URL_CACHE_TTL must be shorter than SCRAV_SIGNED_URL_TTL")
	}
	if c.MaxSessions, err = intOrDefault("SCRAV_MAX_SESSIONS", 4); err != nil {
		return nil, err
	}
	if c.MaxSessions < 0 {
		return nil, fmt.Errorf("SCRAV_MAX_SESSIONS must not be negative")
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
