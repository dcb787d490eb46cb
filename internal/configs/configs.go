/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, on-disk directories,
and the optional Postgres and S3 backends.
*/
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// RootDir is the base directory for uploads, static assets, and local user data.
	RootDir string

	// PublicBaseURL is the externally visible prefix for uploaded file URLs
	// (empty for same-origin relative URLs).
	PublicBaseURL string

	// Database Settings (optional; empty DSN selects the local file identity store)
	DatabaseDSN string

	// S3 Storage Settings (optional; empty bucket selects local disk storage)
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary
// type conversions and validation.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "3000"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Directories and URLs ---
	cfg.RootDir = os.Getenv("ROOT_DIR")
	if cfg.RootDir == "" {
		cfg.RootDir = "."
	}

	cfg.PublicBaseURL = strings.TrimSuffix(os.Getenv("PUBLIC_BASE_URL"), "/")

	// --- Database Settings ---
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	// --- S3 Storage Settings ---
	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	if cfg.S3BucketName != "" {
		cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
		if cfg.S3Endpoint == "" {
			return nil, fmt.Errorf("S3_ENDPOINT environment variable is required when S3_BUCKET_NAME is set")
		}

		cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
		if cfg.S3AccessKeyID == "" {
			return nil, fmt.Errorf("S3_ACCESS_KEY_ID environment variable is required when S3_BUCKET_NAME is set")
		}

		cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
		if cfg.S3SecretAccessKey == "" {
			return nil, fmt.Errorf("S3_SECRET_ACCESS_KEY environment variable is required when S3_BUCKET_NAME is set")
		}
	}

	return cfg, nil
}

// UsesLocalStorage reports whether uploads are written to the local disk
// (no S3 bucket configured). Static file serving is only enabled in this mode.
func (c *AppConfig) UsesLocalStorage() bool {
	return c.S3BucketName == ""
}

// UploadsDir returns the directory for general file and image uploads.
func (c *AppConfig) UploadsDir() string {
	return filepath.Join(c.RootDir, "uploads")
}

// PublicDir returns the directory for static assets, including avatars.
func (c *AppConfig) PublicDir() string {
	return filepath.Join(c.RootDir, "public")
}

// AvatarsDir returns the directory avatar uploads are stored in.
func (c *AppConfig) AvatarsDir() string {
	return filepath.Join(c.PublicDir(), "avatars")
}

// UserDataFile returns the path of the JSON file the local identity store persists to.
func (c *AppConfig) UserDataFile() string {
	return filepath.Join(c.RootDir, "data", "users.json")
}

// EnsureDirectories creates the runtime directories the server writes to.
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.UploadsDir(),
		c.AvatarsDir(),
		filepath.Join(c.PublicDir(), "images"),
		filepath.Join(c.RootDir, "data"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
