package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ds17f/deadarchive/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port          string
	DBPath        string
	DownloadsDir  string
	ArchiveURL    string
	Format        string
	LogLevel      string
	LogFormat     string
	MaxConcurrent int
	PollInterval  time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	home, _ := os.UserHomeDir()
	defaultDownload := filepath.Join(home, "Downloads/deadarchive")

	return &Config{
		Port:          getEnv("PORT", constants.DefaultPort),
		DBPath:        getEnv("DB_PATH", constants.DefaultDBPath),
		DownloadsDir:  getEnv("DOWNLOADS_DIR", defaultDownload),
		ArchiveURL:    getEnv("ARCHIVE_URL", constants.DefaultArchiveURL),
		Format:        getEnv("AUDIO_FORMAT", constants.FormatFLAC),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		MaxConcurrent: getEnvInt("MAX_CONCURRENT", constants.DefaultConcurrency),
		PollInterval:  getEnvDuration("POLL_INTERVAL", constants.DefaultPollInterval),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.DownloadsDir == "" {
		errors = append(errors, "DOWNLOADS_DIR cannot be empty")
	}

	if c.ArchiveURL == "" {
		errors = append(errors, "ARCHIVE_URL cannot be empty")
	} else {
		if _, err := url.Parse(c.ArchiveURL); err != nil {
			errors = append(errors, fmt.Sprintf("ARCHIVE_URL is not a valid URL: %s", c.ArchiveURL))
		}
	}

	validFormats := map[string]bool{
		constants.FormatFLAC:   true,
		constants.Format24Flac: true,
		constants.FormatVBRMP3: true,
		constants.FormatOgg:    true,
	}
	if !validFormats[c.Format] {
		errors = append(errors, fmt.Sprintf("AUDIO_FORMAT must be one of: Flac, 24bit Flac, VBR MP3, Ogg Vorbis, got: %s", c.Format))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if c.MaxConcurrent < 1 {
		errors = append(errors, fmt.Sprintf("MAX_CONCURRENT must be at least 1, got: %d", c.MaxConcurrent))
	}

	if c.PollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("POLL_INTERVAL must be at least 1s, got: %s", c.PollInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
