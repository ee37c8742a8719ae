package logger

import (
	"io"
	"os"
	"strconv"
)

// Config holds logger configuration.
type Config struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // output destination; nil means stdout
	ServiceName string    // service name for log tagging

	// File output; empty LogFile disables it.
	LogFile     string
	LogFileOnly bool

	// Rotation settings passed to lumberjack.
	MaxSize    int  // MB
	MaxBackups int  // files
	MaxAge     int  // days
	Compress   bool
}

// DefaultConfig returns sensible defaults.
// Parameters: none.
// Returns:
//   - *Config: default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		Output:      os.Stdout,
		ServiceName: "promptvault",
		MaxSize:     100,
		MaxBackups:  7,
		MaxAge:      30,
		Compress:    true,
	}
}

// ApplyEnv overrides fields from LOG_* environment variables.
func (c *Config) ApplyEnv() *Config {
	c.Level = getEnv("LOG_LEVEL", c.Level)
	c.Format = getEnv("LOG_FORMAT", c.Format)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.LogFileOnly = getEnvBool("LOG_FILE_ONLY", c.LogFileOnly)
	c.MaxSize = getEnvInt("LOG_MAX_SIZE", c.MaxSize)
	c.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.MaxBackups)
	c.MaxAge = getEnvInt("LOG_MAX_AGE", c.MaxAge)
	c.Compress = getEnvBool("LOG_COMPRESS", c.Compress)
	return c
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvBool gets a boolean environment variable with a default value.
func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvInt gets an integer environment variable with a default value.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
