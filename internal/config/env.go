package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings, read from environment variables.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Gemini  GeminiConfig
	Server  ServerConfig
	Session SessionConfig
	Fetch   FetchConfig
}

type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type AxiomConfig struct {
	Enabled bool
	APIKey  string
	OrgID   string
	Dataset string
	Flush   time.Duration
}

type GeminiConfig struct {
	APIKey        string
	Model         string
	FallbackModel string
	PollInterval  time.Duration
	PollTimeout   time.Duration
}

// Models returns the ordered candidate list: the primary model first,
// then the fallback when one is configured.
func (g GeminiConfig) Models() []string {
	models := []string{g.Model}
	if g.FallbackModel != "" && g.FallbackModel != g.Model {
		models = append(models, g.FallbackModel)
	}
	return models
}

type ServerConfig struct {
	Port        string
	UploadDir   string
	MaxUploadMB int
	Username    string
	Password    string
}

type SessionConfig struct {
	RedisURL string
	TTL      time.Duration
}

type FetchConfig struct {
	Timeout   time.Duration
	MaxSizeMB int
}

// FromEnv builds the configuration from environment variables with defaults.
func FromEnv() Config {
	return Config{
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Pretty:     parseBool(getEnv("LOG_PRETTY", "false")),
			File:       getEnv("LOG_FILE", "logs/app.log"),
			MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
			MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "7"), 7),
			MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "28"), 28),
			Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
		},
		Axiom: AxiomConfig{
			Enabled: parseBool(getEnv("SEND_LOGS_TO_AXIOM", "false")),
			APIKey:  getEnv("AXIOM_API_KEY", ""),
			OrgID:   getEnv("AXIOM_ORG_ID", ""),
			Dataset: getEnv("AXIOM_DATASET", "dev_finsight"),
			Flush:   parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey:        getEnv("GEMINI_API_KEY", ""),
			Model:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			FallbackModel: getEnv("GEMINI_FALLBACK_MODEL", ""),
			PollInterval:  parseDuration(getEnv("GEMINI_POLL_INTERVAL", "1s"), time.Second),
			PollTimeout:   parseDuration(getEnv("GEMINI_POLL_TIMEOUT", "2m"), 2*time.Minute),
		},
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			UploadDir:   getEnv("UPLOAD_DIR", os.TempDir()),
			MaxUploadMB: parseInt(getEnv("MAX_UPLOAD_MB", "64"), 64),
			Username:    getEnv("WEB_USERNAME", ""),
			Password:    getEnv("WEB_PASSWORD", ""),
		},
		Session: SessionConfig{
			RedisURL: getEnv("SESSION_REDIS_URL", ""),
			TTL:      parseDuration(getEnv("SESSION_TTL", "1h"), time.Hour),
		},
		Fetch: FetchConfig{
			Timeout:   parseDuration(getEnv("FETCH_TIMEOUT", "60s"), 60*time.Second),
			MaxSizeMB: parseInt(getEnv("FETCH_MAX_SIZE_MB", "64"), 64),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return b
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
