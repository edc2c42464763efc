// Package config loads docparse configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default tuning values for the parse pipeline.
const (
	// DefaultPollInterval is the fixed wait between remote status checks.
	DefaultPollInterval = 5 * time.Second

	// DefaultSizeThresholdMB is the document size (MiB) at which inputs are
	// split into page-bounded chunks before submission.
	DefaultSizeThresholdMB = 50

	// DefaultPagesPerChunk bounds the page count of each chunk.
	DefaultPagesPerChunk = 10

	// DefaultConcurrency bounds how many document pipelines run at once.
	DefaultConcurrency = 8
)

// Config holds all configuration values.
type Config struct {
	// Remote document-parse service
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`

	// Filesystem layout
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
	ChunkDir  string `yaml:"chunk_dir"`
	TextDir   string `yaml:"text_dir"`

	// Pipeline tuning
	PollInterval    time.Duration `yaml:"poll_interval"`
	PollTimeout     time.Duration `yaml:"poll_timeout"` // 0 = unbounded
	SizeThresholdMB int64         `yaml:"size_threshold_mb"`
	PagesPerChunk   int           `yaml:"pages_per_chunk"`
	Concurrency     int           `yaml:"concurrency"`

	// Server
	ServerPort string `yaml:"server_port"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		APIURL: getEnv("UPSTAGE_API_URL", "https://api.upstage.ai/v1/document-ai/document-parse"),
		APIKey: getEnv("UPSTAGE_API_KEY", ""),

		InputDir:  getEnv("DOCPARSE_INPUT_DIR", "input_data"),
		OutputDir: getEnv("DOCPARSE_OUTPUT_DIR", "output_data"),
		ChunkDir:  getEnv("DOCPARSE_CHUNK_DIR", "chunk_data"),
		TextDir:   getEnv("DOCPARSE_TEXT_DIR", "output_text"),

		PollInterval:    getEnvAsDuration("DOCPARSE_POLL_INTERVAL", DefaultPollInterval),
		PollTimeout:     getEnvAsDuration("DOCPARSE_POLL_TIMEOUT", 0),
		SizeThresholdMB: getEnvAsInt64("DOCPARSE_SIZE_THRESHOLD_MB", DefaultSizeThresholdMB),
		PagesPerChunk:   getEnvAsInt("DOCPARSE_PAGES_PER_CHUNK", DefaultPagesPerChunk),
		Concurrency:     getEnvAsInt("DOCPARSE_CONCURRENCY", DefaultConcurrency),

		ServerPort: getEnv("DOCPARSE_SERVER_PORT", "8000"),

		LogFile:  getEnv("DOCPARSE_LOG_FILE", ""),
		LogLevel: parseLogLevel(getEnv("DOCPARSE_LOG_LEVEL", "INFO")),
	}
}

// LoadFile overlays values from a YAML config file on top of cfg.
// Zero-valued fields in the file leave the existing value untouched.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	merge := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	merge(&cfg.APIURL, file.APIURL)
	merge(&cfg.APIKey, file.APIKey)
	merge(&cfg.InputDir, file.InputDir)
	merge(&cfg.OutputDir, file.OutputDir)
	merge(&cfg.ChunkDir, file.ChunkDir)
	merge(&cfg.TextDir, file.TextDir)
	merge(&cfg.ServerPort, file.ServerPort)
	merge(&cfg.LogFile, file.LogFile)

	if file.PollInterval > 0 {
		cfg.PollInterval = file.PollInterval
	}
	if file.PollTimeout > 0 {
		cfg.PollTimeout = file.PollTimeout
	}
	if file.SizeThresholdMB > 0 {
		cfg.SizeThresholdMB = file.SizeThresholdMB
	}
	if file.PagesPerChunk > 0 {
		cfg.PagesPerChunk = file.PagesPerChunk
	}
	if file.Concurrency > 0 {
		cfg.Concurrency = file.Concurrency
	}

	return cfg, nil
}

// Validate checks that values required for talking to the remote service are set.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("UPSTAGE_API_URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("UPSTAGE_API_KEY is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.PagesPerChunk <= 0 {
		return fmt.Errorf("pages per chunk must be positive, got %d", c.PagesPerChunk)
	}
	return nil
}

// SizeThreshold returns the chunking threshold in bytes.
func (c Config) SizeThreshold() int64 {
	return c.SizeThresholdMB * 1024 * 1024
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
