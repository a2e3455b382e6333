package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv     string
	Port       string
	ImagesDir  string
	OutputDir  string
	StylesPath string
	JobsDBPath string

	AWSRegion          string
	BedrockVideoModel  string
	BedrockPromptModel string
	BedrockS3OutputURI string

	PollInterval  time.Duration
	CleanupMaxAge time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		Port:       getEnv("PORT", "7861"),
		ImagesDir:  getEnv("IMAGES_DIR", "./images"),
		OutputDir:  getEnv("OUTPUT_DIR", "./generated"),
		StylesPath: getEnv("STYLES_PATH", "./configs/styles.json"),
		JobsDBPath: os.Getenv("JOBS_DB_PATH"),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		BedrockVideoModel:  getEnv("BEDROCK_VIDEO_MODEL", "amazon.nova-reel-v1:1"),
		BedrockPromptModel: getEnv("BEDROCK_PROMPT_MODEL", "us.anthropic.claude-3-7-sonnet-20250219-v1:0"),
		BedrockS3OutputURI: os.Getenv("BEDROCK_S3_OUTPUT_URI"),

		PollInterval:  time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		CleanupMaxAge: time.Hour * time.Duration(getEnvInt("CLEANUP_MAX_AGE_HOURS", 24)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.BedrockS3OutputURI == "" {
		return nil, fmt.Errorf("BEDROCK_S3_OUTPUT_URI is required")
	}
	if !strings.HasPrefix(cfg.BedrockS3OutputURI, "s3://") {
		return nil, fmt.Errorf("BEDROCK_S3_OUTPUT_URI must be an s3:// URI")
	}

	if cfg.JobsDBPath == "" {
		cfg.JobsDBPath = filepath.Join(cfg.OutputDir, "jobs.db")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
