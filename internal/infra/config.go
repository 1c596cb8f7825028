package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	DBMaxConns         int
	DBMinConns         int
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	AutoMigrate        bool
	CORSAllowedOrigins []string
	RateLimitPerMin    int
	TrustProxyHeaders  bool
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	ShutdownGrace      time.Duration

	StorageDriver  string
	StoragePath    string
	StorageBaseURL string
	GCSBucket      string

	PlannerProvider string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	GeminiAPIKey    string
	GeminiModel     string

	ReplicateAPIToken string
	ReplicateBaseURL  string

	FFmpegPath  string
	FFprobePath string
	FontFile    string
	WorkDir     string

	JobTimeout         time.Duration
	JobPollInterval    time.Duration
	KeepIntermediates  bool
	PipelineConfigPath string

	TracingEnabled bool
}

// Storage drivers understood by the worker and API.
const (
	StorageDriverFilesystem = "filesystem"
	StorageDriverGCS        = "gcs"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 0),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 0),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          os.Getenv("JWT_ISSUER"),
		JWTAudience:        os.Getenv("JWT_AUDIENCE"),
		AutoMigrate:        getEnvBool("AUTO_MIGRATE", false),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustProxyHeaders:  getEnvBool("TRUST_PROXY_HEADERS", false),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ShutdownGrace:      time.Second * time.Duration(getEnvInt("SHUTDOWN_GRACE_SECONDS", 20)),

		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverFilesystem)),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		GCSBucket:      os.Getenv("GCS_BUCKET"),

		PlannerProvider: strings.ToLower(getEnv("PLANNER_PROVIDER", "openai")),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
		FontFile:    os.Getenv("FONT_FILE"),
		WorkDir:     os.Getenv("WORK_DIR"),

		JobTimeout:         time.Minute * time.Duration(getEnvInt("JOB_TIMEOUT_MINUTES", 60)),
		JobPollInterval:    time.Second * time.Duration(getEnvInt("JOB_POLL_INTERVAL_SECONDS", 2)),
		KeepIntermediates:  getEnvBool("KEEP_INTERMEDIATES", false),
		PipelineConfigPath: os.Getenv("PIPELINE_CONFIG_PATH"),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.StorageDriver {
	case StorageDriverFilesystem:
	case StorageDriverGCS:
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is required when STORAGE_DRIVER=gcs")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	switch cfg.PlannerProvider {
	case "openai", "gemini":
	default:
		return nil, fmt.Errorf("unsupported PLANNER_PROVIDER %q", cfg.PlannerProvider)
	}

	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Hour
	}
	if cfg.DBMaxConns < 0 || cfg.DBMinConns < 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS and DB_MIN_CONNS must not be negative")
	}
	if cfg.JobPollInterval <= 0 {
		cfg.JobPollInterval = 2 * time.Second
	}

	return cfg, nil
}

// RequireJWTSecret reports an error when the API process starts without a signing secret.
func (c *Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
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

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
