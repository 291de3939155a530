package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Queue     QueueConfig
	Telemetry TelemetryConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Dispatch  DispatchConfig
	Runner    RunnerConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name             string
	Port             int
	Environment      string
	LogLevel         string
	LogFormat        string
	HTTPWriteTimeout time.Duration
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// CacheConfig holds in-process cache settings
type CacheConfig struct {
	Enabled    bool
	SizeMB     int
	DefaultTTL time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// QueueConfig holds run event queue settings
type QueueConfig struct {
	Type   string // "memory" or "redis"
	Stream string
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Region         string
	UseSSL         bool
	BucketRuns     string
	BucketDatasets string
}

// AuthConfig holds token and bootstrap admin settings
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminUser     string
	AdminPassword string

	// Per-user request budget on authenticated routes; 0 disables it
	RequestsPerMin int64
}

// DispatchConfig holds control plane → runner settings
type DispatchConfig struct {
	RunnerBase       string
	RunnerTimeout    time.Duration
	Rule             string
	RecoveryHorizon  time.Duration
	RecoveryInterval time.Duration
	HeavyRunsPerMin  int64
	LightRunsPerMin  int64
}

// RunnerConfig holds runner execution engine settings
type RunnerConfig struct {
	WorkDir      string
	CacheRoot    string
	PipelinesDir string
	NextflowBin  string
	GitBin       string
	CacheMaxAge  time.Duration
	CacheSweep   time.Duration
}

// DefaultDispatchRule routes nf-core DNA-seq registrations to the named pipeline endpoint
const DefaultDispatchRule = `name.startsWith("nf-core/dna-seq") || repo.endsWith("nf-core/dna-seq")`

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		Service: ServiceConfig{
			Name:             serviceName,
			Port:             getEnvInt("PORT", 8080),
			Environment:      getEnv("ENVIRONMENT", "development"),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			LogFormat:        getEnv("LOG_FORMAT", "text"),
			HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 70*time.Minute),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "genomeai"),
			User:        getEnv("POSTGRES_USER", "genomeai"),
			Password:    getEnv("POSTGRES_PASSWORD", "genomeai"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			SizeMB:     getEnvInt("CACHE_SIZE_MB", 64),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Queue: QueueConfig{
			Type:   getEnv("QUEUE_TYPE", "memory"),
			Stream: getEnv("QUEUE_STREAM_PREFIX", "genomeai"),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", false),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		},
		Storage: StorageConfig{
			Endpoint:       getEnv("S3_ENDPOINT", "http://minio:9000"),
			AccessKey:      getEnv("S3_ACCESS_KEY", "miniokey"),
			SecretKey:      getEnv("S3_SECRET_KEY", "miniopass"),
			Region:         getEnv("S3_REGION", "us-east-1"),
			UseSSL:         getEnvBool("S3_USE_SSL", false),
			BucketRuns:     getEnv("S3_BUCKET_RUNS", "runs"),
			BucketDatasets: getEnv("S3_BUCKET_DATASETS", "datasets"),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
			TokenTTL:       time.Duration(getEnvInt("JWT_TTL_SEC", 1800)) * time.Second,
			AdminUser:      getEnv("ADMIN_USER", "admin"),
			AdminPassword:  getEnv("ADMIN_PASS", "admin123"),
			RequestsPerMin: int64(getEnvInt("API_RATE_LIMIT", 600)),
		},
		Dispatch: DispatchConfig{
			RunnerBase:       strings.TrimRight(getEnv("RUNNER_BASE", "http://nginx/runner"), "/"),
			RunnerTimeout:    getEnvDuration("RUNNER_TIMEOUT", 65*time.Minute),
			Rule:             getEnv("DISPATCH_RULE", DefaultDispatchRule),
			RecoveryHorizon:  getEnvDuration("RECOVERY_HORIZON", 2*time.Hour),
			RecoveryInterval: getEnvDuration("RECOVERY_INTERVAL", 1*time.Minute),
			HeavyRunsPerMin:  int64(getEnvInt("RUN_RATE_LIMIT_HEAVY", 5)),
			LightRunsPerMin:  int64(getEnvInt("RUN_RATE_LIMIT_LIGHT", 30)),
		},
		Runner: RunnerConfig{
			WorkDir:      getEnv("WORK_DIR", "/nfwork"),
			CacheRoot:    getEnv("NFCORE_CACHE", "/opt/nfcore_cache"),
			PipelinesDir: getEnv("PIPELINES_DIR", "/app/pipelines"),
			NextflowBin:  getEnv("NEXTFLOW_BIN", "nextflow"),
			GitBin:       getEnv("GIT_BIN", "git"),
			CacheMaxAge:  getEnvDuration("NFCORE_CACHE_MAX_AGE", 0),
			CacheSweep:   getEnvDuration("NFCORE_CACHE_SWEEP", 1*time.Hour),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	switch c.Queue.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown queue type: %s", c.Queue.Type)
	}

	if c.Queue.Type == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("queue type redis requires REDIS_ENABLED=true")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	// A sweep that fires while the runner may still answer would fail live runs.
	if c.Dispatch.RecoveryHorizon <= c.Dispatch.RunnerTimeout {
		return fmt.Errorf("recovery horizon (%s) must exceed runner timeout (%s)",
			c.Dispatch.RecoveryHorizon, c.Dispatch.RunnerTimeout)
	}

	if c.Runner.CacheMaxAge < 0 {
		return fmt.Errorf("NFCORE_CACHE_MAX_AGE must not be negative")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// loadDotEnv loads ENV_FILE (or ./.env) when present. Real env vars take precedence.
func loadDotEnv() {
	path := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
