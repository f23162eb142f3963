package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port            string
		Env             string
		Timeout         time.Duration
		ShutdownTimeout time.Duration
		BaseURL         string
		OpenAPISpec     string
	}

	// GRPC health endpoint
	GRPC struct {
		Enabled bool
		Port    string
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
		Retries  int
	}

	// Redis configuration. An empty Addr disables the redis-backed features.
	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// JWT configuration
	JWT struct {
		Secret      string
		ExpiryHours time.Duration
		Issuer      string
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		TrustedProxies []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Chat gateway settings
	Chat struct {
		SendBufferSize     int
		MaxFrameSize       int64
		WriteWait          time.Duration
		PongWait           time.Duration
		PublishRate        float64
		PublishBurst       int
		HistoryOnJoin      bool
		HistoryLimit       int
		NackRejected       bool
		AllowAnonymous     bool
		FanoutRedis        bool
		FallbackSenderName string
	}

	// Membership oracle settings
	Membership struct {
		CacheTTL         time.Duration
		QueryTimeout     time.Duration
		BreakerThreshold int
		BreakerTimeout   time.Duration
	}

	// Sender display-name directory
	Directory struct {
		CacheTTL  time.Duration
		CacheSize int
	}

	// Attachment uploads
	Uploads struct {
		Driver      string
		Dir         string
		PublicURL   string
		MaxSize     int64
		RateLimit   float64
		RateBurst   int
		S3Bucket    string
		S3Region    string
		S3Endpoint  string
		S3AccessKey string
		S3SecretKey string
	}

	// Vault secret resolution. An empty Addr disables vault.
	Vault struct {
		Addr  string
		Token string
		Path  string
	}

	// Telemetry settings
	Telemetry struct {
		ServiceName   string
		TraceStdout   bool
		MetricsPath   string
		EnableMetrics bool
	}
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		_ = godotenv.Load()

		cfg := Load()
		mu.Lock()
		instance = cfg
		mu.Unlock()
	})

	return Get()
}

// Get returns the singleton Config instance
func Get() *Config {
	mu.Lock()
	cfg := instance
	mu.Unlock()
	if cfg == nil {
		return New()
	}
	return cfg
}

// Set replaces the singleton. Used by tests and by secret resolution at startup.
func Set(cfg *Config) {
	once.Do(func() {})
	mu.Lock()
	instance = cfg
	mu.Unlock()
}

// Load reads a fresh Config from the environment without touching the singleton
func Load() *Config {
	c := &Config{}

	// Server config
	c.Server.Port = getEnvString("PORT", "5000")
	c.Server.Env = getEnvString("APP_ENV", "development")
	c.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
	c.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	c.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+c.Server.Port)
	c.Server.OpenAPISpec = getEnvString("OPENAPI_SPEC", "")

	c.GRPC.Enabled = getEnvBool("GRPC_ENABLED", false)
	c.GRPC.Port = getEnvString("GRPC_PORT", "50051")

	// Database config
	c.Database.Host = getEnvString("DB_HOST", "localhost")
	c.Database.Port = getEnvString("DB_PORT", "5432")
	c.Database.User = getEnvString("DB_USER", "postgres")
	c.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	c.Database.Name = getEnvString("DB_NAME", "intern_portal")
	c.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	c.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	c.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)
	c.Database.Retries = getEnvInt("DB_RETRIES", 5)

	c.Redis.Addr = getEnvString("REDIS_ADDR", "")
	c.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	c.Redis.DB = getEnvInt("REDIS_DB", 0)

	// JWT config
	c.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
	c.JWT.ExpiryHours = getEnvDuration("JWT_EXPIRY", 24*time.Hour)
	c.JWT.Issuer = getEnvString("JWT_ISSUER", "intern-portal")

	// Security config
	c.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	c.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	c.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	c.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
	c.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 10<<20) // 10MB

	// Logging config
	c.Logging.Level = getEnvString("LOG_LEVEL", "info")
	c.Logging.Format = getEnvString("LOG_FORMAT", "json")

	c.Chat.SendBufferSize = getEnvInt("CHAT_SEND_BUFFER", 256)
	c.Chat.MaxFrameSize = getEnvInt64("CHAT_MAX_FRAME_SIZE", 512*1024)
	c.Chat.WriteWait = getEnvDuration("CHAT_WRITE_WAIT", 10*time.Second)
	c.Chat.PongWait = getEnvDuration("CHAT_PONG_WAIT", 60*time.Second)
	c.Chat.PublishRate = getEnvFloat("CHAT_PUBLISH_RATE", 10)
	c.Chat.PublishBurst = getEnvInt("CHAT_PUBLISH_BURST", 20)
	c.Chat.HistoryOnJoin = getEnvBool("CHAT_HISTORY_ON_JOIN", true)
	c.Chat.HistoryLimit = getEnvInt("CHAT_HISTORY_LIMIT", 0) // 0 returns the full history
	c.Chat.NackRejected = getEnvBool("CHAT_NACK_REJECTED", false)
	c.Chat.AllowAnonymous = getEnvBool("CHAT_ALLOW_ANONYMOUS", false)
	c.Chat.FanoutRedis = getEnvBool("CHAT_FANOUT_REDIS", false)
	c.Chat.FallbackSenderName = getEnvString("CHAT_FALLBACK_SENDER_NAME", "Unknown")

	c.Membership.CacheTTL = getEnvDuration("MEMBERSHIP_CACHE_TTL", 0) // 0 disables caching
	c.Membership.QueryTimeout = getEnvDuration("MEMBERSHIP_QUERY_TIMEOUT", 2*time.Second)
	c.Membership.BreakerThreshold = getEnvInt("MEMBERSHIP_BREAKER_THRESHOLD", 5)
	c.Membership.BreakerTimeout = getEnvDuration("MEMBERSHIP_BREAKER_TIMEOUT", 30*time.Second)

	c.Directory.CacheTTL = getEnvDuration("DIRECTORY_CACHE_TTL", 5*time.Minute)
	c.Directory.CacheSize = getEnvInt("DIRECTORY_CACHE_SIZE", 10000)

	c.Uploads.Driver = getEnvString("UPLOAD_DRIVER", "local")
	c.Uploads.Dir = getEnvString("UPLOAD_DIR", "uploads")
	c.Uploads.PublicURL = getEnvString("UPLOAD_PUBLIC_URL", "/uploads")
	c.Uploads.MaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 100<<20) // 100MB
	c.Uploads.RateLimit = getEnvFloat("UPLOAD_RATE_LIMIT", 0.5)
	c.Uploads.RateBurst = getEnvInt("UPLOAD_RATE_BURST", 5)
	c.Uploads.S3Bucket = getEnvString("UPLOAD_S3_BUCKET", "")
	c.Uploads.S3Region = getEnvString("UPLOAD_S3_REGION", "us-east-1")
	c.Uploads.S3Endpoint = getEnvString("UPLOAD_S3_ENDPOINT", "")
	c.Uploads.S3AccessKey = getEnvString("UPLOAD_S3_ACCESS_KEY", "")
	c.Uploads.S3SecretKey = getEnvString("UPLOAD_S3_SECRET_KEY", "")

	c.Vault.Addr = getEnvString("VAULT_ADDR", "")
	c.Vault.Token = getEnvString("VAULT_TOKEN", "")
	c.Vault.Path = getEnvString("VAULT_SECRET_PATH", "secret/data/intern-portal")

	c.Telemetry.ServiceName = getEnvString("OTEL_SERVICE_NAME", "intern-portal-backend")
	c.Telemetry.TraceStdout = getEnvBool("OTEL_TRACE_STDOUT", false)
	c.Telemetry.MetricsPath = getEnvString("METRICS_PATH", "/metrics")
	c.Telemetry.EnableMetrics = getEnvBool("ENABLE_METRICS", true)

	return c
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
