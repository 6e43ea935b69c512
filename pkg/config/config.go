package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Synthesis SynthesisConfig
	Assembly  AssemblyAIConfig
	Groq      GroqConfig
	Scheduler SchedulerConfig
	Websocket WebsocketConfig
	Chunker   ChunkerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration. Redis backs the voice-profile
// read-through cache; leave Host empty to fall back to the in-memory store.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig holds MinIO storage configuration for audio artifacts
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	PublicURL       string
}

// SynthesisConfig configures the voice-cloning backends. BackendURLs is a
// ranked fallback list; the facade tries each in order.
type SynthesisConfig struct {
	BackendURLs    []string
	RequestTimeout time.Duration
	MaxRetryWait   time.Duration
}

// AssemblyAIConfig holds speech-to-text configuration
type AssemblyAIConfig struct {
	APIKey  string
	BaseURL string
}

// GroqConfig holds the conversational responder configuration
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// OverflowPolicy decides what happens when the concurrent-generation limit
// is reached: queue excess requests FIFO, or reject them immediately.
type OverflowPolicy string

const (
	OverflowReject OverflowPolicy = "reject"
	OverflowQueue  OverflowPolicy = "queue"
)

// SchedulerConfig bounds concurrent synthesis jobs server-wide
type SchedulerConfig struct {
	MaxConcurrent int
	Overflow      OverflowPolicy
	QueueSize     int
}

// WebsocketConfig holds the streaming transport configuration
type WebsocketConfig struct {
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	SendBufferSize    int
	MaxMessageBytes   int64
}

// ChunkerConfig bounds the length of a single speakable unit
type ChunkerConfig struct {
	MaxChunkLen int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "voiceforge"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "voiceforge-audio"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			PublicURL:       getEnv("STORAGE_PUBLIC_URL", ""),
		},
		Synthesis: SynthesisConfig{
			BackendURLs:    splitNonEmpty(getEnv("SYNTH_BACKEND_URLS", "http://localhost:8081")),
			RequestTimeout: getEnvAsDuration("SYNTH_TIMEOUT", 60*time.Second),
			MaxRetryWait:   getEnvAsDuration("SYNTH_MAX_RETRY_WAIT", 5*time.Second),
		},
		Assembly: AssemblyAIConfig{
			APIKey:  getEnv("ASSEMBLYAI_API_KEY", ""),
			BaseURL: getEnv("ASSEMBLYAI_BASE_URL", ""),
		},
		Groq: GroqConfig{
			APIKey:      getEnv("GROQ_API_KEY", ""),
			BaseURL:     getEnv("GROQ_API_URL", "https://api.groq.com"),
			Model:       getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			MaxTokens:   getEnvAsInt("GROQ_MAX_TOKENS", 512),
			Temperature: getEnvAsFloat("GROQ_TEMPERATURE", 0.7),
		},
		Scheduler: SchedulerConfig{
			MaxConcurrent: getEnvAsInt("SCHEDULER_MAX_CONCURRENT", 4),
			Overflow:      OverflowPolicy(getEnv("SCHEDULER_OVERFLOW", string(OverflowReject))),
			QueueSize:     getEnvAsInt("SCHEDULER_QUEUE_SIZE", 16),
		},
		Websocket: WebsocketConfig{
			HeartbeatInterval: getEnvAsDuration("WS_HEARTBEAT_INTERVAL", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WS_WRITE_TIMEOUT", 10*time.Second),
			SendBufferSize:    getEnvAsInt("WS_SEND_BUFFER", 64),
			MaxMessageBytes:   int64(getEnvAsInt("WS_MAX_MESSAGE_BYTES", 10<<20)),
		},
		Chunker: ChunkerConfig{
			MaxChunkLen: getEnvAsInt("CHUNK_MAX_LEN", 200),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.Scheduler.Overflow {
	case OverflowReject, OverflowQueue:
	default:
		return fmt.Errorf("invalid SCHEDULER_OVERFLOW %q: must be %q or %q",
			c.Scheduler.Overflow, OverflowReject, OverflowQueue)
	}
	if c.Scheduler.MaxConcurrent < 1 {
		return fmt.Errorf("SCHEDULER_MAX_CONCURRENT must be at least 1")
	}
	if len(c.Synthesis.BackendURLs) == 0 {
		return fmt.Errorf("SYNTH_BACKEND_URLS must list at least one backend")
	}
	if c.Chunker.MaxChunkLen < 20 {
		return fmt.Errorf("CHUNK_MAX_LEN must be at least 20")
	}
	return nil
}

// GetDatabaseDSN returns the PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// GetRedisAddr returns the Redis address, empty when Redis is not configured
func (c *Config) GetRedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
