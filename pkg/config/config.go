package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Lock backends.
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Store    StoreConfig
	Pipeline PipelineConfig
	LLM      LLMConfig
	Lock     LockConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int

	MigrationsPath string
	AutoMigrate    bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig bounds what the document store accepts.
type StoreConfig struct {
	MaxDocumentBytes int
	MaxFieldBytes    int
	ChunkSize        int
}

// PipelineConfig tunes batch correction.
type PipelineConfig struct {
	MaxFileChars      int
	CorrectionTimeout time.Duration
	Workers           int
	BufferSize        int
	MaxPromptTokens   int
	ProgressTTL       time.Duration
}

// LLM providers.
const (
	LLMProviderOpenAI    = "openai"
	LLMProviderAnthropic = "anthropic"
)

// LLMConfig points the grader at the selected provider. Credentials and
// model come from the provider's own variables.
type LLMConfig struct {
	Provider            string
	BaseURL             string
	APIKey              string
	Model               string
	Temperature         float32
	MaxCompletionTokens int
}

// LockConfig selects how per-project commits are serialized.
type LockConfig struct {
	Backend       string
	TTL           time.Duration
	RetryInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),

		MigrationsPath: v.GetString("DB_MIGRATIONS_PATH"),
		AutoMigrate:    v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Store = StoreConfig{
		MaxDocumentBytes: v.GetInt("MAX_DOCUMENT_BYTES"),
		MaxFieldBytes:    v.GetInt("MAX_FIELD_BYTES"),
		ChunkSize:        v.GetInt("CHUNK_SIZE"),
	}

	cfg.Pipeline = PipelineConfig{
		MaxFileChars:      v.GetInt("MAX_FILE_CHARS"),
		CorrectionTimeout: parseDuration(v.GetString("CORRECTION_TIMEOUT"), 90*time.Second),
		Workers:           v.GetInt("PIPELINE_WORKERS"),
		BufferSize:        v.GetInt("PIPELINE_BUFFER"),
		MaxPromptTokens:   v.GetInt("MAX_PROMPT_TOKENS"),
		ProgressTTL:       parseDuration(v.GetString("BATCH_PROGRESS_TTL"), time.Hour),
	}

	cfg.LLM = LLMConfig{
		Provider:            strings.ToLower(v.GetString("LLM_PROVIDER")),
		Temperature:         float32(v.GetFloat64("LLM_TEMPERATURE")),
		MaxCompletionTokens: v.GetInt("LLM_MAX_COMPLETION_TOKENS"),
	}
	prefix := "OPENAI_"
	if cfg.LLM.Provider == LLMProviderAnthropic {
		prefix = "ANTHROPIC_"
	}
	cfg.LLM.BaseURL = v.GetString(prefix + "BASE_URL")
	cfg.LLM.APIKey = v.GetString(prefix + "API_KEY")
	cfg.LLM.Model = v.GetString(prefix + "MODEL")

	cfg.Lock = LockConfig{
		Backend:       strings.ToLower(v.GetString("LOCK_BACKEND")),
		TTL:           parseDuration(v.GetString("LOCK_TTL"), 2*time.Minute),
		RetryInterval: parseDuration(v.GetString("LOCK_RETRY_INTERVAL"), 50*time.Millisecond),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Store.ChunkSize <= 0 {
		return errors.New("CHUNK_SIZE must be positive")
	}
	if c.Store.MaxDocumentBytes <= 0 || c.Store.MaxFieldBytes <= 0 {
		return errors.New("MAX_DOCUMENT_BYTES and MAX_FIELD_BYTES must be positive")
	}
	if c.Store.ChunkSize*utf8.UTFMax > c.Store.MaxFieldBytes {
		return fmt.Errorf("CHUNK_SIZE %d characters can encode to %d bytes, above MAX_FIELD_BYTES %d",
			c.Store.ChunkSize, c.Store.ChunkSize*utf8.UTFMax, c.Store.MaxFieldBytes)
	}
	if c.Pipeline.MaxFileChars <= 0 {
		return errors.New("MAX_FILE_CHARS must be positive")
	}
	switch c.LLM.Provider {
	case LLMProviderOpenAI, LLMProviderAnthropic:
	default:
		return errors.New("LLM_PROVIDER must be openai or anthropic")
	}
	switch c.Lock.Backend {
	case LockBackendMemory:
	case LockBackendRedis:
		if !c.Redis.Enabled {
			return errors.New("LOCK_BACKEND=redis requires REDIS_ENABLED")
		}
	default:
		return errors.New("LOCK_BACKEND must be memory or redis")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "corrections")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATIONS_PATH", "migrations")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MAX_DOCUMENT_BYTES", 1_000_000)
	v.SetDefault("MAX_FIELD_BYTES", 1_000_000)
	v.SetDefault("CHUNK_SIZE", 250_000)

	v.SetDefault("MAX_FILE_CHARS", 1_000_000)
	v.SetDefault("CORRECTION_TIMEOUT", "90s")
	v.SetDefault("PIPELINE_WORKERS", 4)
	v.SetDefault("PIPELINE_BUFFER", 64)
	v.SetDefault("MAX_PROMPT_TOKENS", 4000)
	v.SetDefault("BATCH_PROGRESS_TTL", "1h")

	v.SetDefault("LLM_PROVIDER", LLMProviderOpenAI)
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_MAX_COMPLETION_TOKENS", 800)
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("ANTHROPIC_BASE_URL", "")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest")

	v.SetDefault("LOCK_BACKEND", LockBackendMemory)
	v.SetDefault("LOCK_TTL", "2m")
	v.SetDefault("LOCK_RETRY_INTERVAL", "50ms")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
