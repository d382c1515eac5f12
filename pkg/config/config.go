package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers supported by the object store factory.
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	PublicURL string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Search    SearchConfig
	Stats     StatsConfig
	StudyAid  StudyAidConfig
	Storage   StorageConfig
	Exports   ExportsConfig
	Downloads DownloadsConfig
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
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SearchConfig tunes the resource query engine and live search sessions.
type SearchConfig struct {
	PageSize         int
	ExamPrepPageSize int
	DebounceWindow   time.Duration
	SessionTTL       time.Duration
	MaxSessions      int
	RelatedLimit     int
}

// StatsConfig governs landing statistics caching.
type StatsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	RecentLimit  int
}

// StudyAidConfig configures the language model provider and document extraction limits.
type StudyAidConfig struct {
	Provider              string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	GeminiAPIKey          string
	Model                 string
	Temperature           float32
	MaxContentChars       int
	FlashcardContentChars int
	FetchTimeout          time.Duration
	MaxFetchBytes         int64
	ExtractCacheTTL       time.Duration
	ChatSessionTTL        time.Duration
	MaxChatSessions       int
}

// StorageConfig selects where uploaded course materials live.
type StorageConfig struct {
	Driver          string
	LocalDir        string
	Bucket          string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	MaxUploadBytes  int64
	S3              S3Config
}

// S3Config holds credentials for the S3 object store driver.
type S3Config struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	PublicURL string
}

// ExportsConfig controls flashcard export rendering and retention.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Retention       time.Duration
	CleanupSchedule string
}

// DownloadsConfig sizes the asynchronous download counter queue.
type DownloadsConfig struct {
	Workers        int
	BufferSize     int
	MaxRetries     int
	RetryDelay     time.Duration
	IdempotencyTTL time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicURL = strings.TrimRight(v.GetString("PUBLIC_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Search = SearchConfig{
		PageSize:         positiveInt(v.GetInt("SEARCH_PAGE_SIZE"), 12),
		ExamPrepPageSize: positiveInt(v.GetInt("EXAM_PREP_PAGE_SIZE"), 10),
		DebounceWindow:   parseDuration(v.GetString("SEARCH_DEBOUNCE"), 300*time.Millisecond),
		SessionTTL:       parseDuration(v.GetString("SEARCH_SESSION_TTL"), 30*time.Minute),
		MaxSessions:      positiveInt(v.GetInt("SEARCH_MAX_SESSIONS"), 1024),
		RelatedLimit:     positiveInt(v.GetInt("SEARCH_RELATED_LIMIT"), 3),
	}

	cfg.Stats = StatsConfig{
		CacheEnabled: v.GetBool("STATS_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
		RecentLimit:  positiveInt(v.GetInt("STATS_RECENT_LIMIT"), 3),
	}

	provider := strings.ToLower(strings.TrimSpace(v.GetString("AI_PROVIDER")))
	cfg.StudyAid = StudyAidConfig{
		Provider:              provider,
		OpenAIAPIKey:          v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:         v.GetString("OPENAI_BASE_URL"),
		GeminiAPIKey:          v.GetString("GEMINI_API_KEY"),
		Model:                 modelFor(provider, v.GetString("AI_MODEL")),
		Temperature:           float32(v.GetFloat64("AI_TEMPERATURE")),
		MaxContentChars:       positiveInt(v.GetInt("AI_MAX_CONTENT_CHARS"), 50000),
		FlashcardContentChars: positiveInt(v.GetInt("AI_FLASHCARD_CONTENT_CHARS"), 30000),
		FetchTimeout:          parseDuration(v.GetString("AI_FETCH_TIMEOUT"), 30*time.Second),
		MaxFetchBytes:         v.GetInt64("AI_MAX_FETCH_BYTES"),
		ExtractCacheTTL:       parseDuration(v.GetString("AI_EXTRACT_CACHE_TTL"), time.Hour),
		ChatSessionTTL:        parseDuration(v.GetString("AI_CHAT_SESSION_TTL"), 2*time.Hour),
		MaxChatSessions:       positiveInt(v.GetInt("AI_MAX_CHAT_SESSIONS"), 1024),
	}

	maxUpload := v.GetInt64("STORAGE_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 50 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
		LocalDir:        v.GetString("STORAGE_LOCAL_DIR"),
		Bucket:          v.GetString("STORAGE_BUCKET"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 7*24*time.Hour),
		MaxUploadBytes:  maxUpload,
		S3: S3Config{
			Region:    v.GetString("S3_REGION"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Endpoint:  v.GetString("S3_ENDPOINT"),
			PublicURL: strings.TrimRight(v.GetString("S3_PUBLIC_URL"), "/"),
		},
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		Retention:       parseDuration(v.GetString("EXPORTS_RETENTION"), 48*time.Hour),
		CleanupSchedule: v.GetString("EXPORTS_CLEANUP_SCHEDULE"),
	}

	cfg.Downloads = DownloadsConfig{
		Workers:        positiveInt(v.GetInt("DOWNLOAD_WORKERS"), 2),
		BufferSize:     positiveInt(v.GetInt("DOWNLOAD_BUFFER"), 256),
		MaxRetries:     positiveInt(v.GetInt("DOWNLOAD_MAX_RETRIES"), 3),
		RetryDelay:     parseDuration(v.GetString("DOWNLOAD_RETRY_DELAY"), time.Second),
		IdempotencyTTL: parseDuration(v.GetString("DOWNLOAD_IDEMPOTENCY_TTL"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "studybase")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "studybase-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SEARCH_PAGE_SIZE", 12)
	v.SetDefault("EXAM_PREP_PAGE_SIZE", 10)
	v.SetDefault("SEARCH_DEBOUNCE", "300ms")
	v.SetDefault("SEARCH_SESSION_TTL", "30m")
	v.SetDefault("SEARCH_MAX_SESSIONS", 1024)
	v.SetDefault("SEARCH_RELATED_LIMIT", 3)

	v.SetDefault("STATS_CACHE_ENABLED", true)
	v.SetDefault("STATS_CACHE_TTL", "5m")
	v.SetDefault("STATS_RECENT_LIMIT", 3)

	v.SetDefault("AI_PROVIDER", "openai")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("AI_MODEL", "")
	v.SetDefault("AI_TEMPERATURE", 0.7)
	v.SetDefault("AI_MAX_CONTENT_CHARS", 50000)
	v.SetDefault("AI_FLASHCARD_CONTENT_CHARS", 30000)
	v.SetDefault("AI_FETCH_TIMEOUT", "30s")
	v.SetDefault("AI_MAX_FETCH_BYTES", 25*1024*1024)
	v.SetDefault("AI_EXTRACT_CACHE_TTL", "1h")
	v.SetDefault("AI_CHAT_SESSION_TTL", "2h")
	v.SetDefault("AI_MAX_CHAT_SESSIONS", 1024)

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	v.SetDefault("STORAGE_BUCKET", "course-materials")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "168h")
	v.SetDefault("STORAGE_MAX_UPLOAD_BYTES", 50*1024*1024)
	v.SetDefault("S3_REGION", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_PUBLIC_URL", "")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_RETENTION", "48h")
	v.SetDefault("EXPORTS_CLEANUP_SCHEDULE", "0 * * * *")

	v.SetDefault("DOWNLOAD_WORKERS", 2)
	v.SetDefault("DOWNLOAD_BUFFER", 256)
	v.SetDefault("DOWNLOAD_MAX_RETRIES", 3)
	v.SetDefault("DOWNLOAD_RETRY_DELAY", "1s")
	v.SetDefault("DOWNLOAD_IDEMPOTENCY_TTL", "24h")
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

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// isMissingFile reports the os-level error viper returns when SetConfigFile points at a missing path.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such file")
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

// modelFor falls back to a model the chosen provider actually serves.
func modelFor(provider, model string) string {
	if model = strings.TrimSpace(model); model != "" {
		return model
	}
	if provider == "gemini" {
		return "gemini-2.0-flash"
	}
	return "gpt-4o-mini"
}
