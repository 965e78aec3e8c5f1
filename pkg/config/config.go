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

// Storage backend identifiers accepted in STORAGE_BACKEND.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendS3     = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Intake  IntakeConfig
	Storage StorageConfig
	Dedup   DedupConfig
	Redis   RedisConfig
	Webhook WebhookConfig
	CORS    CORSConfig
	Log     LogConfig
}

// IntakeConfig names the form question used for classification and the
// fallback folder labels used when the answer is missing or unusable.
type IntakeConfig struct {
	QuestionLabel string
	DefaultLabel  string
	InvalidLabel  string
}

// StorageConfig selects and parameterizes the attachment storage backend.
type StorageConfig struct {
	Backend  string
	LocalDir string
	S3       S3Config
}

// S3Config carries MinIO/S3 connection settings.
type S3Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Region     string
	UseSSL     bool
	RootPrefix string
}

// DedupConfig controls duplicate-delivery suppression for webhook events.
type DedupConfig struct {
	Enabled bool
	TTL     time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// WebhookConfig holds the optional shared-secret check on the inbound hook.
type WebhookConfig struct {
	SharedSecret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Intake = IntakeConfig{
		QuestionLabel: v.GetString("INTAKE_QUESTION_LABEL"),
		DefaultLabel:  v.GetString("INTAKE_DEFAULT_LABEL"),
		InvalidLabel:  v.GetString("INTAKE_INVALID_LABEL"),
	}

	cfg.Storage = StorageConfig{
		Backend:  v.GetString("STORAGE_BACKEND"),
		LocalDir: v.GetString("STORAGE_LOCAL_DIR"),
		S3: S3Config{
			Endpoint:   v.GetString("S3_ENDPOINT"),
			AccessKey:  v.GetString("S3_ACCESS_KEY"),
			SecretKey:  v.GetString("S3_SECRET_KEY"),
			Bucket:     v.GetString("S3_BUCKET"),
			Region:     v.GetString("S3_REGION"),
			UseSSL:     v.GetBool("S3_USE_SSL"),
			RootPrefix: v.GetString("S3_ROOT_PREFIX"),
		},
	}

	cfg.Dedup = DedupConfig{
		Enabled: v.GetBool("ENABLE_DEDUP"),
		TTL:     parseDuration(v.GetString("DEDUP_TTL"), 24*time.Hour),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Webhook = WebhookConfig{
		SharedSecret: v.GetString("WEBHOOK_SHARED_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("INTAKE_QUESTION_LABEL", "Unit Number")
	v.SetDefault("INTAKE_DEFAULT_LABEL", "Unsorted")
	v.SetDefault("INTAKE_INVALID_LABEL", "Invalid Classification")

	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("STORAGE_LOCAL_DIR", "./intake")

	v.SetDefault("S3_ENDPOINT", "localhost:9000")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_BUCKET", "form-intake")
	v.SetDefault("S3_REGION", "")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("S3_ROOT_PREFIX", "intake")

	v.SetDefault("ENABLE_DEDUP", false)
	v.SetDefault("DEDUP_TTL", "24h")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("WEBHOOK_SHARED_SECRET", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
