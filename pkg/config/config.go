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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Ingestion IngestionConfig
	Payroll   PayrollConfig
	Payout    PayoutConfig
	Storage   StorageConfig
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
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// IngestionConfig tunes the attendance file ingestion pipeline.
type IngestionConfig struct {
	EmpIDPrefix       string
	WorkerConcurrency int
	WorkerRetries     int
	QueueBuffer       int
	DirectoryCacheTTL time.Duration
}

// PayrollConfig tunes payroll and overtime computation.
type PayrollConfig struct {
	OvertimeMultiplier string
	SummaryCacheTTL    time.Duration
}

// PayoutConfig configures the external payout gateway client.
type PayoutConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	AccountNumber string
	Mode          string
	Timeout       time.Duration
}

// StorageConfig controls archival of raw uploaded files.
type StorageConfig struct {
	UploadDir string
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Ingestion = IngestionConfig{
		EmpIDPrefix:       strings.ToUpper(v.GetString("INGESTION_EMP_ID_PREFIX")),
		WorkerConcurrency: v.GetInt("INGESTION_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("INGESTION_WORKER_RETRIES"),
		QueueBuffer:       v.GetInt("INGESTION_QUEUE_BUFFER"),
		DirectoryCacheTTL: parseDuration(v.GetString("INGESTION_DIRECTORY_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Payroll = PayrollConfig{
		OvertimeMultiplier: v.GetString("PAYROLL_OVERTIME_MULTIPLIER"),
		SummaryCacheTTL:    parseDuration(v.GetString("PAYROLL_SUMMARY_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Payout = PayoutConfig{
		BaseURL:       v.GetString("PAYOUT_BASE_URL"),
		KeyID:         v.GetString("PAYOUT_KEY_ID"),
		KeySecret:     v.GetString("PAYOUT_KEY_SECRET"),
		AccountNumber: v.GetString("PAYOUT_ACCOUNT_NUMBER"),
		Mode:          v.GetString("PAYOUT_MODE"),
		Timeout:       parseDuration(v.GetString("PAYOUT_TIMEOUT"), 15*time.Second),
	}

	cfg.Storage = StorageConfig{
		UploadDir: v.GetString("UPLOAD_STORAGE_DIR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "hrms_payroll")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("INGESTION_EMP_ID_PREFIX", "RBIS")
	v.SetDefault("INGESTION_WORKER_CONCURRENCY", 1)
	v.SetDefault("INGESTION_WORKER_RETRIES", 3)
	v.SetDefault("INGESTION_QUEUE_BUFFER", 16)
	v.SetDefault("INGESTION_DIRECTORY_CACHE_TTL", "5m")

	v.SetDefault("PAYROLL_OVERTIME_MULTIPLIER", "1.5")
	v.SetDefault("PAYROLL_SUMMARY_CACHE_TTL", "10m")

	v.SetDefault("PAYOUT_BASE_URL", "https://api.payout-gateway.test")
	v.SetDefault("PAYOUT_KEY_ID", "")
	v.SetDefault("PAYOUT_KEY_SECRET", "")
	v.SetDefault("PAYOUT_ACCOUNT_NUMBER", "")
	v.SetDefault("PAYOUT_MODE", "test")
	v.SetDefault("PAYOUT_TIMEOUT", "15s")

	v.SetDefault("UPLOAD_STORAGE_DIR", "./uploads")
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
