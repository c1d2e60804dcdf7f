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

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Certificates CertificatesConfig
	Audit        AuditConfig
	Bulk         BulkConfig
	Reports      ReportsConfig
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
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CertificatesConfig carries issuance-time settings. SigningSecret is the sole
// confidentiality boundary for verification hashes and must come from the
// environment, never from source.
type CertificatesConfig struct {
	SigningSecret       string
	InstitutionName     string
	ValidationBaseURL   string
	IssuerFallbackEmail string
}

// AuditConfig tunes the trailing windows and per-IP thresholds used by the
// audit views.
type AuditConfig struct {
	StatsWindow         time.Duration
	AnomalyWindow       time.Duration
	MaxAttemptsPerIP    int
	MaxFailuresPerIP    int
	MinAttemptsForRatio int
	FailureRatio        float64
	CacheTTL            time.Duration
}

// BulkConfig tunes bulk ingestion behaviour.
type BulkConfig struct {
	RowDelay time.Duration
	MaxRows  int
}

// ReportsConfig controls where bulk success/error reports are stored and how
// download tokens are signed.
type ReportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
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
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Certificates = CertificatesConfig{
		SigningSecret:       v.GetString("CERT_SIGNING_SECRET"),
		InstitutionName:     v.GetString("CERT_INSTITUTION_NAME"),
		ValidationBaseURL:   strings.TrimRight(v.GetString("CERT_VALIDATION_BASE_URL"), "/"),
		IssuerFallbackEmail: v.GetString("CERT_ISSUER_FALLBACK_EMAIL"),
	}

	cfg.Audit = AuditConfig{
		StatsWindow:         parseDuration(v.GetString("AUDIT_STATS_WINDOW"), 30*24*time.Hour),
		AnomalyWindow:       parseDuration(v.GetString("AUDIT_ANOMALY_WINDOW"), 24*time.Hour),
		MaxAttemptsPerIP:    v.GetInt("AUDIT_MAX_ATTEMPTS_PER_IP"),
		MaxFailuresPerIP:    v.GetInt("AUDIT_MAX_FAILURES_PER_IP"),
		MinAttemptsForRatio: v.GetInt("AUDIT_MIN_ATTEMPTS_FOR_RATIO"),
		FailureRatio:        v.GetFloat64("AUDIT_FAILURE_RATIO"),
		CacheTTL:            parseDuration(v.GetString("AUDIT_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Bulk = BulkConfig{
		RowDelay: parseDuration(v.GetString("BULK_ROW_DELAY"), 0),
		MaxRows:  v.GetInt("BULK_MAX_ROWS"),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:      v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
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
	v.SetDefault("DB_NAME", "certify")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "certify-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CERT_SIGNING_SECRET", "")
	v.SetDefault("CERT_INSTITUTION_NAME", "Academia Digital")
	v.SetDefault("CERT_VALIDATION_BASE_URL", "http://localhost:8080/api/v1/validate")
	v.SetDefault("CERT_ISSUER_FALLBACK_EMAIL", "certificados@academia.example")

	v.SetDefault("AUDIT_STATS_WINDOW", "720h")
	v.SetDefault("AUDIT_ANOMALY_WINDOW", "24h")
	v.SetDefault("AUDIT_MAX_ATTEMPTS_PER_IP", 100)
	v.SetDefault("AUDIT_MAX_FAILURES_PER_IP", 50)
	v.SetDefault("AUDIT_MIN_ATTEMPTS_FOR_RATIO", 20)
	v.SetDefault("AUDIT_FAILURE_RATIO", 0.8)
	v.SetDefault("AUDIT_CACHE_TTL", "5m")

	v.SetDefault("BULK_ROW_DELAY", "0s")
	v.SetDefault("BULK_MAX_ROWS", 5000)

	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
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
