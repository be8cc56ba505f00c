package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Uploads   UploadsConfig
	Email     EmailConfig
	Booking   BookingConfig
	Reset     ResetConfig
	Dashboard DashboardConfig
	Worker    WorkerConfig
}

// EmailConfig for SMTP delivery.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:3000,http://localhost:3001)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/ecohaven?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the S3 bucket for uploaded pictures.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UploadsBucket   string
}

// UploadsConfig selects where event pictures and product images are stored.
type UploadsConfig struct {
	Backend  string // "local" or "s3"
	Dir      string
	MaxBytes int64
}

// BookingConfig holds booking issuance settings.
type BookingConfig struct {
	QRBaseURL         string
	PendingTTLMinutes int
}

// ResetConfig holds password reset settings.
type ResetConfig struct {
	CodeTTLMinutes int
}

// DashboardConfig holds staff dashboard settings.
type DashboardConfig struct {
	CacheTTLSeconds int
}

// WorkerConfig controls the in-process email worker of the HTTP server.
type WorkerConfig struct {
	InlineEmails bool
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ecohaven"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 0)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "ap-southeast-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			UploadsBucket:   getEnv("AWS_S3_UPLOADS_BUCKET", "ecohaven-uploads"),
		},
		Uploads: UploadsConfig{
			Backend:  strings.ToLower(getEnv("UPLOAD_BACKEND", "local")),
			Dir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 1<<20)),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@ecohaven.example"),
			FromName:    getEnv("EMAIL_FROM_NAME", "EcoHaven"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Booking: BookingConfig{
			QRBaseURL:         getEnv("QR_BASE_URL", "https://api.qrserver.com/v1/create-qr-code/"),
			PendingTTLMinutes: getEnvInt("BOOKING_PENDING_TTL_MINUTES", 30),
		},
		Reset: ResetConfig{
			CodeTTLMinutes: getEnvInt("PASSWORD_RESET_TTL_MINUTES", 15),
		},
		Dashboard: DashboardConfig{
			CacheTTLSeconds: getEnvInt("DASHBOARD_CACHE_TTL_SEC", 60),
		},
		Worker: WorkerConfig{
			InlineEmails: getEnvBool("EMAIL_WORKER_INLINE", true),
		},
	}
	if cfg.Uploads.Backend != "local" && cfg.Uploads.Backend != "s3" {
		return nil, fmt.Errorf("invalid UPLOAD_BACKEND %q", cfg.Uploads.Backend)
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
