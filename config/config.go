package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	Email    EmailConfig
	YouTube  YouTubeConfig
	Zoom     ZoomConfig
	Uploads  UploadsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	ShutdownTimeout    int
	CORSAllowedOrigins string // comma-separated, or "*"
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
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

// AWSConfig holds AWS credentials and the attachments bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AttachmentsBucket    string
	PresignExpireMinutes int
	// Endpoint overrides the S3 endpoint (MinIO, LocalStack).
	Endpoint string
}

// EmailConfig holds SendGrid delivery settings. Without an API key email is disabled.
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	AdminEmail     string
}

// YouTubeConfig holds the OAuth client used with per-admin YouTube tokens.
type YouTubeConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// ZoomConfig holds Server-to-Server OAuth app credentials.
type ZoomConfig struct {
	ClientID     string
	ClientSecret string
	AccountID    string
	CacheToken   bool
}

// UploadsConfig bounds multipart uploads.
type UploadsConfig struct {
	MaxFileSizeMB int
	MaxFiles      int
}

// DSN returns the PostgreSQL connection string. DATABASE_URL wins over the individual parts.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Enabled reports whether S3 attachment storage is configured.
func (c AWSConfig) Enabled() bool { return c.AttachmentsBucket != "" }

// Enabled reports whether emails can be delivered.
func (c EmailConfig) Enabled() bool { return c.SendGridAPIKey != "" }

// Configured reports whether Zoom meetings can be created.
func (c ZoomConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.AccountID != ""
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:               getEnv("PORT", "5000"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 60),
			ShutdownTimeout:    getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "yadnus"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AttachmentsBucket:    getEnv("AWS_S3_ATTACHMENTS_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
			Endpoint:             getEnv("AWS_S3_ENDPOINT", ""),
		},
		Email: EmailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@yadnusconsultant.com"),
			FromName:       getEnv("FROM_NAME", "Yadnus Consultant"),
			AdminEmail:     getEnv("ADMIN_EMAIL", ""),
		},
		YouTube: YouTubeConfig{
			ClientID:     getEnv("YOUTUBE_CLIENT_ID", ""),
			ClientSecret: getEnv("YOUTUBE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("YOUTUBE_REDIRECT_URI", ""),
		},
		Zoom: ZoomConfig{
			ClientID:     getEnv("ZOOM_CLIENT_ID", ""),
			ClientSecret: getEnv("ZOOM_CLIENT_SECRET", ""),
			AccountID:    getEnv("ZOOM_ACCOUNT_ID", ""),
			CacheToken:   getEnvBool("ZOOM_CACHE_TOKEN", false),
		},
		Uploads: UploadsConfig{
			MaxFileSizeMB: getEnvInt("UPLOAD_MAX_FILE_MB", 10),
			MaxFiles:      getEnvInt("UPLOAD_MAX_FILES", 10),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		if c.Env == "production" {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		} else {
			c.JWT.Secret = "dev-only-secret"
		}
	}
	if p, err := strconv.Atoi(c.Server.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("PORT %q is not a valid port", c.Server.Port))
	}
	if c.Uploads.MaxFileSizeMB <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_FILE_MB must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
