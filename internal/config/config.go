package config

import (
	"fmt"  // For error wrapping and DSN formatting
	"time" // For durations

	"github.com/caarlos0/env/v11" // For parsing env vars into the struct
	"github.com/joho/godotenv"    // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort   string    `env:"APP_PORT" envDefault:"8080"`  // Application port
	IsProd    bool      `env:"IS_PROD" envDefault:"false"`  // Is production environment
	LogLevel  string    `env:"LOG_LEVEL" envDefault:"info"` // Logrus level name
	DB        Database  `envPrefix:"DB_"`                   // Relational store
	JWT       JWT       `envPrefix:"JWT_"`                  // Session and reset tokens
	Redis     Redis     `envPrefix:"REDIS_"`                // Query cache
	Storage   Storage   `envPrefix:"STORAGE_"`              // Document blob store
	Minio     Minio     `envPrefix:"MINIO_"`                // MinIO backend, when selected
	Cookie    Cookie    `envPrefix:"COOKIE_"`               // Session cookie policy
	RateLimit RateLimit `envPrefix:"RATELIMIT_"`            // Public endpoint throttling
	Admin     Admin     `envPrefix:"ADMIN_"`                // Seed administrator for cmd/migrate

	UploadMaxBytes int64 `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"` // Largest accepted document
}

// Database holds MySQL connection parameters
type Database struct {
	User     string `env:"USER"`                        // Database user
	Password string `env:"PASSWORD"`                    // Database password
	Host     string `env:"HOST" envDefault:"127.0.0.1"` // Database host
	Port     string `env:"PORT" envDefault:"3306"`      // Database port
	Name     string `env:"NAME" envDefault:"crm"`       // Database name
}

// DSN builds the MySQL Data Source Name. clientFoundRows makes conditional
// updates report matched rows instead of changed rows.
func (d Database) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&clientFoundRows=true", d.User, d.Password, d.Host, d.Port, d.Name)
}

// JWT holds token signing parameters
type JWT struct {
	Secret     string        `env:"SECRET"`                       // JWT secret key
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"` // Login session lifetime
	ResetTTL   time.Duration `env:"RESET_TTL" envDefault:"72h"`   // Credential reset token lifetime
}

// Redis holds cache connection parameters
type Redis struct {
	Addr     string        `env:"ADDR" envDefault:"127.0.0.1:6379"` // Redis server address
	Pass     string        `env:"PASS"`                             // Redis password
	DB       int           `env:"DB" envDefault:"0"`                // Redis database number
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"60s"`       // Cached listing lifetime
}

// Storage selects the document backend
type Storage struct {
	Driver   string `env:"DRIVER" envDefault:"local"`         // local or minio
	LocalDir string `env:"LOCAL_DIR" envDefault:"./uploads"` // Root directory for the local driver
}

// Minio holds object storage parameters
type Minio struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`   // MinIO endpoint
	AccessKey string `env:"ACCESS_KEY"`                             // Access key
	SecretKey string `env:"SECRET_KEY"`                             // Secret key
	Bucket    string `env:"BUCKET_NAME" envDefault:"crm-documents"` // Bucket for KYC documents
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`             // TLS to MinIO
}

// Cookie holds the session cookie policy
type Cookie struct {
	Name   string `env:"NAME" envDefault:"crm_session"` // Cookie name, empty disables the cookie
	Secure bool   `env:"SECURE" envDefault:"true"`      // HTTPS only
}

// RateLimit holds token bucket parameters for public endpoints
type RateLimit struct {
	Requests int           `env:"REQUESTS" envDefault:"10"` // Requests per window
	Window   time.Duration `env:"WINDOW" envDefault:"1m"`   // Window length
	Burst    int           `env:"BURST" envDefault:"10"`    // Burst size
}

// Admin holds the seed administrator identity
type Admin struct {
	Email    string `env:"EMAIL"`                           // Seed admin email
	Password string `env:"PASSWORD"`                        // Seed admin password
	Name     string `env:"NAME" envDefault:"Administrator"` // Seed admin display name
}

// LoadConfig loads configuration from a .env file (if present) and the environment
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.IsProd && cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	return cfg, nil
}
