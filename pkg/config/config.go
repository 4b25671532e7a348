package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/synergyayush/lookindharamshala/pkg/secrets"
)

// Config holds all application configuration
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	Storage   StorageConfig
	Auth      AuthConfig
	WhatsApp  WhatsAppConfig
	Directory DirectoryConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	// AllowedOrigins is the raw comma separated CORS allow list
	AllowedOrigins string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// ChangeFeed enables the LISTEN/NOTIFY relay for writes made by other clients
	ChangeFeed bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Provider  string // s3 or cloudinary
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

// AuthConfig holds admin authentication configuration
type AuthConfig struct {
	JWTSecret   string
	AdminEmails []string
}

// WhatsAppConfig holds WhatsApp Cloud API configuration
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
}

// DirectoryConfig holds product-level settings
type DirectoryConfig struct {
	SiteName          string
	SiteURL           string
	Region            string
	OwnerName         string
	ContactEmail      string
	ContactPhone      string
	DefaultRating     float64
	ReconcileInterval time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables, reading a .env file
// first when present. Credentials may come from Vault (VAULT_ENABLED).
func Load() (*Config, error) {
	_ = godotenv.Load()

	if _, err := secrets.Load(context.Background(), secrets.VaultSourceFromEnv()); err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvAsInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			Database:   getEnv("DB_NAME", "lookindharamshala"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			ChangeFeed: getEnvAsBool("DB_CHANGE_FEED", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", ""),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		Storage: StorageConfig{
			Provider:            getEnv("STORAGE_PROVIDER", "s3"),
			Bucket:              getEnv("STORAGE_BUCKET", "businesses"),
			Region:              getEnv("STORAGE_REGION", "ap-south-1"),
			Endpoint:            getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:           getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:           getEnv("STORAGE_SECRET_KEY", ""),
			PublicURL:           getEnv("STORAGE_PUBLIC_URL", ""),
			CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("AUTH_JWT_SECRET", ""),
			AdminEmails: getEnvAsList("ADMIN_EMAILS"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			PhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			BaseURL:       getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v18.0"),
		},
		Directory: DirectoryConfig{
			SiteName:          getEnv("SITE_NAME", "Look in Dharamshala"),
			SiteURL:           getEnv("SITE_URL", "https://lookindharamshala.synergyayush.com/"),
			Region:            getEnv("DIRECTORY_REGION", "Dharamshala"),
			OwnerName:         getEnv("SITE_OWNER_NAME", "Ayush Sharma"),
			ContactEmail:      getEnv("CONTACT_EMAIL", "ayush988277@gmail.com"),
			ContactPhone:      getEnv("CONTACT_PHONE", "+919882770709"),
			DefaultRating:     getEnvAsFloat("DEFAULT_SERVICE_RATING", 4.5),
			ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 10*time.Minute),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "lookindharamshala-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if cfg.Directory.DefaultRating < 0 || cfg.Directory.DefaultRating > 5 {
		return nil, fmt.Errorf("DEFAULT_SERVICE_RATING must be between 0 and 5, got %v", cfg.Directory.DefaultRating)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WhatsAppEnabled reports whether server-side WhatsApp delivery is configured
func (c *WhatsAppConfig) WhatsAppEnabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
