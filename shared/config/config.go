package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port   string
	AppEnv string

	// Database
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// JWT
	JWTSecret    string
	JWTExpiresIn string

	// Storage
	StorageType     string
	StoragePath     string
	MaxUploadSizeMB int

	// Encryption
	EncryptionEnabled   bool
	EncryptionAlgorithm string
	EncryptionKey       string

	// Redis
	RedisURL string

	// CORS
	CORSOrigin string

	// Logging
	LogLevel string

	// Rate Limiting
	RateLimitMaxRequests       int
	RateLimitTimeWindowSeconds int
	RateLimitBlockMinutes      int

	// MinIO (used when StorageType == "minio")
	MinIOServerURL    string
	MinIORootUser     string
	MinIORootPassword string
	MinIOUseSSL       bool
	MinIOBucketName   string
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg = &Config{
		// Server
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "loresmith"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: getEnv("JWT_EXPIRES_IN", "24h"),

		// Storage
		StorageType:     getEnv("STORAGE_TYPE", "local"),
		StoragePath:     getEnv("STORAGE_PATH", "./data/documents"),
		MaxUploadSizeMB: getEnvAsInt("MAX_UPLOAD_SIZE_MB", 50),

		// Encryption
		EncryptionEnabled:   getEnvAsBool("ENCRYPTION_ENABLED", false),
		EncryptionAlgorithm: getEnv("ENCRYPTION_ALGORITHM", "aes-256-gcm"),
		EncryptionKey:       getEnv("ENCRYPTION_KEY", ""),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Rate Limiting
		RateLimitMaxRequests:       getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitTimeWindowSeconds: getEnvAsInt("RATE_LIMIT_TIME_WINDOW_SECONDS", 60),
		RateLimitBlockMinutes:      getEnvAsInt("RATE_LIMIT_BLOCK_DURATION_MINUTES", 15),

		// MinIO
		MinIOServerURL:    getEnv("MINIO_SERVER_URL", "http://localhost:9000"),
		MinIORootUser:     getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinIORootPassword: getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),
		MinIOBucketName:   getEnv("MINIO_BUCKET_NAME", "loresmith-documents"),
	}

	log.Println("Configuration loaded successfully")
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// DSN builds a Postgres DSN, preferring DATABASE_URL when set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBPort,
		c.DBSSLMode,
	)
}

// MaxUploadSizeBytes returns the upload limit in bytes
func (c *Config) MaxUploadSizeBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

// AllowedOrigins splits CORS_ORIGIN into a list
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigin, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
