package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ServerAddr string // Listen address for the HTTP server, e.g. ":8080"
	MediaDir   string // Source directory scanned for audio files
	StaticDir  string // Root directory for generated static files (catalog.json)
	WebAppDir  string // Path to the web player UI files

	// Playback
	PlayerPollMS  int     // Playback clock tick interval in milliseconds
	DefaultVolume float64 // Initial volume in [0,1]
	EnableMPRIS   bool    // Export the desktop media-session bridge

	// UI feature flags, served to the browser as configuration rather
	// than baked into separate code paths.
	ShowLyricsPanel bool
	MobileLayout    bool

	// MySQL
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioPublicURL string // Base URL the browser uses to reach stored media

	// Logging
	LogLevel   string
	LogPath    string
	LogMaxSize int // megabytes per rotated file
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override variables already set in the
	// environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables and defaults.")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		MediaDir:   getEnv("MEDIA_DIR", "media"),
		StaticDir:  getEnv("STATIC_DIR", "static"),
		WebAppDir:  getEnv("WEBAPP_DIR", filepath.Join("web", "ui")),

		PlayerPollMS:  getEnvInt("PLAYER_POLL_MS", 100),
		DefaultVolume: getEnvFloat("DEFAULT_VOLUME", 1.0),
		EnableMPRIS:   getEnvBool("ENABLE_MPRIS", true),

		ShowLyricsPanel: getEnvBool("SHOW_LYRICS_PANEL", true),
		MobileLayout:    getEnvBool("MOBILE_LAYOUT", false),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for credentials
		DBName:     getEnv("DB_NAME", "cadenzafm"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "cadenzafm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioPublicURL: getEnv("MINIO_PUBLIC_URL", ""),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogPath:    getEnv("LOG_PATH", ""),
		LogMaxSize: getEnvInt("LOG_MAX_SIZE", 100),
	}
}
