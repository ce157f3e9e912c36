package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration
	JWTSecret   string
	TokenTTL    time.Duration
	SwaggerHost string
	LogLevel    string
	ResetDB     bool

	UploadDir         string
	MaxThumbnailBytes int64
	MaxAvatarBytes    int64
	BodyLimit         string
	CORSOrigins       []string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		MySQLDSN:          getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/blog?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		CacheTTL:          getEnvDuration("CACHE_TTL", 5*time.Minute),
		JWTSecret:         getEnv("JWT_SECRET", "change-me"),
		TokenTTL:          getEnvDuration("TOKEN_TTL", 30*24*time.Hour),
		SwaggerHost:       os.Getenv("SWAGGER_HOST"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ResetDB:           os.Getenv("RESET_DB") == "true",
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		MaxThumbnailBytes: getEnvInt64("MAX_THUMBNAIL_BYTES", 2_000_000),
		MaxAvatarBytes:    getEnvInt64("MAX_AVATAR_BYTES", 500_000),
		BodyLimit:         getEnv("BODY_LIMIT", "4M"),
		CORSOrigins:       getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.UploadDir == "" {
		errs = append(errs, errors.New("UPLOAD_DIR must not be empty"))
	}
	if c.MaxThumbnailBytes <= 0 || c.MaxAvatarBytes <= 0 {
		errs = append(errs, errors.New("upload size limits must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
