package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Redis     RedisConfig
	NATS      NATSConfig
	S3        S3Config
	SMS       SMSConfig
	Pickup    PickupConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host was configured
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

// Enabled reports whether QR images can be published to S3
func (c *S3Config) Enabled() bool {
	return c.Bucket != ""
}

// SMSConfig holds Naver Cloud SENS credentials for texting pickup codes
type SMSConfig struct {
	ServiceID  string
	AccessKey  string
	SecretKey  string
	FromNumber string
	SenderName string
}

// PickupConfig tunes the verification-code protocol
type PickupConfig struct {
	CodeLength      int
	CodeTTL         time.Duration
	MaxAttempts     int
	CleanupSchedule string // cron spec for the expired-code sweep
}

type RateLimitConfig struct {
	VerifyMaxRequests int
	VerifyWindow      time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "admin"),
			Password:        getEnv("DB_PASSWORD", "1234"),
			DBName:          getEnv("DB_NAME", "storeops"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    parseInt(getEnv("DB_MAX_IDLE_CONNS", "10"), 10),
			MaxOpenConns:    parseInt(getEnv("DB_MAX_OPEN_CONNS", "100"), 100),
			ConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"), 30*time.Minute),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "pickup"),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		SMS: SMSConfig{
			ServiceID:  getEnv("NAVER_SENS_SERVICE_ID", ""),
			AccessKey:  getEnv("NAVER_SENS_ACCESS_KEY", ""),
			SecretKey:  getEnv("NAVER_SENS_SECRET_KEY", ""),
			FromNumber: getEnv("NAVER_SENS_FROM_NUMBER", ""),
			SenderName: getEnv("SMS_SENDER_NAME", "StoreOps"),
		},
		Pickup: PickupConfig{
			CodeLength:      parseInt(getEnv("PICKUP_CODE_LENGTH", "6"), 6),
			CodeTTL:         parseDuration(getEnv("PICKUP_CODE_TTL", "24h"), 24*time.Hour),
			MaxAttempts:     parseInt(getEnv("PICKUP_CODE_MAX_ATTEMPTS", "3"), 3),
			CleanupSchedule: getEnv("PICKUP_CODE_CLEANUP_SCHEDULE", "0 * * * *"),
		},
		RateLimit: RateLimitConfig{
			VerifyMaxRequests: parseInt(getEnv("RATE_LIMIT_VERIFY_MAX", "30"), 30),
			VerifyWindow:      parseDuration(getEnv("RATE_LIMIT_VERIFY_WINDOW", "1m"), time.Minute),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the pickup protocol cannot run with
func (c *Config) Validate() error {
	if c.Pickup.CodeLength < 4 || c.Pickup.CodeLength > 16 {
		return fmt.Errorf("PICKUP_CODE_LENGTH must be between 4 and 16, got %d", c.Pickup.CodeLength)
	}
	if c.Pickup.MaxAttempts < 1 {
		return fmt.Errorf("PICKUP_CODE_MAX_ATTEMPTS must be positive, got %d", c.Pickup.MaxAttempts)
	}
	if c.Pickup.CodeTTL <= 0 {
		return fmt.Errorf("PICKUP_CODE_TTL must be positive, got %s", c.Pickup.CodeTTL)
	}
	if c.Server.Environment == "production" && c.JWT.Secret == "your-secret-key" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
