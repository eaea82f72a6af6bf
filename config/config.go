package config

import (
	"log"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string

	// InstanceID identifies this process on the cross-instance relay.
	// Generated when not pinned via env.
	InstanceID string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	JWTSecret string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	// ContentKeyHex is the 32-byte hex key for message encryption at rest.
	ContentKeyHex string

	// Message send rate limit: MaxMessages per WindowSeconds.
	RateWindowSeconds int
	RateMaxMessages   int

	// Presence TTLs in seconds: short while online, long retention offline.
	PresenceOnlineTTL  int
	PresenceOfflineTTL int

	// Retention sweep: tombstones older than this many days are removed.
	RetentionDays int

	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:            getEnv("APP_PORT", "8080"),
		AppMode:            getEnv("APP_MODE", "debug"),
		InstanceID:         getEnv("INSTANCE_ID", uuid.New().String()),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "taskchat"),
		DBPort:             getEnv("DB_PORT", "5432"),
		JWTSecret:          getEnv("JWT_SECRET", "change-me"),
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		ContentKeyHex:      getEnv("CONTENT_KEY_HEX", ""),
		RateWindowSeconds:  getEnvAsInt("CHAT_RATE_WINDOW_SECONDS", 2),
		RateMaxMessages:    getEnvAsInt("CHAT_RATE_MAX_MESSAGES", 5),
		PresenceOnlineTTL:  getEnvAsInt("PRESENCE_ONLINE_TTL_SECONDS", 60),
		PresenceOfflineTTL: getEnvAsInt("PRESENCE_OFFLINE_TTL_SECONDS", 86400),
		RetentionDays:      getEnvAsInt("MESSAGE_RETENTION_DAYS", 30),
		S3Region:           getEnv("S3_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:        getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
