package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	MongoURL string
	MongoDB  string
	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string
	SNSTopicArn  string

	ProductCacheTTL    time.Duration
	ReaperInterval     time.Duration
	ReservationTimeout time.Duration
}

func Load() Config {
	// Best effort; env vars win over .env
	_ = godotenv.Load()

	return Config{
		Port:     getEnv("PORT", "8085"),
		Env:      getEnv("APP_ENV", "development"),
		MongoURL: getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "storefront"),
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order.created"),
		SNSTopicArn:  getEnv("SNS_TOPIC_ARN", ""),

		ProductCacheTTL:    getDuration("PRODUCT_CACHE_TTL", 30*time.Second),
		ReaperInterval:     getDuration("REAPER_INTERVAL", time.Hour),
		ReservationTimeout: getDuration("RESERVATION_TIMEOUT", 15*time.Minute),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
