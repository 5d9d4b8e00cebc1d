package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort     int
	MetricsPort  int
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	EmailTopic string
	SMSTopic   string
	PushTopic  string
	DLQTopic   string

	// Retry schedule applied by channel consumers: base delay doubles on
	// every attempt, up to MaxRetries republishes before dead-lettering.
	RetryBaseDelay time.Duration
	MaxRetries     int
	Prefetch       int

	EmailProviderURL string
	SMSProviderURL   string
	PushProviderURL  string

	TemplateCacheTTL time.Duration

	OTLPEndpoint string
	ServiceName  string
}

func LoadConfig(service string) (*Config, error) {
	cfg := &Config{ServiceName: service}

	httpPort, err := getEnvInt("HTTP_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.HTTPPort = httpPort

	metricsPort, err := getEnvInt("METRICS_PORT", httpPort+1000)
	if err != nil {
		return nil, err
	}
	cfg.MetricsPort = metricsPort

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.OTLPEndpoint = os.Getenv("OTLP_ENDPOINT")

	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	} else {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	cfg.EmailTopic = getEnv("EMAIL_TOPIC", "dispatch.email")
	cfg.SMSTopic = getEnv("SMS_TOPIC", "dispatch.sms")
	cfg.PushTopic = getEnv("PUSH_TOPIC", "dispatch.push")
	cfg.DLQTopic = getEnv("DLQ_TOPIC", "dlq.dispatch")

	retryBase, err := getEnvDuration("RETRY_BASE_DELAY", time.Second)
	if err != nil {
		return nil, err
	}
	cfg.RetryBaseDelay = retryBase

	maxRetries, err := getEnvInt("MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	cfg.MaxRetries = maxRetries

	prefetch, err := getEnvInt("PREFETCH", 3)
	if err != nil {
		return nil, err
	}
	cfg.Prefetch = prefetch

	cfg.EmailProviderURL = getEnv("EMAIL_PROVIDER_URL", "https://email-provider.local")
	cfg.SMSProviderURL = getEnv("SMS_PROVIDER_URL", "https://sms-provider.local")
	cfg.PushProviderURL = getEnv("PUSH_PROVIDER_URL", "https://push-provider.local")

	cacheTTL, err := getEnvDuration("TEMPLATE_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.TemplateCacheTTL = cacheTTL

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}
