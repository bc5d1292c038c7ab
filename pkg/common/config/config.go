package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerHost     string
	ExtractionPort string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers           []string
	KafkaGroupID           string
	ExtractionRequestTopic string
	ExtractionResultTopic  string

	// LLM
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModelName   string
	LLMTemperature float64
	LLMTimeout     time.Duration
	LLMJSONMode    bool

	// NER
	NERBaseURL  string
	NERAPIToken string
	NERModel    string
	NERTimeout  time.Duration

	ClientRetryAttempts int

	// Extraction
	VocabularyPath          string
	PatternsPath            string
	ExtractionParallel      bool
	ExtractionCacheEnabled  bool
	ExtractionCacheTTL      time.Duration
	ExtractionPersist       bool
	ExtractionAllowedSource []string
}

func Load() *Config {
	return &Config{
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ExtractionPort: getEnv("EXTRACTION_PORT", "8090"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 90*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 40),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "synaptica"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "synaptica123"),
		PostgresDB:       getEnv("POSTGRES_DB", "synaptica"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:           getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:           getEnv("KAFKA_GROUP_ID", "cardio-extract"),
		ExtractionRequestTopic: getEnv("EXTRACTION_REQUEST_TOPIC", "clinical.documents.text"),
		ExtractionResultTopic:  getEnv("EXTRACTION_RESULT_TOPIC", "clinical.extractions"),

		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName:   getEnv("LLM_MODEL_NAME", "gpt-4"),
		LLMTemperature: getFloatEnv("LLM_TEMPERATURE", 0),
		LLMTimeout:     getDuration("LLM_TIMEOUT", 60*time.Second),
		LLMJSONMode:    getBoolEnv("LLM_JSON_MODE", true),

		NERBaseURL:  getEnv("NER_BASE_URL", ""),
		NERAPIToken: getEnv("NER_API_TOKEN", ""),
		NERModel:    getEnv("NER_MODEL", "dmis-lab/biobert-v1.1"),
		NERTimeout:  getDuration("NER_TIMEOUT", 20*time.Second),

		ClientRetryAttempts: getIntEnv("CLIENT_RETRY_ATTEMPTS", 2),

		VocabularyPath:          getEnv("VOCABULARY_PATH", ""),
		PatternsPath:            getEnv("PATTERNS_PATH", ""),
		ExtractionParallel:      getBoolEnv("EXTRACTION_PARALLEL", true),
		ExtractionCacheEnabled:  getBoolEnv("EXTRACTION_CACHE_ENABLED", true),
		ExtractionCacheTTL:      getDuration("EXTRACTION_CACHE_TTL", 24*time.Hour),
		ExtractionPersist:       getBoolEnv("EXTRACTION_PERSIST_ENABLED", true),
		ExtractionAllowedSource: getStringSliceEnv("EXTRACTION_ALLOWED_SOURCES", nil),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
