package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Retrain requests per second, fractions allowed; zero disables it
	RetrainRateLimit float64
	RetrainBurst     int

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
	KafkaBrokers    []string
	KafkaGroupID    string
	ExperimentTopic string
	RetrainTopic    string

	// Model registries
	AlertModelsDir    string
	AlertRegistryFile string
	FoodModelsDir     string
	FoodRegistryFile  string
	FoodCatalogPath   string

	// Training
	TrainingSeed        int64
	TrainingTestSize    float64
	TrainingMaxWorkers  int
	AlertMinSamples     int
	AlertBoostedBackend bool

	// Registry locking
	RegistryLockBackend string
	RegistryLockTTL     time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8090"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 10*time.Minute),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		RetrainRateLimit: getFloatEnv("RETRAIN_RATE_LIMIT", 0),
		RetrainBurst:     getIntEnv("RETRAIN_BURST", 1),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "bodytwin"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "bodytwin"),
		PostgresDB:       getEnv("POSTGRES_DB", "bodytwin"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "bodytwin-training"),
		ExperimentTopic: getEnv("EXPERIMENT_TOPIC", ""),
		RetrainTopic:    getEnv("RETRAIN_TOPIC", ""),

		AlertModelsDir:    getEnv("ALERT_MODELS_DIR", "models"),
		AlertRegistryFile: getEnv("ALERT_REGISTRY_FILE", "models_meta.json"),
		FoodModelsDir:     getEnv("FOOD_MODELS_DIR", "models_food"),
		FoodRegistryFile:  getEnv("FOOD_REGISTRY_FILE", "food_models_meta.json"),
		FoodCatalogPath:   getEnv("FOOD_CATALOG_PATH", ""),

		TrainingSeed:        int64(getIntEnv("TRAINING_SEED", 42)),
		TrainingTestSize:    getFloatEnv("TRAINING_TEST_SIZE", 0.25),
		TrainingMaxWorkers:  getIntEnv("TRAINING_MAX_WORKERS", 1),
		AlertMinSamples:     getIntEnv("ALERT_MIN_SAMPLES", 10),
		AlertBoostedBackend: getBoolEnv("ALERT_BOOSTED_BACKEND", false),

		RegistryLockBackend: getEnv("REGISTRY_LOCK_BACKEND", "local"),
		RegistryLockTTL:     getDuration("REGISTRY_LOCK_TTL", 10*time.Minute),
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
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
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
