package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address" env:"HTTP_ADDRESS"`
	SwaggerDir     string   `yaml:"swagger_dir" env:"HTTP_SWAGGER_DIR"`
	APIKeysEnabled bool     `yaml:"api_keys_enabled" env:"HTTP_API_KEYS_ENABLED"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" env:"HTTP_RATE_LIMIT_RPS"`
	RateLimitBurst int      `yaml:"rate_limit_burst" env:"HTTP_RATE_LIMIT_BURST"`
	CORSOrigins    []string `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS"`
}

type GRPCConfig struct {
	Address string `yaml:"address" env:"GRPC_ADDRESS"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type StorageConfig struct {
	Driver       string `yaml:"driver" env:"STORAGE_DRIVER"`
	SeedDemoData bool   `yaml:"seed_demo_data" env:"STORAGE_SEED_DEMO_DATA"`
	DemoAPIKey   string `yaml:"demo_api_key" env:"STORAGE_DEMO_API_KEY"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	BookingEventsTopic string   `yaml:"booking_events_topic" env:"KAFKA_BOOKING_EVENTS_TOPIC"`
	NotificationsTopic string   `yaml:"notifications_topic" env:"KAFKA_NOTIFICATIONS_TOPIC"`
	GroupID            string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
	PublishAttempts    int      `yaml:"publish_attempts" env:"KAFKA_PUBLISH_ATTEMPTS"`
}

type BookingConfig struct {
	FlightsCacheTTL       int `yaml:"flights_cache_ttl_seconds" env:"BOOKING_FLIGHTS_CACHE_TTL_SECONDS"`
	IdempotencyTTLMinutes int `yaml:"idempotency_ttl_minutes" env:"BOOKING_IDEMPOTENCY_TTL_MINUTES"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

func defaults() Config {
	return Config{
		HTTP:     HTTPConfig{Address: ":8080", RateLimitRPS: 50, RateLimitBurst: 100},
		GRPC:     GRPCConfig{Address: ":9090"},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "disable"},
		Storage:  StorageConfig{Driver: StorageDriverPostgres},
		Kafka:    KafkaConfig{PublishAttempts: 3},
		Booking:  BookingConfig{FlightsCacheTTL: 30, IdempotencyTTLMinutes: 24 * 60},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}

// LoadConfig reads the YAML file at path and then lets environment variables
// override individual fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.Kafka.PublishAttempts < 1 {
		return fmt.Errorf("kafka.publish_attempts must be at least 1")
	}
	return nil
}
