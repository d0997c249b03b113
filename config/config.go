package config

import (
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"fern-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`

	// PostgreSQL (signal + match storage)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"fern"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Listing store (projects/products/images live here, read-only for us)
	ListingBaseURL        string        `env:"LISTING_BASE_URL" env-default:"http://localhost:3000"`
	ListingTimeout        time.Duration `env:"LISTING_TIMEOUT" env-default:"10s"`
	ListingMaxResponseKiB int           `env:"LISTING_MAX_RESPONSE_KIB" env-default:"1024"`

	// Inference provider (embeddings + attribute extraction)
	OpenAIAPIKey          string        `env:"OPENAI_API_KEY" env-default:""`
	OpenAIBaseURL         string        `env:"OPENAI_BASE_URL" env-default:""`
	EmbeddingModel        string        `env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	VisionModel           string        `env:"VISION_MODEL" env-default:"gpt-4o-mini"`
	ProviderTimeout       time.Duration `env:"PROVIDER_TIMEOUT" env-default:"30s"`
	ProviderRatePerSecond float64       `env:"PROVIDER_RATE_PER_SECOND" env-default:"5"`
	ProviderBurst         int           `env:"PROVIDER_BURST" env-default:"5"`

	// Scoring
	EmbeddingDimensions int `env:"EMBEDDING_DIMENSIONS" env-default:"1536"`
	MatchWorkerCount    int `env:"MATCH_WORKER_COUNT" env-default:"4"`

	// Kafka Producer settings (match/image lifecycle events)
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"match-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Kafka Consumer (image upload notifications from the listing store)
	KafkaInputTopic      string `env:"KAFKA_INPUT_TOPIC" env-default:"image-events"`
	KafkaConsumerGroup   string `env:"KAFKA_CONSUMER_GROUP" env-default:"fern-consumer"`
	KafkaConsumerEnabled bool   `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`
}

// Load reads .env (if present) and binds environment variables onto a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
