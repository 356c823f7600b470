package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	SslCertPath  string
	AIAPIKey     string
	EmbedModel   string
	GenModel     string
	VisionModel  string
	OpsAddr      string

	// Worker tuning.
	WorkerCount    int
	BatchSize      int
	PollInterval   time.Duration
	DocumentDelay  time.Duration
	OracleTimeout  time.Duration
	StorageTimeout time.Duration
}

// LoadConfig loads the environment variables and returns config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", "indexa-docs"),
		SslCertPath:    getEnv("SSL_CERT_PATH", ""),
		AIAPIKey:       getEnv("GEMINI_API_KEY", ""),
		EmbedModel:     getEnv("EMBED_MODEL", "text-embedding-004"),
		GenModel:       getEnv("GEN_MODEL", "gemini-1.5-flash"),
		VisionModel:    getEnv("VISION_MODEL", "gemini-1.5-flash"),
		OpsAddr:        getEnv("OPS_ADDR", ":9090"),
		WorkerCount:    getEnvInt("WORKER_COUNT", 2),
		BatchSize:      getEnvInt("BATCH_SIZE", 10),
		PollInterval:   getEnvDuration("POLL_INTERVAL", 30*time.Second),
		DocumentDelay:  getEnvDuration("DOCUMENT_DELAY", 2*time.Second),
		OracleTimeout:  getEnvDuration("ORACLE_TIMEOUT", 30*time.Second),
		StorageTimeout: getEnvDuration("STORAGE_TIMEOUT", 30*time.Second),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
