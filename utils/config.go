package utils

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	STORAGE_DRIVER_MONGO  = "mongo"
	STORAGE_DRIVER_MEMORY = "memory"

	EXPORT_DRIVER_LOCAL = "local"
	EXPORT_DRIVER_S3    = "s3"
)

type Config struct {
	Environment          string
	Port                 int
	MongoURI             string
	MongoDBPrefix        string
	MongoTransactions    bool
	StorageDriver        string
	RedisURI             string
	MySQLURI             string
	JWTSecret            string
	ExportDriver         string
	ExportDir            string
	ExportBaseURL        string
	ExportS3Bucket       string
	ExportS3Region       string
	ExportS3Endpoint     string
	ExportRetention      time.Duration
	ExportSweepInterval  time.Duration
	ExportCurrencySymbol string
	LogLevel             string
	CORSAllowedOrigins   []string
}

// LoadConfig reads the process environment. Call LoadEnvFile first to pick up
// a local .env file.
func LoadConfig() (Config, error) {
	cfg := Config{
		Environment:          getEnv(ENV, ENV_DEVELOPMENT),
		MongoURI:             os.Getenv(MONGODB_URI),
		MongoDBPrefix:        os.Getenv(MONGO_DB_PREFIX),
		StorageDriver:        getEnv(STORAGE_DRIVER, STORAGE_DRIVER_MONGO),
		RedisURI:             os.Getenv(REDIS_URI),
		MySQLURI:             os.Getenv(MYSQL_URI),
		JWTSecret:            os.Getenv(JWT_SECRET),
		ExportDriver:         getEnv(EXPORT_DRIVER, EXPORT_DRIVER_LOCAL),
		ExportDir:            getEnv(EXPORT_DIR, "exports"),
		ExportS3Bucket:       os.Getenv(EXPORT_S3_BUCKET),
		ExportS3Region:       getEnv(EXPORT_S3_REGION, "us-east-1"),
		ExportS3Endpoint:     os.Getenv(EXPORT_S3_ENDPOINT),
		ExportCurrencySymbol: getEnv(EXPORT_CURRENCY_SYMBOL, "$"),
		LogLevel:             getEnv(LOG_LEVEL, "info"),
	}

	if !slices.Contains(allowedEnvValues, cfg.Environment) {
		return Config{}, fmt.Errorf("invalid %s: %s", ENV, cfg.Environment)
	}

	port, err := strconv.Atoi(getEnv(PORT, "8080"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", PORT, err)
	}
	cfg.Port = port

	cfg.MongoTransactions, err = strconv.ParseBool(getEnv(MONGO_TRANSACTIONS, "false"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", MONGO_TRANSACTIONS, err)
	}

	cfg.ExportRetention, err = time.ParseDuration(getEnv(EXPORT_RETENTION, "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", EXPORT_RETENTION, err)
	}
	if cfg.ExportRetention <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", EXPORT_RETENTION)
	}

	cfg.ExportSweepInterval, err = time.ParseDuration(getEnv(EXPORT_SWEEP_INTERVAL, "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", EXPORT_SWEEP_INTERVAL, err)
	}
	if cfg.ExportSweepInterval <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", EXPORT_SWEEP_INTERVAL)
	}

	cfg.ExportBaseURL = getEnv(EXPORT_BASE_URL, fmt.Sprintf("http://localhost:%d", cfg.Port))

	for _, origin := range strings.Split(getEnv(CORS_ALLOWED_ORIGINS, "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	switch cfg.StorageDriver {
	case STORAGE_DRIVER_MONGO:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("%s is required when %s=%s", MONGODB_URI, STORAGE_DRIVER, STORAGE_DRIVER_MONGO)
		}
	case STORAGE_DRIVER_MEMORY:
	default:
		return Config{}, fmt.Errorf("invalid %s: %s", STORAGE_DRIVER, cfg.StorageDriver)
	}

	switch cfg.ExportDriver {
	case EXPORT_DRIVER_LOCAL:
	case EXPORT_DRIVER_S3:
		if cfg.ExportS3Bucket == "" {
			return Config{}, fmt.Errorf("%s is required when %s=%s", EXPORT_S3_BUCKET, EXPORT_DRIVER, EXPORT_DRIVER_S3)
		}
	default:
		return Config{}, fmt.Errorf("invalid %s: %s", EXPORT_DRIVER, cfg.ExportDriver)
	}

	if cfg.JWTSecret == "" {
		if cfg.Environment == ENV_RELEASE {
			return Config{}, fmt.Errorf("%s is required in %s", JWT_SECRET, ENV_RELEASE)
		}
		cfg.JWTSecret = "change-me-in-development"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
