package utils

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"
)

const (
	ENV                    = "ENV"
	PORT                   = "PORT"
	MONGODB_URI            = "MONGODB_URI"
	MONGO_DB_PREFIX        = "MONGO_DB_PREFIX"
	MONGO_TRANSACTIONS     = "MONGO_TRANSACTIONS"
	STORAGE_DRIVER         = "STORAGE_DRIVER"
	REDIS_URI              = "REDIS_URI"
	MYSQL_URI              = "MYSQL_URI"
	JWT_SECRET             = "JWT_SECRET"
	EXPORT_DRIVER          = "EXPORT_DRIVER"
	EXPORT_DIR             = "EXPORT_DIR"
	EXPORT_BASE_URL        = "EXPORT_BASE_URL"
	EXPORT_S3_BUCKET       = "EXPORT_S3_BUCKET"
	EXPORT_S3_REGION       = "EXPORT_S3_REGION"
	EXPORT_S3_ENDPOINT     = "EXPORT_S3_ENDPOINT"
	EXPORT_RETENTION       = "EXPORT_RETENTION"
	EXPORT_SWEEP_INTERVAL  = "EXPORT_SWEEP_INTERVAL"
	EXPORT_CURRENCY_SYMBOL = "EXPORT_CURRENCY_SYMBOL"
	LOG_LEVEL              = "LOG_LEVEL"
	CORS_ALLOWED_ORIGINS   = "CORS_ALLOWED_ORIGINS"

	ENV_DEVELOPMENT = "development"
	ENV_HOMOLOG     = "homolog"
	ENV_RELEASE     = "production"
)

var allowedKeys = []string{
	ENV, PORT, MONGODB_URI, MONGO_DB_PREFIX, MONGO_TRANSACTIONS, STORAGE_DRIVER,
	REDIS_URI, MYSQL_URI, JWT_SECRET, EXPORT_DRIVER, EXPORT_DIR, EXPORT_BASE_URL,
	EXPORT_S3_BUCKET, EXPORT_S3_REGION, EXPORT_S3_ENDPOINT, EXPORT_RETENTION,
	EXPORT_SWEEP_INTERVAL, EXPORT_CURRENCY_SYMBOL, LOG_LEVEL, CORS_ALLOWED_ORIGINS,
}

var allowedEnvValues = []string{ENV_DEVELOPMENT, ENV_HOMOLOG, ENV_RELEASE}

// LoadEnvFile copies KEY=VALUE lines from a .env file into the process
// environment. Unknown keys and invalid ENV values are rejected. Variables
// already present in the environment win over the file.
func LoadEnvFile(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("[ENV] cannot open %s: %w", filePath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("[ENV] invalid format on line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := unquote(strings.TrimSpace(parts[1]))

		if !slices.Contains(allowedKeys, key) {
			return fmt.Errorf("[ENV] key '%s' is not allowed. Allowed keys: %s",
				key, strings.Join(allowedKeys, ", "))
		}

		if key == ENV && !slices.Contains(allowedEnvValues, value) {
			return fmt.Errorf("[ENV] invalid value for ENV: %s. Allowed values: %s",
				value, strings.Join(allowedEnvValues, ", "))
		}

		if _, exists := os.LookupEnv(key); exists {
			continue
		}

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("[ENV] cannot set %s: %w", key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("[ENV] error reading %s: %w", filePath, err)
	}

	return nil
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
		(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
		return value[1 : len(value)-1]
	}
	return value
}
