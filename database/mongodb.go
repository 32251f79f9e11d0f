package database

import (
	"context"
	"fmt"
	"time"

	"crm/utils"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	MONGO_TIMEOUT        = 20 * time.Second
	COLLECTION_PIPELINES = "pipelines"
	COLLECTION_STAGES    = "stages"
)

// GetDBPrefix returns the tenant database prefix for an environment. Each
// tenant lives in its own database named prefix + companyId.
func GetDBPrefix(environment string) string {
	switch environment {
	case utils.ENV_RELEASE:
		return "crm_"
	case utils.ENV_HOMOLOG:
		return "crm_homolog_"
	default:
		return "crm_dev_"
	}
}

func TenantDatabaseName(prefix, companyID string) string {
	return prefix + companyID
}

// Connect opens the shared client used by every tenant handle.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("[MongoDB] connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, MONGO_TIMEOUT)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("[MongoDB] ping: %w", err)
	}

	return client, nil
}
