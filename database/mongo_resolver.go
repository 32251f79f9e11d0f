package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"crm/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoResolver struct {
	client       *mongo.Client
	prefix       string
	transactions bool
	directory    TenantDirectory
	logger       *slog.Logger
	indexes      func(ctx context.Context, pipelines, stages *mongo.Collection) error

	mu      sync.Mutex
	tenants map[string]*Tenant
}

type MongoResolverOptions struct {
	Prefix string
	// Transactions requires a replica set or sharded cluster.
	Transactions bool
	// Directory, when set, is asked whether a company exists before its
	// handle is first created.
	Directory TenantDirectory
	Logger    *slog.Logger
}

func NewMongoResolver(client *mongo.Client, opts MongoResolverOptions) *MongoResolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoResolver{
		client:       client,
		prefix:       opts.Prefix,
		transactions: opts.Transactions,
		directory:    opts.Directory,
		logger:       logger,
		indexes:      ensureIndexes,
		tenants:      make(map[string]*Tenant),
	}
}

func (r *MongoResolver) Resolve(ctx context.Context, companyID string) (*Tenant, error) {
	r.mu.Lock()
	tenant, ok := r.tenants[companyID]
	r.mu.Unlock()
	if ok {
		return tenant, nil
	}

	if r.directory != nil {
		exists, err := r.directory.Exists(ctx, companyID)
		if err != nil {
			return nil, utils.Infrastructure(err)
		}
		if !exists {
			return nil, utils.ErrUnknownCompany
		}
	}

	db := r.client.Database(TenantDatabaseName(r.prefix, companyID))
	pipelines := db.Collection(COLLECTION_PIPELINES)
	stages := db.Collection(COLLECTION_STAGES)

	tenant = &Tenant{
		CompanyID: companyID,
		Pipelines: &mongoPipelines{collection: pipelines, companyID: companyID},
		Stages:    &mongoStages{collection: stages, companyID: companyID},
	}
	if r.transactions {
		tenant.transact = r.transaction
	}

	// The handle is only cached once the unique stage index exists, so a
	// failed build is retried by the next Resolve.
	if err := r.indexes(ctx, pipelines, stages); err != nil {
		r.logger.Warn("[MongoDB] cannot ensure tenant indexes",
			slog.String("company_id", companyID),
			slog.String("error", err.Error()),
		)
		return tenant, nil
	}

	r.mu.Lock()
	if cached, ok := r.tenants[companyID]; ok {
		tenant = cached
	} else {
		r.tenants[companyID] = tenant
	}
	r.mu.Unlock()

	return tenant, nil
}

func (r *MongoResolver) transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("[MongoDB] start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// ensureIndexes makes (companyId, name) unique on stages; a losing concurrent
// insert gets a duplicate key error.
func ensureIndexes(ctx context.Context, pipelines, stages *mongo.Collection) error {
	_, err := stages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "companyId", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("company_stage_name_unique"),
	})
	if err != nil {
		return fmt.Errorf("stages index: %w", err)
	}

	_, err = pipelines.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "companyId", Value: 1}, {Key: "createdDate", Value: -1}},
			Options: options.Index().SetName("company_created_date"),
		},
		{
			Keys:    bson.D{{Key: "companyId", Value: 1}, {Key: "stage", Value: 1}},
			Options: options.Index().SetName("company_stage"),
		},
	})
	if err != nil {
		return fmt.Errorf("pipelines index: %w", err)
	}

	return nil
}
