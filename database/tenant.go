package database

import (
	"context"
	"errors"

	"crm/schemas"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

type PipelineCollection interface {
	InsertOne(ctx context.Context, pipeline schemas.Pipeline) (bson.ObjectID, error)
	FindByID(ctx context.Context, id bson.ObjectID) (schemas.Pipeline, error)
	// Find returns the matching pipelines, most recent createdDate first.
	Find(ctx context.Context, filters schemas.PipelineFilters) ([]schemas.Pipeline, error)
	// UpdateByID returns the matched count.
	UpdateByID(ctx context.Context, id bson.ObjectID, patch schemas.PipelinePatch) (int64, error)
	DeleteByID(ctx context.Context, id bson.ObjectID) (int64, error)
	// ReassignStages moves every pipeline whose stage is in from to the stage
	// named to and returns the modified count.
	ReassignStages(ctx context.Context, from []string, to string) (int64, error)
}

type StageCollection interface {
	Find(ctx context.Context) ([]schemas.Stage, error)
	FindByName(ctx context.Context, name string) (schemas.Stage, error)
	InsertOne(ctx context.Context, name string) (bson.ObjectID, error)
	// Rename returns the modified count; renaming to the current name modifies nothing.
	Rename(ctx context.Context, id bson.ObjectID, name string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, names []string) error
}

// Tenant is the explicit storage handle for one company. Every collection
// behind it is already scoped to CompanyID.
type Tenant struct {
	CompanyID string
	Pipelines PipelineCollection
	Stages    StageCollection

	transact func(ctx context.Context, fn func(ctx context.Context) error) error
}

// WithTransaction runs fn atomically when the backing store supports it and
// directly otherwise.
func (t *Tenant) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.transact == nil {
		return fn(ctx)
	}
	return t.transact(ctx, fn)
}

type Resolver interface {
	Resolve(ctx context.Context, companyID string) (*Tenant, error)
}
