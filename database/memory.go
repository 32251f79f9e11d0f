package database

import (
	"context"
	"sort"
	"sync"

	"crm/schemas"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryResolver keeps every tenant in process memory. It follows the Mongo
// implementation's semantics, including the unique stage name index, and
// backs STORAGE_DRIVER=memory as well as the test suites.
type MemoryResolver struct {
	mu      sync.Mutex
	tenants map[string]*Tenant
}

func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{tenants: make(map[string]*Tenant)}
}

func (r *MemoryResolver) Resolve(ctx context.Context, companyID string) (*Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tenant, ok := r.tenants[companyID]; ok {
		return tenant, nil
	}

	tenant := &Tenant{
		CompanyID: companyID,
		Pipelines: &memoryPipelines{companyID: companyID},
		Stages:    &memoryStages{companyID: companyID},
	}
	r.tenants[companyID] = tenant
	return tenant, nil
}

type memoryPipelines struct {
	mu        sync.Mutex
	companyID string
	documents []schemas.Pipeline
}

func (c *memoryPipelines) InsertOne(ctx context.Context, pipeline schemas.Pipeline) (bson.ObjectID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pipeline.ID.IsZero() {
		pipeline.ID = bson.NewObjectID()
	}
	pipeline.CompanyID = c.companyID
	c.documents = append(c.documents, pipeline)
	return pipeline.ID, nil
}

func (c *memoryPipelines) FindByID(ctx context.Context, id bson.ObjectID) (schemas.Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, pipeline := range c.documents {
		if pipeline.ID == id {
			return pipeline, nil
		}
	}
	return schemas.Pipeline{}, ErrNotFound
}

func (c *memoryPipelines) Find(ctx context.Context, filters schemas.PipelineFilters) ([]schemas.Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pipelines := []schemas.Pipeline{}
	for _, pipeline := range c.documents {
		if filters.Matches(pipeline) {
			pipelines = append(pipelines, pipeline)
		}
	}

	sort.SliceStable(pipelines, func(i, j int) bool {
		return pipelines[i].CreatedDate.After(pipelines[j].CreatedDate)
	})
	return pipelines, nil
}

func (c *memoryPipelines) UpdateByID(ctx context.Context, id bson.ObjectID, patch schemas.PipelinePatch) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if patch.IsEmpty() {
		return 0, nil
	}

	for i := range c.documents {
		if c.documents[i].ID == id {
			patch.Apply(&c.documents[i])
			return 1, nil
		}
	}
	return 0, nil
}

func (c *memoryPipelines) DeleteByID(ctx context.Context, id bson.ObjectID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.documents {
		if c.documents[i].ID == id {
			c.documents = append(c.documents[:i], c.documents[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *memoryPipelines) ReassignStages(ctx context.Context, from []string, to string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := make(map[string]struct{}, len(from))
	for _, name := range from {
		removed[name] = struct{}{}
	}

	var modified int64
	for i := range c.documents {
		if _, ok := removed[c.documents[i].Stage]; ok && c.documents[i].Stage != to {
			c.documents[i].Stage = to
			modified++
		}
	}
	return modified, nil
}

type memoryStages struct {
	mu        sync.Mutex
	companyID string
	documents []schemas.Stage
}

func (c *memoryStages) Find(ctx context.Context) ([]schemas.Stage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stages := make([]schemas.Stage, len(c.documents))
	copy(stages, c.documents)
	return stages, nil
}

func (c *memoryStages) FindByName(ctx context.Context, name string) (schemas.Stage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stage := range c.documents {
		if stage.Name == name {
			return stage, nil
		}
	}
	return schemas.Stage{}, ErrNotFound
}

func (c *memoryStages) hasName(name string) bool {
	for _, stage := range c.documents {
		if stage.Name == name {
			return true
		}
	}
	return false
}

func (c *memoryStages) InsertOne(ctx context.Context, name string) (bson.ObjectID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasName(name) {
		return bson.NilObjectID, ErrDuplicate
	}

	stage := schemas.Stage{ID: bson.NewObjectID(), Name: name, CompanyID: c.companyID}
	c.documents = append(c.documents, stage)
	return stage.ID, nil
}

func (c *memoryStages) Rename(ctx context.Context, id bson.ObjectID, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.documents {
		if c.documents[i].ID != id {
			continue
		}
		if c.documents[i].Name == name {
			return 0, nil
		}
		if c.hasName(name) {
			return 0, ErrDuplicate
		}
		c.documents[i].Name = name
		return 1, nil
	}
	return 0, nil
}

func (c *memoryStages) DeleteAll(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := int64(len(c.documents))
	c.documents = nil
	return deleted, nil
}

// InsertMany is ordered like the Mongo call: names before a duplicate are kept.
func (c *memoryStages) InsertMany(ctx context.Context, names []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range names {
		if c.hasName(name) {
			return ErrDuplicate
		}
		c.documents = append(c.documents, schemas.Stage{ID: bson.NewObjectID(), Name: name, CompanyID: c.companyID})
	}
	return nil
}
