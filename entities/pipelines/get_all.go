package pipelines

import (
	"context"

	"crm/database"
	"crm/schemas"
	"crm/utils"
)

// GetAll lists the tenant's pipelines matching filters, newest first.
func (s *Store) GetAll(ctx context.Context, tenant *database.Tenant, filters schemas.PipelineFilters) ([]schemas.Pipeline, error) {
	pipelines, err := tenant.Pipelines.Find(ctx, filters)
	if err != nil {
		return nil, utils.Infrastructure(err)
	}
	if pipelines == nil {
		pipelines = []schemas.Pipeline{}
	}
	return pipelines, nil
}
