package pipelines

import (
	"context"
	"errors"

	"crm/database"
	"crm/schemas"
	"crm/utils"
)

// DeleteOne removes the pipeline and returns it as it was before deletion.
func (s *Store) DeleteOne(ctx context.Context, tenant *database.Tenant, id string) (schemas.Pipeline, error) {
	objectID, err := parseID(id)
	if err != nil {
		return schemas.Pipeline{}, err
	}

	snapshot, err := tenant.Pipelines.FindByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return schemas.Pipeline{}, utils.ErrPipelineNotFound
		}
		return schemas.Pipeline{}, utils.Infrastructure(err)
	}

	deleted, err := tenant.Pipelines.DeleteByID(ctx, objectID)
	if err != nil {
		return schemas.Pipeline{}, utils.Infrastructure(err)
	}
	if deleted == 0 {
		return schemas.Pipeline{}, utils.ErrPipelineNotFound
	}

	s.logger.Debug("pipeline deleted", "company_id", tenant.CompanyID, "pipeline_id", id)
	return snapshot, nil
}
