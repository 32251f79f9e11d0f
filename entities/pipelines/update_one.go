package pipelines

import (
	"context"
	"errors"

	"crm/database"
	"crm/schemas"
	"crm/utils"
)

func (s *Store) UpdateOne(ctx context.Context, tenant *database.Tenant, id string, patch schemas.PipelinePatch) (schemas.Pipeline, error) {
	objectID, err := parseID(id)
	if err != nil {
		return schemas.Pipeline{}, err
	}

	if _, err := tenant.Pipelines.FindByID(ctx, objectID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return schemas.Pipeline{}, utils.ErrPipelineNotFound
		}
		return schemas.Pipeline{}, utils.Infrastructure(err)
	}

	if patch.IsEmpty() {
		return schemas.Pipeline{}, utils.ErrNoFieldsToUpdate
	}
	if patch.NoOfDeals != nil && *patch.NoOfDeals < 0 {
		return schemas.Pipeline{}, utils.ErrNegativeDeals
	}

	matched, err := tenant.Pipelines.UpdateByID(ctx, objectID, patch)
	if err != nil {
		return schemas.Pipeline{}, utils.Infrastructure(err)
	}
	if matched == 0 {
		return schemas.Pipeline{}, utils.ErrPipelineNotFound
	}

	updated, err := tenant.Pipelines.FindByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return schemas.Pipeline{}, utils.ErrPipelineNotFound
		}
		return schemas.Pipeline{}, utils.Infrastructure(err)
	}
	return updated, nil
}
