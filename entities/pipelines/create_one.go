package pipelines

import (
	"context"
	"errors"

	"crm/database"
	"crm/schemas"
	"crm/utils"
)

func (s *Store) CreateOne(ctx context.Context, tenant *database.Tenant, input schemas.PipelineInput) (schemas.Pipeline, error) {
	if input.NoOfDeals < 0 {
		return schemas.Pipeline{}, utils.ErrNegativeDeals
	}

	createdDate := s.now()
	if input.CreatedDate != "" {
		parsed, ok := utils.ParseDate(input.CreatedDate)
		if !ok {
			return schemas.Pipeline{}, utils.ErrInvalidCreatedDate
		}
		createdDate = parsed
	}

	pipeline := schemas.Pipeline{
		CompanyID:      tenant.CompanyID,
		PipelineName:   input.PipelineName,
		TotalDealValue: input.TotalDealValue,
		NoOfDeals:      input.NoOfDeals,
		Stage:          input.Stage,
		Status:         input.Status,
		CreatedDate:    createdDate,
	}

	id, err := tenant.Pipelines.InsertOne(ctx, pipeline)
	if err != nil {
		return schemas.Pipeline{}, utils.Infrastructure(err)
	}
	if id.IsZero() {
		return schemas.Pipeline{}, utils.ErrPipelineNotCreated
	}

	created, err := tenant.Pipelines.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return schemas.Pipeline{}, utils.ErrPipelineNotCreated
		}
		return schemas.Pipeline{}, utils.Infrastructure(err)
	}

	s.logger.Debug("pipeline created", "company_id", tenant.CompanyID, "pipeline_id", id.Hex())
	return created, nil
}
