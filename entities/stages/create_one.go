package stages

import (
	"context"
	"errors"

	"crm/database"
	"crm/schemas"
	"crm/utils"
)

// CreateOne adds a stage and returns the tenant's full stage list.
func (s *Store) CreateOne(ctx context.Context, tenant *database.Tenant, name string) ([]schemas.Stage, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, tenant.CompanyID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	_, err = tenant.Stages.FindByName(ctx, name)
	switch {
	case err == nil:
		return nil, utils.ErrStageExists
	case !errors.Is(err, database.ErrNotFound):
		return nil, utils.Infrastructure(err)
	}

	if _, err := tenant.Stages.InsertOne(ctx, name); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, utils.ErrStageExists
		}
		return nil, utils.Infrastructure(err)
	}

	s.logger.Debug("stage added", "company_id", tenant.CompanyID, "stage", name)
	return s.list(ctx, tenant)
}
