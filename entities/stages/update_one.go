package stages

import (
	"context"
	"errors"

	"crm/database"
	"crm/schemas"
	"crm/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UpdateOne renames a stage. Pipelines keep the old name in their stage field
// until the next overwrite.
func (s *Store) UpdateOne(ctx context.Context, tenant *database.Tenant, id string, newName string) ([]schemas.Stage, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.ErrInvalidStageID
	}

	newName, err = normalizeName(newName)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, tenant.CompanyID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	modified, err := tenant.Stages.Rename(ctx, objectID, newName)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, utils.ErrStageExists
		}
		return nil, utils.Infrastructure(err)
	}
	if modified != 1 {
		return nil, utils.ErrStageNotUpdated
	}

	return s.list(ctx, tenant)
}
