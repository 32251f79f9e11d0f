package stages

import (
	"context"

	"crm/database"
	"crm/schemas"
)

func (s *Store) GetAll(ctx context.Context, tenant *database.Tenant) ([]schemas.Stage, error) {
	return s.list(ctx, tenant)
}
