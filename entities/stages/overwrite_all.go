package stages

import (
	"context"
	"errors"
	"slices"

	"crm/database"
	"crm/schemas"
	"crm/utils"
)

// OverwriteAll replaces the tenant's stage set with names, in order. Pipelines
// sitting on a stage that disappears move to names[0]. With an empty set the
// stages are cleared and pipelines keep their stage text.
func (s *Store) OverwriteAll(ctx context.Context, tenant *database.Tenant, names []string) (schemas.StageOverwrite, error) {
	newNames := make([]string, 0, len(names))
	for _, name := range names {
		name, err := normalizeName(name)
		if err != nil {
			return schemas.StageOverwrite{}, err
		}
		if slices.Contains(newNames, name) {
			return schemas.StageOverwrite{}, utils.DuplicateStageName(name)
		}
		newNames = append(newNames, name)
	}

	unlock, err := s.lock(ctx, tenant.CompanyID)
	if err != nil {
		return schemas.StageOverwrite{}, err
	}
	defer unlock()

	result := schemas.StageOverwrite{}
	err = tenant.WithTransaction(ctx, func(ctx context.Context) error {
		// the body can run again when the transaction is retried
		result = schemas.StageOverwrite{DeletedStages: []string{}}

		current, err := tenant.Stages.Find(ctx)
		if err != nil {
			return err
		}
		for _, stage := range current {
			if !slices.Contains(newNames, stage.Name) && !slices.Contains(result.DeletedStages, stage.Name) {
				result.DeletedStages = append(result.DeletedStages, stage.Name)
			}
		}

		if _, err := tenant.Stages.DeleteAll(ctx); err != nil {
			return err
		}

		if len(newNames) == 0 {
			return nil
		}

		if err := tenant.Stages.InsertMany(ctx, newNames); err != nil {
			return err
		}

		result.DefaultStage = newNames[0]
		if len(result.DeletedStages) > 0 {
			updated, err := tenant.Pipelines.ReassignStages(ctx, result.DeletedStages, result.DefaultStage)
			if err != nil {
				return err
			}
			result.UpdatedPipelinesCount = updated
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return schemas.StageOverwrite{}, utils.ErrStageExists
		}
		return schemas.StageOverwrite{}, utils.Infrastructure(err)
	}

	result.Stages, err = s.list(ctx, tenant)
	if err != nil {
		return schemas.StageOverwrite{}, err
	}

	s.logger.Info("stages overwritten",
		"company_id", tenant.CompanyID,
		"stages", len(newNames),
		"deleted", len(result.DeletedStages),
		"reassigned_pipelines", result.UpdatedPipelinesCount,
	)
	return result, nil
}
