package stages

import (
	"context"
	"log/slog"
	"strings"

	"crm/database"
	"crm/schemas"
	"crm/utils"
)

// Store holds the stage operations. Mutations for one tenant are serialized
// through the locker so the name check and the write cannot interleave.
type Store struct {
	locker database.Locker
	logger *slog.Logger
}

func NewStore(locker database.Locker, logger *slog.Logger) *Store {
	if locker == nil {
		locker = database.NewLocalLocker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		locker: locker,
		logger: logger.With("component", "stages"),
	}
}

func lockKey(companyID string) string {
	return "stages:" + companyID
}

func (s *Store) lock(ctx context.Context, companyID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, lockKey(companyID))
	if err != nil {
		return nil, utils.Infrastructure(err)
	}
	return unlock, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", utils.ErrStageNameRequired
	}
	return name, nil
}

func (s *Store) list(ctx context.Context, tenant *database.Tenant) ([]schemas.Stage, error) {
	stages, err := tenant.Stages.Find(ctx)
	if err != nil {
		return nil, utils.Infrastructure(err)
	}
	if stages == nil {
		stages = []schemas.Stage{}
	}
	return stages, nil
}
