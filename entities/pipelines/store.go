package pipelines

import (
	"log/slog"
	"time"

	"crm/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store holds the pipeline operations. It keeps no tenant state: every call
// receives the tenant handle it works on.
type Store struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger.With("component", "pipelines"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func parseID(id string) (bson.ObjectID, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, utils.ErrInvalidPipelineID
	}
	return objectID, nil
}
