package pipelines

import (
	"context"
	"os"
	"strings"
	"testing"

	"crm/database"
	"crm/schemas"
	"crm/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// newMongoResolver runs against MONGODB_URI under a throwaway prefix.
func newMongoResolver(t *testing.T, companies ...string) database.Resolver {
	t.Helper()
	uri := os.Getenv(utils.MONGODB_URI)
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	client, err := database.Connect(context.Background(), uri)
	require.NoError(t, err)

	prefix := "crm_it_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + "_"
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), database.MONGO_TIMEOUT)
		defer cancel()
		for _, companyID := range companies {
			client.Database(database.TenantDatabaseName(prefix, companyID)).Drop(ctx)
		}
		client.Disconnect(ctx)
	})

	return database.NewMongoResolver(client, database.MongoResolverOptions{Prefix: prefix})
}

func TestMongoStoreLifecycleAndIsolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	resolver := newMongoResolver(t, "company_a", "company_b")
	a := resolve(t, resolver, "company_a")
	b := resolve(t, resolver, "company_b")

	for _, date := range []string{"2024-01-01", "2024-03-01", "2024-02-01"} {
		_, err := store.CreateOne(ctx, a, schemas.PipelineInput{PipelineName: "Deal " + date, Stage: "Lead", CreatedDate: date})
		require.NoError(t, err)
	}
	foreign, err := store.CreateOne(ctx, b, schemas.PipelineInput{PipelineName: "Other tenant", Stage: "Lead"})
	require.NoError(t, err)

	all, err := store.GetAll(ctx, a, schemas.PipelineFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Deal 2024-03-01", all[0].PipelineName)
	assert.Equal(t, "Deal 2024-02-01", all[1].PipelineName)
	assert.Equal(t, "Deal 2024-01-01", all[2].PipelineName)

	won := "Won"
	_, err = store.UpdateOne(ctx, a, foreign.ID.Hex(), schemas.PipelinePatch{Status: &won})
	assert.ErrorIs(t, err, utils.ErrPipelineNotFound)
	_, err = store.DeleteOne(ctx, a, foreign.ID.Hex())
	assert.ErrorIs(t, err, utils.ErrPipelineNotFound)
	_, err = store.UpdateOne(ctx, a, bson.NewObjectID().Hex(), schemas.PipelinePatch{Status: &won})
	assert.ErrorIs(t, err, utils.ErrPipelineNotFound)

	untouched, err := b.Pipelines.FindByID(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, foreign, untouched)

	updated, err := store.UpdateOne(ctx, a, all[0].ID.Hex(), schemas.PipelinePatch{Status: &won})
	require.NoError(t, err)
	assert.Equal(t, "Won", updated.Status)
	assert.Equal(t, all[0].CreatedDate, updated.CreatedDate)

	deleted, err := store.DeleteOne(ctx, a, all[0].ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, updated, deleted)

	remaining, err := store.GetAll(ctx, a, schemas.PipelineFilters{})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
