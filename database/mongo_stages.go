package database

import (
	"context"
	"errors"

	"crm/schemas"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoStages struct {
	collection *mongo.Collection
	companyID  string
}

func (c *mongoStages) scope(filter ...bson.E) bson.D {
	return append(bson.D{{Key: "companyId", Value: c.companyID}}, filter...)
}

func (c *mongoStages) Find(ctx context.Context) ([]schemas.Stage, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := c.collection.Find(ctx, c.scope(), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stages := []schemas.Stage{}
	if err := cursor.All(ctx, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

func (c *mongoStages) FindByName(ctx context.Context, name string) (schemas.Stage, error) {
	stage := schemas.Stage{}
	err := c.collection.FindOne(ctx, c.scope(bson.E{Key: "name", Value: name})).Decode(&stage)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return schemas.Stage{}, ErrNotFound
		}
		return schemas.Stage{}, err
	}
	return stage, nil
}

func (c *mongoStages) InsertOne(ctx context.Context, name string) (bson.ObjectID, error) {
	stage := schemas.Stage{ID: bson.NewObjectID(), Name: name, CompanyID: c.companyID}

	if _, err := c.collection.InsertOne(ctx, stage); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bson.NilObjectID, ErrDuplicate
		}
		return bson.NilObjectID, err
	}
	return stage.ID, nil
}

func (c *mongoStages) Rename(ctx context.Context, id bson.ObjectID, name string) (int64, error) {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: name}}}}

	result, err := c.collection.UpdateOne(ctx, c.scope(bson.E{Key: "_id", Value: id}), update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (c *mongoStages) DeleteAll(ctx context.Context) (int64, error) {
	result, err := c.collection.DeleteMany(ctx, c.scope())
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (c *mongoStages) InsertMany(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	documents := make([]schemas.Stage, 0, len(names))
	for _, name := range names {
		documents = append(documents, schemas.Stage{ID: bson.NewObjectID(), Name: name, CompanyID: c.companyID})
	}

	_, err := c.collection.InsertMany(ctx, documents, options.InsertMany().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
