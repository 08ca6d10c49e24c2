// store/persister.go
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fieldsched/models"
)

// Persister is the durable-store collaborator behind the in-memory cache.
// Every committed mutation is flushed through it.
type Persister interface {
	LoadAssignments(ctx context.Context) ([]models.Assignment, error)
	SaveAssignment(ctx context.Context, a models.Assignment) error
	RemoveAssignment(ctx context.Context, id primitive.ObjectID) error
}

// MongoPersister stores assignments in a mongo collection, whole-document
// replace on save so history and status land atomically.
type MongoPersister struct {
	coll *mongo.Collection
}

func NewMongoPersister(coll *mongo.Collection) *MongoPersister {
	return &MongoPersister{coll: coll}
}

func (p *MongoPersister) LoadAssignments(ctx context.Context) ([]models.Assignment, error) {
	cursor, err := p.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assignments []models.Assignment
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (p *MongoPersister) SaveAssignment(ctx context.Context, a models.Assignment) error {
	opts := options.Replace().SetUpsert(true)
	_, err := p.coll.ReplaceOne(ctx, bson.M{"_id": a.ID}, a, opts)
	return err
}

func (p *MongoPersister) RemoveAssignment(ctx context.Context, id primitive.ObjectID) error {
	_, err := p.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// nopPersister backs the store when no durable collaborator is configured,
// which is how the unit tests run.
type nopPersister struct{}

func (nopPersister) LoadAssignments(ctx context.Context) ([]models.Assignment, error) { return nil, nil }
func (nopPersister) SaveAssignment(ctx context.Context, a models.Assignment) error    { return nil }
func (nopPersister) RemoveAssignment(ctx context.Context, id primitive.ObjectID) error {
	return nil
}
