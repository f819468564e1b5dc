package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/erazemk/bdmotors/internal/model"
)

// Mongo is a Store backed by a MongoDB database.
type Mongo struct {
	DB *mongo.Database
}

// NewMongo returns a Store using the named database of client.
func NewMongo(client *mongo.Client, database string) *Mongo {
	return &Mongo{DB: client.Database(database)}
}

// Find returns documents matching q in natural order.
func (m *Mongo) Find(ctx context.Context, collection string, q Query) ([]model.Product, error) {
	filter := bson.M{}
	if q.Email != nil {
		filter[model.FieldEmail] = *q.Email
	}

	opts := options.Find()
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := m.DB.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding documents: %w", err)
	}

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}

	docs := make([]model.Product, len(raw))
	for i, doc := range raw {
		docs[i] = model.Product(doc)
	}
	return docs, nil
}

// FindByID returns the document with the given id, or nil if there is none.
func (m *Mongo) FindByID(ctx context.Context, collection string, id primitive.ObjectID) (model.Product, error) {
	var doc bson.M
	err := m.DB.Collection(collection).FindOne(ctx, bson.M{model.FieldID: id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding document: %w", err)
	}
	return model.Product(doc), nil
}

// EstimatedCount returns the collection size from metadata.
func (m *Mongo) EstimatedCount(ctx context.Context, collection string) (int64, error) {
	count, err := m.DB.Collection(collection).EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// InsertOne stores doc. doc must carry its ObjectID under _id.
func (m *Mongo) InsertOne(ctx context.Context, collection string, doc model.Product) (*model.InsertResult, error) {
	id := doc.ID()
	if id.IsZero() {
		return nil, fmt.Errorf("inserting document: missing _id")
	}

	if _, err := m.DB.Collection(collection).InsertOne(ctx, bson.M(doc)); err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	return &model.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

// AddQuantity adds delta to the quantity of one document. The update filters
// on the quantity that was read, so a concurrent change makes it match
// nothing and the read is retried. Numeric strings are written back as
// integers.
func (m *Mongo) AddQuantity(ctx context.Context, collection string, id primitive.ObjectID, delta int64) (*model.UpdateResult, error) {
	coll := m.DB.Collection(collection)

	for {
		doc, err := m.FindByID(ctx, collection, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return &model.UpdateResult{Acknowledged: true}, nil
		}

		quantity, err := nextQuantity(doc, delta)
		if err != nil {
			return nil, fmt.Errorf("updating quantity: %w", err)
		}
		if delta == 0 {
			return &model.UpdateResult{Acknowledged: true, MatchedCount: 1}, nil
		}

		filter := bson.M{model.FieldID: id, model.FieldQuantity: doc[model.FieldQuantity]}
		update := bson.M{"$set": bson.M{model.FieldQuantity: quantity}}

		result, err := coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return nil, fmt.Errorf("updating quantity: %w", err)
		}
		if result.MatchedCount == 1 {
			return &model.UpdateResult{
				Acknowledged:  true,
				MatchedCount:  result.MatchedCount,
				ModifiedCount: result.ModifiedCount,
			}, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("updating quantity: %w", err)
		}
	}
}

// DeleteOne removes the document with the given id.
func (m *Mongo) DeleteOne(ctx context.Context, collection string, id primitive.ObjectID) (*model.DeleteResult, error) {
	result, err := m.DB.Collection(collection).DeleteOne(ctx, bson.M{model.FieldID: id})
	if err != nil {
		return nil, fmt.Errorf("deleting document: %w", err)
	}
	return &model.DeleteResult{Acknowledged: true, DeletedCount: result.DeletedCount}, nil
}

// Ping checks that the primary is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.DB.Client().Ping(ctx, readpref.Primary())
}
