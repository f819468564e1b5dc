// Package store is the document store client used by the inventory service.
//
// Two backends implement Store: Mongo talks to a MongoDB deployment and
// SQLite keeps JSON documents in an embedded database. Both return documents
// in insertion order and report results with the same counts.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/erazemk/bdmotors/internal/model"
)

// Collection names.
const (
	CollectionProduct        = "product"
	CollectionFeatureProduct = "featureProduct"
)

// Query selects documents from a collection. A nil Email matches every
// document; a zero Limit means no limit.
type Query struct {
	Email *string
	Skip  int64
	Limit int64
}

// Store is the set of document operations the inventory service needs.
//
// FindByID returns a nil Product and a nil error when no document matches.
// AddQuantity changes the quantity field without losing concurrent
// adjustments and never inserts a missing document. It fails with
// ErrQuantityNotInteger or ErrQuantityOverflow and leaves the document
// untouched when the result would not be an int64.
type Store interface {
	Find(ctx context.Context, collection string, q Query) ([]model.Product, error)
	FindByID(ctx context.Context, collection string, id primitive.ObjectID) (model.Product, error)
	EstimatedCount(ctx context.Context, collection string) (int64, error)
	InsertOne(ctx context.Context, collection string, doc model.Product) (*model.InsertResult, error)
	AddQuantity(ctx context.Context, collection string, id primitive.ObjectID, delta int64) (*model.UpdateResult, error)
	DeleteOne(ctx context.Context, collection string, id primitive.ObjectID) (*model.DeleteResult, error)
	Ping(ctx context.Context) error
}
