package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Result bodies use the field names MongoDB drivers report to existing
// clients.

// InsertResult reports the identifier assigned to a newly inserted document.
type InsertResult struct {
	Acknowledged bool               `json:"acknowledged"`
	InsertedID   primitive.ObjectID `json:"insertedId"`
}

// UpdateResult reports how many documents an update matched and changed.
type UpdateResult struct {
	Acknowledged  bool                `json:"acknowledged"`
	MatchedCount  int64               `json:"matchedCount"`
	ModifiedCount int64               `json:"modifiedCount"`
	UpsertedCount int64               `json:"upsertedCount"`
	UpsertedID    *primitive.ObjectID `json:"upsertedId"`
}

// DeleteResult reports how many documents were removed.
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// Count is the body of the product count endpoint.
type Count struct {
	Count int64 `json:"count"`
}
