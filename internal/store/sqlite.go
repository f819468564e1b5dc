package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/erazemk/bdmotors/internal/model"
)

// SQLite is a Store backed by the embedded documents table.
type SQLite struct {
	DB *sql.DB
}

// NewSQLite returns a Store using db. The schema must already exist.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{DB: db}
}

// Find returns documents matching q in insertion order.
func (s *SQLite) Find(ctx context.Context, collection string, q Query) ([]model.Product, error) {
	query := `SELECT id, body FROM documents WHERE collection = ?`
	args := []any{collection}

	if q.Email != nil {
		query += ` AND json_extract(body, '$.email') = ?`
		args = append(args, *q.Email)
	}
	query += ` ORDER BY seq`

	switch {
	case q.Limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, q.Skip)
	case q.Skip > 0:
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, q.Skip)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Product
	for rows.Next() {
		var hexID, body string
		if err := rows.Scan(&hexID, &body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc, err := decodeDocument(hexID, body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// FindByID returns the document with the given id, or nil if there is none.
func (s *SQLite) FindByID(ctx context.Context, collection string, id primitive.ObjectID) (model.Product, error) {
	var body string
	err := s.DB.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id.Hex(),
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding document: %w", err)
	}
	return decodeDocument(id.Hex(), body)
}

// EstimatedCount returns the number of documents in the collection.
func (s *SQLite) EstimatedCount(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// InsertOne stores doc. doc must carry its ObjectID under _id.
func (s *SQLite) InsertOne(ctx context.Context, collection string, doc model.Product) (*model.InsertResult, error) {
	id := doc.ID()
	if id.IsZero() {
		return nil, fmt.Errorf("inserting document: missing _id")
	}

	body := maps.Clone(doc)
	delete(body, model.FieldID)
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`,
		collection, id.Hex(), string(data),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}

	return &model.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

// AddQuantity adds delta to the quantity of one document. The write only
// lands if the document is unchanged since it was read; otherwise it is read
// again and retried.
func (s *SQLite) AddQuantity(ctx context.Context, collection string, id primitive.ObjectID, delta int64) (*model.UpdateResult, error) {
	for {
		var body string
		err := s.DB.QueryRowContext(ctx,
			`SELECT body FROM documents WHERE collection = ? AND id = ?`,
			collection, id.Hex(),
		).Scan(&body)
		if err == sql.ErrNoRows {
			return &model.UpdateResult{Acknowledged: true}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("finding document: %w", err)
		}

		doc, err := decodeDocument(id.Hex(), body)
		if err != nil {
			return nil, err
		}
		quantity, err := nextQuantity(doc, delta)
		if err != nil {
			return nil, fmt.Errorf("updating quantity: %w", err)
		}
		if delta == 0 {
			return &model.UpdateResult{Acknowledged: true, MatchedCount: 1}, nil
		}

		result, err := s.DB.ExecContext(ctx,
			`UPDATE documents SET body = json_set(body, '$.quantity', ?)
			 WHERE collection = ? AND id = ? AND body = ?`,
			quantity, collection, id.Hex(), body,
		)
		if err != nil {
			return nil, fmt.Errorf("updating quantity: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("getting updated count: %w", err)
		}
		if n == 1 {
			return &model.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("updating quantity: %w", err)
		}
	}
}

// DeleteOne removes the document with the given id.
func (s *SQLite) DeleteOne(ctx context.Context, collection string, id primitive.ObjectID) (*model.DeleteResult, error) {
	result, err := s.DB.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id.Hex(),
	)
	if err != nil {
		return nil, fmt.Errorf("deleting document: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting deleted count: %w", err)
	}
	return &model.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

// Ping checks that the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func decodeDocument(hexID, body string) (model.Product, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, fmt.Errorf("decoding document id %q: %w", hexID, err)
	}
	doc, err := model.UnmarshalProduct([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", hexID, err)
	}
	doc[model.FieldID] = id
	return doc, nil
}
