// Package inventory implements the product inventory operations: listings,
// single-product fetch, quantity adjustment, delete and insert.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/erazemk/bdmotors/internal/model"
	"github.com/erazemk/bdmotors/internal/store"
)

const tracerName = "github.com/erazemk/bdmotors/internal/inventory"

var validate = validator.New()

// Service runs inventory operations against the product collections.
type Service struct {
	Store  store.Store
	Tracer trace.Tracer
	// Timeout bounds each store call. Zero leaves only the caller's deadline.
	Timeout time.Duration
}

// NewService creates a service using the global tracer provider.
func NewService(st store.Store, timeout time.Duration) *Service {
	return &Service{
		Store:   st,
		Tracer:  otel.Tracer(tracerName),
		Timeout: timeout,
	}
}

// begin starts a span and applies the store timeout. The returned function
// records err on the span and releases both.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.Tracer.Start(ctx, "inventory."+op, trace.WithAttributes(attrs...))

	cancel := context.CancelFunc(func() {})
	if s.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
	}

	return ctx, func(err error) {
		cancel()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// List returns all products, or one page of them in insertion order.
func (s *Service) List(ctx context.Context, page Page) (products []model.Product, err error) {
	ctx, end := s.begin(ctx, "list",
		attribute.Int64("page.number", page.Number),
		attribute.Int64("page.size", page.Size),
	)
	defer func() { end(err) }()

	q := store.Query{}
	if page.Paginated() {
		q.Skip = page.Skip()
		q.Limit = page.Size
	}

	products, err = s.Store.Find(ctx, store.CollectionProduct, q)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// Home returns the first HomeLimit products.
func (s *Service) Home(ctx context.Context) (products []model.Product, err error) {
	ctx, end := s.begin(ctx, "home")
	defer func() { end(err) }()

	products, err = s.Store.Find(ctx, store.CollectionProduct, store.Query{Limit: HomeLimit})
	if err != nil {
		return nil, fmt.Errorf("listing home products: %w", err)
	}
	return products, nil
}

// Count returns the estimated number of products.
func (s *Service) Count(ctx context.Context) (count int64, err error) {
	ctx, end := s.begin(ctx, "count")
	defer func() { end(err) }()

	count, err = s.Store.EstimatedCount(ctx, store.CollectionProduct)
	if err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return count, nil
}

// Featured returns every featured product.
func (s *Service) Featured(ctx context.Context) (products []model.Product, err error) {
	ctx, end := s.begin(ctx, "featured")
	defer func() { end(err) }()

	products, err = s.Store.Find(ctx, store.CollectionFeatureProduct, store.Query{})
	if err != nil {
		return nil, fmt.Errorf("listing featured products: %w", err)
	}
	return products, nil
}

// MyItems returns the products whose email equals email exactly.
func (s *Service) MyItems(ctx context.Context, email string) (products []model.Product, err error) {
	ctx, end := s.begin(ctx, "my_items")
	defer func() { end(err) }()

	products, err = s.Store.Find(ctx, store.CollectionProduct, store.Query{Email: &email})
	if err != nil {
		return nil, fmt.Errorf("listing products by owner: %w", err)
	}
	return products, nil
}

// Get returns the product with the given hex identifier.
func (s *Service) Get(ctx context.Context, hexID string) (product model.Product, err error) {
	ctx, end := s.begin(ctx, "get", attribute.String("product.id", hexID))
	defer func() { end(err) }()

	id, err := parseID(hexID)
	if err != nil {
		return nil, err
	}

	product, err = s.Store.FindByID(ctx, store.CollectionProduct, id)
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// AdjustQuantity restocks a product by restock units, or sells one unit when
// restock is nil or zero. Concurrent adjustments of the same product are
// never lost. The quantity has no lower bound other than the int64 range.
func (s *Service) AdjustQuantity(ctx context.Context, hexID string, restock *int64) (result *model.UpdateResult, err error) {
	delta := int64(-1)
	if restock != nil && *restock != 0 {
		delta = *restock
	}

	ctx, end := s.begin(ctx, "adjust_quantity",
		attribute.String("product.id", hexID),
		attribute.Int64("quantity.delta", delta),
	)
	defer func() { end(err) }()

	id, err := parseID(hexID)
	if err != nil {
		return nil, err
	}

	result, err = s.Store.AddQuantity(ctx, store.CollectionProduct, id, delta)
	if errors.Is(err, store.ErrQuantityNotInteger) || errors.Is(err, store.ErrQuantityOverflow) {
		return nil, fmt.Errorf("%w: %w", ErrQuantityConflict, err)
	}
	if err != nil {
		return nil, fmt.Errorf("adjusting quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	if restock != nil && *restock != 0 {
		slog.Info("product restocked", "id", hexID, "quantity", delta, "modified", result.ModifiedCount)
	} else {
		slog.Info("product quantity decreased", "id", hexID, "modified", result.ModifiedCount)
	}
	return result, nil
}

// Delete removes the product with the given hex identifier. Deleting a
// missing product is not an error; the result reports zero deletions.
func (s *Service) Delete(ctx context.Context, hexID string) (result *model.DeleteResult, err error) {
	ctx, end := s.begin(ctx, "delete", attribute.String("product.id", hexID))
	defer func() { end(err) }()

	id, err := parseID(hexID)
	if err != nil {
		return nil, err
	}

	result, err = s.Store.DeleteOne(ctx, store.CollectionProduct, id)
	if err != nil {
		return nil, fmt.Errorf("deleting product: %w", err)
	}
	if result.DeletedCount == 1 {
		slog.Info("product deleted", "id", hexID)
	}
	return result, nil
}

// Insert stores a new product and assigns its identifier. doc is not
// modified.
func (s *Service) Insert(ctx context.Context, doc model.Product) (result *model.InsertResult, err error) {
	ctx, end := s.begin(ctx, "insert")
	defer func() { end(err) }()

	if err := validateProduct(doc); err != nil {
		return nil, err
	}

	stored := make(model.Product, len(doc)+1)
	for k, v := range doc {
		stored[k] = v
	}
	stored[model.FieldID] = primitive.NewObjectID()

	result, err = s.Store.InsertOne(ctx, store.CollectionProduct, stored)
	if err != nil {
		return nil, fmt.Errorf("inserting product: %w", err)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("product.id", result.InsertedID.Hex()))
	slog.Info("product inserted", "id", result.InsertedID.Hex())
	return result, nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Store.Ping(ctx)
}

func parseID(hexID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

// validateProduct checks the fields the service relies on. Other fields are
// stored as given.
func validateProduct(doc model.Product) error {
	if _, ok := doc[model.FieldID]; ok {
		return fmt.Errorf("%w: _id is assigned by the server", ErrInvalidInput)
	}

	if v, ok := doc[model.FieldEmail]; ok {
		email, isString := v.(string)
		if !isString || validate.Var(email, "required,email") != nil {
			return fmt.Errorf("%w: email must be a valid address", ErrInvalidInput)
		}
	}

	if v, ok := doc[model.FieldQuantity]; ok {
		if _, isInt := (model.Product{model.FieldQuantity: v}).Quantity(); !isInt {
			return fmt.Errorf("%w: quantity must be an integer", ErrInvalidInput)
		}
	}

	return nil
}
