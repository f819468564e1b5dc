package inventory

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/erazemk/bdmotors/internal/db"
	"github.com/erazemk/bdmotors/internal/model"
	"github.com/erazemk/bdmotors/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(store.NewSQLite(db.NewTestDB(t)), 0)
}

func mustInsert(t *testing.T, svc *Service, doc model.Product) string {
	t.Helper()
	res, err := svc.Insert(context.Background(), doc)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return res.InsertedID.Hex()
}

func quantity(t *testing.T, svc *Service, id string) int64 {
	t.Helper()
	p, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	q, ok := p.Quantity()
	if !ok {
		t.Fatalf("product %s has no integer quantity", id)
	}
	return q
}

func TestListPaginationMatchesSlice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := range 11 {
		mustInsert(t, svc, model.Product{"n": int64(i)})
	}

	all, err := svc.List(ctx, Page{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 11 {
		t.Fatalf("expected 11 products, got %d", len(all))
	}

	for _, tt := range []struct{ page, size int64 }{{0, 3}, {1, 3}, {3, 3}, {1, 5}, {2, 5}, {4, 5}, {0, 20}} {
		got, err := svc.List(ctx, Page{Number: tt.page, Size: tt.size})
		if err != nil {
			t.Fatalf("List(%d, %d): %v", tt.page, tt.size, err)
		}

		start := min(tt.page*tt.size, int64(len(all)))
		end := min(start+tt.size, int64(len(all)))
		want := all[start:end]

		if len(got) != len(want) {
			t.Errorf("List(%d, %d): expected %d products, got %d", tt.page, tt.size, len(want), len(got))
			continue
		}
		for i := range want {
			if got[i].ID() != want[i].ID() {
				t.Errorf("List(%d, %d)[%d]: expected %s, got %s", tt.page, tt.size, i, want[i].ID().Hex(), got[i].ID().Hex())
			}
		}
	}
}

func TestListFirstPageWithZeroPageNumber(t *testing.T) {
	svc := newTestService(t)
	for range 4 {
		mustInsert(t, svc, model.Product{})
	}

	page, _ := ParsePage("0", "2")
	got, err := svc.List(context.Background(), page)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected first page of 2, got %d products", len(got))
	}
}

func TestHomeReturnsPrefix(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for range 9 {
		mustInsert(t, svc, model.Product{})
	}

	home, err := svc.Home(ctx)
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if len(home) != HomeLimit {
		t.Fatalf("expected %d products, got %d", HomeLimit, len(home))
	}

	all, _ := svc.List(ctx, Page{})
	for i := range home {
		if home[i].ID() != all[i].ID() {
			t.Errorf("home[%d] is not a prefix of the full listing", i)
		}
	}
}

func TestHomeWithFewProducts(t *testing.T) {
	svc := newTestService(t)
	mustInsert(t, svc, model.Product{})

	home, _ := svc.Home(context.Background())
	if len(home) != 1 {
		t.Errorf("expected 1 product, got %d", len(home))
	}
}

func TestCountAndFeatured(t *testing.T) {
	database := db.NewTestDB(t)
	st := store.NewSQLite(database)
	svc := NewService(st, 0)
	ctx := context.Background()

	mustInsert(t, svc, model.Product{})
	mustInsert(t, svc, model.Product{})
	st.InsertOne(ctx, store.CollectionFeatureProduct, model.Product{model.FieldID: primitive.NewObjectID(), "name": "Featured"})

	count, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}

	featured, err := svc.Featured(ctx)
	if err != nil {
		t.Fatalf("Featured: %v", err)
	}
	if len(featured) != 1 || featured[0]["name"] != "Featured" {
		t.Errorf("expected one featured product, got %v", featured)
	}
}

func TestMyItems(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	mine := mustInsert(t, svc, model.Product{"email": "me@example.com"})
	mustInsert(t, svc, model.Product{"email": "you@example.com"})
	mustInsert(t, svc, model.Product{})

	got, err := svc.MyItems(ctx, "me@example.com")
	if err != nil {
		t.Fatalf("MyItems: %v", err)
	}
	if len(got) != 1 || got[0].ID().Hex() != mine {
		t.Errorf("expected only %s, got %v", mine, got)
	}

	none, _ := svc.MyItems(ctx, "nobody@example.com")
	if len(none) != 0 {
		t.Errorf("expected no products, got %d", len(none))
	}
}

func TestGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustInsert(t, svc, model.Product{"name": "Scooter", "quantity": int64(3), "img": "https://example.com/a.png"})

	got, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["name"] != "Scooter" || got["img"] != "https://example.com/a.png" {
		t.Errorf("expected stored fields unchanged, got %v", got)
	}

	if _, err := svc.Get(ctx, "not-an-id"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	if _, err := svc.Get(ctx, primitive.NewObjectID().Hex()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustQuantityRestock(t *testing.T) {
	svc := newTestService(t)
	id := mustInsert(t, svc, model.Product{"quantity": int64(4)})

	k := int64(6)
	res, err := svc.AdjustQuantity(context.Background(), id, &k)
	if err != nil {
		t.Fatalf("AdjustQuantity: %v", err)
	}
	if res.ModifiedCount != 1 {
		t.Errorf("expected modifiedCount 1, got %d", res.ModifiedCount)
	}
	if q := quantity(t, svc, id); q != 10 {
		t.Errorf("expected quantity 10, got %d", q)
	}
}

func TestAdjustQuantityDecrement(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := mustInsert(t, svc, model.Product{"quantity": int64(1)})

	if _, err := svc.AdjustQuantity(ctx, id, nil); err != nil {
		t.Fatalf("AdjustQuantity: %v", err)
	}
	if q := quantity(t, svc, id); q != 0 {
		t.Errorf("expected quantity 0, got %d", q)
	}

	// Zero restock is the same as no restock.
	zero := int64(0)
	if _, err := svc.AdjustQuantity(ctx, id, &zero); err != nil {
		t.Fatalf("AdjustQuantity: %v", err)
	}
	if q := quantity(t, svc, id); q != -1 {
		t.Errorf("expected quantity -1, got %d", q)
	}
}

func TestAdjustQuantityNegativeRestock(t *testing.T) {
	svc := newTestService(t)
	id := mustInsert(t, svc, model.Product{"quantity": int64(10)})

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	k := int64(-4)
	if _, err := svc.AdjustQuantity(context.Background(), id, &k); err != nil {
		t.Fatalf("AdjustQuantity: %v", err)
	}
	if q := quantity(t, svc, id); q != 6 {
		t.Errorf("expected quantity 6, got %d", q)
	}
	if !strings.Contains(logs.String(), "product restocked") {
		t.Errorf("expected a negative restock to be logged as a restock, got %q", logs.String())
	}
}

func TestAdjustQuantityConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	legacy := primitive.NewObjectID()
	svc.Store.InsertOne(ctx, store.CollectionProduct, model.Product{model.FieldID: legacy, "quantity": "many"})
	if _, err := svc.AdjustQuantity(ctx, legacy.Hex(), nil); !errors.Is(err, ErrQuantityConflict) {
		t.Errorf("expected ErrQuantityConflict for non-numeric quantity, got %v", err)
	}

	full := mustInsert(t, svc, model.Product{"quantity": int64(math.MaxInt64)})
	k := int64(10)
	if _, err := svc.AdjustQuantity(ctx, full, &k); !errors.Is(err, ErrQuantityConflict) {
		t.Errorf("expected ErrQuantityConflict on overflow, got %v", err)
	}
	if q := quantity(t, svc, full); q != math.MaxInt64 {
		t.Errorf("expected quantity to stay at max, got %d", q)
	}
}

func TestAdjustQuantityErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AdjustQuantity(ctx, "zzz", nil); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}

	missing := primitive.NewObjectID().Hex()
	if _, err := svc.AdjustQuantity(ctx, missing, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// No document may appear for the missing id.
	if count, _ := svc.Count(ctx); count != 0 {
		t.Errorf("expected adjustment of a missing product to insert nothing, count %d", count)
	}
}

func TestConcurrentDecrementsAreNotLost(t *testing.T) {
	svc := newTestService(t)
	id := mustInsert(t, svc, model.Product{"quantity": int64(10)})

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AdjustQuantity(context.Background(), id, nil); err != nil {
				t.Errorf("AdjustQuantity: %v", err)
			}
		}()
	}
	wg.Wait()

	if q := quantity(t, svc, id); q != 8 {
		t.Errorf("expected quantity 8 after two concurrent decrements, got %d", q)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := mustInsert(t, svc, model.Product{})

	res, err := svc.Delete(ctx, id)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.DeletedCount != 1 {
		t.Errorf("expected deletedCount 1, got %d", res.DeletedCount)
	}
	if _, err := svc.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected deleted product to be gone, got %v", err)
	}

	res, err = svc.Delete(ctx, primitive.NewObjectID().Hex())
	if err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if res.DeletedCount != 0 {
		t.Errorf("expected deletedCount 0, got %d", res.DeletedCount)
	}

	if _, err := svc.Delete(ctx, "bad"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestInsertAssignsFreshIDs(t *testing.T) {
	svc := newTestService(t)
	doc := model.Product{"name": "Helmet", "quantity": "7"}

	first := mustInsert(t, svc, doc)
	second := mustInsert(t, svc, doc)
	if first == second {
		t.Error("expected distinct identifiers")
	}
	if _, ok := doc[model.FieldID]; ok {
		t.Error("expected caller's document to be left without _id")
	}

	got, _ := svc.Get(context.Background(), first)
	if got["quantity"] != "7" {
		t.Errorf("expected quantity stored as given, got %#v", got["quantity"])
	}
}

func TestInsertValidation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name string
		doc  model.Product
	}{
		{"client id", model.Product{"_id": "abc"}},
		{"bad email", model.Product{"email": "not-an-email"}},
		{"email not string", model.Product{"email": int64(3)}},
		{"fractional quantity", model.Product{"quantity": 2.5}},
		{"text quantity", model.Product{"quantity": "many"}},
	}

	for _, tt := range tests {
		if _, err := svc.Insert(context.Background(), tt.doc); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tt.name, err)
		}
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) Find(context.Context, string, store.Query) ([]model.Product, error) {
	return nil, errors.New("connection refused")
}

func TestStoreErrorsPropagate(t *testing.T) {
	svc := NewService(failingStore{}, 0)
	if _, err := svc.List(context.Background(), Page{}); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestOperationsAreTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	svc := newTestService(t)
	svc.Tracer = provider.Tracer(tracerName)
	ctx := context.Background()

	id := mustInsert(t, svc, model.Product{"quantity": int64(1)})
	svc.AdjustQuantity(ctx, id, nil)
	svc.Get(ctx, "bad")

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}

	names := []string{"inventory.insert", "inventory.adjust_quantity", "inventory.get"}
	for i, name := range names {
		if spans[i].Name() != name {
			t.Errorf("span %d: expected %q, got %q", i, name, spans[i].Name())
		}
	}
	if spans[2].Status().Code.String() != "Error" {
		t.Errorf("expected failed get to mark span as error, got %v", spans[2].Status().Code)
	}
}
