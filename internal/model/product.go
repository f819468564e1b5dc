package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a schema-flexible product document. Only the fields named below
// carry meaning for the service; everything else passes through unchanged.
type Product map[string]any

// Well-known product fields.
const (
	FieldID       = "_id"
	FieldQuantity = "quantity"
	FieldEmail    = "email"
)

// ID returns the store-assigned identifier, or the zero ObjectID if unset.
func (p Product) ID() primitive.ObjectID {
	id, _ := p[FieldID].(primitive.ObjectID)
	return id
}

// Email returns the owner email, or "" if the field is absent or not a string.
func (p Product) Email() string {
	email, _ := p[FieldEmail].(string)
	return email
}

// Quantity returns the stock count as an integer. Legacy documents may store it
// as a numeric string, which is accepted as well.
func (p Product) Quantity() (int64, bool) {
	return toInt64(p[FieldQuantity])
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// DecodeProduct decodes a single JSON object into a Product. Integral numbers
// become int64 and the rest float64, so documents round-trip through both
// store backends without turning counts into floats.
func DecodeProduct(r io.Reader) (Product, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding product: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decoding product: expected a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("decoding product: unexpected data after object")
	}

	if err := normalize(raw); err != nil {
		return nil, fmt.Errorf("decoding product: %w", err)
	}
	return Product(raw), nil
}

// UnmarshalProduct is DecodeProduct for an in-memory JSON body.
func UnmarshalProduct(data []byte) (Product, error) {
	return DecodeProduct(bytes.NewReader(data))
}

// normalize replaces json.Number values in place. Numbers that do not fit a
// float64 are rejected.
func normalize(v any) error {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			n, err := number(val)
			if err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
			t[k] = n
		}
	case []any:
		for i, val := range t {
			n, err := number(val)
			if err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
			t[i] = n
		}
	}
	return nil
}

func number(v any) (any, error) {
	num, ok := v.(json.Number)
	if !ok {
		return v, normalize(v)
	}
	if i, err := num.Int64(); err == nil {
		return i, nil
	}
	f, err := num.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("number %s out of range", num)
	}
	return f, nil
}
