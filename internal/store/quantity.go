package store

import (
	"errors"
	"fmt"
	"math"

	"github.com/erazemk/bdmotors/internal/model"
)

var (
	// ErrQuantityNotInteger is returned when the stored quantity cannot be
	// read as an integer.
	ErrQuantityNotInteger = errors.New("stored quantity is not an integer")
	// ErrQuantityOverflow is returned when the adjusted quantity does not fit
	// in an int64.
	ErrQuantityOverflow = errors.New("adjusted quantity out of range")
)

// nextQuantity returns the quantity doc holds after adding delta. A missing
// or null quantity counts as zero.
func nextQuantity(doc model.Product, delta int64) (int64, error) {
	var current int64
	if v := doc[model.FieldQuantity]; v != nil {
		q, ok := doc.Quantity()
		if !ok {
			return 0, fmt.Errorf("%w: %v", ErrQuantityNotInteger, v)
		}
		current = q
	}

	if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
		return 0, fmt.Errorf("%w: %d%+d", ErrQuantityOverflow, current, delta)
	}
	return current + delta, nil
}
