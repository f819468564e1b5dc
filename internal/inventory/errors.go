package inventory

import "errors"

var (
	// ErrInvalidID is returned for identifiers that are not 24-digit hex ObjectIDs.
	ErrInvalidID = errors.New("invalid product id")
	// ErrNotFound is returned when no product has the requested identifier.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidInput wraps query parameter and request body validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQuantityConflict is returned when the stored quantity cannot take the
	// requested adjustment.
	ErrQuantityConflict = errors.New("quantity cannot be adjusted")
)
