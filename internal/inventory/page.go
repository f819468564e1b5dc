package inventory

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// HomeLimit is the number of products shown on the home page.
const HomeLimit = 6

// Page selects a slice of the product listing. Pagination applies only when
// Size is positive; Number is zero-based and defaults to the first page.
type Page struct {
	Number int64
	Size   int64
}

// Paginated reports whether the listing should be cut into a page.
func (p Page) Paginated() bool {
	return p.Size > 0
}

// Skip returns how many products precede the page.
func (p Page) Skip() int64 {
	return p.Number * p.Size
}

// ParsePage parses the selectedPage and pageLoadSize query parameters. Empty
// values are treated as absent, so "selectedPage=0&pageLoadSize=5" is the
// first page of five and a missing pageLoadSize lists everything.
func ParsePage(selectedPage, pageLoadSize string) (Page, error) {
	number, err := parseCount("selectedPage", selectedPage)
	if err != nil {
		return Page{}, err
	}
	size, err := parseCount("pageLoadSize", pageLoadSize)
	if err != nil {
		return Page{}, err
	}
	if size > 0 && number > math.MaxInt64/size {
		return Page{}, fmt.Errorf("%w: selectedPage out of range", ErrInvalidInput)
	}
	return Page{Number: number, Size: size}, nil
}

// ParseRestock parses the optional restockQuantity query parameter.
func ParseRestock(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: restockQuantity must be an integer", ErrInvalidInput)
	}
	return &n, nil
}

func parseCount(name, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidInput, name)
	}
	return n, nil
}
