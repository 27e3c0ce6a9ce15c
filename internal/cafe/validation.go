package cafe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Prices are stored as decimal(10,2).
const priceScale = 2

// MaxPrice is the first price too large to store.
var MaxPrice = decimal.New(1, 10-priceScale)

// ErrValidation marks input that must be corrected before it is sent to the
// catalog.
var ErrValidation = errors.New("invalid coffee")

// ValidationError names the form field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validate checks the two required coffee fields. A price must fit the
// catalog column exactly: no rounding happens on the way in.
func Validate(name string, price decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	switch {
	case price.IsNegative():
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	case !price.Equal(price.Truncate(priceScale)):
		return &ValidationError{Field: "price", Reason: fmt.Sprintf("must have at most %d decimals", priceScale)}
	case price.GreaterThanOrEqual(MaxPrice):
		return &ValidationError{Field: "price", Reason: "must be less than " + MaxPrice.String()}
	}
	return nil
}

// ParsePrice reads a price typed into the form.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, &ValidationError{Field: "price", Reason: "is required"}
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "price", Reason: "must be a number"}
	}
	return price, nil
}
