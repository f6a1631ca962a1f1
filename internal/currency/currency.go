package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// rawExponent is the number of raw units in one Nano (1 Nano = 10^30 raw).
const rawExponent = 30

// ToRaw converts a display-unit amount ("5", "0.001") to the wallet's
// base-unit integer string. Conversion is exact: amounts that do not fit in
// whole raw units, non-numeric input, and non-positive amounts are rejected.
func ToRaw(amount string) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	if !d.IsPositive() {
		return "", fmt.Errorf("amount must be positive, got %q", amount)
	}

	raw := d.Shift(rawExponent)
	if !raw.IsInteger() {
		return "", fmt.Errorf("amount %q is below one raw unit", amount)
	}

	return raw.String(), nil
}

// FromRaw converts a base-unit integer string back to display units.
func FromRaw(raw string) (string, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", fmt.Errorf("invalid raw amount %q: %w", raw, err)
	}

	if !d.IsInteger() {
		return "", fmt.Errorf("raw amount %q is not an integer", raw)
	}

	return d.Shift(-rawExponent).String(), nil
}
