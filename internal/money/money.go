// Package money implements fixed-point decimal arithmetic for billing
// amounts. Amounts travel as strings end to end so no float error can leak
// into the warehouse; every value returned here is quantized to two
// fractional digits with half-up rounding.
package money

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Scale is the fixed-point scale of all warehouse amount columns.
const Scale = 2

var ErrInvalidAmount = errors.New("invalid_amount")

func baseContext() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}

func parse(s string) (*apd.Decimal, error) {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return &d, nil
}

// Canonical returns s quantized to the warehouse scale, e.g. "100" -> "100.00".
func Canonical(s string) (string, error) {
	d, err := parse(s)
	if err != nil {
		return "", err
	}
	var out apd.Decimal
	if _, err := baseContext().Quantize(&out, d, -Scale); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return out.Text('f'), nil
}

// PerMonth divides a billed amount by the number of months it covers,
// rounding half-up at the warehouse scale. months must be positive.
func PerMonth(amount string, months int64) (string, error) {
	if months <= 0 {
		return "", fmt.Errorf("%w: %d months", ErrInvalidAmount, months)
	}
	d, err := parse(amount)
	if err != nil {
		return "", err
	}

	ctx := baseContext()
	var divisor, quotient, out apd.Decimal
	divisor.SetInt64(months)
	if _, err := ctx.Quo(&quotient, d, &divisor); err != nil {
		return "", fmt.Errorf("%w: %q / %d", ErrInvalidAmount, amount, months)
	}
	if _, err := ctx.Quantize(&out, &quotient, -Scale); err != nil {
		return "", fmt.Errorf("%w: %q / %d", ErrInvalidAmount, amount, months)
	}
	return out.Text('f'), nil
}
