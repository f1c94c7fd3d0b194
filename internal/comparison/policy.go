package comparison

import (
	"fmt"
	"math"
)

// Direction controls which side drives line-item reconciliation
type Direction string

const (
	// InvoiceDriven reports only invoice items that are missing from the PO.
	InvoiceDriven Direction = "invoice_driven"
	// Bidirectional also reports PO items that never appear on the invoice.
	Bidirectional Direction = "bidirectional"
)

const (
	DefaultDateToleranceDays     = 30
	DefaultPriceTolerancePercent = 5
)

// Policy holds the tolerances used by a Comparator
type Policy struct {
	// DateToleranceDays is the largest day gap that is not reported.
	DateToleranceDays float64
	// PriceTolerancePercent is the largest unit price deviation, relative
	// to the PO price, that is not reported.
	PriceTolerancePercent float64
	Direction             Direction
}

// DefaultPolicy returns the 30 day / 5% invoice-driven policy
func DefaultPolicy() Policy {
	return Policy{
		DateToleranceDays:     DefaultDateToleranceDays,
		PriceTolerancePercent: DefaultPriceTolerancePercent,
		Direction:             InvoiceDriven,
	}
}

// ParseDirection converts a configuration string into a Direction.
// An empty string selects InvoiceDriven.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", InvoiceDriven:
		return InvoiceDriven, nil
	case Bidirectional:
		return Bidirectional, nil
	default:
		return "", fmt.Errorf("unknown reconciliation direction %q", s)
	}
}

// Validate reports whether the policy can be used for comparisons
func (p Policy) Validate() error {
	if !isFinite(p.DateToleranceDays) {
		return fmt.Errorf("date tolerance must be a finite number: %v", p.DateToleranceDays)
	}
	if !isFinite(p.PriceTolerancePercent) {
		return fmt.Errorf("price tolerance must be a finite number: %v", p.PriceTolerancePercent)
	}
	if p.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance must not be negative: %v", p.DateToleranceDays)
	}
	if p.PriceTolerancePercent < 0 {
		return fmt.Errorf("price tolerance must not be negative: %v", p.PriceTolerancePercent)
	}
	if _, err := ParseDirection(string(p.Direction)); err != nil {
		return err
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
