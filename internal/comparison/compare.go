package comparison

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Comparator diffs an invoice against its purchase order under a Policy.
// The zero value is not useful; use NewComparator or Compare.
type Comparator struct {
	policy         Policy
	priceTolerance decimal.Decimal
}

// NewComparator creates a Comparator for the given policy
func NewComparator(policy Policy) (*Comparator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if policy.Direction == "" {
		policy.Direction = InvoiceDriven
	}
	return &Comparator{
		policy:         policy,
		priceTolerance: decimal.NewFromFloat(policy.PriceTolerancePercent),
	}, nil
}

// Policy returns the policy the Comparator was built with
func (c *Comparator) Policy() Policy {
	return c.policy
}

// Compare diffs invoice against po with DefaultPolicy
func Compare(invoice, po ExtractedData) []Mismatch {
	c, _ := NewComparator(DefaultPolicy())
	return c.Compare(invoice, po)
}

// Compare returns the mismatches between invoice and po, in check order:
// vendor, date, then each invoice line item in its original order. Neither
// input is modified. The result is never nil.
func (c *Comparator) Compare(invoice, po ExtractedData) []Mismatch {
	mismatches := make([]Mismatch, 0)

	if m, ok := c.compareVendor(invoice, po); ok {
		mismatches = append(mismatches, m)
	}
	if m, ok := c.compareDate(invoice, po); ok {
		mismatches = append(mismatches, m)
	}

	// Duplicate PO names: the later item wins.
	poItems := make(map[string]LineItem, len(po.Items))
	for _, item := range po.Items {
		poItems[item.Name] = item
	}

	for _, invoiceItem := range invoice.Items {
		poItem, ok := poItems[invoiceItem.Name]
		if !ok {
			mismatches = append(mismatches, Mismatch{
				Type:         MismatchMissingItem,
				ItemName:     invoiceItem.Name,
				InvoiceValue: invoiceItem.Quantity,
				Severity:     SeverityHigh,
			})
			continue
		}

		if invoiceItem.Quantity != poItem.Quantity {
			mismatches = append(mismatches, Mismatch{
				Type:         MismatchQuantity,
				ItemName:     invoiceItem.Name,
				InvoiceValue: invoiceItem.Quantity,
				POValue:      poItem.Quantity,
				Severity:     SeverityHigh,
			})
		}

		if m, ok := c.comparePrice(invoiceItem, poItem); ok {
			mismatches = append(mismatches, m)
		}
	}

	if c.policy.Direction == Bidirectional {
		mismatches = append(mismatches, c.unbilledItems(invoice, po, poItems)...)
	}

	return mismatches
}

func (c *Comparator) compareVendor(invoice, po ExtractedData) (Mismatch, bool) {
	if strings.ToLower(invoice.Vendor) == strings.ToLower(po.Vendor) {
		return Mismatch{}, false
	}
	return Mismatch{
		Type:         MismatchVendor,
		InvoiceValue: invoice.Vendor,
		POValue:      po.Vendor,
		Severity:     SeverityHigh,
	}, true
}

// compareDate skips the check when either date cannot be parsed
func (c *Comparator) compareDate(invoice, po ExtractedData) (Mismatch, bool) {
	invoiceDate, ok := ParseDocumentDate(invoice.Date)
	if !ok {
		return Mismatch{}, false
	}
	poDate, ok := ParseDocumentDate(po.Date)
	if !ok {
		return Mismatch{}, false
	}
	if daysBetween(invoiceDate, poDate) <= c.policy.DateToleranceDays {
		return Mismatch{}, false
	}
	return Mismatch{
		Type:         MismatchDate,
		InvoiceValue: invoice.Date,
		POValue:      po.Date,
		Severity:     SeverityMedium,
	}, true
}

// comparePrice reports a unit price deviation above the tolerance, measured
// against the PO price. A zero PO price matches only a zero invoice price.
// Prices that are NaN or infinite are never reported.
func (c *Comparator) comparePrice(invoiceItem, poItem LineItem) (Mismatch, bool) {
	if !isFinite(invoiceItem.UnitPrice) || !isFinite(poItem.UnitPrice) {
		return Mismatch{}, false
	}
	invoicePrice := decimal.NewFromFloat(invoiceItem.UnitPrice)
	poPrice := decimal.NewFromFloat(poItem.UnitPrice)
	diff := invoicePrice.Sub(poPrice).Abs()

	var exceeded bool
	if poPrice.IsZero() {
		exceeded = !diff.IsZero()
	} else {
		percent := diff.Div(poPrice).Mul(hundred)
		exceeded = percent.GreaterThan(c.priceTolerance)
	}
	if !exceeded {
		return Mismatch{}, false
	}
	return Mismatch{
		Type:         MismatchPrice,
		ItemName:     invoiceItem.Name,
		InvoiceValue: formatPrice(invoiceItem.UnitPrice),
		POValue:      formatPrice(poItem.UnitPrice),
		Severity:     SeverityMedium,
	}, true
}

// formatPrice renders the exact binary value of f with two decimals,
// rounding half away from zero
func formatPrice(f float64) string {
	return new(big.Rat).SetFloat64(f).FloatString(2)
}

// unbilledItems reports each PO item name that the invoice never mentions,
// once, in PO order
func (c *Comparator) unbilledItems(invoice, po ExtractedData, poItems map[string]LineItem) []Mismatch {
	invoiced := make(map[string]struct{}, len(invoice.Items))
	for _, item := range invoice.Items {
		invoiced[item.Name] = struct{}{}
	}

	var mismatches []Mismatch
	reported := make(map[string]struct{})
	for _, item := range po.Items {
		if _, ok := invoiced[item.Name]; ok {
			continue
		}
		if _, ok := reported[item.Name]; ok {
			continue
		}
		reported[item.Name] = struct{}{}
		mismatches = append(mismatches, Mismatch{
			Type:     MismatchMissingItem,
			ItemName: item.Name,
			POValue:  poItems[item.Name].Quantity,
			Severity: SeverityHigh,
		})
	}
	return mismatches
}
