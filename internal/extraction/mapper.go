package extraction

import (
	"github.com/srivastavaprakhar/VERIFIN-AI/internal/comparison"
)

const unknownVendor = "Unknown Vendor"

// ToExtractedData maps raw document fields onto the shape the comparator
// consumes. fallbackName is used as the document number when the document
// carries no identifier, usually the uploaded file name.
func ToExtractedData(doc *ParsedDocument, fallbackName string) comparison.ExtractedData {
	if doc == nil {
		doc = &ParsedDocument{}
	}

	vendor := string(doc.Vendor)
	if vendor == "" {
		vendor = unknownVendor
	}

	documentNumber := string(firstField(doc.InvoiceNumber, doc.PurchaseOrderID, doc.PurchaseOrderReference))
	if documentNumber == "" {
		documentNumber = fallbackName
	}

	total := doc.TotalAmount
	if !total.Set {
		total = doc.TotalValue
	}

	items := make([]comparison.LineItem, 0, len(doc.LineItems))
	for _, item := range doc.LineItems {
		items = append(items, comparison.LineItem{
			Name:      string(item.Name),
			Quantity:  item.Quantity.Value,
			UnitPrice: item.UnitPrice.Value,
			Total:     item.Quantity.Value * item.UnitPrice.Value,
		})
	}

	return comparison.ExtractedData{
		Vendor:         vendor,
		DocumentNumber: documentNumber,
		Date:           string(firstField(doc.InvoiceDate, doc.OrderDate)),
		Items:          items,
		Total:          total.Value,
	}
}

func firstField(fields ...Field) Field {
	for _, f := range fields {
		if f != "" {
			return f
		}
	}
	return ""
}
