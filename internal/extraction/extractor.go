package extraction

import "fmt"

// DocumentKind identifies which side of a verification a document belongs to
type DocumentKind string

const (
	KindInvoice       DocumentKind = "invoice"
	KindPurchaseOrder DocumentKind = "purchase_order"
)

// ParseDocumentKind converts a string such as a URL segment into a DocumentKind
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch DocumentKind(s) {
	case KindInvoice, KindPurchaseOrder:
		return DocumentKind(s), nil
	default:
		return "", fmt.Errorf("unknown document kind %q", s)
	}
}

// ParsedLineItem is a line item as returned by the extraction model
type ParsedLineItem struct {
	Name      Field  `json:"name"`
	Quantity  Amount `json:"quantity"`
	UnitPrice Amount `json:"unit_price"`
}

// ParsedDocument holds the raw fields extracted from an invoice or purchase order.
// Invoices use InvoiceNumber/InvoiceDate/TotalAmount, purchase orders use
// PurchaseOrderID/OrderDate/TotalValue.
type ParsedDocument struct {
	InvoiceNumber          Field            `json:"invoice_number"`
	PurchaseOrderID        Field            `json:"purchase_order_id"`
	PurchaseOrderReference Field            `json:"purchase_order_reference"`
	Vendor                 Field            `json:"vendor"`
	InvoiceDate            Field            `json:"invoice_date"`
	OrderDate              Field            `json:"order_date"`
	TotalAmount            Amount           `json:"total_amount"`
	TotalValue             Amount           `json:"total_value"`
	LineItems              []ParsedLineItem `json:"line_items"`
}

// Extractor defines the interface for document field extraction
type Extractor interface {
	// Extract analyzes a document image/PDF and returns its fields
	Extract(data []byte, contentType string, kind DocumentKind) (*ParsedDocument, error)
	// Close closes the extractor and releases resources
	Close() error
}
