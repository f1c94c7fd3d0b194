package comparison

// LineItem is a single product or service entry on an invoice or purchase order
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"` // Quantity * UnitPrice, not validated
}

// ExtractedData is the normalized shape of a parsed financial document
type ExtractedData struct {
	Vendor         string     `json:"vendor"`
	DocumentNumber string     `json:"document_number"`
	Date           string     `json:"date"`
	Items          []LineItem `json:"items"`
	Total          float64    `json:"total"`
}

// MismatchType identifies which check produced a Mismatch
type MismatchType string

const (
	MismatchVendor      MismatchType = "vendor"
	MismatchDate        MismatchType = "date"
	MismatchQuantity    MismatchType = "quantity"
	MismatchPrice       MismatchType = "price"
	MismatchMissingItem MismatchType = "missing_item"
)

// Severity ranks the impact of a Mismatch
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Mismatch is a single discrepancy between an invoice and its purchase order.
// InvoiceValue and POValue hold a string or a float64 depending on Type and
// are nil when the side has no value.
type Mismatch struct {
	Type         MismatchType `json:"type"`
	ItemName     string       `json:"item_name,omitempty"`
	InvoiceValue any          `json:"invoice_value,omitempty"`
	POValue      any          `json:"po_value,omitempty"`
	Severity     Severity     `json:"severity"`
}
