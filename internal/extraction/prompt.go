package extraction

import "fmt"

const documentPromptTemplate = `You are a financial document parser for invoices and purchase orders. The attached image is %s.
Read all text carefully and extract structured fields. Return valid JSON only, with no explanation and no markdown code blocks.

Field equivalences:
- "invoice_number" and "purchase_order_id" or "purchase_order_reference" are document identifiers that may cross-reference each other.
- Dates may be written in any format; convert them to YYYY-MM-DD.

%s

Every document may also contain "line_items": an array of objects with
"name" (string, exactly as printed), "quantity" (number) and "unit_price" (number, no currency symbol).

If a field is missing, set it to null.`

const invoiceFields = `Expected keys for an invoice:
invoice_number, vendor, purchase_order_reference, total_amount, invoice_date, line_items`

const purchaseOrderFields = `Expected keys for a purchase order:
purchase_order_id, vendor, total_value, order_date, line_items`

// documentPrompt returns the shared prompt used by all model providers
func documentPrompt(kind DocumentKind) string {
	if kind == KindPurchaseOrder {
		return fmt.Sprintf(documentPromptTemplate, "a purchase order", purchaseOrderFields)
	}
	return fmt.Sprintf(documentPromptTemplate, "an invoice", invoiceFields)
}
