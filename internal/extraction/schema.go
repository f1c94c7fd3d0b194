package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "invoice_number": {"type": ["string", "number", "null"]},
    "purchase_order_id": {"type": ["string", "number", "null"]},
    "purchase_order_reference": {"type": ["string", "number", "null"]},
    "vendor": {"type": ["string", "null"]},
    "invoice_date": {"type": ["string", "null"]},
    "order_date": {"type": ["string", "null"]},
    "total_amount": {"type": ["number", "string", "null"]},
    "total_value": {"type": ["number", "string", "null"]},
    "line_items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": ["string", "number"]},
          "quantity": {"type": ["number", "string", "null"]},
          "unit_price": {"type": ["number", "string", "null"]}
        },
        "required": ["name"]
      }
    }
  }
}`

var documentSchema = jsonschema.MustCompileString("document.json", documentSchemaJSON)

// validateDocumentJSON checks a model response against the document schema
func validateDocumentJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := documentSchema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
