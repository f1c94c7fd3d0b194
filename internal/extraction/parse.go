package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseDocumentJSON parses a model response into a ParsedDocument
func parseDocumentJSON(text string) (*ParsedDocument, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Models sometimes wrap the object in prose; keep first { to last }.
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	raw := []byte(text[startIdx : endIdx+1])

	if err := validateDocumentJSON(raw); err != nil {
		return nil, err
	}

	var doc ParsedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	items := doc.LineItems[:0]
	for _, item := range doc.LineItems {
		if item.Name == "" {
			continue
		}
		items = append(items, item)
	}
	doc.LineItems = items

	return &doc, nil
}
