package verification

import (
	"time"

	"github.com/srivastavaprakhar/VERIFIN-AI/internal/comparison"
)

// Status tracks a document pair through the verification workflow
type Status string

const (
	StatusPending   Status = "pending"
	StatusExtracted Status = "extracted"
	StatusCompared  Status = "compared"
	StatusVerified  Status = "verified"
)

// StoredFile describes an uploaded document kept in Storage
type StoredFile struct {
	Name        string `json:"name"` // Original upload name
	Path        string `json:"path"` // Storage path
	ContentType string `json:"content_type"`
}

// DocumentPair is an invoice together with the purchase order it is checked against
type DocumentPair struct {
	ID          string                    `json:"id"`
	InvoiceFile *StoredFile               `json:"invoice_file,omitempty"`
	POFile      *StoredFile               `json:"po_file,omitempty"`
	InvoiceData *comparison.ExtractedData `json:"invoice_data"` // nil when extraction failed
	POData      *comparison.ExtractedData `json:"po_data"`
	Mismatches  []comparison.Mismatch     `json:"mismatches"`
	Status      Status                    `json:"status"`
	UploadedAt  time.Time                 `json:"uploaded_at"`
	LastUpdated time.Time                 `json:"last_updated"`
}

// Upload is a document file received from a client
type Upload struct {
	Filename    string
	Data        []byte
	ContentType string
}
