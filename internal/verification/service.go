package verification

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/srivastavaprakhar/VERIFIN-AI/internal/comparison"
	"github.com/srivastavaprakhar/VERIFIN-AI/internal/extraction"
)

// IDGenerator generates unique IDs for document pairs
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now().UTC()
}

// Service handles document pair operations
type Service struct {
	db          DB
	extractor   extraction.Extractor
	storage     Storage
	comparator  *comparison.Comparator
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, extractor extraction.Extractor, storage Storage, comparator *comparison.Comparator) *Service {
	return NewServiceWithDeps(db, extractor, storage, comparator, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extraction.Extractor, storage Storage, comparator *comparison.Comparator, idGen IDGenerator, timeSrc TimeSource) *Service {
	if comparator == nil {
		comparator, _ = comparison.NewComparator(comparison.DefaultPolicy())
	}
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		comparator:  comparator,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates long names
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "document"
	}
	if unsafeFilenameChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	return base + ext
}

// ingest stores an upload and extracts its fields. Extraction failures are
// logged and yield nil data so the pair can still be saved.
func (s *Service) ingest(pairID string, kind extraction.DocumentKind, upload Upload) (*StoredFile, *comparison.ExtractedData, error) {
	storedName := fmt.Sprintf("%s_%s_%s", pairID, kind, sanitizeFilename(upload.Filename))
	path, err := s.storage.Save(storedName, upload.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("saving %s file: %w", kind, err)
	}
	file := &StoredFile{Name: upload.Filename, Path: path, ContentType: upload.ContentType}

	doc, err := s.extractor.Extract(upload.Data, upload.ContentType, kind)
	if err != nil {
		slog.Error("Failed to extract document",
			"pair_id", pairID,
			"kind", kind,
			"filename", upload.Filename,
			"content_type", upload.ContentType,
			"file_size", len(upload.Data),
			"error", err,
		)
		return file, nil, nil
	}

	data := extraction.ToExtractedData(doc, upload.Filename)
	slog.Info("Extracted document",
		"pair_id", pairID,
		"kind", kind,
		"vendor", data.Vendor,
		"document_number", data.DocumentNumber,
		"line_items", len(data.Items),
	)
	return file, &data, nil
}

func (s *Service) deleteFile(file *StoredFile) {
	if file == nil {
		return
	}
	if err := s.storage.Delete(file.Path); err != nil {
		slog.Warn("Failed to delete file", "path", file.Path, "error", err)
	}
}

// CreatePair stores and extracts an invoice and, optionally, its purchase order
func (s *Service) CreatePair(invoice Upload, po *Upload) (*DocumentPair, error) {
	if len(invoice.Data) == 0 {
		return nil, fmt.Errorf("%w: invoice file is empty", ErrInvalidInput)
	}
	if po != nil && len(po.Data) == 0 {
		return nil, fmt.Errorf("%w: purchase order file is empty", ErrInvalidInput)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	pair := &DocumentPair{
		ID:          id,
		Mismatches:  []comparison.Mismatch{},
		Status:      StatusPending,
		UploadedAt:  now,
		LastUpdated: now,
	}

	invoiceFile, invoiceData, err := s.ingest(id, extraction.KindInvoice, invoice)
	if err != nil {
		return nil, err
	}
	pair.InvoiceFile = invoiceFile
	pair.InvoiceData = invoiceData

	if po != nil {
		poFile, poData, err := s.ingest(id, extraction.KindPurchaseOrder, *po)
		if err != nil {
			s.deleteFile(invoiceFile)
			return nil, err
		}
		pair.POFile = poFile
		pair.POData = poData
	}

	pair.Status = StatusExtracted

	if err := s.db.SavePair(pair); err != nil {
		s.deleteFile(pair.InvoiceFile)
		s.deleteFile(pair.POFile)
		return nil, fmt.Errorf("saving pair to database: %w", err)
	}

	return pair, nil
}

// AttachPurchaseOrder replaces the purchase order of an existing pair and
// discards any previous comparison result
func (s *Service) AttachPurchaseOrder(id string, po Upload) (*DocumentPair, error) {
	if len(po.Data) == 0 {
		return nil, fmt.Errorf("%w: purchase order file is empty", ErrInvalidInput)
	}
	pair, err := s.db.GetPair(id)
	if err != nil {
		return nil, fmt.Errorf("getting pair: %w", err)
	}

	poFile, poData, err := s.ingest(id, extraction.KindPurchaseOrder, po)
	if err != nil {
		return nil, err
	}

	previous := pair.POFile
	pair.POFile = poFile
	pair.POData = poData
	pair.Mismatches = []comparison.Mismatch{}
	pair.Status = StatusExtracted
	pair.LastUpdated = s.timeSource.Now()

	if err := s.db.SavePair(pair); err != nil {
		// The stored record still points at a file that was overwritten in place
		if previous == nil || previous.Path != poFile.Path {
			s.deleteFile(poFile)
		}
		return nil, fmt.Errorf("saving pair to database: %w", err)
	}
	if previous != nil && previous.Path != poFile.Path {
		s.deleteFile(previous)
	}

	return pair, nil
}

// ComparePair runs the comparator over a pair's extracted records
func (s *Service) ComparePair(id string) (*DocumentPair, error) {
	pair, err := s.db.GetPair(id)
	if err != nil {
		return nil, fmt.Errorf("getting pair: %w", err)
	}
	if pair.InvoiceData == nil || pair.POData == nil {
		return nil, fmt.Errorf("%w: %s", ErrIncomplete, id)
	}

	pair.Mismatches = s.comparator.Compare(*pair.InvoiceData, *pair.POData)
	pair.Status = StatusCompared
	pair.LastUpdated = s.timeSource.Now()

	if err := s.db.SavePair(pair); err != nil {
		return nil, fmt.Errorf("saving pair to database: %w", err)
	}

	slog.Info("Compared document pair",
		"pair_id", id,
		"mismatches", len(pair.Mismatches),
		"highest_severity", comparison.HighestSeverity(pair.Mismatches),
	)
	return pair, nil
}

// VerifyPair marks a compared pair as reviewed
func (s *Service) VerifyPair(id string) (*DocumentPair, error) {
	pair, err := s.db.GetPair(id)
	if err != nil {
		return nil, fmt.Errorf("getting pair: %w", err)
	}
	if pair.Status != StatusCompared && pair.Status != StatusVerified {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotCompared, id, pair.Status)
	}

	pair.Status = StatusVerified
	pair.LastUpdated = s.timeSource.Now()
	if err := s.db.SavePair(pair); err != nil {
		return nil, fmt.Errorf("saving pair to database: %w", err)
	}
	return pair, nil
}

// CompareRecords diffs two records without storing anything. An empty
// direction uses the service's configured policy.
func (s *Service) CompareRecords(invoice, po comparison.ExtractedData, direction comparison.Direction) ([]comparison.Mismatch, error) {
	if direction == "" || direction == s.comparator.Policy().Direction {
		return s.comparator.Compare(invoice, po), nil
	}
	policy := s.comparator.Policy()
	policy.Direction = direction
	c, err := comparison.NewComparator(policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return c.Compare(invoice, po), nil
}

// GetPair retrieves a pair by ID
func (s *Service) GetPair(id string) (*DocumentPair, error) {
	pair, err := s.db.GetPair(id)
	if err != nil {
		return nil, fmt.Errorf("getting pair: %w", err)
	}
	return pair, nil
}

// ListPairs returns all pairs, oldest upload first
func (s *Service) ListPairs() ([]*DocumentPair, error) {
	pairs, err := s.db.ListPairs()
	if err != nil {
		return nil, fmt.Errorf("listing pairs: %w", err)
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].UploadedAt.Equal(pairs[j].UploadedAt) {
			return pairs[i].ID < pairs[j].ID
		}
		return pairs[i].UploadedAt.Before(pairs[j].UploadedAt)
	})
	return pairs, nil
}

// DeletePair removes a pair and its files
func (s *Service) DeletePair(id string) error {
	pair, err := s.db.GetPair(id)
	if err != nil {
		return fmt.Errorf("getting pair for deletion: %w", err)
	}

	// File cleanup is best effort
	s.deleteFile(pair.InvoiceFile)
	s.deleteFile(pair.POFile)

	if err := s.db.DeletePair(id); err != nil {
		return fmt.Errorf("deleting pair from database: %w", err)
	}
	return nil
}

// GetPairFile returns the stored document of the given kind for a pair
func (s *Service) GetPairFile(id string, kind extraction.DocumentKind) ([]byte, *StoredFile, error) {
	pair, err := s.db.GetPair(id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting pair: %w", err)
	}

	file := pair.InvoiceFile
	if kind == extraction.KindPurchaseOrder {
		file = pair.POFile
	}
	if file == nil {
		return nil, nil, fmt.Errorf("%w: no %s file for %s", ErrNotFound, kind, id)
	}

	data, err := s.storage.Get(file.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("getting %s file: %w", kind, err)
	}
	return data, file, nil
}
