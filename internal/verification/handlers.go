package verification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/srivastavaprakhar/VERIFIN-AI/internal/comparison"
	"github.com/srivastavaprakhar/VERIFIN-AI/internal/extraction"
)

// maxUploadSize bounds the multipart form, large enough for scanned multi-page PDFs
const maxUploadSize = int64(50 << 20)

// maxCompareBodySize bounds the JSON body of a stateless comparison
const maxCompareBodySize = int64(1 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps service errors onto HTTP status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrIncomplete), errors.Is(err, ErrNotCompared):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// detectContentType falls back to the file extension, then to sniffing
func detectContentType(header *multipart.FileHeader, data []byte) string {
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return http.DetectContentType(data)
}

// readUpload reads a single file field from a parsed multipart form.
// A missing optional field returns nil without error.
func readUpload(r *http.Request, field string, required bool) (*Upload, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return nil, fmt.Errorf("%w: no %s file was provided", ErrInvalidInput, field)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidInput, field, err)
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		return nil, fmt.Errorf("%w: %s is too large, maximum size is 50MB", ErrInvalidInput, field)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s file data: %w", field, err)
	}

	return &Upload{
		Filename:    header.Filename,
		Data:        data,
		ContentType: detectContentType(header, data),
	}, nil
}

func parseUploadForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: upload is too large, maximum size is 50MB", ErrInvalidInput)
		}
		return fmt.Errorf("%w: error parsing form", ErrInvalidInput)
	}
	return nil
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

type compareRequest struct {
	Invoice       *comparison.ExtractedData `json:"invoice"`
	PurchaseOrder *comparison.ExtractedData `json:"purchase_order"`
}

// handleCompare diffs two records supplied in the request body
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCompareBodySize)
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Invoice == nil || req.PurchaseOrder == nil {
		writeJSONError(w, http.StatusBadRequest, "invoice and purchase_order are both required")
		return
	}

	var direction comparison.Direction
	if raw := r.URL.Query().Get("direction"); raw != "" {
		d, err := comparison.ParseDirection(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		direction = d
	}

	mismatches, err := s.service.CompareRecords(*req.Invoice, *req.PurchaseOrder, direction)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mismatches": mismatches})
}

// handleCreatePair uploads an invoice and an optional purchase order
func (s *Server) handleCreatePair(w http.ResponseWriter, r *http.Request) {
	if err := parseUploadForm(w, r); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeServiceError(w, err)
		return
	}

	invoice, err := readUpload(r, string(extraction.KindInvoice), true)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	po, err := readUpload(r, string(extraction.KindPurchaseOrder), false)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pair, err := s.service.CreatePair(*invoice, po)
	if err != nil {
		slog.Error("Error creating pair", "filename", invoice.Filename, "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

// handleAttachPurchaseOrder uploads a purchase order for an existing pair
func (s *Server) handleAttachPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	if err := parseUploadForm(w, r); err != nil {
		writeServiceError(w, err)
		return
	}
	po, err := readUpload(r, string(extraction.KindPurchaseOrder), true)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pair, err := s.service.AttachPurchaseOrder(r.PathValue("id"), *po)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// handleComparePair runs the comparison for a stored pair
func (s *Server) handleComparePair(w http.ResponseWriter, r *http.Request) {
	pair, err := s.service.ComparePair(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// handleVerifyPair marks a pair as verified
func (s *Server) handleVerifyPair(w http.ResponseWriter, r *http.Request) {
	pair, err := s.service.VerifyPair(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// handleGetPair returns a single pair
func (s *Server) handleGetPair(w http.ResponseWriter, r *http.Request) {
	pair, err := s.service.GetPair(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// handleListPairs returns all pairs
func (s *Server) handleListPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.service.ListPairs()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pairs)
}

// handleDeletePair deletes a pair and its files
func (s *Server) handleDeletePair(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePair(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetPairFile returns the stored invoice or purchase order document
func (s *Server) handleGetPairFile(w http.ResponseWriter, r *http.Request) {
	kind, err := extraction.ParseDocumentKind(r.PathValue("kind"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, file, err := s.service.GetPairFile(r.PathValue("id"), kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.Name))
	w.Write(data)
}

// handleAnalytics returns dashboard counters
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.service.Analytics()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// handleExportCSV downloads all pairs as CSV
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportCSV(&buf); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename(s.service.timeSource.Now(), "csv")))
	w.Write(buf.Bytes())
}

// handleExportXLSX downloads all pairs as an Excel workbook
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportXLSX()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename(s.service.timeSource.Now(), "xlsx")))
	w.Write(data)
}
