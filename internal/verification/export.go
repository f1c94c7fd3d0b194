package verification

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/srivastavaprakhar/VERIFIN-AI/internal/comparison"
)

const exportSheet = "Verifications"

var exportHeaders = []string{
	"Vendor",
	"Invoice #",
	"PO #",
	"Invoice Date",
	"PO Date",
	"Invoice Total",
	"PO Total",
	"Mismatch Count",
	"Status",
	"Uploaded At",
}

// ExportFilename returns the download name for an export made at t
func ExportFilename(t time.Time, ext string) string {
	return fmt.Sprintf("verifin-verification-%s.%s", t.Format("2006-01-02"), ext)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatTotal(data *comparison.ExtractedData) string {
	if data == nil {
		return "0"
	}
	return strconv.FormatFloat(data.Total, 'f', 2, 64)
}

// exportRow renders one pair as export cells
func exportRow(pair *DocumentPair) []string {
	var invoice, po comparison.ExtractedData
	if pair.InvoiceData != nil {
		invoice = *pair.InvoiceData
	}
	if pair.POData != nil {
		po = *pair.POData
	}

	status := "Matched"
	if len(pair.Mismatches) > 0 {
		status = "Mismatched"
	}

	return []string{
		orNA(invoice.Vendor),
		orNA(invoice.DocumentNumber),
		orNA(po.DocumentNumber),
		orNA(invoice.Date),
		orNA(po.Date),
		formatTotal(pair.InvoiceData),
		formatTotal(pair.POData),
		strconv.Itoa(len(pair.Mismatches)),
		status,
		pair.UploadedAt.UTC().Format(time.RFC3339),
	}
}

// ExportCSV writes every pair as a CSV row, oldest first
func (s *Service) ExportCSV(w io.Writer) error {
	pairs, err := s.ListPairs()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, pair := range pairs {
		if err := cw.Write(exportRow(pair)); err != nil {
			return fmt.Errorf("writing csv row %s: %w", pair.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// ExportXLSX returns an XLSX workbook with the same columns as ExportCSV
func (s *Service) ExportXLSX() ([]byte, error) {
	pairs, err := s.ListPairs()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	write := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(exportSheet, cell, v)
	}

	for i, h := range exportHeaders {
		if err := write(i+1, 1, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for r, pair := range pairs {
		row := r + 2
		for c, v := range exportRow(pair) {
			var cell any = v
			// Keep the count numeric so spreadsheets can sum it
			if exportHeaders[c] == "Mismatch Count" {
				cell = len(pair.Mismatches)
			}
			if err := write(c+1, row, cell); err != nil {
				return nil, fmt.Errorf("writing row %s: %w", pair.ID, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
