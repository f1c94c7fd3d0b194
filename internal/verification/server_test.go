package verification

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/srivastavaprakhar/VERIFIN-AI/internal/comparison"
)

// multipartBody builds a form with one file per field
func multipartBody(files map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, filename := range files {
		part, err := writer.CreateFormFile(field, filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("%PDF-" + field))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		clock       *mockTimeSource
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		clock = &mockTimeSource{now: time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)}
		service = NewServiceWithDeps(db, newMockExtractor(), storage, nil, &mockIDGenerator{ids: []string{"pair-1"}}, clock)
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleIndex", func() {
		It("should return the HTML interface", func() {
			resp := do("GET", "/", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("Verifin"))
		})

		It("should reject other methods", func() {
			resp := do("POST", "/", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp := do("OPTIONS", "/api/pairs", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("DELETE"))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			setupServer()
		})

		It("should reject requests without credentials", func() {
			resp := do("GET", "/api/pairs", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(Equal(`Basic realm="Verifin"`))
		})

		It("should reject wrong credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/pairs", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "wrong")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/pairs", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "secret")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("handleCompare", func() {
		const records = `{
			"invoice": {"vendor": "Acme", "date": "2024-01-15", "items": [{"name": "Widget", "quantity": 5, "unit_price": 10}]},
			"purchase_order": {"vendor": "ACME", "date": "2024-01-10", "items": [
				{"name": "Widget", "quantity": 5, "unit_price": 10},
				{"name": "Gadget", "quantity": 2, "unit_price": 3}
			]}
		}`

		It("should return an empty mismatch list for agreeing records", func() {
			resp := do("POST", "/api/compare", strings.NewReader(records), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result struct {
				Mismatches []comparison.Mismatch `json:"mismatches"`
			}
			decode(resp, &result)
			Expect(result.Mismatches).NotTo(BeNil())
			Expect(result.Mismatches).To(BeEmpty())
		})

		It("should report unbilled items when bidirectional", func() {
			resp := do("POST", "/api/compare?direction=bidirectional", strings.NewReader(records), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result map[string][]map[string]any
			decode(resp, &result)
			Expect(result["mismatches"]).To(HaveLen(1))
			Expect(result["mismatches"][0]).To(HaveKeyWithValue("type", "missing_item"))
			Expect(result["mismatches"][0]).To(HaveKeyWithValue("item_name", "Gadget"))
			Expect(result["mismatches"][0]).To(HaveKeyWithValue("po_value", 2.0))
			Expect(result["mismatches"][0]).NotTo(HaveKey("invoice_value"))
		})

		It("should reject an unknown direction", func() {
			resp := do("POST", "/api/compare?direction=sideways", strings.NewReader(records), "application/json")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should reject malformed JSON", func() {
			resp := do("POST", "/api/compare", strings.NewReader("{"), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var result map[string]string
			decode(resp, &result)
			Expect(result["error"]).To(Equal("Invalid request body"))
		})

		It("should reject oversized bodies", func() {
			body := `{"invoice": {"vendor": "` + strings.Repeat("a", int(maxCompareBodySize)) + `"}, "purchase_order": {}}`
			resp := do("POST", "/api/compare", strings.NewReader(body), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var result map[string]string
			decode(resp, &result)
			Expect(result["error"]).To(Equal("Invalid request body"))
		})

		It("should require both records", func() {
			resp := do("POST", "/api/compare", strings.NewReader(`{"invoice": {}}`), "application/json")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleCreatePair", func() {
		It("should create a pair from uploaded documents", func() {
			body, contentType := multipartBody(map[string]string{
				"invoice":        "invoice.pdf",
				"purchase_order": "po.pdf",
			})
			resp := do("POST", "/api/pairs", body, contentType)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var pair DocumentPair
			decode(resp, &pair)
			Expect(pair.ID).To(Equal("pair-1"))
			Expect(pair.Status).To(Equal(StatusExtracted))
			Expect(pair.InvoiceFile.ContentType).To(Equal("application/pdf"))
			Expect(pair.POData.DocumentNumber).To(Equal("PO-1"))
		})

		It("should require an invoice", func() {
			body, contentType := multipartBody(map[string]string{"purchase_order": "po.pdf"})
			resp := do("POST", "/api/pairs", body, contentType)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var result map[string]string
			decode(resp, &result)
			Expect(result["error"]).To(ContainSubstring("no invoice file was provided"))
		})

		It("should reject requests that are not multipart", func() {
			resp := do("POST", "/api/pairs", strings.NewReader("plain"), "text/plain")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("pair routes", func() {
		BeforeEach(func() {
			_, err := service.CreatePair(Upload{Filename: "invoice.pdf", Data: []byte("%PDF-invoice"), ContentType: "application/pdf"}, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return a stored pair", func() {
			resp := do("GET", "/api/pairs/pair-1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var pair DocumentPair
			decode(resp, &pair)
			Expect(pair.InvoiceData.DocumentNumber).To(Equal("INV-1"))
		})

		It("should return 404 for an unknown pair", func() {
			resp := do("GET", "/api/pairs/missing", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should list pairs", func() {
			resp := do("GET", "/api/pairs", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var pairs []DocumentPair
			decode(resp, &pairs)
			Expect(pairs).To(HaveLen(1))
		})

		It("should return 409 when comparing without a purchase order", func() {
			resp := do("POST", "/api/pairs/pair-1/compare", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("should return 409 when verifying before comparing", func() {
			resp := do("POST", "/api/pairs/pair-1/verify", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("should attach a purchase order and compare", func() {
			ghttpServer.AppendHandlers(server.ServeHTTP)

			body, contentType := multipartBody(map[string]string{"purchase_order": "po.pdf"})
			resp := do("POST", "/api/pairs/pair-1/purchase-order", body, contentType)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp = do("POST", "/api/pairs/pair-1/compare", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var pair DocumentPair
			decode(resp, &pair)
			Expect(pair.Status).To(Equal(StatusCompared))
			Expect(pair.Mismatches).To(BeEmpty())
		})

		It("should serve the stored invoice", func() {
			resp := do("GET", "/api/pairs/pair-1/files/invoice", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			Expect(resp.Header.Get("Content-Disposition")).To(Equal(`inline; filename="invoice.pdf"`))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal([]byte("%PDF-invoice")))
		})

		It("should reject unknown file kinds", func() {
			resp := do("GET", "/api/pairs/pair-1/files/receipt", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should delete a pair", func() {
			resp := do("DELETE", "/api/pairs/pair-1", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.pairs).To(BeEmpty())
			Expect(storage.files).To(BeEmpty())
		})
	})

	Describe("dashboard routes", func() {
		It("should return analytics", func() {
			db.pairs["p1"] = &DocumentPair{ID: "p1", Status: StatusCompared, Mismatches: []comparison.Mismatch{
				{Type: comparison.MismatchDate, Severity: comparison.SeverityMedium},
			}}

			resp := do("GET", "/api/analytics", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var result map[string]any
			decode(resp, &result)
			Expect(result).To(HaveKeyWithValue("total_documents", 1.0))
			Expect(result).To(HaveKeyWithValue("mismatched_pairs", 1.0))
			Expect(result["mismatches_by_type"]).To(HaveKeyWithValue("date", 1.0))
		})

		It("should download a CSV export", func() {
			resp := do("GET", "/api/export.csv", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/csv"))
			Expect(resp.Header.Get("Content-Disposition")).To(Equal(`attachment; filename="verifin-verification-2024-01-20.csv"`))
		})

		It("should download an XLSX export", func() {
			resp := do("GET", "/api/export.xlsx", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring(".xlsx"))
		})

		It("should hide internal errors", func() {
			db.listErr = errors.New("bolt: database not open")

			resp := do("GET", "/api/analytics", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			var result map[string]string
			decode(resp, &result)
			Expect(result["error"]).To(Equal("Internal server error"))
		})
	})
})
