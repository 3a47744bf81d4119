package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/palmsuites/invoicegen/internal/billing"
	"github.com/palmsuites/invoicegen/internal/config"
	"github.com/palmsuites/invoicegen/internal/email"
	ierr "github.com/palmsuites/invoicegen/internal/errors"
	"github.com/palmsuites/invoicegen/internal/invoice"
	"github.com/palmsuites/invoicegen/internal/logger"
	"github.com/palmsuites/invoicegen/internal/render"
)

const testPDF = `%PDF-1.4
1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [3 0 R] /Count 1 >>
endobj
3 0 obj
<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>
endobj
trailer
<< /Root 1 0 R >>
%%EOF
`

type stubEngine struct {
	ready bool
}

func (e *stubEngine) Checkout(ctx context.Context) error { return nil }
func (e *stubEngine) Release()                           {}
func (e *stubEngine) Ready() bool                        { return e.ready }

func (e *stubEngine) PrintPDF(ctx context.Context, html string, pg *render.PageConfig) (*render.Result, error) {
	return render.NewResult([]byte(testPDF)), nil
}

type stubSender struct {
	sent []string
}

func (s *stubSender) Send(ctx context.Context, to, subject, html string, att *email.Attachment) (string, error) {
	s.sent = append(s.sent, to)
	return "msg-1", nil
}

func newTestServer(t *testing.T, sender email.Sender) (*Server, *config.Configuration) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.GetDefaultConfig()
	cfg.Storage.UploadsDir = t.TempDir()
	cfg.Storage.OutputDir = filepath.Join(t.TempDir(), "invoices")
	require.NoError(t, os.MkdirAll(cfg.Storage.OutputDir, 0o755))

	engine := &stubEngine{ready: true}
	tmpl := invoice.NewTemplate(`<p>{{invoice_number}} {{name}} {{total}}</p>`)
	pipeline := invoice.NewPipeline(cfg, engine, tmpl, invoice.Assets{}, logger.NewNop())

	return New(cfg, pipeline, email.NewService(sender, logger.NewNop()), engine, logger.NewNop()), cfg
}

func uploadBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// testWorkbook holds one guest row on the sheet third from the end.
func testWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Summary"))
	for _, name := range []string{"Data", "Rates", "Deposits"} {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
	}
	require.NoError(t, f.SetSheetRow("Data", "A1", &[]any{
		billing.ColGuestName, billing.ColRoom, billing.ColWaterStart, billing.ColWaterEnd,
		billing.ColElectricStart, billing.ColElectricEnd, billing.ColPeriodStart,
	}))
	require.NoError(t, f.SetSheetRow("Data", "A2", &[]any{
		"Ivan Petrov", "A101", 100, 102, 2000, 2010, 45000,
	}))
	require.NoError(t, f.SetSheetRow("Deposits", "A1", &[]any{"Room no.", "Deposit"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func decodeError(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body.Bytes(), &payload))
	return payload.Error.Code
}

func TestHandleUpload(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	body, contentType := uploadBody(t, uploadField, "march.xlsx", testWorkbook(t))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var batch invoice.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.Equal(t, "2023-03", batch.Period)
	require.Len(t, batch.Outcomes, 1)
	assert.Equal(t, invoice.StatusSuccess, batch.Outcomes[0].Status)
	assert.Equal(t, "PS202303-001", batch.Outcomes[0].InvoiceNumber)
	assert.FileExists(t, batch.Outcomes[0].Path)
}

func TestHandleUpload_MissingFile(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	body, contentType := uploadBody(t, "wrong-field", "march.xlsx", testWorkbook(t))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ierr.ErrCodeValidation, decodeError(t, rec.Body))
}

func TestHandleUpload_UnreadableWorkbook(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	body, contentType := uploadBody(t, uploadField, "march.xlsx", []byte("not a workbook"))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ierr.ErrCodeDataFormat, decodeError(t, rec.Body))
}

func TestHandleUploadStream(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	body, contentType := uploadBody(t, uploadField, "march.xlsx", testWorkbook(t))

	req := httptest.NewRequest(http.MethodPost, "/upload/stream", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	page := rec.Body.String()
	assert.Contains(t, page, "<td>Ivan Petrov</td>")
	assert.Contains(t, page, "PS202303-001")
	assert.Contains(t, page, "<p>done</p>")
}

func TestHandleDownloadPeriod(t *testing.T) {
	srv, cfg := newTestServer(t, nil)
	dir := filepath.Join(cfg.Storage.OutputDir, "2023-03")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A101_Ivan_PS202303-001.pdf"), []byte(testPDF), 0o644))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/2023-03", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoices-2023-03.zip")

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "A101_Ivan_PS202303-001.pdf", zr.File[0].Name)
}

func TestHandleDownloadPeriod_BadPeriod(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/march-2023", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDownloadPeriod_Missing(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/2031-01", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ierr.ErrCodeNotFound, decodeError(t, rec.Body))
}

func TestHandleDownloadSelected(t *testing.T) {
	srv, cfg := newTestServer(t, nil)
	dir := filepath.Join(cfg.Storage.OutputDir, "2023-03")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	kept := filepath.Join(dir, "kept.pdf")
	require.NoError(t, os.WriteFile(kept, []byte(testPDF), 0o644))

	outside := filepath.Join(t.TempDir(), "secret.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	payload, err := json.Marshal(map[string][]string{"paths": {
		kept,
		filepath.Join(dir, "gone.pdf"),
		outside,
	}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/download", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1, "missing and out-of-root paths must be skipped")
	assert.Equal(t, "kept.pdf", zr.File[0].Name)
}

func TestHandleDownloadSelected_EmptyBody(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(`{"paths": []}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEmail_Disabled(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/email", strings.NewReader(`[{"recipient":"a@b.co","path":"x"}]`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, ierr.ErrCodeDeliveryFailed, decodeError(t, rec.Body))
}

func TestHandleEmail(t *testing.T) {
	sender := &stubSender{}
	srv, cfg := newTestServer(t, sender)

	dir := filepath.Join(cfg.Storage.OutputDir, "2023-03")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	pdf := filepath.Join(dir, "A101_Ivan_PS202303-001.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte(testPDF), 0o644))

	body, err := json.Marshal([]email.DeliveryRequest{
		{Recipient: "ivan@example.com", Path: pdf},
		{Recipient: "eve@example.com", Path: "/etc/passwd"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/email", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var results []email.DeliveryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "sent", results[0].Status)
	assert.Equal(t, "failed", results[1].Status, "paths outside the output root must fail per entry")
	assert.Equal(t, []string{"ivan@example.com"}, sender.sent)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "ready", payload["engine"])
}
