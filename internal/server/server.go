package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/palmsuites/invoicegen/internal/archive"
	"github.com/palmsuites/invoicegen/internal/config"
	"github.com/palmsuites/invoicegen/internal/email"
	ierr "github.com/palmsuites/invoicegen/internal/errors"
	"github.com/palmsuites/invoicegen/internal/invoice"
	"github.com/palmsuites/invoicegen/internal/logger"
)

// uploadField is the multipart field name clients send the workbook in.
const uploadField = "excel"

var periodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// EngineStatus is what the health endpoint reads off the engine.
type EngineStatus interface {
	Ready() bool
}

// Server wires the pipeline, archive and email surfaces into one gin
// router.
type Server struct {
	cfg      *config.Configuration
	pipeline *invoice.Pipeline
	emails   *email.Service
	engine   EngineStatus
	log      *logger.Logger
}

func New(cfg *config.Configuration, pipeline *invoice.Pipeline, emails *email.Service, engine EngineStatus, log *logger.Logger) *Server {
	return &Server{cfg: cfg, pipeline: pipeline, emails: emails, engine: engine, log: log}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/upload", s.handleUpload)
	r.POST("/upload/stream", s.handleUploadStream)
	r.GET("/download/:period", s.handleDownloadPeriod)
	r.POST("/download", s.handleDownloadSelected)
	r.POST("/email", s.handleEmail)
	r.GET("/healthz", s.handleHealth)

	return r
}

// saveUpload stores the uploaded workbook under the uploads directory,
// named by original filename plus the upload timestamp.
func (s *Server) saveUpload(c *gin.Context) (string, error) {
	file, err := c.FormFile(uploadField)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("no file supplied in field \"excel\"").
			Mark(ierr.ErrValidation)
	}

	base := filepath.Base(file.Filename)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	saved := filepath.Join(s.cfg.Storage.UploadsDir,
		fmt.Sprintf("%s-%d%s", name, time.Now().UnixMilli(), ext))

	if err := c.SaveUploadedFile(file, saved); err != nil {
		return "", ierr.WithError(err).WithMessage("saving upload").Mark(ierr.ErrSystem)
	}
	return saved, nil
}

// handleUpload runs the full batch and answers with the outcome list.
func (s *Server) handleUpload(c *gin.Context) {
	saved, err := s.saveUpload(c)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	batch, err := s.pipeline.Run(c.Request.Context(), saved)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// handleUploadStream runs the same batch but flushes an HTML table row
// per completed record, so large workbooks show progress as they go.
func (s *Server) handleUploadStream(c *gin.Context) {
	saved, err := s.saveUpload(c)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)

	w := c.Writer
	fmt.Fprint(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>Invoices</title></head><body>")
	fmt.Fprint(w, "<h1>Processing invoices</h1><table border=\"1\"><tr><th>Room</th><th>Guest</th><th>Invoice</th><th>Total</th><th>Status</th></tr>")
	w.Flush()

	_, err = s.pipeline.RunStream(c.Request.Context(), saved, func(o invoice.Outcome) {
		fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			htmlEscape(o.Room), htmlEscape(o.GuestName), o.InvoiceNumber, o.Total, o.Status)
		w.Flush()
	})
	if err != nil {
		fmt.Fprintf(w, "</table><p>error: %s</p></body></html>", htmlEscape(errorMessage(err)))
		w.Flush()
		return
	}
	fmt.Fprint(w, "</table><p>done</p></body></html>")
	w.Flush()
}

// handleDownloadPeriod streams a zip of every invoice in one period.
func (s *Server) handleDownloadPeriod(c *gin.Context) {
	period := c.Param("period")
	if !periodPattern.MatchString(period) {
		s.abortWithError(c, ierr.NewErrorf("bad period %q", period).
			WithHint("period must look like 2026-08").
			Mark(ierr.ErrValidation))
		return
	}

	dir := filepath.Join(s.cfg.Storage.OutputDir, period)
	if _, err := os.Stat(dir); err != nil {
		s.abortWithError(c, ierr.WithError(err).
			WithHintf("no invoices exist for period %s", period).
			Mark(ierr.ErrNotFound))
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "invoices-"+period+".zip"))
	if err := archive.WriteDir(c.Writer, dir); err != nil {
		// Headers are gone; all that is left is to log.
		s.log.Errorw("period archive failed", "period", period, "error", err)
		return
	}
}

type selectionRequest struct {
	Paths []string `json:"paths" binding:"required,min=1"`
}

// handleDownloadSelected zips an explicit list of PDFs. Paths that do
// not exist, or that point outside the output root, are skipped.
func (s *Server) handleDownloadSelected(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, ierr.WithError(err).
			WithHint("body must be {\"paths\": [..]} with at least one path").
			Mark(ierr.ErrValidation))
		return
	}

	paths := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		if s.underOutputRoot(p) {
			paths = append(paths, p)
		}
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="invoices.zip"`)
	if err := archive.WriteFiles(c.Writer, paths); err != nil {
		s.log.Errorw("selective archive failed", "error", err)
		return
	}
}

// handleEmail dispatches selected invoices by email, one result per
// entry.
func (s *Server) handleEmail(c *gin.Context) {
	if !s.emails.Enabled() {
		s.abortWithError(c, ierr.NewError("email delivery is not configured").
			Mark(ierr.ErrDeliveryFailed))
		return
	}

	var entries []email.DeliveryRequest
	if err := c.ShouldBindJSON(&entries); err != nil || len(entries) == 0 {
		s.abortWithError(c, ierr.NewError("body must be a non-empty list of {recipient, path}").
			Mark(ierr.ErrValidation))
		return
	}

	for i := range entries {
		if !s.underOutputRoot(entries[i].Path) {
			entries[i].Path = "" // forces a per-entry failure, not a request abort
		}
	}

	results := s.emails.SendInvoices(c.Request.Context(), entries)
	c.JSON(http.StatusOK, results)
}

func (s *Server) handleHealth(c *gin.Context) {
	engine := "cold"
	if s.engine != nil && s.engine.Ready() {
		engine = "ready"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "engine": engine})
}

// underOutputRoot guards archive and email paths against escaping the
// generated-invoice tree.
func (s *Server) underOutputRoot(path string) bool {
	root, err := filepath.Abs(s.cfg.Storage.OutputDir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(abs, root+string(filepath.Separator))
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	status := ierr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    ierr.Code(err),
			"message": errorMessage(err),
		},
	})
}

// errorMessage prefers the hint attached for callers over the raw
// chain.
func errorMessage(err error) string {
	if hint := ierr.Hint(err); hint != "" {
		return hint
	}
	return err.Error()
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;",
)

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}
