package invoice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/palmsuites/invoicegen/internal/billing"
	"github.com/palmsuites/invoicegen/internal/config"
	ierr "github.com/palmsuites/invoicegen/internal/errors"
	"github.com/palmsuites/invoicegen/internal/logger"
	"github.com/palmsuites/invoicegen/internal/pdfinfo"
	"github.com/palmsuites/invoicegen/internal/render"
	"github.com/palmsuites/invoicegen/internal/workbook"
)

// EngineHandle is the slice of the render engine the pipeline drives.
// Tests substitute a fake.
type EngineHandle interface {
	Checkout(ctx context.Context) error
	Release()
	PrintPDF(ctx context.Context, html string, pg *render.PageConfig) (*render.Result, error)
}

// Status of one record's render.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Outcome is the per-record result of a batch.
type Outcome struct {
	Record *billing.Record `json:"-"`
	Status Status          `json:"status"`
	Path   string          `json:"path,omitempty"`
	Error  string          `json:"error,omitempty"`

	// Flattened record fields for the response payload.
	GuestName     string `json:"guest_name"`
	Room          string `json:"room"`
	InvoiceNumber string `json:"invoice_number"`
	Total         string `json:"total"`
}

func newOutcome(r *billing.Record) Outcome {
	return Outcome{
		Record:        r,
		GuestName:     r.GuestName,
		Room:          r.Room,
		InvoiceNumber: r.InvoiceNumber,
		Total:         r.Total.StringFixed(2),
	}
}

// BatchResult aggregates one upload's outcomes.
type BatchResult struct {
	ID       string    `json:"id"`
	Period   string    `json:"period"`
	Outcomes []Outcome `json:"outcomes"`
}

// Pipeline runs workbook rows through mapping and rendering against
// the shared engine. One instance serves all uploads; the engine's
// checkout discipline serializes them.
type Pipeline struct {
	cfg    *config.Configuration
	engine EngineHandle
	tmpl   *Template
	assets Assets
	log    *logger.Logger
}

func NewPipeline(cfg *config.Configuration, engine EngineHandle, tmpl *Template, assets Assets, log *logger.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, engine: engine, tmpl: tmpl, assets: assets, log: log}
}

// Run processes a workbook and returns all outcomes at once.
func (p *Pipeline) Run(ctx context.Context, workbookPath string) (*BatchResult, error) {
	return p.RunStream(ctx, workbookPath, nil)
}

// RunStream processes a workbook, invoking emit after each record
// completes. Per-record failures never abort the batch; only input
// errors surfaced before rendering do. The engine is released on every
// exit path, including caller cancellation.
func (p *Pipeline) RunStream(ctx context.Context, workbookPath string, emit func(Outcome)) (*BatchResult, error) {
	records, err := p.loadRecords(workbookPath)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{
		ID:       uuid.New().String(),
		Outcomes: make([]Outcome, 0, len(records)),
	}
	if len(records) == 0 {
		return batch, nil
	}
	batch.Period = records[0].Period()

	if err := p.engine.Checkout(ctx); err != nil {
		return nil, err
	}
	defer p.engine.Release()

	cleared := make(map[string]bool)
	engineDown := false

	for _, rec := range records {
		outcome := newOutcome(rec)

		if engineDown {
			outcome.Status = StatusFailed
			outcome.Error = "render engine unavailable"
			batch.Outcomes = append(batch.Outcomes, outcome)
			if emit != nil {
				emit(outcome)
			}
			continue
		}

		path, err := p.renderRecord(ctx, rec, cleared)
		if err != nil {
			outcome.Status = StatusFailed
			outcome.Error = err.Error()
			if ierr.IsEngineUnavailable(err) {
				// Remaining records fail fast; the engine relaunches
				// on the next batch's checkout.
				engineDown = true
				outcome.Error = "render engine unavailable"
			}
			p.log.Errorw("record render failed",
				"invoice", rec.InvoiceNumber, "room", rec.Room, "error", err)
		} else {
			outcome.Status = StatusSuccess
			outcome.Path = path
		}

		batch.Outcomes = append(batch.Outcomes, outcome)
		if emit != nil {
			emit(outcome)
		}
	}

	p.log.Infow("batch complete", "batch", batch.ID, "period", batch.Period,
		"records", len(batch.Outcomes))
	return batch, nil
}

// loadRecords opens the workbook and maps every non-blank row.
func (p *Pipeline) loadRecords(path string) ([]*billing.Record, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	rows, err := wb.DataRows(p.cfg.Workbook.SheetOffset)
	if err != nil {
		return nil, err
	}

	mapper, err := p.newMapper(wb)
	if err != nil {
		return nil, err
	}

	var records []*billing.Record
	ordinal := 0
	for _, row := range rows {
		rec, ok := mapper.Map(row, ordinal+1)
		if !ok {
			continue
		}
		ordinal++
		records = append(records, rec)
	}
	return records, nil
}

func (p *Pipeline) newMapper(wb *workbook.Workbook) (*billing.Mapper, error) {
	if !p.cfg.Workbook.UseDeposits {
		return billing.NewMapper(p.cfg.Billing, nil), nil
	}
	deposits, err := wb.Deposits()
	if err != nil {
		return nil, err
	}
	return billing.NewMapper(p.cfg.Billing, deposits), nil
}

// renderRecord binds the template, prints it, verifies the output and
// writes the PDF into the record's period directory.
func (p *Pipeline) renderRecord(ctx context.Context, rec *billing.Record, cleared map[string]bool) (string, error) {
	html, err := p.tmpl.Bind(Fields(rec, p.assets))
	if err != nil {
		return "", err
	}

	res, err := p.engine.PrintPDF(ctx, html, nil)
	if err != nil {
		return "", err
	}

	if _, err := pdfinfo.Verify(res.Bytes()); err != nil {
		return "", ierr.WithError(err).
			WithMessage("render produced an unusable document").
			Mark(ierr.ErrRenderFailed)
	}

	dir, err := p.periodDir(rec.Period(), cleared)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, pdfFileName(rec))
	if err := res.WriteToFile(path, 0o644); err != nil {
		return "", ierr.WithError(err).WithMessage("writing PDF").Mark(ierr.ErrRenderFailed)
	}
	return path, nil
}

// periodDir clears and recreates a period directory the first time a
// batch touches it, so re-uploading a period replaces its invoices.
func (p *Pipeline) periodDir(period string, cleared map[string]bool) (string, error) {
	dir := filepath.Join(p.cfg.Storage.OutputDir, period)
	if !cleared[period] {
		if err := os.RemoveAll(dir); err != nil {
			return "", ierr.WithError(err).Mark(ierr.ErrSystem)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", ierr.WithError(err).Mark(ierr.ErrSystem)
		}
		cleared[period] = true
	}
	return dir, nil
}

// pdfFileName builds {room}_{name}_{invoiceNumber}.pdf with
// path-hostile runes stripped.
func pdfFileName(rec *billing.Record) string {
	return fmt.Sprintf("%s_%s_%s.pdf",
		sanitize(rec.Room), sanitize(rec.GuestName), sanitize(rec.InvoiceNumber))
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		if r < 0x20 {
			return -1
		}
		if r == ' ' {
			return '_'
		}
		return r
	}, s)
}
