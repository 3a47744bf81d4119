package render

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"

	ierr "github.com/palmsuites/invoicegen/internal/errors"
	"github.com/palmsuites/invoicegen/internal/logger"
)

// Config holds engine launch parameters.
type Config struct {
	// ChromePath overrides browser discovery. Empty means chromedp's
	// PATH search, then a downloaded Chromium as the fallback config.
	ChromePath string
	// Timeout bounds a single render. Zero disables the bound.
	Timeout   time.Duration
	NoSandbox bool
}

// Engine owns the process-wide headless browser used for invoice
// rendering. It launches lazily on first checkout, survives between
// batches, and relaunches itself after a crash.
//
// States: uninitialized --launch--> ready --(crash|Close)--> uninitialized.
// A failed primary launch retries once with the fallback configuration
// (downloaded Chromium, sandbox off) before reporting the engine
// unavailable.
//
// The browser is not safe for concurrent page teardown, so callers
// take the whole engine for the duration of a batch: Checkout blocks
// until the engine is free, Release must follow on every path.
type Engine struct {
	cfg Config
	log *logger.Logger

	// sem serializes batches; buffered size 1 so Checkout can respect
	// the caller's context while waiting.
	sem chan struct{}

	// mu guards the browser contexts and lifecycle flags.
	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	ready         bool
	closed        bool
}

// NewEngine builds an Engine without launching a browser.
func NewEngine(cfg Config, log *logger.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: log,
		sem: make(chan struct{}, 1),
	}
}

// Checkout takes exclusive use of the engine for a batch, launching
// the browser if needed. It honors ctx while waiting for the previous
// batch, so an abandoned upload does not queue forever.
func (e *Engine) Checkout(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ierr.WithError(ctx.Err()).
			WithHint("timed out waiting for the render engine").
			Mark(ierr.ErrEngineUnavailable)
	}

	if err := e.ensureReady(); err != nil {
		<-e.sem
		return err
	}
	return nil
}

// Release returns the engine after a batch. Must be called exactly
// once per successful Checkout.
func (e *Engine) Release() {
	<-e.sem
}

// ensureReady launches the browser when the engine is uninitialized.
func (e *Engine) ensureReady() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ierr.NewError("engine is closed").Mark(ierr.ErrEngineUnavailable)
	}
	if e.ready {
		return nil
	}

	if err := e.launch(e.cfg.ChromePath, e.cfg.NoSandbox); err != nil {
		e.log.Warnw("primary browser launch failed, retrying with fallback", "error", err)
		path, dlErr := fallbackBrowser()
		if dlErr != nil {
			return ierr.WithError(dlErr).
				WithHint("no usable browser could be launched").
				Mark(ierr.ErrEngineUnavailable)
		}
		if err := e.launch(path, true); err != nil {
			return ierr.WithError(err).
				WithHint("no usable browser could be launched").
				Mark(ierr.ErrEngineUnavailable)
		}
	}

	e.ready = true
	e.log.Infow("render engine launched")
	return nil
}

// launch starts a browser with the given executable path ("" for PATH
// discovery) and stores the contexts on success.
func (e *Engine) launch(execPath string, noSandbox bool) error {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", "new"),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	if noSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start eagerly so launch errors surface here, not mid-batch.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return err
	}

	e.allocCancel = allocCancel
	e.browserCtx = browserCtx
	e.browserCancel = browserCancel
	return nil
}

// fallbackBrowser downloads a compatible Chromium if none is cached
// and returns the executable path.
func fallbackBrowser() (string, error) {
	return launcher.NewBrowser().Get()
}

// PrintPDF renders an HTML document to PDF in a fresh tab. The caller
// must hold the engine via Checkout. A failure that took the browser
// down flips the engine back to uninitialized so the next checkout
// relaunches it.
func (e *Engine) PrintPDF(ctx context.Context, html string, pg *PageConfig) (*Result, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ierr.NewError("engine is closed").Mark(ierr.ErrEngineUnavailable)
	}
	if !e.ready {
		e.mu.Unlock()
		return nil, ierr.NewError("engine is not launched").Mark(ierr.ErrEngineUnavailable)
	}
	browserCtx := e.browserCtx
	e.mu.Unlock()

	f, err := os.CreateTemp("", "invoice-*.html")
	if err != nil {
		return nil, ierr.WithError(err).WithMessage("creating temp page").Mark(ierr.ErrRenderFailed)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.WriteString(html); err != nil {
		f.Close()
		return nil, ierr.WithError(err).WithMessage("writing temp page").Mark(ierr.ErrRenderFailed)
	}
	if err := f.Close(); err != nil {
		return nil, ierr.WithError(err).WithMessage("writing temp page").Mark(ierr.ErrRenderFailed)
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrRenderFailed)
	}

	// One tab per record; pages are never reused across records.
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, e.cfg.Timeout)
		defer cancel()
	}
	// A disconnected client cancels the record, not the browser.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	resolved := pg.resolved()
	width, height := pg.paperInches()
	top, right, bottom, left := pg.marginInches()

	var buf []byte
	runErr := chromedp.Run(tabCtx,
		chromedp.Navigate("file://"+abs),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(top).
				WithMarginRight(right).
				WithMarginBottom(bottom).
				WithMarginLeft(left).
				WithScale(resolved.Scale).
				WithPrintBackground(resolved.PrintBackground).
				Do(ctx)
			return err
		}),
	)
	if runErr != nil {
		if e.crashed() {
			e.teardown()
			return nil, ierr.WithError(runErr).
				WithHint("the render engine crashed and will be relaunched").
				Mark(ierr.ErrEngineUnavailable)
		}
		return nil, ierr.WithError(runErr).Mark(ierr.ErrRenderFailed)
	}

	return &Result{data: buf}, nil
}

// crashed reports whether the shared browser context has died.
func (e *Engine) crashed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.browserCtx != nil && e.browserCtx.Err() != nil
}

// teardown discards the browser and returns the engine to the
// uninitialized state. The next Checkout relaunches.
func (e *Engine) teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return
	}
	e.browserCancel()
	e.allocCancel()
	e.browserCtx = nil
	e.ready = false
	e.log.Warnw("render engine discarded after crash")
}

// Ready reports whether a browser is currently launched.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// Close shuts the engine down for good. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.ready {
		e.browserCancel()
		e.allocCancel()
		e.browserCtx = nil
		e.ready = false
	}
	return nil
}
