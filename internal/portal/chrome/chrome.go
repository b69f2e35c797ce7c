// Package chrome implements portal.Target on a Chrome DevTools session via
// chromedp. It can launch a local browser or attach to a remote DevTools
// endpoint (Browserless and similar services).
package chrome

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/quillpoint/scraverify/internal/portal"
)

// Config controls how the browser session is created.
type Config struct {
	// DevToolsURL attaches to a running browser when set; otherwise a
	// local Chrome is launched.
	DevToolsURL string
	Headless    bool
	// UserAgent overrides the browser's default when set.
	UserAgent string
}

// Page is one attached browser tab.
type Page struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

var _ portal.Target = (*Page)(nil)

// New creates a browser session and attaches a fresh tab.
func New(ctx context.Context, cfg Config) (*Page, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.DevToolsURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.DevToolsURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("ignore-certificate-errors", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("no-sandbox", true),
		)
		if cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so connection failures surface here
	// instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Page{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{browserCancel, allocCancel},
	}, nil
}

// run executes chromedp actions on the page, bounded by the caller's
// deadline when one is set.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *Page) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	return p.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// Upload writes content to a temp file and points the file input at it.
// SetUploadFiles requires a real path on the browser host, so this only
// works against a local browser.
func (p *Page) Upload(ctx context.Context, selector, filename string, content []byte) error {
	dir, err := os.MkdirTemp("", "scrav-upload-")
	if err != nil {
		return fmt.Errorf("upload temp dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, content, 0o600); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("upload temp file: %w", err)
	}
	err = p.run(ctx, chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery))
	os.RemoveAll(dir)
	if err != nil {
		return fmt.Errorf("attach %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Text(ctx context.Context) (string, error) {
	var text string
	err := p.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery))
	return text, err
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *Page) PDF(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Close tears down the tab, the browser, and the allocator.
func (p *Page) Close() error {
	for _, cancel := range p.cancels {
		cancel()
	}
	return nil
}
