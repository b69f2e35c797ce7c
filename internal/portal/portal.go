// Package portal defines the browser capability surface the verification
// automation drives, plus the selector strategies for the SCRA web portal.
// The concrete Chrome implementation lives in portal/chrome; tests use the
// scriptable StubTarget.
package portal

import (
	"context"
	"errors"
	"fmt"
)

// Target is one attached browser page. Every operation takes a context so
// step timeouts bound each interaction.
type Target interface {
	// Navigate loads a URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(ctx context.Context, selector string) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Fill clears and types into the first element matching selector.
	Fill(ctx context.Context, selector, value string) error
	// Upload attaches content as a file named filename to the first file
	// input matching selector.
	Upload(ctx context.Context, selector, filename string, content []byte) error
	// Text returns the visible text of the whole page.
	Text(ctx context.Context) (string, error)
	// URL returns the page's current location.
	URL(ctx context.Context) (string, error)
	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// PDF renders the page as a PDF document.
	PDF(ctx context.Context) ([]byte, error)
	// Close releases the page and its browser resources.
	Close() error
}

// ErrAuthFailed marks a credential rejection. Authentication failures are
// fatal: retrying would lock the portal account.
var ErrAuthFailed = errors.New("portal authentication failed")

// ErrNoSelector is returned when none of a strategy's selectors matched.
var ErrNoSelector = errors.New("no selector matched")

// FillAny tries each selector in order and fills the first one that is
// present, returning the selector used.
func FillAny(ctx context.Context, t Target, selectors []string, value string) (string, error) {
	for _, sel := range selectors {
		if err := t.Fill(ctx, sel, value); err == nil {
			return sel, nil
		}
	}
	return "", fmt.Errorf("fill %v: %w", selectors, ErrNoSelector)
}

// ClickAny tries each selector in order and clicks the first one present.
func ClickAny(ctx context.Context, t Target, selectors []string) (string, error) {
	for _, sel := range selectors {
		if err := t.Click(ctx, sel); err == nil {
			return sel, nil
		}
	}
	return "", fmt.Errorf("click %v: %w", selectors, ErrNoSelector)
}

// UploadAny tries each selector in order and attaches the file to the
// first file input present.
func UploadAny(ctx context.Context, t Target, selectors []string, filename string, content []byte) (string, error) {
	for _, sel := range selectors {
		if err := t.Upload(ctx, sel, filename, content); err == nil {
			return sel, nil
		}
	}
	return "", fmt.Errorf("upload %v: %w", selectors, ErrNoSelector)
}
