package portal

import (
	"context"
	"fmt"
	"sync"
)

// StubTarget is an in-memory Target for tests. Selectors listed in
// Present succeed; everything else fails. Calls are recorded in order.
type StubTarget struct {
	mu sync.Mutex

	// Present lists selectors that exist on the "page".
	Present map[string]bool
	// FailFills maps selectors to an error returned on Fill.
	FailFills map[string]error
	// PageText is returned by Text.
	PageText string
	// PageURL is returned by URL.
	PageURL string
	// ShotPNG is returned by Screenshot; nil means an error.
	ShotPNG []byte
	// DocPDF is returned by PDF; nil means an error.
	DocPDF []byte
	// NavigateErr fails every Navigate when set.
	NavigateErr error

	Calls  []string
	Closed bool
}

var _ Target = (*StubTarget)(nil)

func (s *StubTarget) record(format string, args ...any) {
	s.mu.Lock()
	s.Calls = append(s.Calls, fmt.Sprintf(format, args...))
	s.mu.Unlock()
}

func (s *StubTarget) has(selector string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Present[selector]
}

func (s *StubTarget) Navigate(ctx context.Context, url string) error {
	s.record("navigate %s", url)
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.mu.Lock()
	s.PageURL = url
	s.mu.Unlock()
	return nil
}

func (s *StubTarget) WaitVisible(ctx context.Context, selector string) error {
	s.record("wait %s", selector)
	if !s.has(selector) {
		return fmt.Errorf("wait %s: %w", selector, ErrNoSelector)
	}
	return nil
}

func (s *StubTarget) Click(ctx context.Context, selector string) error {
	s.record("click %s", selector)
	if !s.has(selector) {
		return fmt.Errorf("click %s: %w", selector, ErrNoSelector)
	}
	return nil
}

func (s *StubTarget) Fill(ctx context.Context, selector, value string) error {
	s.record("fill %s=%s", selector, value)
	s.mu.Lock()
	err, failing := s.FailFills[selector]
	s.mu.Unlock()
	if failing {
		return err
	}
	if !s.has(selector) {
		return fmt.Errorf("fill %s: %w", selector, ErrNoSelector)
	}
	return nil
}

func (s *StubTarget) Upload(ctx context.Context, selector, filename string, content []byte) error {
	s.record("upload %s=%s(%d)", selector, filename, len(content))
	if !s.has(selector) {
		return fmt.Errorf("upload %s: %w", selector, ErrNoSelector)
	}
	return nil
}

func (s *StubTarget) Text(ctx context.Context) (string, error) {
	s.record("text")
	return s.PageText, nil
}

func (s *StubTarget) URL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PageURL, nil
}

func (s *StubTarget) Screenshot(ctx context.Context) ([]byte, error) {
	s.record("screenshot")
	if s.ShotPNG == nil {
		return nil, fmt.Errorf("screenshot unavailable")
	}
	return s.ShotPNG, nil
}

func (s *StubTarget) PDF(ctx context.Context) ([]byte, error) {
	s.record("pdf")
	if s.DocPDF == nil {
		return nil, fmt.Errorf("pdf unavailable")
	}
	return s.DocPDF, nil
}

func (s *StubTarget) Close() error {
	s.mu.Lock()
	s.Closed = true
	s.mu.Unlock()
	return nil
}
