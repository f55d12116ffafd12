package urlfile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/agentic-research/roleforge/internal/plugin"
)

// HTTP serves http:// and https:// locators.
type HTTP struct {
	client *http.Client
}

var _ plugin.ContentSource = (*HTTP)(nil)

// NewHTTP returns a source using client, or a client with a 60 second
// timeout when nil.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTP{client: client}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Accepts(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

func (h *HTTP) FileName(_ context.Context, locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", locator, err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", fmt.Errorf("url %s has no file name", locator)
	}
	return name, nil
}

func (h *HTTP) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", locator, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", locator, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("get %s: unexpected status %s", locator, resp.Status)
	}
	return resp.Body, nil
}

func (h *HTTP) FileURL(_ context.Context, locator string) (string, error) {
	return locator, nil
}
