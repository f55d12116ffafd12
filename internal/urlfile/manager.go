package urlfile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/agentic-research/roleforge/internal/plugin"
)

var ErrNoContentSource = errors.New("no content source accepts locator")

// Manager dispatches locators to the first content source accepting them.
type Manager struct {
	sources []plugin.ContentSource
}

// NewManager returns a manager over sources, tried in order.
func NewManager(sources ...plugin.ContentSource) *Manager {
	return &Manager{sources: sources}
}

// Source returns the content source for locator.
func (m *Manager) Source(locator string) (plugin.ContentSource, error) {
	for _, s := range m.sources {
		if s.Accepts(locator) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoContentSource, locator)
}

func (m *Manager) FileName(ctx context.Context, locator string) (string, error) {
	s, err := m.Source(locator)
	if err != nil {
		return "", err
	}
	return s.FileName(ctx, locator)
}

func (m *Manager) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	s, err := m.Source(locator)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, locator)
}

func (m *Manager) FileURL(ctx context.Context, locator string) (string, error) {
	s, err := m.Source(locator)
	if err != nil {
		return "", err
	}
	return s.FileURL(ctx, locator)
}

func (m *Manager) FileURLsWithDependencies(ctx context.Context, locator string) ([]string, error) {
	s, err := m.Source(locator)
	if err != nil {
		return nil, err
	}
	return plugin.FileURLsWithDependencies(ctx, s, locator)
}
