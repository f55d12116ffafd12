// Package urlfile provides content sources for role files referenced by
// URL instead of template.
package urlfile

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/agentic-research/roleforge/internal/plugin"
)

const filePrefix = "file:"

// Filesystem serves "file:" locators and plain paths. Plain paths are
// relative to the base directory; "file:" paths are taken as given.
type Filesystem struct {
	fs      billy.Filesystem
	baseDir string
}

var _ plugin.ContentSource = (*Filesystem)(nil)

// NewFilesystem returns a source over fs.
func NewFilesystem(fs billy.Filesystem, baseDir string) *Filesystem {
	return &Filesystem{fs: fs, baseDir: filepath.ToSlash(baseDir)}
}

// NewOSFilesystem returns a source reading the host filesystem.
func NewOSFilesystem(baseDir string) (*Filesystem, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir %s: %w", baseDir, err)
	}
	return NewFilesystem(osfs.New("/"), abs), nil
}

func (s *Filesystem) Name() string { return "filesystem" }

func (s *Filesystem) Accepts(locator string) bool {
	if strings.HasPrefix(locator, filePrefix) {
		return true
	}
	return !hasScheme(locator)
}

func (s *Filesystem) resolve(locator string) string {
	if p, ok := strings.CutPrefix(locator, filePrefix); ok {
		p = strings.TrimPrefix(p, "//")
		return path.Clean(filepath.ToSlash(p))
	}
	p := filepath.ToSlash(locator)
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(s.baseDir, p)
}

func (s *Filesystem) FileName(_ context.Context, locator string) (string, error) {
	return path.Base(s.resolve(locator)), nil
}

func (s *Filesystem) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	p := s.resolve(locator)
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", locator, err)
	}
	return f, nil
}

func (s *Filesystem) FileURL(_ context.Context, locator string) (string, error) {
	return filePrefix + s.resolve(locator), nil
}

// hasScheme reports whether locator starts with a URL scheme such as
// "https:". Single letters are treated as Windows drive letters.
func hasScheme(locator string) bool {
	scheme, _, ok := strings.Cut(locator, ":")
	if !ok || len(scheme) < 2 {
		return false
	}
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}
