package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/agentic-research/roleforge/api"
)

// FileContext describes a file on disk that plugins operate on.
type FileContext struct {
	Path         string
	Charset      string
	LineEndings  api.LineEndings
	ModelOptions map[string]any
}

// NewFileContext returns a context for path with UTF-8 and unix line
// endings.
func NewFileContext(path string) *FileContext {
	return &FileContext{Path: path, Charset: DefaultCharset, LineEndings: api.LineEndingsUnix}
}

// Derive returns a context for another path sharing encoding settings.
func (f *FileContext) Derive(path string) *FileContext {
	return &FileContext{Path: path, Charset: f.Charset, LineEndings: f.LineEndings, ModelOptions: f.ModelOptions}
}

// Name returns the base file name.
func (f *FileContext) Name() string { return filepath.Base(f.Path) }

// Ext returns the lower-cased extension including the dot.
func (f *FileContext) Ext() string { return strings.ToLower(filepath.Ext(f.Path)) }

// HasExt reports whether the file has one of exts (with dot, lower case).
func (f *FileContext) HasExt(exts ...string) bool {
	return slices.Contains(exts, f.Ext())
}

// Exists reports whether the file is present on disk.
func (f *FileContext) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// CanonicalPath returns the absolute, symlink-free path of the file. Paths
// that do not exist yet are only made absolute.
func (f *FileContext) CanonicalPath() (string, error) {
	abs, err := filepath.Abs(f.Path)
	if err != nil {
		return "", fmt.Errorf("absolute path of %s: %w", f.Path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return abs, nil
	}
	if err != nil {
		return "", fmt.Errorf("canonical path of %s: %w", f.Path, err)
	}
	return resolved, nil
}

// ReadBytes returns the raw file content.
func (f *FileContext) ReadBytes() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// ReadText returns the file content decoded from its charset.
func (f *FileContext) ReadText() (string, error) {
	b, err := f.ReadBytes()
	if err != nil {
		return "", err
	}
	return Decode(b, f.Charset)
}

// WriteBytes replaces the file content, creating parent directories.
func (f *FileContext) WriteBytes(b []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.Path, err)
	}
	return os.WriteFile(f.Path, b, 0o644)
}

// WriteText encodes s with the file charset and writes it.
func (f *FileContext) WriteText(s string) error {
	b, err := Encode(s, f.Charset)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.Path, err)
	}
	return f.WriteBytes(b)
}

// Remove deletes the file. A missing file is not an error.
func (f *FileContext) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
