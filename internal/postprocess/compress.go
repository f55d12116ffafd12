package postprocess

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/agentic-research/roleforge/internal/plugin"
)

type compress struct{}

// Compress writes a compressed copy of a file, zstd by default or lz4 with
// the option format=lz4. The source is removed unless keepSource is true.
func Compress() plugin.PostProcessor { return compress{} }

func (compress) Name() string { return "compress" }

func (compress) Accepts(file *plugin.FileContext) bool {
	return !file.HasExt(".zst", ".lz4", ".gz")
}

func (compress) Apply(_ context.Context, file *plugin.FileContext, opts plugin.Options) ([]*plugin.FileContext, error) {
	data, err := file.ReadBytes()
	if err != nil {
		return nil, err
	}

	var (
		out []byte
		ext string
	)
	switch f := strings.ToLower(opts.String("format", "zstd")); f {
	case "zstd", "zst":
		out, err = compressZstd(data, opts.Int("level", 0))
		ext = ".zst"
	case "lz4":
		out, err = compressLZ4(data)
		ext = ".lz4"
	default:
		return nil, fmt.Errorf("compress %s: unsupported format %q", file.Path, f)
	}
	if err != nil {
		return nil, fmt.Errorf("compress %s: %w", file.Path, err)
	}

	target := file.Derive(file.Path + ext)
	if err := target.WriteBytes(out); err != nil {
		return nil, err
	}
	if opts.Bool("keepSource", false) {
		return []*plugin.FileContext{file, target}, nil
	}
	if err := file.Remove(); err != nil {
		return nil, err
	}
	return []*plugin.FileContext{target}, nil
}

func compressZstd(data []byte, level int) ([]byte, error) {
	encLevel := zstd.SpeedDefault
	if level > 0 {
		encLevel = zstd.EncoderLevelFromZstd(level)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, err
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, nil), nil
}

// compressLZ4 uses the frame format so the output is readable by the lz4
// command line tool.
func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
