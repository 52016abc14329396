// Package source provides the document sources and sinks used by import and
// export: files on disk, in-memory buffers and request or response bodies.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxDocumentSize caps how much a Reader source will read.
const MaxDocumentSize = 32 << 20

var ErrTooLarge = errors.New("document exceeds size limit")

// Bytes is a source over data already in memory. Empty data reads as a
// dismissed choice.
type Bytes []byte

func (b Bytes) Open(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return append([]byte(nil), b...), nil
}

// File reads the document at Path. An empty Path means no file was chosen.
type File struct {
	Path string
}

func (f File) Open(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Reader drains R, e.g. an HTTP request body. A body without content is
// treated as a dismissed choice.
type Reader struct {
	R     io.Reader
	Limit int64
}

func (r Reader) Open(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.R == nil {
		return nil, nil
	}

	limit := r.Limit
	if limit <= 0 {
		limit = MaxDocumentSize
	}

	data, err := io.ReadAll(io.LimitReader(r.R, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, limit)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return data, nil
}

// FileSink writes the document to Path through a temp file and a rename, so
// an interrupted export never leaves a truncated backup. An empty Path means
// the destination choice was dismissed.
type FileSink struct {
	Path string
}

func (f FileSink) Write(ctx context.Context, data []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.Path == "" {
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), "."+filepath.Base(f.Path)+"-*.tmp")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return false, err
	}
	return true, nil
}

// Writer copies the document to W, e.g. an HTTP response or stdout.
type Writer struct {
	W io.Writer
}

func (w Writer) Write(ctx context.Context, data []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := w.W.Write(data); err != nil {
		return false, err
	}
	return true, nil
}

// Buffer keeps the last written document in memory.
type Buffer struct {
	bytes.Buffer
}

func (b *Buffer) Write(ctx context.Context, data []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.Reset()
	b.Buffer.Write(data)
	return true, nil
}

// Dismissed is a sink standing in for a cancelled destination dialog.
type Dismissed struct{}

func (Dismissed) Write(context.Context, []byte) (bool, error) { return false, nil }
