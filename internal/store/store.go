// Package store saves finished documents.
package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// ContentType is the media type of stored documents.
const ContentType = "application/pdf"

// Sink stores a finished document under name and returns where it went.
// A failed Put leaves nothing behind under name.
type Sink interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}

// FileSink writes documents into a directory.
type FileSink struct {
	Dir string
	// Perm is the mode of created files. Zero means 0644.
	Perm os.FileMode
}

// NewFileSink creates a sink writing into dir. An empty dir is the working
// directory.
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// Put writes r to a temporary file next to the target and renames it into
// place once it is complete.
func (s *FileSink) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeAssembly, err, "create output directory")
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeAssembly, err, "create temporary file")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, readerWithContext(ctx, r))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeAssembly, err, "write %s", name)
	}
	if size >= 0 && n != size {
		return "", errors.New(errors.ErrCodeAssembly, "wrote %d of %d bytes of %s", n, size, name)
	}
	if err := tmp.Sync(); err != nil {
		return "", errors.Wrap(errors.ErrCodeAssembly, err, "sync %s", name)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeAssembly, err, "close %s", name)
	}

	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return "", errors.Wrap(errors.ErrCodeAssembly, err, "chmod %s", name)
	}

	target := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", errors.Wrap(errors.ErrCodeAssembly, err, "rename into %s", target)
	}
	committed = true
	return target, nil
}

// WriterSink streams documents to a writer, for stdout output.
type WriterSink struct {
	W io.Writer
}

// Put implements Sink.
func (s WriterSink) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if _, err := io.Copy(s.W, readerWithContext(ctx, r)); err != nil {
		return "", errors.Wrap(errors.ErrCodeAssembly, err, "write %s", name)
	}
	return "-", nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid document name %q", name)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
