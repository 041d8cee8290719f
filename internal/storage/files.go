package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink writes each fetched page to dir/page_<seq>.html
type FileSink struct {
	dir string
}

// NewFileSink creates dir if needed and checks it is writable.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: pages dir %s: %v", ErrSinkOpen, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("%w: pages dir %s: %v", ErrSinkOpen, dir, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	return &FileSink{dir: dir}, nil
}

// Path returns the file a page with sequence number seq is written to
func (f *FileSink) Path(seq int64) string {
	return filepath.Join(f.dir, fmt.Sprintf("page_%d.html", seq))
}

// SavePage writes the page body, replacing any previous file
func (f *FileSink) SavePage(_ context.Context, page Page) error {
	if page.Body == nil {
		return fmt.Errorf("page %d has no body", page.Seq)
	}
	if err := os.WriteFile(f.Path(page.Seq), page.Body, 0o644); err != nil {
		return fmt.Errorf("failed to write page file: %w", err)
	}
	return nil
}

// PageWriter is anything that can persist a fetched page
type PageWriter interface {
	SavePage(ctx context.Context, page Page) error
}

// MultiSink fans a page out to several writers. Every writer is tried;
// the returned error joins all failures.
type MultiSink []PageWriter

// SavePage implements PageWriter
func (m MultiSink) SavePage(ctx context.Context, page Page) error {
	var errs []error
	for _, w := range m {
		if err := w.SavePage(ctx, page); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
