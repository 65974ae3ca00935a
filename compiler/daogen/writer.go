package daogen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// Writer renders and writes definition files in parallel.
type Writer struct {
	output  string
	workers int

	mu      sync.Mutex
	written []string
}

// NewWriter returns a Writer for cfg.
func NewWriter(cfg Config) *Writer {
	return &Writer{output: cfg.output(), workers: cfg.workers()}
}

// WriteAll writes one file per package and returns the sorted paths.
func (w *Writer) WriteAll(ctx context.Context, pkgs []*Package) ([]string, error) {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for _, p := range pkgs {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return w.write(p)
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(w.written)
	return w.written, nil
}

func (w *Writer) write(p *Package) error {
	var buf bytes.Buffer
	if err := File(p).Render(&buf); err != nil {
		return fmt.Errorf("daogen: render %s: %w", p.Path, err)
	}
	path := filepath.Join(p.Dir, w.output)
	formatted, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		// Keep the unformatted source next to the target for debugging.
		debugPath := path + ".error"
		_ = os.WriteFile(debugPath, buf.Bytes(), 0o644)
		return fmt.Errorf("daogen: format %s: %w (unformatted written to %s)", path, err, debugPath)
	}
	if err := os.WriteFile(path, formatted, 0o644); err != nil {
		return fmt.Errorf("daogen: write %s: %w", path, err)
	}
	w.mu.Lock()
	w.written = append(w.written, path)
	w.mu.Unlock()
	return nil
}
