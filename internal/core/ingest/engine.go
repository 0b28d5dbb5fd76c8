// Package ingest runs text extraction over batches of files with a bounded
// worker pool.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"promptstack/internal/core/extract"
)

// DefaultMaxWorkers bounds concurrent open file handles and in-flight
// extractions.
const DefaultMaxWorkers = 5

// Result is one normalized extraction outcome. Results arrive in completion
// order, not submission order; callers correlate by Path.
type Result struct {
	Path    string
	Size    int64
	Content string
}

// ProgressFunc receives batch progress after each completed file.
type ProgressFunc func(done, total int, message string)

// Engine fans a batch of paths across a fixed-size worker pool. A single
// file's failure is isolated to a placeholder result; it never aborts the
// batch.
type Engine struct {
	extractor   *extract.Extractor
	maxWorkers  int
	maxFileSize int64
	log         *zap.Logger
}

func NewEngine(extractor *extract.Extractor, maxWorkers int, maxFileSize int64, log *zap.Logger) *Engine {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	return &Engine{extractor: extractor, maxWorkers: maxWorkers, maxFileSize: maxFileSize, log: log}
}

// Process dispatches every path to the pool and streams one Result per input
// over the returned channel. Cancellation is cooperative: once ctx is done no
// further items are dispatched, in-flight extractions finish, and the channel
// closes after the already-dispatched results; completed results stay valid.
func (e *Engine) Process(ctx context.Context, paths []string, progress ProgressFunc) <-chan Result {
	out := make(chan Result, e.maxWorkers)
	total := len(paths)

	var done atomic.Int64

	g := &errgroup.Group{}
	g.SetLimit(e.maxWorkers)

	go func() {
		defer close(out)
		for _, p := range paths {
			if ctx.Err() != nil {
				e.log.Info("ingestion cancelled", zap.Int("dispatched", int(done.Load())), zap.Int("total", total))
				break
			}
			path := p
			g.Go(func() error {
				res := e.processOne(ctx, path)
				out <- res
				d := int(done.Add(1))
				if progress != nil {
					progress(d, total, fmt.Sprintf("processed %d/%d", d, total))
				}
				return nil
			})
		}
		g.Wait()
	}()

	return out
}

// processOne extracts a single file, converting every failure mode into a
// placeholder result.
func (e *Engine) processOne(ctx context.Context, path string) (res Result) {
	res = Result{Path: path}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("file processing panicked", zap.String("path", path), zap.Any("panic", r))
			res.Content = fmt.Sprintf("[read failed: %s] panic: %v", filepath.Base(path), r)
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		res.Content = fmt.Sprintf("[read failed: %s] %v", filepath.Base(path), err)
		return res
	}
	res.Size = info.Size()

	// Oversized files short-circuit before any read to bound memory use.
	if e.maxFileSize > 0 && info.Size() > e.maxFileSize {
		res.Content = fmt.Sprintf("[file too large, skipped: %s (%d bytes)]", filepath.Base(path), info.Size())
		return res
	}

	res.Content = e.extractor.Extract(ctx, path)
	return res
}
