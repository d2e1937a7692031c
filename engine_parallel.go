package sharplint

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jward/sharplint/internal/analyzer"
)

// analyzeParallel analyses prepared files in two concurrent phases:
//
//	Workers (parallel): parse and analyse each file into its own BatchedStore.
//	Writer (serial):    commit batches to SQLite, one transaction per file.
//
// The first worker or commit error cancels the remaining work.
func (e *Engine) analyzeParallel(ctx context.Context, comp *analyzer.Compilation, items []workItem, rep *Report) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(runtime.NumCPU(), len(items))))

	// Buffered so workers never wait on the writer.
	results := make(chan itemResult, len(items))
	waitErr := make(chan error, 1)
	go func() {
		for _, item := range items {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := e.analyzeItem(gctx, comp, item)
				if err != nil {
					return fmt.Errorf("analyze %s: %w", item.path, err)
				}
				results <- res
				return nil
			})
		}
		waitErr <- g.Wait()
		close(results)
	}()

	var commitErr error
	for res := range results {
		if commitErr != nil {
			continue
		}
		if err := e.store.CommitBatch(res.batch); err != nil {
			commitErr = fmt.Errorf("commit %s: %w", res.batch.File.Path, err)
			cancel()
			continue
		}
		rep.Analyzed++
		rep.Diagnostics = append(rep.Diagnostics, res.diags...)
	}

	if err := <-waitErr; err != nil && commitErr == nil {
		return err
	}
	return commitErr
}
