package processor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rezonia/tax-ledger/internal/ledger"
	"github.com/rezonia/tax-ledger/internal/metrics"
	"github.com/rezonia/tax-ledger/internal/model"
)

// BatchOptions bounds a batch run
type BatchOptions struct {
	// Concurrency caps documents processed at once (<= 0 uses GOMAXPROCS)
	Concurrency int
	// Timeout is the wall-clock budget of the whole batch (0 = none)
	Timeout time.Duration
	// MaxDocuments caps documents processed (0 = unlimited); the rest are
	// recorded as failures.
	MaxDocuments int
}

// Failure records one skipped document
type Failure struct {
	Archive  string `json:"archive"`
	Document string `json:"document"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

// BatchResult holds every row of a batch plus what was skipped
type BatchResult struct {
	Results  []*Result      `json:"-"`
	Rows     []ledger.Row   `json:"rows"`
	Failures []Failure      `json:"failures"`
	Summary  ledger.Summary `json:"summary"`
	Duration time.Duration  `json:"duration"`
	// Halted is set when a batch limit stopped the remainder
	Halted error `json:"-"`
}

// ProcessBatch processes docs concurrently. One document's failure never
// stops the others; only the batch timeout or MaxDocuments halts the
// remainder, which is then recorded as failed. Rows keep input order.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []Document, opts BatchOptions) *BatchResult {
	start := time.Now()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	limit := len(docs)
	if opts.MaxDocuments > 0 && opts.MaxDocuments < limit {
		limit = opts.MaxDocuments
	}

	results := make([]*Result, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(opts.Concurrency, limit))

	for i := 0; i < limit; i++ {
		doc := docs[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = p.fail(&Result{Archive: doc.Archive, Document: doc.Name}, metrics.ReasonTimeout,
					fmt.Errorf("batch deadline reached before processing: %w", err))
				return nil
			}
			results[i] = p.ProcessDocument(gctx, doc)
			return nil
		})
	}
	// Workers report failures on their Result, so Wait has nothing to return
	_ = g.Wait()

	for i := limit; i < len(docs); i++ {
		results[i] = p.fail(&Result{Archive: docs[i].Archive, Document: docs[i].Name}, metrics.ReasonLimit,
			fmt.Errorf("more than %d documents: %w", opts.MaxDocuments, model.ErrBatchLimit))
	}

	br := &BatchResult{Results: results}
	archives := make(map[string]struct{})
	processed := 0
	for _, r := range results {
		archives[r.Archive] = struct{}{}
		if r.Error != nil {
			br.Failures = append(br.Failures, Failure{
				Archive:  r.Archive,
				Document: r.Document,
				Reason:   r.Reason,
				Message:  r.Error.Error(),
				Err:      r.Error,
			})
			continue
		}
		processed++
		br.Rows = append(br.Rows, r.Rows...)
	}

	switch {
	case ctx.Err() != nil:
		br.Halted = ctx.Err()
	case limit < len(docs):
		br.Halted = model.ErrBatchLimit
	}

	br.Summary = ledger.Summarize(br.Rows)
	br.Summary.DocumentsProcessed = processed
	br.Summary.DocumentsFailed = len(br.Failures)
	br.Summary.Archives = len(archives)
	br.Duration = time.Since(start)
	p.metrics.ObserveBatch(br.Duration)

	fields := []zap.Field{
		zap.Int("documents", len(docs)),
		zap.Int("processed", processed),
		zap.Int("failed", len(br.Failures)),
		zap.Int("rows", len(br.Rows)),
		zap.Duration("duration", br.Duration),
	}
	if br.Halted != nil {
		p.logger.Warn("batch halted", append(fields, zap.Error(br.Halted))...)
	} else {
		p.logger.Info("batch complete", fields...)
	}
	return br
}

// DeadlineExceeded reports whether the batch stopped on its time budget
func (b *BatchResult) DeadlineExceeded() bool {
	return errors.Is(b.Halted, context.DeadlineExceeded)
}

func workerCount(concurrency, n int) int {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	if n > 0 && concurrency > n {
		concurrency = n
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return concurrency
}
