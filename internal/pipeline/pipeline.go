package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/nwstraits/survey-etl/internal/domain"
	"github.com/nwstraits/survey-etl/internal/observability"
	"golang.org/x/sync/errgroup"
)

const (
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 5 * time.Second
	maxLoadAttempts = 5
)

// BatchExtractor reads up to batchSize rows from the export. It returns io.EOF
// once no rows remain.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRow, error)
}

// Transformer converts an export row into a survey.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawRow) (domain.Survey, error)
}

// BatchLoader writes multiple surveys to a destination. Loaders must tolerate
// the same batch being loaded again after a failure.
type BatchLoader interface {
	LoadBatch(ctx context.Context, surveys []domain.Survey) error
}

// Status is a snapshot of pipeline progress.
type Status struct {
	Running  bool  `json:"running"`
	Finished bool  `json:"finished"`
	Batches  int64 `json:"batches"`
	RowsRead int64 `json:"rows_read"`
	Surveys  int64 `json:"surveys"`
	Skipped  int64 `json:"skipped"`
	Filtered int64 `json:"filtered"`
}

// Pipeline orchestrates the extract-transform-load loop over one export.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	workers     int
	backoff     time.Duration

	ready    atomic.Bool
	running  atomic.Bool
	finished atomic.Bool
	batches  atomic.Int64
	rowsRead atomic.Int64
	surveys  atomic.Int64
	skipped  atomic.Int64
	filtered atomic.Int64
}

// New creates a Pipeline. Rows of a batch are transformed by up to workers
// goroutines.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		workers:     workers,
		backoff:     initialBackoff,
	}
}

// CheckReadiness returns nil once the pipeline has loaded at least one survey.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any surveys yet")
	}
	return nil
}

// Status returns the current progress counters.
func (p *Pipeline) Status() any {
	return Status{
		Running:  p.running.Load(),
		Finished: p.finished.Load(),
		Batches:  p.batches.Load(),
		RowsRead: p.rowsRead.Load(),
		Surveys:  p.surveys.Load(),
		Skipped:  p.skipped.Load(),
		Filtered: p.filtered.Load(),
	}
}

// Run processes batches until the export is exhausted. It returns the context
// error when cancelled and the first extract or load failure otherwise.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "workers", p.workers)
	p.running.Store(true)
	p.metrics.PipelineRunning.Set(1)
	defer func() {
		p.running.Store(false)
		p.metrics.PipelineRunning.Set(0)
	}()

	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			return err
		}

		done, err := p.processBatch(ctx)
		if err != nil {
			return err
		}
		if done {
			p.finished.Store(true)
			p.logger.Info("pipeline finished",
				"rows", p.rowsRead.Load(),
				"surveys", p.surveys.Load(),
				"skipped", p.skipped.Load(),
				"filtered", p.filtered.Load(),
			)
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. It reports true once the
// extractor is exhausted.
func (p *Pipeline) processBatch(ctx context.Context) (bool, error) {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("extract batch: %w", err)
	}
	if len(rawBatch) == 0 {
		return false, nil
	}

	p.rowsRead.Add(int64(len(rawBatch)))
	p.metrics.RowsRead.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))

	surveys := p.transformBatch(ctx, rawBatch)
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if len(surveys) > 0 {
		if err := p.loadWithRetry(ctx, surveys); err != nil {
			return false, err
		}
		p.surveys.Add(int64(len(surveys)))
		p.metrics.SurveysProduced.Add(float64(len(surveys)))
		p.ready.Store(true)
	}

	p.batches.Add(1)
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	return false, nil
}

// transformBatch transforms rows concurrently and returns the surveys in row
// order. Failed rows are logged and dropped.
func (p *Pipeline) transformBatch(ctx context.Context, rawBatch []domain.RawRow) []domain.Survey {
	results := make([]domain.Survey, len(rawBatch))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, raw := range rawBatch {
		g.Go(func() error {
			s, err := p.transformer.Transform(ctx, raw)
			if err != nil {
				p.recordSkip(raw, err)
				return nil
			}
			results[i] = s
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Survey, 0, len(results))
	for _, s := range results {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (p *Pipeline) recordSkip(raw domain.RawRow, err error) {
	if errors.Is(err, domain.ErrBeforeStartDate) {
		p.filtered.Add(1)
		p.metrics.RowsFiltered.Inc()
		p.logger.Debug("row predates start date", "row", raw.Index)
		return
	}
	p.skipped.Add(1)
	p.metrics.TransformErrors.Inc()
	p.logger.Warn("transform failed, skipping row", "row", raw.Index, "error", err)
}

// loadWithRetry loads the batch, backing off between failed attempts.
func (p *Pipeline) loadWithRetry(ctx context.Context, surveys []domain.Survey) error {
	backoff := p.backoff
	for attempt := 1; ; attempt++ {
		err := p.loader.LoadBatch(ctx, surveys)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt >= maxLoadAttempts {
			return fmt.Errorf("load batch after %d attempts: %w", attempt, err)
		}

		p.logger.Error("load batch failed", "error", err, "batch_size", len(surveys), "attempt", attempt)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
