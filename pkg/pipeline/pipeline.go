// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tridorian/catalog-ingress/pkg/aggregate"
	"github.com/tridorian/catalog-ingress/pkg/filter"
	"github.com/tridorian/catalog-ingress/pkg/ingest"
	"github.com/tridorian/catalog-ingress/pkg/load"
	"github.com/tridorian/catalog-ingress/pkg/model"
	"github.com/tridorian/catalog-ingress/pkg/normalize"
	"github.com/tridorian/catalog-ingress/pkg/warehouse"
)

// RowCounter reports warehouse table sizes for the run summary.
type RowCounter interface {
	CountRows(ctx context.Context, table string) (int64, error)
}

// IndexRefresher triggers a search index rebuild from a warehouse table.
type IndexRefresher interface {
	Refresh(ctx context.Context, dataset, table string) (string, error)
}

// Runner drives one full catalog run: ingest, normalize, aggregate,
// smoke load, full raw load, filtered view build and index refresh.
type Runner struct {
	ingestor   *ingest.Ingestor
	normalizer *normalize.Normalizer
	aggregator *aggregate.Aggregator
	filter     *filter.Filter
	loader     *load.Loader
	counter    RowCounter     // optional
	refresher  IndexRefresher // optional

	dataset       string
	rawTable      string
	filteredTable string
	smokeRows     int

	logger *zap.Logger
}

// Options carries the run-scoped settings of a Runner.
type Options struct {
	Dataset       string
	RawTable      string
	FilteredTable string
	SmokeRows     int
}

// Result summarizes one completed pipeline run.
type Result struct {
	RunID         string
	CSVFile       string
	RowsIngested  int
	RowsLoaded    int
	RowsFiltered  int
	RawLoad       *load.Summary
	FilteredLoad  *load.Summary
	RawCount      int64
	FilteredCount int64
	IndexOp       string
	Duration      time.Duration
}

// NewRunner creates a new Runner instance. counter and refresher may be
// nil, which skips the table counts and the index refresh respectively.
func NewRunner(
	ingestor *ingest.Ingestor,
	normalizer *normalize.Normalizer,
	aggregator *aggregate.Aggregator,
	f *filter.Filter,
	loader *load.Loader,
	counter RowCounter,
	refresher IndexRefresher,
	opts Options,
	logger *zap.Logger,
) (*Runner, error) {
	if ingestor == nil || normalizer == nil || aggregator == nil || f == nil || loader == nil {
		return nil, fmt.Errorf("all pipeline stages are required")
	}
	if opts.RawTable == "" || opts.FilteredTable == "" {
		return nil, fmt.Errorf("raw and filtered table names are required")
	}
	if opts.SmokeRows <= 0 {
		return nil, fmt.Errorf("smoke row count must be positive, got %d", opts.SmokeRows)
	}

	return &Runner{
		ingestor:      ingestor,
		normalizer:    normalizer,
		aggregator:    aggregator,
		filter:        f,
		loader:        loader,
		counter:       counter,
		refresher:     refresher,
		dataset:       opts.Dataset,
		rawTable:      opts.RawTable,
		filteredTable: opts.FilteredTable,
		smokeRows:     opts.SmokeRows,
		logger:        logger,
	}, nil
}

// Run executes the pipeline against one export file. A smoke load of the
// first rows runs before the full load so a broken export or schema
// never truncates the raw table; the smoke pass replaces, the full pass
// replaces again with the complete row set.
func (r *Runner) Run(ctx context.Context, csvPath string) (*Result, error) {
	start := time.Now()

	result := &Result{
		RunID:   uuid.New().String(),
		CSVFile: csvPath,
	}

	r.logger.Info("Starting catalog run",
		zap.String("runID", result.RunID),
		zap.String("file", csvPath))

	rows, err := r.ingestor.ReadFile(csvPath)
	if err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}
	result.RowsIngested = len(rows)

	rows = r.normalizer.Normalize(rows)

	rows, err = r.aggregator.Aggregate(rows)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}
	result.RowsLoaded = len(rows)

	smoke := rows
	if len(smoke) > r.smokeRows {
		smoke = smoke[:r.smokeRows]
	}
	r.logger.Info("Starting smoke load", zap.Int("rows", len(smoke)))
	if _, err := r.loader.Load(ctx, r.rawTable, model.RawColumns, smoke, warehouse.ModeReplace, true); err != nil {
		return nil, fmt.Errorf("smoke load failed: %w", err)
	}

	r.logger.Info("Smoke load successful, starting full load", zap.Int("rows", len(rows)))
	result.RawLoad, err = r.loader.Load(ctx, r.rawTable, model.RawColumns, rows, warehouse.ModeReplace, false)
	if err != nil {
		return nil, fmt.Errorf("raw load failed: %w", err)
	}

	filtered := r.filter.Apply(rows)
	result.RowsFiltered = len(filtered)
	result.FilteredLoad, err = r.loader.Load(ctx, r.filteredTable, model.FilteredColumns, filtered, warehouse.ModeReplace, false)
	if err != nil {
		return nil, fmt.Errorf("filtered load failed: %w", err)
	}

	r.collectCounts(ctx, result)

	if r.refresher != nil {
		op, err := r.refresher.Refresh(ctx, r.dataset, r.filteredTable)
		if err != nil {
			// The warehouse is current; the index catches up next run.
			r.logger.Error("Search index refresh failed", zap.Error(err))
		} else {
			result.IndexOp = op
		}
	}

	result.Duration = time.Since(start)

	r.logger.Info("Catalog run complete",
		zap.String("runID", result.RunID),
		zap.Int("ingested", result.RowsIngested),
		zap.Int("loaded", result.RowsLoaded),
		zap.Int("filtered", result.RowsFiltered),
		zap.Int64("rawCount", result.RawCount),
		zap.Int64("filteredCount", result.FilteredCount),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// collectCounts fills in warehouse row counts when a counter is wired.
// Count failures are diagnostic only.
func (r *Runner) collectCounts(ctx context.Context, result *Result) {
	if r.counter == nil {
		return
	}

	var err error
	if result.RawCount, err = r.counter.CountRows(ctx, r.rawTable); err != nil {
		r.logger.Warn("Failed to count raw table", zap.Error(err))
	}
	if result.FilteredCount, err = r.counter.CountRows(ctx, r.filteredTable); err != nil {
		r.logger.Warn("Failed to count filtered table", zap.Error(err))
	}
}
