// pkg/load/loader.go
package load

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tridorian/catalog-ingress/pkg/model"
	"github.com/tridorian/catalog-ingress/pkg/warehouse"
)

// Loader writes a finished row set to a warehouse table in fixed-size
// batches with row-level fallback on batch failure.
type Loader struct {
	writer    warehouse.TableWriter
	batchSize int
	errorFile string
	logger    *zap.Logger
}

// Summary reports the outcome of one table load.
type Summary struct {
	LoadID        string
	Table         string
	Batches       int
	RowsProcessed int
	RowsSucceeded int
	RowsFailed    int
	ErrorRows     []model.ErrorRow
	Duration      time.Duration
}

// NewLoader creates a new Loader instance
func NewLoader(writer warehouse.TableWriter, batchSize int, errorFile string, logger *zap.Logger) (*Loader, error) {
	if writer == nil {
		return nil, fmt.Errorf("table writer cannot be nil")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	return &Loader{
		writer:    writer,
		batchSize: batchSize,
		errorFile: errorFile,
		logger:    logger,
	}, nil
}

// Load writes rows to the named table. The first batch uses the caller's
// write mode; every later batch appends, so a replace happens at most
// once per load. A failed bulk write falls back to row-by-row writes and
// captures failed rows into the error-rows artifact, unless smokeTest is
// set, in which case the first batch failure aborts the load.
func (l *Loader) Load(
	ctx context.Context,
	table string,
	columns []string,
	rows []model.Row,
	mode warehouse.WriteMode,
	smokeTest bool,
) (*Summary, error) {
	start := time.Now()

	columns, rows = realiasID(columns, rows)

	summary := &Summary{
		LoadID:  uuid.New().String(),
		Table:   table,
		Batches: (len(rows) + l.batchSize - 1) / l.batchSize,
	}

	l.logger.Info("Starting table load",
		zap.String("loadID", summary.LoadID),
		zap.String("table", table),
		zap.Int("rows", len(rows)),
		zap.Int("batches", summary.Batches),
		zap.String("mode", mode.String()),
		zap.Bool("smokeTest", smokeTest))

	for i := 0; i < len(rows); i += l.batchSize {
		end := i + l.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]
		batchNum := i/l.batchSize + 1

		batchMode := warehouse.ModeAppend
		if batchNum == 1 {
			batchMode = mode
		}

		err := l.writer.WriteRows(ctx, table, batchMode, columns, batch)
		if err == nil {
			summary.RowsSucceeded += len(batch)
			summary.RowsProcessed += len(batch)
			l.logger.Info("Batch uploaded successfully",
				zap.Int("batch", batchNum),
				zap.Int("totalBatches", summary.Batches),
				zap.Int("rows", len(batch)))
			continue
		}

		l.logger.Error("Batch upload failed",
			zap.Int("batch", batchNum),
			zap.Int("totalBatches", summary.Batches),
			zap.Error(err))

		if smokeTest {
			return nil, fmt.Errorf("smoke test: batch %d failed, terminating load: %w", batchNum, err)
		}

		l.fallbackRowByRow(ctx, table, columns, batch, batchMode, batchNum, i, summary)
		summary.RowsProcessed += len(batch)
	}

	if len(summary.ErrorRows) > 0 {
		if err := l.writeErrorArtifact(summary.ErrorRows); err != nil {
			l.logger.Error("Failed to persist error rows", zap.Error(err))
		} else {
			l.logger.Warn("Saved error rows",
				zap.Int("count", len(summary.ErrorRows)),
				zap.String("file", l.errorFile))
		}
	}

	summary.Duration = time.Since(start)

	l.logger.Info("Load summary",
		zap.String("loadID", summary.LoadID),
		zap.String("table", table),
		zap.Int("rowsProcessed", summary.RowsProcessed),
		zap.Int("rowsSucceeded", summary.RowsSucceeded),
		zap.Int("rowsFailed", summary.RowsFailed),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

// fallbackRowByRow retries a failed batch one row at a time. Row failures
// are captured, never escalated. Until one row write succeeds the batch's
// own mode is used, so a first-batch replace is still honored; afterwards
// every row appends.
func (l *Loader) fallbackRowByRow(
	ctx context.Context,
	table string,
	columns []string,
	batch []model.Row,
	batchMode warehouse.WriteMode,
	batchNum int,
	offset int,
	summary *Summary,
) {
	l.logger.Info("Falling back to row-by-row writes",
		zap.Int("batch", batchNum),
		zap.Int("rows", len(batch)))

	rowMode := batchMode
	for j, row := range batch {
		err := l.writer.WriteRows(ctx, table, rowMode, columns, []model.Row{row})
		if err != nil {
			summary.RowsFailed++
			summary.ErrorRows = append(summary.ErrorRows, model.ErrorRow{
				RowIndex:    offset + j,
				BatchNumber: batchNum,
				Timestamp:   time.Now().UTC(),
				Row:         row,
			})
			l.logger.Error("Row write failed",
				zap.Int("rowIndex", offset+j),
				zap.Int("batch", batchNum),
				zap.Error(err))
			continue
		}

		summary.RowsSucceeded++
		rowMode = warehouse.ModeAppend
	}
}

// writeErrorArtifact persists captured error rows as a CSV side file for
// operator inspection.
func (l *Loader) writeErrorArtifact(errorRows []model.ErrorRow) error {
	f, err := os.Create(l.errorFile)
	if err != nil {
		return fmt.Errorf("failed to create error rows file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"row_index", "batch_number", "error_timestamp", "row_data"}); err != nil {
		return fmt.Errorf("failed to write error rows header: %w", err)
	}

	for _, er := range errorRows {
		data, err := json.Marshal(er.Row)
		if err != nil {
			return fmt.Errorf("failed to encode error row %d: %w", er.RowIndex, err)
		}
		record := []string{
			fmt.Sprintf("%d", er.RowIndex),
			fmt.Sprintf("%d", er.BatchNumber),
			er.Timestamp.Format(time.RFC3339),
			string(data),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write error row %d: %w", er.RowIndex, err)
		}
	}

	w.Flush()
	return w.Error()
}

// realiasID renames a column literally named "id" to record_id right
// before write, in case upstream renaming was skipped.
func realiasID(columns []string, rows []model.Row) ([]string, []model.Row) {
	hasID := false
	for _, col := range columns {
		if col == "id" {
			hasID = true
			break
		}
	}
	if !hasID {
		return columns, rows
	}

	outCols := make([]string, len(columns))
	for i, col := range columns {
		if col == "id" {
			outCols[i] = model.FieldRecordID
		} else {
			outCols[i] = col
		}
	}

	outRows := make([]model.Row, len(rows))
	for i, row := range rows {
		r := row.Clone()
		if v, ok := r["id"]; ok {
			if _, exists := r[model.FieldRecordID]; !exists {
				r[model.FieldRecordID] = v
			}
			delete(r, "id")
		}
		outRows[i] = r
	}

	return outCols, outRows
}
