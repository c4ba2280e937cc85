// pkg/warehouse/bigquery.go
package warehouse

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tridorian/catalog-ingress/pkg/model"
)

// Client wraps a BigQuery connection scoped to one dataset. It
// implements TableWriter via CSV load jobs so that the replace/append
// disposition is applied atomically per batch.
type Client struct {
	bq      *bigquery.Client
	project string
	dataset string
	logger  *zap.Logger
}

// NewClient creates and verifies a new warehouse client
func NewClient(ctx context.Context, project, dataset, credentialsFile string) (*Client, error) {
	logger := zap.L().Named("warehouse")

	logger.Info("Connecting to BigQuery",
		zap.String("project", project),
		zap.String("dataset", dataset))

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	bq, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize BigQuery client: %w", err)
	}

	return &Client{
		bq:      bq,
		project: project,
		dataset: dataset,
		logger:  logger,
	}, nil
}

// TestConnection verifies the connection by listing one dataset.
func (c *Client) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	it := c.bq.Datasets(ctx)
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("connection test failed: %w", err)
	}

	c.logger.Info("Successfully connected to BigQuery")
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	c.logger.Info("Closing BigQuery client")
	return c.bq.Close()
}

// WriteRows loads a row batch into the named table through a CSV load
// job. The schema is derived from the ordered column set, all STRING.
func (c *Client) WriteRows(ctx context.Context, table string, mode WriteMode, columns []string, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row.Values(columns)); err != nil {
			return fmt.Errorf("failed to encode row batch: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode row batch: %w", err)
	}

	source := bigquery.NewReaderSource(&buf)
	source.SourceFormat = bigquery.CSV
	source.AllowQuotedNewlines = true
	source.Schema = stringSchema(columns)

	loader := c.bq.Dataset(c.dataset).Table(table).LoaderFrom(source)
	switch mode {
	case ModeReplace:
		loader.WriteDisposition = bigquery.WriteTruncate
	default:
		loader.WriteDisposition = bigquery.WriteAppend
	}

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("load job submission failed for table %s: %w", table, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("load job wait failed for table %s: %w", table, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("load job failed for table %s: %w", table, err)
	}

	c.logger.Debug("Wrote row batch",
		zap.String("table", table),
		zap.String("mode", mode.String()),
		zap.Int("rows", len(rows)))

	return nil
}

// CountRows returns the row count of a table in the client's dataset.
func (c *Client) CountRows(ctx context.Context, table string) (int64, error) {
	q := c.bq.Query(fmt.Sprintf(
		"SELECT COUNT(*) AS count FROM `%s.%s.%s`", c.project, c.dataset, table))

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("count query failed for table %s: %w", table, err)
	}

	var values []bigquery.Value
	if err := it.Next(&values); err != nil {
		return 0, fmt.Errorf("count query returned no rows for table %s: %w", table, err)
	}

	count, ok := values[0].(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected count type %T for table %s", values[0], table)
	}
	return count, nil
}

// QueryRows runs a parameterized query and returns each result row as a
// field map keyed by column name.
func (c *Client) QueryRows(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]map[string]bigquery.Value, error) {
	q := c.bq.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var out []map[string]bigquery.Value
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate query results: %w", err)
		}
		out = append(out, row)
	}

	return out, nil
}

// TableRef returns the fully qualified identifier of a table in the
// client's dataset.
func (c *Client) TableRef(table string) string {
	return fmt.Sprintf("%s.%s.%s", c.project, c.dataset, table)
}

// stringSchema builds an all-STRING BigQuery schema from column names.
func stringSchema(columns []string) bigquery.Schema {
	schema := make(bigquery.Schema, len(columns))
	for i, col := range columns {
		schema[i] = &bigquery.FieldSchema{Name: col, Type: bigquery.StringFieldType}
	}
	return schema
}
