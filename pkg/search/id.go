// pkg/search/id.go
package search

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
)

// RowQuerier is the warehouse query surface the ID lookup depends on.
type RowQuerier interface {
	QueryRows(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]map[string]bigquery.Value, error)
}

// IDSearcher resolves exact product numbers against the filtered catalog
// table. No fuzzy matching; one row or nothing.
type IDSearcher struct {
	querier  RowQuerier
	tableRef string
	logger   *zap.Logger
}

// NewIDSearcher creates a new IDSearcher instance. tableRef is the fully
// qualified filtered table identifier.
func NewIDSearcher(querier RowQuerier, tableRef string) (*IDSearcher, error) {
	if querier == nil {
		return nil, fmt.Errorf("row querier cannot be nil")
	}
	if tableRef == "" {
		return nil, fmt.Errorf("table reference is required")
	}

	return &IDSearcher{
		querier:  querier,
		tableRef: tableRef,
		logger:   zap.L().Named("idsearch"),
	}, nil
}

// Lookup returns the product with the given product number, or
// ErrNotFound. The input is sanitized before it reaches the query.
func (s *IDSearcher) Lookup(ctx context.Context, id string) (*Product, error) {
	sanitized, err := SanitizeID(id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Looking up product", zap.String("productNumber", sanitized))

	sql := fmt.Sprintf(`SELECT
	record_id, product_number, product_name, description,
	sale_price, regular_price, category, brands,
	image_uri, custom_uri, is_available
FROM `+"`%s`"+`
WHERE product_number = @product_number
LIMIT 1`, s.tableRef)

	rows, err := s.querier.QueryRows(ctx, sql, []bigquery.QueryParameter{
		{Name: "product_number", Value: sanitized},
	})
	if err != nil {
		return nil, fmt.Errorf("product lookup failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sanitized)
	}

	row := rows[0]
	product := &Product{
		ID:            valueString(row["record_id"]),
		RecordID:      valueString(row["record_id"]),
		ProductNumber: valueString(row["product_number"]),
		ProductName:   valueString(row["product_name"]),
		ImageURI:      valueString(row["image_uri"]),
		Description:   valueString(row["description"]),
		ProductURI:    valueString(row["custom_uri"]),
		Category:      valueString(row["category"]),
		Brands:        valueString(row["brands"]),
		RegularPrice:  valueString(row["regular_price"]),
		SalePrice:     valueString(row["sale_price"]),
		IsAvailable:   valueTruthy(row["is_available"]),
	}

	s.logger.Info("Found product", zap.String("name", product.ProductName))
	return product, nil
}

func valueString(v bigquery.Value) string {
	switch value := v.(type) {
	case string:
		return value
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", value)
	}
}

func valueTruthy(v bigquery.Value) bool {
	switch value := v.(type) {
	case string:
		return value == "1"
	case int64:
		return value == 1
	case bool:
		return value
	default:
		return false
	}
}
