// pkg/model/row.go
package model

import "time"

// Canonical field names for a catalog row after header remapping.
const (
	FieldRecordID           = "record_id"
	FieldProductNumber      = "product_number"
	FieldProductName        = "product_name"
	FieldIsPublished        = "is_published"
	FieldDescription        = "description"
	FieldSaleStartDate      = "sale_start_date"
	FieldSaleEndDate        = "sale_end_date"
	FieldStock              = "stock"
	FieldSalePrice          = "sale_price"
	FieldRegularPrice       = "regular_price"
	FieldCategory           = "category"
	FieldBrands             = "brands"
	FieldImageURI           = "image_uri"
	FieldCustomURI          = "custom_uri"
	FieldIsProductVariation = "is_product_variation"
	FieldIsAvailable        = "is_available"
)

// BaseColumns is the canonical column set produced by the ingestor,
// in warehouse order. is_product_variation is derived later by the
// aggregator and is not part of the source export.
var BaseColumns = []string{
	FieldRecordID,
	FieldProductNumber,
	FieldProductName,
	FieldIsPublished,
	FieldDescription,
	FieldSaleStartDate,
	FieldSaleEndDate,
	FieldStock,
	FieldSalePrice,
	FieldRegularPrice,
	FieldCategory,
	FieldBrands,
	FieldImageURI,
	FieldCustomURI,
}

// RawColumns is the schema of the raw warehouse table.
var RawColumns = append(append([]string{}, BaseColumns...), FieldIsProductVariation)

// FilteredColumns is the schema of the public filtered table.
var FilteredColumns = append(append([]string{}, RawColumns...), FieldIsAvailable)

// Row is one catalog row keyed by canonical field name. All values are
// strings, matching the source export and the warehouse schema.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Values returns the row's values in the given column order. Missing
// fields yield empty strings.
func (r Row) Values(columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = r[col]
	}
	return out
}

// ErrorRow records a single row that failed to load during row-by-row
// fallback. It is the unit of the error-rows artifact.
type ErrorRow struct {
	RowIndex    int       // index of the row in the full load, zero-based
	BatchNumber int       // 1-based batch the row belonged to
	Timestamp   time.Time // when the failure was observed
	Row         Row       // full field map of the failed row
}
