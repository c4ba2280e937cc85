// pkg/ingest/ingest.go
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/tridorian/catalog-ingress/pkg/model"
)

// headerAliases maps source export column names to canonical field names.
// The export arrives with Thai headers; already-canonical headers are also
// accepted so that remapping is idempotent.
var headerAliases = map[string]string{
	"ID": model.FieldRecordID,
	"id": model.FieldRecordID,

	"รหัสสินค้า":           model.FieldProductNumber,
	"ชื่อ":                 model.FieldProductName,
	"เผยแพร่แล้ว":          model.FieldIsPublished,
	"คำอธิบาย":             model.FieldDescription,
	"วันเริ่มต้นลดราคา":    model.FieldSaleStartDate,
	"วันสิ้นสุดการลดราคา":  model.FieldSaleEndDate,
	"คลังสินค้า":           model.FieldStock,
	"ราคาที่ลด":            model.FieldSalePrice,
	"ราคาปกติ":             model.FieldRegularPrice,
	"หมวดหมู่":             model.FieldCategory,
	"Brands":               model.FieldBrands,
	"ไฟล์รูปภาพ":           model.FieldImageURI,
	"Custom URI":           model.FieldCustomURI,

	model.FieldRecordID:      model.FieldRecordID,
	model.FieldProductNumber: model.FieldProductNumber,
	model.FieldProductName:   model.FieldProductName,
	model.FieldIsPublished:   model.FieldIsPublished,
	model.FieldDescription:   model.FieldDescription,
	model.FieldSaleStartDate: model.FieldSaleStartDate,
	model.FieldSaleEndDate:   model.FieldSaleEndDate,
	model.FieldStock:         model.FieldStock,
	model.FieldSalePrice:     model.FieldSalePrice,
	model.FieldRegularPrice:  model.FieldRegularPrice,
	model.FieldCategory:      model.FieldCategory,
	model.FieldBrands:        model.FieldBrands,
	model.FieldImageURI:      model.FieldImageURI,
	model.FieldCustomURI:     model.FieldCustomURI,
}

// SchemaMismatchError reports required source columns that were absent
// from the export header. It aborts the load.
type SchemaMismatchError struct {
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("missing columns in CSV: %s", strings.Join(e.Missing, ", "))
}

// Ingestor reads a raw catalog export and produces canonical rows
type Ingestor struct {
	encoding string
	logger   *zap.Logger
}

// NewIngestor creates a new Ingestor instance
func NewIngestor(encoding string, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		encoding: encoding,
		logger:   logger,
	}
}

// ReadFile reads the export at path and returns one canonical row per
// physical record. Rows with the wrong field count are coerced to header
// arity and logged, never dropped. A missing required column is fatal.
func (ing *Ingestor) ReadFile(path string) ([]model.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return ing.Read(f)
}

// Read ingests a catalog export from r.
func (ing *Ingestor) Read(r io.Reader) ([]model.Row, error) {
	decoded, err := decodeReader(r, ing.encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1 // arity is checked and coerced per row
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	canonical, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	ing.logger.Info("Mapped export header",
		zap.Int("sourceColumns", len(header)),
		zap.Strings("canonical", compact(canonical)))

	rows := make([]model.Row, 0, 1024)
	malformed := 0

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed physical line: warn and keep going, matching
			// the tolerant read policy of the export producer.
			ing.logger.Warn("Skipping unparseable line",
				zap.Int("line", line),
				zap.Error(err))
			continue
		}

		if len(record) != len(header) {
			malformed++
			ing.logger.Warn("Coercing row with unexpected column count",
				zap.Int("line", line),
				zap.Int("expected", len(header)),
				zap.Int("got", len(record)))
			record = coerceArity(record, len(header))
		}

		row := make(model.Row, len(model.BaseColumns))
		for i, name := range canonical {
			if name == "" {
				continue // unmapped source column, dropped
			}
			row[name] = record[i]
		}
		for _, col := range model.BaseColumns {
			if _, ok := row[col]; !ok {
				row[col] = ""
			}
		}

		rows = append(rows, row)
	}

	ing.logger.Info("Ingested catalog export",
		zap.Int("rows", len(rows)),
		zap.Int("malformedRows", malformed))

	return rows, nil
}

// mapHeader resolves every header cell to its canonical name and verifies
// that all required fields are covered.
func mapHeader(header []string) ([]string, error) {
	canonical := make([]string, len(header))
	seen := make(map[string]bool, len(model.BaseColumns))

	for i, h := range header {
		h = cleanHeaderCell(h)
		if name, ok := headerAliases[h]; ok {
			canonical[i] = name
			seen[name] = true
		}
	}

	var missing []string
	for _, col := range model.BaseColumns {
		if !seen[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Missing: missing}
	}

	return canonical, nil
}

// cleanHeaderCell strips whitespace, stray carriage returns and a UTF-8
// BOM from a header cell.
func cleanHeaderCell(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ReplaceAll(h, "\r", "")
	return strings.TrimSpace(h)
}

// coerceArity truncates or pads a record to the expected field count.
func coerceArity(record []string, want int) []string {
	if len(record) > want {
		return record[:want]
	}
	for len(record) < want {
		record = append(record, "")
	}
	return record
}

// decodeReader wraps r with a charset decoder when the configured
// encoding is not UTF-8.
func decodeReader(r io.Reader, name string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return r, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported input encoding %q", name)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

func compact(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
