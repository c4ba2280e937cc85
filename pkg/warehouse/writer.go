// pkg/warehouse/writer.go
package warehouse

import (
	"context"

	"github.com/tridorian/catalog-ingress/pkg/model"
)

// WriteMode selects what happens to existing table contents on write.
type WriteMode int

const (
	// ModeReplace truncates the table before writing.
	ModeReplace WriteMode = iota
	// ModeAppend adds rows to the existing table contents.
	ModeAppend
)

// String returns a string representation of the write mode
func (m WriteMode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeAppend:
		return "append"
	default:
		return "unknown"
	}
}

// TableWriter is the warehouse write surface the batch loader depends
// on. Rows are written with the given ordered column set; every value
// is a string.
type TableWriter interface {
	// WriteRows writes a row batch to the named table.
	WriteRows(ctx context.Context, table string, mode WriteMode, columns []string, rows []model.Row) error
}
