// pkg/aggregate/aggregate.go
package aggregate

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tridorian/catalog-ingress/pkg/model"
)

// productNumberCleaner rewrites the separators the export is known to
// mix into SKUs. Everything becomes the variant separator.
var productNumberCleaner = strings.NewReplacer("+", "-", " ", "-", "*", "-")

// Aggregator classifies rows as parent products or variants and rolls
// variant stock and price up onto the parent rows.
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate returns a row sequence in which every row carries a correct
// is_product_variation flag and every parent row carries the sum of its
// variants' stock and the regular price of its last variant. The input
// is not mutated. A non-numeric variant stock aborts the load.
func (a *Aggregator) Aggregate(rows []model.Row) ([]model.Row, error) {
	out := make([]model.Row, len(rows))

	// Pass 1: normalize product numbers, classify, and index both sides by
	// the portion of the SKU before the first separator. The variant index
	// keeps input order, which the price rollup depends on.
	variantsByParent := make(map[string][]int)
	parentRows := make(map[string][]int)

	for i, in := range rows {
		row := in.Clone()

		pn := productNumberCleaner.Replace(row[model.FieldProductNumber])
		row[model.FieldProductNumber] = pn

		if sep := strings.Index(pn, "-"); sep >= 0 {
			row[model.FieldIsProductVariation] = "1"
			variantsByParent[pn[:sep]] = append(variantsByParent[pn[:sep]], i)
		} else {
			row[model.FieldIsProductVariation] = "0"
			if pn != "" {
				parentRows[pn] = append(parentRows[pn], i)
			}
		}

		out[i] = row
	}

	// Pass 2: roll up each parent that has at least one variant. Both
	// sides come from the pass-1 indices, so the cost stays linear in the
	// catalog size.
	aggregated := 0
	for parent, parentIdx := range parentRows {
		variants := variantsByParent[parent]
		if len(variants) == 0 {
			continue
		}

		stockSum := 0
		for _, idx := range variants {
			stock, err := strconv.Atoi(strings.TrimSpace(out[idx][model.FieldStock]))
			if err != nil {
				return nil, fmt.Errorf(
					"aggregation failed for parent %q: non-numeric stock %q on variant %q: %w",
					parent, out[idx][model.FieldStock], out[idx][model.FieldProductNumber], err)
			}
			stockSum += stock
		}

		// Last variant in input order wins, mirroring the keep-last
		// convention used by deduplication.
		lastPrice := out[variants[len(variants)-1]][model.FieldRegularPrice]

		for _, idx := range parentIdx {
			out[idx][model.FieldStock] = strconv.Itoa(stockSum)
			out[idx][model.FieldRegularPrice] = lastPrice
		}
		aggregated++
	}

	a.logger.Info("Aggregated product variants",
		zap.Int("parents", len(parentRows)),
		zap.Int("parentsWithVariants", aggregated),
		zap.Int("variantGroups", len(variantsByParent)))

	return out, nil
}
