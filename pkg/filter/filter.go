// pkg/filter/filter.go
package filter

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tridorian/catalog-ingress/pkg/model"
)

// Filter derives the public catalog view from aggregated rows: variants
// and unpublished products are removed and each surviving row gains an
// availability flag and storefront URIs.
type Filter struct {
	productBaseURL string
	logger         *zap.Logger
}

// NewFilter creates a new Filter instance
func NewFilter(productBaseURL string, logger *zap.Logger) *Filter {
	return &Filter{
		productBaseURL: productBaseURL,
		logger:         logger,
	}
}

// Apply returns the filtered view of the given rows. A row survives when
// it has a product number, is not a variation and is published. The
// input is not mutated.
func (f *Filter) Apply(rows []model.Row) []model.Row {
	out := make([]model.Row, 0, len(rows))
	droppedVariants := 0
	droppedUnpublished := 0
	droppedEmpty := 0

	for _, in := range rows {
		switch {
		case in[model.FieldProductNumber] == "":
			droppedEmpty++
			continue
		case in[model.FieldIsProductVariation] != "0":
			droppedVariants++
			continue
		case in[model.FieldIsPublished] != "1":
			droppedUnpublished++
			continue
		}

		row := in.Clone()
		row[model.FieldImageURI] = firstImageURI(row[model.FieldImageURI])
		row[model.FieldCustomURI] = f.productURL(row[model.FieldCustomURI])
		if isAvailable(row[model.FieldStock], row[model.FieldRegularPrice]) {
			row[model.FieldIsAvailable] = "1"
		} else {
			row[model.FieldIsAvailable] = "0"
		}
		out = append(out, row)
	}

	f.logger.Info("Built filtered catalog view",
		zap.Int("input", len(rows)),
		zap.Int("kept", len(out)),
		zap.Int("droppedVariants", droppedVariants),
		zap.Int("droppedUnpublished", droppedUnpublished),
		zap.Int("droppedEmptyProductNumber", droppedEmpty))

	return out
}

// firstImageURI keeps only the first entry of a comma-separated image
// list. The export concatenates gallery images into one field.
func firstImageURI(uris string) string {
	if i := strings.Index(uris, ","); i >= 0 {
		uris = uris[:i]
	}
	return strings.TrimSpace(uris)
}

// productURL turns a product slug into an absolute storefront URL. An
// empty slug stays empty rather than pointing at the storefront root.
func (f *Filter) productURL(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ""
	}
	return f.productBaseURL + slug
}

// isAvailable reports whether a product is purchasable: positive stock
// and a positive regular price. Unparseable values count as unavailable.
func isAvailable(stock, regularPrice string) bool {
	qty, err := strconv.Atoi(strings.TrimSpace(stock))
	if err != nil || qty <= 0 {
		return false
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(regularPrice), 64)
	if err != nil || price <= 0 {
		return false
	}
	return true
}
