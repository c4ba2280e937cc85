// pkg/normalize/normalize.go
package normalize

import (
	"strings"

	"go.uber.org/zap"

	"github.com/tridorian/catalog-ingress/pkg/model"
)

// maxReportedDuplicates bounds how many colliding identities a single
// warning names.
const maxReportedDuplicates = 5

// lineBreakMarker replaces line breaks inside description text. The
// storefront renders descriptions as HTML.
const lineBreakMarker = "<br/>"

// Normalizer cleans ingested rows: identity trimming, deduplication and
// free-text sanitization.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a new Normalizer instance
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize produces a clean row sequence from the ingested one. The
// input is not mutated. Rows with an empty record_id after trimming are
// dropped; duplicate record_ids keep the last occurrence, at its last
// position in file order.
func (n *Normalizer) Normalize(rows []model.Row) []model.Row {
	out := make([]model.Row, 0, len(rows))
	lastIndex := make(map[string]int, len(rows))
	collisions := make(map[string]int)

	for _, in := range rows {
		row := in.Clone()

		row[model.FieldRecordID] = strings.TrimSpace(row[model.FieldRecordID])
		id := row[model.FieldRecordID]
		if id == "" {
			continue
		}

		n.fillDefaults(row)
		n.sanitizeText(row)

		// Keep-last semantics: the earlier occurrence's slot is vacated
		// and the winner takes the latest position.
		if prev, ok := lastIndex[id]; ok {
			collisions[id]++
			out[prev] = nil
		}
		lastIndex[id] = len(out)
		out = append(out, row)
	}

	out = compact(out)

	n.reportCollisions(collisions, len(rows))
	n.reportProductNumberStats(out)

	return out
}

// compact removes the slots vacated by deduplication.
func compact(rows []model.Row) []model.Row {
	kept := rows[:0]
	for _, row := range rows {
		if row != nil {
			kept = append(kept, row)
		}
	}
	return kept
}

// fillDefaults applies the missing-value policy: stock defaults to "0",
// every other field to the empty string.
func (n *Normalizer) fillDefaults(row model.Row) {
	for _, col := range model.BaseColumns {
		if row[col] != "" {
			continue
		}
		if col == model.FieldStock {
			row[col] = "0"
		} else {
			row[col] = ""
		}
	}
}

// sanitizeText normalizes line breaks: descriptions keep an HTML marker,
// all other fields collapse breaks to a single space.
func (n *Normalizer) sanitizeText(row model.Row) {
	for _, col := range model.BaseColumns {
		if col == model.FieldDescription {
			row[col] = CleanDescription(row[col])
		} else {
			row[col] = flattenLineBreaks(row[col])
		}
	}
}

// CleanDescription converts every line-break variant in a description to
// the HTML marker. The export writes some breaks as literal backslash
// sequences, so those are handled before real newlines, and the stray
// "n" left behind by a half-replaced sequence is collapsed afterwards.
func CleanDescription(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = strings.ReplaceAll(text, `\\n`, lineBreakMarker)
	text = strings.ReplaceAll(text, `\n`, lineBreakMarker)
	text = strings.ReplaceAll(text, "\n", lineBreakMarker)

	text = strings.ReplaceAll(text, lineBreakMarker+"n", lineBreakMarker)

	return text
}

// flattenLineBreaks replaces every line-break variant with a single space.
func flattenLineBreaks(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return text
}

// reportCollisions emits one warning per load describing duplicate
// record_ids. Diagnostic only; the load continues.
func (n *Normalizer) reportCollisions(collisions map[string]int, total int) {
	if len(collisions) == 0 {
		return
	}

	sample := make([]string, 0, maxReportedDuplicates)
	dupRows := 0
	for id, count := range collisions {
		dupRows += count
		if len(sample) < maxReportedDuplicates {
			sample = append(sample, id)
		}
	}

	n.logger.Warn("Duplicate record_ids found, keeping the latest version",
		zap.Int("duplicateRows", dupRows),
		zap.Int("collidingIDs", len(collisions)),
		zap.Int("totalRows", total),
		zap.Strings("sampleIDs", sample))
}

// reportProductNumberStats logs duplicate product-number counts for
// observability. Duplicates here are expected (shared SKUs), never fatal.
func (n *Normalizer) reportProductNumberStats(rows []model.Row) {
	seen := make(map[string]int, len(rows))
	empty := 0
	for _, row := range rows {
		pn := row[model.FieldProductNumber]
		if pn == "" {
			empty++
			continue
		}
		seen[pn]++
	}

	duplicates := 0
	for _, count := range seen {
		if count > 1 {
			duplicates += count - 1
		}
	}

	n.logger.Info("Product number statistics",
		zap.Int("unique", len(seen)),
		zap.Int("duplicates", duplicates),
		zap.Int("empty", empty))
}
