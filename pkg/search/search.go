// pkg/search/search.go
package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidQuery marks input that failed validation or sanitization.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotFound marks a lookup that matched no product.
	ErrNotFound = errors.New("product not found")
)

// Query length bounds accepted by the text search surface.
const (
	MinQueryLength = 1
	MaxQueryLength = 1000
)

// Product number length bounds accepted by the ID lookup surface.
const (
	MinIDLength = 1
	MaxIDLength = 100
)

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	// Keeps word characters, whitespace, the Thai block and a few
	// punctuation marks product names legitimately contain.
	queryCharPattern = regexp.MustCompile(`[^\w\s\x{0E00}-\x{0E7F}\-.,]`)
	// Product numbers allow word characters plus the separator variants
	// seen in the catalog, including the literal asterisk.
	idCharPattern = regexp.MustCompile(`[^\w\-*]`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

// Product is one search or lookup result.
type Product struct {
	ID            string `json:"id"`
	RecordID      string `json:"record_id"`
	ProductNumber string `json:"product_number"`
	ProductName   string `json:"product_name"`
	ImageURI      string `json:"image_uri"`
	Description   string `json:"description"`
	ProductURI    string `json:"product_uri"`
	Category      string `json:"category"`
	Brands        string `json:"brands"`
	RegularPrice  string `json:"regular_price"`
	SalePrice     string `json:"sale_price"`
	IsAvailable   bool   `json:"is_available"`
}

// Page is one page of text search results with pagination metadata.
type Page struct {
	Query        string    `json:"query"`
	Results      []Product `json:"results"`
	TotalResults int       `json:"total_results"`
	PageNumber   int       `json:"page"`
	PageSize     int       `json:"page_size"`
	TotalPages   int       `json:"total_pages"`
}

// SanitizeQuery strips HTML tags and characters outside the allowed set
// from a search query.
func SanitizeQuery(query string) (string, error) {
	query = htmlTagPattern.ReplaceAllString(query, "")
	query = queryCharPattern.ReplaceAllString(query, "")
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: empty query after sanitization", ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return "", fmt.Errorf("%w: query exceeds %d characters", ErrInvalidQuery, MaxQueryLength)
	}
	return query, nil
}

// SanitizeID strips everything but product-number characters from an ID
// and enforces the length bounds.
func SanitizeID(id string) (string, error) {
	id = idCharPattern.ReplaceAllString(id, "")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty ID after sanitization", ErrInvalidQuery)
	}
	if len(id) < MinIDLength || len(id) > MaxIDLength {
		return "", fmt.Errorf("%w: ID length must be between %d and %d characters",
			ErrInvalidQuery, MinIDLength, MaxIDLength)
	}
	return id, nil
}

// IsNumericQuery reports whether a query is all digits, which the text
// search treats as a product ID.
func IsNumericQuery(query string) bool {
	return digitsPattern.MatchString(query)
}

// ClampPageSize bounds a requested page size to [1, max].
func ClampPageSize(pageSize, max int) int {
	if pageSize < 1 {
		return 1
	}
	if pageSize > max {
		return max
	}
	return pageSize
}

// FilterByCategory keeps results whose category matches the filter at
// any level of any comma-separated hierarchy path. Matching is
// case-insensitive on whole levels, never substrings.
func FilterByCategory(results []Product, categoryFilter string) []Product {
	categoryFilter = strings.ToLower(strings.TrimSpace(categoryFilter))
	if categoryFilter == "" {
		return results
	}

	out := make([]Product, 0, len(results))
	for _, res := range results {
		if res.Category == "" {
			continue
		}
		if categoryMatches(res.Category, categoryFilter) {
			out = append(out, res)
		}
	}
	return out
}

func categoryMatches(category, filter string) bool {
	for _, path := range strings.Split(category, ",") {
		for _, level := range strings.Split(path, ">") {
			if strings.ToLower(strings.TrimSpace(level)) == filter {
				return true
			}
		}
	}
	return false
}

// FilterByPriceRange keeps results whose effective price falls inside
// [lo, hi]. Nil bounds are open. Results without a usable price are
// dropped whenever a bound is set.
func FilterByPriceRange(results []Product, lo, hi *float64) []Product {
	if lo == nil && hi == nil {
		return results
	}

	out := make([]Product, 0, len(results))
	for _, res := range results {
		price, ok := EffectivePrice(res)
		if !ok {
			continue
		}
		if lo != nil && price < *lo {
			continue
		}
		if hi != nil && price > *hi {
			continue
		}
		out = append(out, res)
	}
	return out
}

// EffectivePrice returns the price a buyer would pay: the sale price when
// present and non-zero, otherwise the regular price. ok is false when
// neither parses to a positive number.
func EffectivePrice(res Product) (float64, bool) {
	sale := strings.TrimSpace(res.SalePrice)
	if sale != "" && sale != "0" {
		if price, err := parsePrice(sale); err == nil && price > 0 {
			return price, true
		}
		return 0, false
	}

	regular := strings.TrimSpace(res.RegularPrice)
	if regular == "" {
		return 0, false
	}
	price, err := parsePrice(regular)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// Paginate slices one page out of the full result set and reports the
// page count. page is 1-based.
func Paginate(results []Product, page, pageSize int) ([]Product, int) {
	totalPages := (len(results) + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start >= len(results) {
		return []Product{}, totalPages
	}
	end := start + pageSize
	if end > len(results) {
		end = len(results)
	}
	return results[start:end], totalPages
}
