// pkg/search/flatsome.go
package search

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Flatsome is the AJAX search payload of the storefront theme.
type Flatsome struct {
	Suggestions  []FlatsomeSuggestion `json:"suggestions"`
	TotalResults int                  `json:"total_results"`
	PageNumber   int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	TotalPages   int                  `json:"total_pages"`
}

// FlatsomeSuggestion is one product entry in the theme payload.
type FlatsomeSuggestion struct {
	Type  string `json:"type"`
	ID    int    `json:"id"`
	Value string `json:"value"`
	URL   string `json:"url"`
	Img   string `json:"img"`
	Price string `json:"price"`
}

// pricePrinter renders prices with thousands separators.
var pricePrinter = message.NewPrinter(language.English)

// ToFlatsome converts a result page into the theme payload.
func ToFlatsome(page *Page) *Flatsome {
	suggestions := make([]FlatsomeSuggestion, 0, len(page.Results))
	for _, res := range page.Results {
		suggestions = append(suggestions, FlatsomeSuggestion{
			Type:  "Product",
			ID:    SafeParseProductID(res.ProductNumber),
			Value: res.ProductName,
			URL:   res.ProductURI,
			Img:   res.ImageURI,
			Price: FormatPriceHTML(res.RegularPrice, res.SalePrice, res.IsAvailable),
		})
	}

	return &Flatsome{
		Suggestions:  suggestions,
		TotalResults: page.TotalResults,
		PageNumber:   page.PageNumber,
		PageSize:     page.PageSize,
		TotalPages:   page.TotalPages,
	}
}

// SafeParseProductID parses a product number into the numeric ID the
// theme expects: the first space-separated token, or 0 when that is not
// a number.
func SafeParseProductID(productNumber string) int {
	fields := strings.Fields(strings.TrimSpace(productNumber))
	if len(fields) == 0 {
		return 0
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return id
}

// FormatPriceHTML renders a product price as WooCommerce markup: plain
// amount, struck-through regular with sale price, or an out-of-stock
// span. &#3647; is the Thai baht sign.
func FormatPriceHTML(regularPrice, salePrice string, isAvailable bool) string {
	regular, err := parsePrice(regularPrice)
	if err != nil {
		regular = 0
	}
	sale, err := parsePrice(salePrice)
	if err != nil {
		sale = 0
	}

	if !isAvailable || regular == 0 {
		return `<span class="woocommerce-Price-amount amount"><bdi>Out of stock</bdi></span>`
	}

	if sale > 0 && sale < regular {
		regularStr := formatAmount(regular)
		saleStr := formatAmount(sale)
		return fmt.Sprintf(
			`<del aria-hidden="true">%s</del> <span class="screen-reader-text">Original price was: %s&nbsp;&#3647;.</span><ins aria-hidden="true">%s</ins><span class="screen-reader-text">Current price is: %s&nbsp;&#3647;.</span>`,
			priceAmountHTML(regularStr), regularStr, priceAmountHTML(saleStr), saleStr)
	}

	return priceAmountHTML(formatAmount(regular))
}

func priceAmountHTML(amount string) string {
	return fmt.Sprintf(
		`<span class="woocommerce-Price-amount amount"><bdi>%s&nbsp;<span class="woocommerce-Price-currencySymbol">&#3647;</span></bdi></span>`,
		amount)
}

func formatAmount(price float64) string {
	return pricePrinter.Sprintf("%.2f", price)
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
