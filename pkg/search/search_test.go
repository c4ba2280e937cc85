package search

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain english", in: "running shoes", want: "running shoes"},
		{name: "thai text", in: "เสื้อผ้าผู้ชาย", want: "เสื้อผ้าผู้ชาย"},
		{name: "strips html tags", in: "<script>alert(1)</script>shoes", want: "alert1shoes"},
		{name: "strips dangerous characters", in: "shoes'; DROP TABLE--", want: "shoes DROP TABLE--"},
		{name: "keeps allowed punctuation", in: "size-42, model.2", want: "size-42, model.2"},
		{name: "trims whitespace", in: "  shoes  ", want: "shoes"},
		{name: "empty after sanitization", in: "<b></b>!!!", wantErr: true},
		{name: "empty input", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeQuery(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuery) {
					t.Errorf("expected ErrInvalidQuery, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeQuery(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("SanitizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeID(t *testing.T) {
	got, err := SanitizeID("121552*006")
	if err != nil {
		t.Fatalf("SanitizeID failed: %v", err)
	}
	if got != "121552*006" {
		t.Errorf("asterisk should survive sanitization, got %q", got)
	}

	got, err = SanitizeID("AB-12_c'; --")
	if err != nil {
		t.Fatalf("SanitizeID failed: %v", err)
	}
	if got != "AB-12_c--" {
		t.Errorf("SanitizeID = %q, want AB-12_c--", got)
	}

	if _, err := SanitizeID("'();"); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for fully stripped ID, got %v", err)
	}
	if _, err := SanitizeID(strings.Repeat("1", MaxIDLength+1)); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for overlong ID, got %v", err)
	}
}

func TestIsNumericQuery(t *testing.T) {
	if !IsNumericQuery("123456") {
		t.Error("all-digit query should be numeric")
	}
	for _, q := range []string{"123a", "12 34", "", "12.5", "๑๒๓"} {
		if IsNumericQuery(q) {
			t.Errorf("%q should not be numeric", q)
		}
	}
}

func TestClampPageSize(t *testing.T) {
	if got := ClampPageSize(0, 50); got != 1 {
		t.Errorf("ClampPageSize(0) = %d, want 1", got)
	}
	if got := ClampPageSize(200, 50); got != 50 {
		t.Errorf("ClampPageSize(200) = %d, want 50", got)
	}
	if got := ClampPageSize(10, 50); got != 10 {
		t.Errorf("ClampPageSize(10) = %d, want 10", got)
	}
}

func TestFilterByCategory(t *testing.T) {
	results := []Product{
		{ProductNumber: "1", Category: "แฟชั่น, แฟชั่น > ผู้หญิง > กางเกงชั้นใน, แฟชั่น > ผู้หญิง"},
		{ProductNumber: "2", Category: "แฟชั่น > ผู้ชาย"},
		{ProductNumber: "3", Category: ""},
	}

	matched := FilterByCategory(results, "ผู้หญิง")
	if len(matched) != 1 || matched[0].ProductNumber != "1" {
		t.Errorf("expected product 1 only, got %v", matched)
	}

	matched = FilterByCategory(results, "แฟชั่น")
	if len(matched) != 2 {
		t.Errorf("top-level category should match both products, got %d", len(matched))
	}

	// Whole-level match only, no substrings.
	matched = FilterByCategory(results, "ผู้")
	if len(matched) != 0 {
		t.Errorf("partial level should not match, got %d", len(matched))
	}

	matched = FilterByCategory(results, "  ")
	if len(matched) != 3 {
		t.Errorf("blank filter should pass everything through, got %d", len(matched))
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestFilterByPriceRange(t *testing.T) {
	results := []Product{
		{ProductNumber: "sale", RegularPrice: "5000", SalePrice: "3500"},
		{ProductNumber: "regular", RegularPrice: "5000", SalePrice: ""},
		{ProductNumber: "zero-sale", RegularPrice: "2000", SalePrice: "0"},
		{ProductNumber: "bad-price", RegularPrice: "call us", SalePrice: ""},
		{ProductNumber: "no-price", RegularPrice: "", SalePrice: ""},
	}

	got := FilterByPriceRange(results, floatPtr(3000), floatPtr(4000))
	if len(got) != 1 || got[0].ProductNumber != "sale" {
		t.Errorf("sale price should take priority, got %v", got)
	}

	got = FilterByPriceRange(results, floatPtr(1000), nil)
	if len(got) != 3 {
		t.Errorf("open upper bound should keep all priced products, got %d", len(got))
	}

	got = FilterByPriceRange(results, nil, nil)
	if len(got) != len(results) {
		t.Errorf("no bounds should pass everything through, got %d", len(got))
	}
}

func TestEffectivePrice(t *testing.T) {
	price, ok := EffectivePrice(Product{RegularPrice: "5000", SalePrice: "3500"})
	if !ok || price != 3500 {
		t.Errorf("expected sale price 3500, got %v ok=%v", price, ok)
	}

	price, ok = EffectivePrice(Product{RegularPrice: "5000", SalePrice: "0"})
	if !ok || price != 5000 {
		t.Errorf("zero sale price should fall back to regular, got %v ok=%v", price, ok)
	}

	if _, ok := EffectivePrice(Product{RegularPrice: "-5"}); ok {
		t.Error("negative price should not be usable")
	}
	if _, ok := EffectivePrice(Product{}); ok {
		t.Error("missing prices should not be usable")
	}
}

func TestPaginate(t *testing.T) {
	results := make([]Product, 25)

	page, totalPages := Paginate(results, 1, 10)
	if len(page) != 10 || totalPages != 3 {
		t.Errorf("page 1: got %d results, %d pages", len(page), totalPages)
	}

	page, _ = Paginate(results, 3, 10)
	if len(page) != 5 {
		t.Errorf("last page should hold the remainder, got %d", len(page))
	}

	page, totalPages = Paginate(results, 7, 10)
	if len(page) != 0 || totalPages != 3 {
		t.Errorf("out-of-range page should be empty, got %d results", len(page))
	}

	page, totalPages = Paginate(nil, 1, 10)
	if len(page) != 0 || totalPages != 0 {
		t.Errorf("empty result set: got %d results, %d pages", len(page), totalPages)
	}
}
