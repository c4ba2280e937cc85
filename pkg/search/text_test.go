package search

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

type fakeLookup struct {
	product *Product
	err     error
	askedID string
}

func (f *fakeLookup) Lookup(ctx context.Context, id string) (*Product, error) {
	f.askedID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.product, nil
}

func stubSearcher(results []Product, idLookup Lookup) *TextSearcher {
	s := &TextSearcher{
		idLookup:        idLookup,
		defaultPageSize: 10,
		maxPageSize:     50,
		logger:          zap.NewNop(),
	}
	s.fetch = func(ctx context.Context, query string, size int) ([]Product, error) {
		return results, nil
	}
	return s
}

func manyProducts(n int) []Product {
	out := make([]Product, n)
	for i := range out {
		out[i] = Product{
			ProductNumber: fmt.Sprintf("%d", i+1),
			Category:      "แฟชั่น > ผู้หญิง",
			RegularPrice:  fmt.Sprintf("%d", (i+1)*100),
		}
	}
	return out
}

func TestSearchPaginatesResults(t *testing.T) {
	s := stubSearcher(manyProducts(25), nil)

	page, err := s.Search(context.Background(), "เสื้อผ้า", 2, 10, "", nil, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if page.TotalResults != 25 || page.TotalPages != 3 {
		t.Errorf("got total=%d pages=%d, want 25/3", page.TotalResults, page.TotalPages)
	}
	if len(page.Results) != 10 {
		t.Errorf("expected 10 results on page 2, got %d", len(page.Results))
	}
	if page.Results[0].ProductNumber != "11" {
		t.Errorf("page 2 should start at product 11, got %s", page.Results[0].ProductNumber)
	}
	if page.PageNumber != 2 || page.PageSize != 10 {
		t.Errorf("unexpected pagination metadata: %+v", page)
	}
}

func TestSearchAppliesFilters(t *testing.T) {
	results := []Product{
		{ProductNumber: "1", Category: "แฟชั่น > ผู้หญิง", RegularPrice: "3000"},
		{ProductNumber: "2", Category: "แฟชั่น > ผู้ชาย", RegularPrice: "3000"},
		{ProductNumber: "3", Category: "แฟชั่น > ผู้หญิง", RegularPrice: "9000"},
	}
	s := stubSearcher(results, nil)

	page, err := s.Search(context.Background(), "เสื้อผ้า", 1, 10, "ผู้หญิง", floatPtr(1000), floatPtr(5000))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if page.TotalResults != 1 || page.Results[0].ProductNumber != "1" {
		t.Errorf("filters should leave product 1 only, got %+v", page.Results)
	}
}

func TestSearchResolvesNumericQuery(t *testing.T) {
	lookup := &fakeLookup{product: &Product{ProductName: "Running shoes"}}
	s := stubSearcher(manyProducts(3), lookup)

	page, err := s.Search(context.Background(), "121552", 1, 10, "", nil, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if lookup.askedID != "121552" {
		t.Errorf("numeric query should hit the ID lookup, asked %q", lookup.askedID)
	}
	if page.Query != "Running shoes" {
		t.Errorf("query should be replaced by the product name, got %q", page.Query)
	}
}

func TestSearchNumericQueryWithoutMatchFails(t *testing.T) {
	lookup := &fakeLookup{err: ErrNotFound}
	s := stubSearcher(nil, lookup)

	if _, err := s.Search(context.Background(), "999999", 1, 10, "", nil, nil); err == nil {
		t.Fatal("expected an error when the query ID matches no product")
	}
}

func TestSearchClampsPageSize(t *testing.T) {
	s := stubSearcher(manyProducts(5), nil)

	page, err := s.Search(context.Background(), "shoes", 1, 500, "", nil, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.PageSize != 50 {
		t.Errorf("page size should clamp to the maximum, got %d", page.PageSize)
	}

	page, err = s.Search(context.Background(), "shoes", 0, 0, "", nil, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.PageSize != 10 || page.PageNumber != 1 {
		t.Errorf("zero page inputs should take defaults, got size=%d page=%d", page.PageSize, page.PageNumber)
	}
}

func TestSearchRejectsInvalidQuery(t *testing.T) {
	s := stubSearcher(nil, nil)
	if _, err := s.Search(context.Background(), "<b></b>", 1, 10, "", nil, nil); err == nil {
		t.Fatal("expected an error for a query that sanitizes to nothing")
	}
}
