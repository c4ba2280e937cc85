// pkg/search/text.go
package search

import (
	"context"
	"fmt"

	discoveryengine "cloud.google.com/go/discoveryengine/apiv1"
	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// Lookup resolves a product number to a full product record.
type Lookup interface {
	Lookup(ctx context.Context, id string) (*Product, error)
}

type fetchFunc func(ctx context.Context, query string, size int) ([]Product, error)

// TextSearcher answers natural-language product queries against a
// Discovery Engine search app. Category and price filters are applied
// locally because the engine does not index them as filterable fields,
// so each query over-fetches and trims.
type TextSearcher struct {
	client        *discoveryengine.SearchClient
	servingConfig string
	idLookup      Lookup
	fetch         fetchFunc

	defaultPageSize int
	maxPageSize     int

	logger *zap.Logger
}

// NewTextSearcher creates a new TextSearcher instance. idLookup may be
// nil, which disables numeric-query resolution.
func NewTextSearcher(
	ctx context.Context,
	project, location, engineID, credentialsFile string,
	idLookup Lookup,
	defaultPageSize, maxPageSize int,
) (*TextSearcher, error) {
	if project == "" || engineID == "" {
		return nil, fmt.Errorf("project and engine ID are required")
	}
	if location == "" {
		location = "global"
	}
	if defaultPageSize <= 0 || maxPageSize <= 0 {
		return nil, fmt.Errorf("page sizes must be positive")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := discoveryengine.NewSearchClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search client: %w", err)
	}

	s := &TextSearcher{
		client: client,
		servingConfig: fmt.Sprintf(
			"projects/%s/locations/%s/collections/default_collection/engines/%s/servingConfigs/default_search",
			project, location, engineID),
		idLookup:        idLookup,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          zap.L().Named("textsearch"),
	}
	s.fetch = s.fetchFromEngine
	return s, nil
}

// Close releases the underlying connection.
func (s *TextSearcher) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Search runs one paginated product search. An all-digit query is
// resolved to that product's name first, so typing a product ID into the
// search box finds related products.
func (s *TextSearcher) Search(
	ctx context.Context,
	query string,
	page, pageSize int,
	category string,
	loPrice, hiPrice *float64,
) (*Page, error) {
	query, err := SanitizeQuery(query)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	pageSize = ClampPageSize(pageSize, s.maxPageSize)
	if page < 1 {
		page = 1
	}

	if IsNumericQuery(query) && s.idLookup != nil {
		product, err := s.idLookup.Lookup(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("no product found for query ID %s: %w", query, err)
		}
		s.logger.Info("Resolved numeric query to product name",
			zap.String("id", query),
			zap.String("name", product.ProductName))
		query = product.ProductName
	}

	// Over-fetch so local filters still leave enough rows to paginate.
	fetchSize := s.maxPageSize * 10
	if fetchSize > 1000 {
		fetchSize = 1000
	}

	results, err := s.fetch(ctx, query, fetchSize)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	s.logger.Info("Search returned raw results",
		zap.String("query", query),
		zap.Int("results", len(results)))

	if category != "" {
		results = FilterByCategory(results, category)
	}
	if loPrice != nil || hiPrice != nil {
		results = FilterByPriceRange(results, loPrice, hiPrice)
	}

	pageResults, totalPages := Paginate(results, page, pageSize)

	return &Page{
		Query:        query,
		Results:      pageResults,
		TotalResults: len(results),
		PageNumber:   page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
	}, nil
}

// fetchFromEngine pulls up to size results from the search app. Query
// expansion and spell correction stay on automatic; the catalog is Thai,
// so the language code is pinned.
func (s *TextSearcher) fetchFromEngine(ctx context.Context, query string, size int) ([]Product, error) {
	req := &discoveryenginepb.SearchRequest{
		ServingConfig: s.servingConfig,
		Query:         query,
		PageSize:      int32(size),
		QueryExpansionSpec: &discoveryenginepb.SearchRequest_QueryExpansionSpec{
			Condition: discoveryenginepb.SearchRequest_QueryExpansionSpec_AUTO,
		},
		SpellCorrectionSpec: &discoveryenginepb.SearchRequest_SpellCorrectionSpec{
			Mode: discoveryenginepb.SearchRequest_SpellCorrectionSpec_AUTO,
		},
		LanguageCode: "th",
	}

	out := make([]Product, 0, size)
	it := s.client.Search(ctx, req)
	for len(out) < size {
		res, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, documentToProduct(res))
	}
	return out, nil
}

// documentToProduct maps an engine document onto a Product. Field values
// arrive as a loose struct, so every read tolerates a missing key.
func documentToProduct(res *discoveryenginepb.SearchResponse_SearchResult) Product {
	doc := res.GetDocument()
	data := doc.GetStructData()

	return Product{
		ID:            doc.GetId(),
		RecordID:      structString(data, "record_id"),
		ProductNumber: structString(data, "product_number"),
		ProductName:   structString(data, "product_name"),
		ImageURI:      structString(data, "image_uri"),
		Description:   structString(data, "description"),
		ProductURI:    structString(data, "custom_uri"),
		Category:      structString(data, "category"),
		Brands:        structString(data, "brands"),
		RegularPrice:  structString(data, "regular_price"),
		SalePrice:     structString(data, "sale_price"),
		IsAvailable:   structTruthy(data, "is_available"),
	}
}

func structString(data *structpb.Struct, key string) string {
	if data == nil {
		return ""
	}
	value, ok := data.GetFields()[key]
	if !ok {
		return ""
	}
	switch v := value.GetKind().(type) {
	case *structpb.Value_StringValue:
		return v.StringValue
	case *structpb.Value_NumberValue:
		return fmt.Sprintf("%v", v.NumberValue)
	default:
		return ""
	}
}

// structTruthy reads an availability flag that may be stored as the
// string "1", the number 1 or a bool depending on the import vintage.
func structTruthy(data *structpb.Struct, key string) bool {
	if data == nil {
		return false
	}
	value, ok := data.GetFields()[key]
	if !ok {
		return false
	}
	switch v := value.GetKind().(type) {
	case *structpb.Value_StringValue:
		return v.StringValue == "1"
	case *structpb.Value_NumberValue:
		return v.NumberValue == 1
	case *structpb.Value_BoolValue:
		return v.BoolValue
	default:
		return false
	}
}
