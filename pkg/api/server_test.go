package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tridorian/catalog-ingress/pkg/caption"
	"github.com/tridorian/catalog-ingress/pkg/search"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeText struct {
	page *search.Page
	err  error

	gotQuery    string
	gotPage     int
	gotPageSize int
	gotCat      string
	gotLo       *float64
	gotHi       *float64
}

func (f *fakeText) Search(ctx context.Context, query string, page, pageSize int, category string, lo, hi *float64) (*search.Page, error) {
	f.gotQuery, f.gotPage, f.gotPageSize, f.gotCat, f.gotLo, f.gotHi = query, page, pageSize, category, lo, hi
	return f.page, f.err
}

type fakeLookup struct {
	product *search.Product
	err     error
}

func (f *fakeLookup) Lookup(ctx context.Context, id string) (*search.Product, error) {
	return f.product, f.err
}

type fakeCaptioner struct {
	text string
	err  error
}

func (f *fakeCaptioner) CaptionFromBase64(ctx context.Context, base64Image, lang string) (string, error) {
	return f.text, f.err
}

func newTestServer(text TextSearch, lookup ProductLookup, captioner ImageCaptioner) *Server {
	return NewServer(Config{
		APIKey:           "test-key",
		CORSAllowOrigins: "*",
		DefaultPageSize:  10,
		MaxPageSize:      50,
	}, text, lookup, captioner, zap.NewNop())
}

func doRequest(s *Server, method, target, apiKey, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthNeedsNoAuth(t *testing.T) {
	rec := doRequest(newTestServer(nil, nil, nil), http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health check returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}
}

func TestAPIKeyEnforcement(t *testing.T) {
	s := newTestServer(&fakeText{}, &fakeLookup{}, &fakeCaptioner{})

	rec := doRequest(s, http.MethodGet, "/api/search-by-text?query=x", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key should return 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "API Key is missing") {
		t.Errorf("unexpected 401 body: %s", rec.Body.String())
	}

	rec = doRequest(s, http.MethodGet, "/api/search-by-text?query=x", "wrong-key", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key should return 403, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid API Key") {
		t.Errorf("unexpected 403 body: %s", rec.Body.String())
	}
}

func TestSearchByTextPassesParameters(t *testing.T) {
	text := &fakeText{page: &search.Page{Query: "shoes", Results: []search.Product{}, PageNumber: 2, PageSize: 20}}
	s := newTestServer(text, nil, nil)

	rec := doRequest(s, http.MethodGet,
		"/api/search-by-text?query=shoes&page=2&page_size=20&cat=women&lo_price=100&hi_price=500",
		"test-key", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if text.gotQuery != "shoes" || text.gotPage != 2 || text.gotPageSize != 20 || text.gotCat != "women" {
		t.Errorf("parameters not forwarded: %+v", text)
	}
	if text.gotLo == nil || *text.gotLo != 100 || text.gotHi == nil || *text.gotHi != 500 {
		t.Errorf("price bounds not forwarded: lo=%v hi=%v", text.gotLo, text.gotHi)
	}
}

func TestSearchByTextValidation(t *testing.T) {
	s := newTestServer(&fakeText{}, nil, nil)

	for _, target := range []string{
		"/api/search-by-text",
		"/api/search-by-text?query=x&page=0",
		"/api/search-by-text?query=x&page_size=abc",
		"/api/search-by-text?query=x&lo_price=-5",
	} {
		rec := doRequest(s, http.MethodGet, target, "test-key", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s should return 400, got %d", target, rec.Code)
		}
	}
}

func TestSearchByTextInvalidQueryMapsTo400(t *testing.T) {
	s := newTestServer(&fakeText{err: search.ErrInvalidQuery}, nil, nil)

	rec := doRequest(s, http.MethodGet, "/api/search-by-text?query=%3Cb%3E%3C%2Fb%3E", "test-key", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("sanitization failure should return 400, got %d", rec.Code)
	}
}

func TestWPSearchReturnsFlatsomePayload(t *testing.T) {
	text := &fakeText{page: &search.Page{
		Results: []search.Product{{
			ProductNumber: "123",
			ProductName:   "Shoes",
			RegularPrice:  "599",
			IsAvailable:   true,
		}},
		TotalResults: 1,
		PageNumber:   1,
		PageSize:     10,
		TotalPages:   1,
	}}
	s := newTestServer(text, nil, nil)

	rec := doRequest(s, http.MethodGet, "/api/wp/search-by-text?query=shoes", "test-key", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload search.Flatsome
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(payload.Suggestions) != 1 || payload.Suggestions[0].Type != "Product" || payload.Suggestions[0].ID != 123 {
		t.Errorf("unexpected suggestions: %+v", payload.Suggestions)
	}
}

func TestSearchByID(t *testing.T) {
	product := &search.Product{RecordID: "32987", ProductNumber: "121552*006", IsAvailable: true}
	s := newTestServer(nil, &fakeLookup{product: product}, nil)

	rec := doRequest(s, http.MethodGet, "/api/search-by-id?id=121552*006", "test-key", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got search.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if got.RecordID != "32987" {
		t.Errorf("unexpected product: %+v", got)
	}
}

func TestSearchByIDErrors(t *testing.T) {
	tests := []struct {
		name   string
		lookup *fakeLookup
		target string
		want   int
	}{
		{"not found", &fakeLookup{err: search.ErrNotFound}, "/api/search-by-id?id=NOPE", http.StatusNotFound},
		{"invalid id", &fakeLookup{err: search.ErrInvalidQuery}, "/api/search-by-id?id=%27%3B", http.StatusBadRequest},
		{"missing id", &fakeLookup{}, "/api/search-by-id", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(newTestServer(nil, tt.lookup, nil), http.MethodGet, tt.target, "test-key", "")
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSearchByImage(t *testing.T) {
	s := newTestServer(nil, nil, &fakeCaptioner{text: "รองเท้าสำหรับการทำงาน"})

	rec := doRequest(s, http.MethodPost, "/api/search-by-image", "test-key",
		`{"base64_image":"Zm9vYmFy","lang":"th"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "รองเท้าสำหรับการทำงาน") {
		t.Errorf("caption missing from response: %s", rec.Body.String())
	}
}

func TestSearchByImageErrors(t *testing.T) {
	tests := []struct {
		name      string
		captioner *fakeCaptioner
		body      string
		want      int
	}{
		{"missing image", &fakeCaptioner{}, `{"lang":"th"}`, http.StatusBadRequest},
		{"bad json", &fakeCaptioner{}, `{`, http.StatusBadRequest},
		{"invalid image", &fakeCaptioner{err: caption.ErrInvalidImage}, `{"base64_image":"x"}`, http.StatusBadRequest},
		{"too large", &fakeCaptioner{err: caption.ErrImageTooLarge}, `{"base64_image":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(newTestServer(nil, nil, tt.captioner), http.MethodPost, "/api/search-by-image", "test-key", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUnconfiguredServicesReturn503(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	for _, target := range []string{
		"/api/search-by-text?query=x",
		"/api/search-by-id?id=x",
	} {
		rec := doRequest(s, http.MethodGet, target, "test-key", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s should return 503, got %d", target, rec.Code)
		}
	}
}
