// pkg/api/server.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tridorian/catalog-ingress/pkg/caption"
	"github.com/tridorian/catalog-ingress/pkg/search"
)

// TextSearch is the text search surface the API serves.
type TextSearch interface {
	Search(ctx context.Context, query string, page, pageSize int, category string, loPrice, hiPrice *float64) (*search.Page, error)
}

// ProductLookup is the exact product number lookup surface.
type ProductLookup interface {
	Lookup(ctx context.Context, id string) (*search.Product, error)
}

// ImageCaptioner extracts a search phrase from a product photo.
type ImageCaptioner interface {
	CaptionFromBase64(ctx context.Context, base64Image, lang string) (string, error)
}

// Config carries the server's request-handling settings.
type Config struct {
	APIKey           string
	CORSAllowOrigins string
	DefaultPageSize  int
	MaxPageSize      int
}

// Server is the HTTP surface over search, lookup and captioning.
type Server struct {
	engine *gin.Engine
	cfg    Config

	text      TextSearch
	lookup    ProductLookup
	captioner ImageCaptioner

	logger *zap.Logger
}

// NewServer creates a new Server instance. Services may be nil; their
// routes then answer 503.
func NewServer(cfg Config, text TextSearch, lookup ProductLookup, captioner ImageCaptioner, logger *zap.Logger) *Server {
	s := &Server{
		engine:    gin.New(),
		cfg:       cfg,
		text:      text,
		lookup:    lookup,
		captioner: captioner,
		logger:    logger,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(corsMiddleware(cfg.CORSAllowOrigins))

	s.engine.GET("/", s.handleHealth)

	authed := s.engine.Group("/api", apiKeyAuth(cfg.APIKey))
	authed.GET("/search-by-id", s.handleSearchByID)
	authed.GET("/search-by-text", s.handleSearchByText)
	authed.GET("/wp/search-by-text", s.handleWPSearchByText)
	authed.POST("/search-by-image", s.handleSearchByImage)

	return s
}

// Handler exposes the underlying router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the API on the given address, blocking until shutdown.
func (s *Server) Run(addr string) error {
	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.engine.Run(addr)
}

// apiKeyAuth enforces the X-API-Key header: 401 when missing, 403 when
// wrong.
func apiKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-API-Key")
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "API Key is missing"})
			return
		}
		if got != apiKey {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Invalid API Key"})
			return
		}
		c.Next()
	}
}

func corsMiddleware(allowOrigins string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "X-API-Key"}

	origins := strings.Split(allowOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}

	return cors.New(cfg)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ok", "status": "healthy"})
}

func (s *Server) handleSearchByID(c *gin.Context) {
	if s.lookup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "ID lookup is not configured"})
		return
	}

	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing id parameter"})
		return
	}

	product, err := s.lookup.Lookup(c.Request.Context(), id)
	switch {
	case errors.Is(err, search.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid ID format"})
	case errors.Is(err, search.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
	case err != nil:
		s.logger.Error("ID lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Search operation failed"})
	default:
		c.JSON(http.StatusOK, product)
	}
}

func (s *Server) handleSearchByText(c *gin.Context) {
	page, ok := s.runTextSearch(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleWPSearchByText(c *gin.Context) {
	page, ok := s.runTextSearch(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, search.ToFlatsome(page))
}

// runTextSearch parses the shared text-search query parameters, runs the
// search and writes the error response on failure.
func (s *Server) runTextSearch(c *gin.Context) (*search.Page, bool) {
	if s.text == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Text search is not configured"})
		return nil, false
	}

	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing query parameter"})
		return nil, false
	}

	pageNum, ok := intParam(c, "page", 1)
	if !ok {
		return nil, false
	}
	pageSize, ok := intParam(c, "page_size", s.cfg.DefaultPageSize)
	if !ok {
		return nil, false
	}
	loPrice, ok := floatParam(c, "lo_price")
	if !ok {
		return nil, false
	}
	hiPrice, ok := floatParam(c, "hi_price")
	if !ok {
		return nil, false
	}

	page, err := s.text.Search(c.Request.Context(), query, pageNum, pageSize, c.Query("cat"), loPrice, hiPrice)
	switch {
	case errors.Is(err, search.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid query format"})
		return nil, false
	case err != nil:
		s.logger.Error("Text search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Search operation failed"})
		return nil, false
	}
	return page, true
}

type imageRequest struct {
	Base64Image string `json:"base64_image"`
	Lang        string `json:"lang"`
}

func (s *Server) handleSearchByImage(c *gin.Context) {
	if s.captioner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Image search is not configured"})
		return
	}

	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}
	if req.Base64Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No image provided"})
		return
	}
	if req.Lang == "" {
		req.Lang = "th"
	}

	text, err := s.captioner.CaptionFromBase64(c.Request.Context(), req.Base64Image, req.Lang)
	switch {
	case errors.Is(err, caption.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid base64 image format"})
	case errors.Is(err, caption.ErrImageTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Image exceeds size limit"})
	case err != nil:
		s.logger.Error("Image caption failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Image analysis failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"text": text, "lang": req.Lang})
	}
}

func intParam(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid " + name + " parameter"})
		return 0, false
	}
	return v, true
}

func floatParam(c *gin.Context, name string) (*float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid " + name + " parameter"})
		return nil, false
	}
	return &v, true
}
