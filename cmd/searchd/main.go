// cmd/searchd/main.go
//
// searchd serves the product search API: text search against the search
// index, exact ID lookup against the warehouse and image captioning.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tridorian/catalog-ingress/pkg/api"
	"github.com/tridorian/catalog-ingress/pkg/caption"
	"github.com/tridorian/catalog-ingress/pkg/config"
	"github.com/tridorian/catalog-ingress/pkg/logging"
	"github.com/tridorian/catalog-ingress/pkg/search"
	"github.com/tridorian/catalog-ingress/pkg/warehouse"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "searchd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("API_KEY environment variable is required")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	wh, err := warehouse.NewClient(ctx, cfg.ProjectID, cfg.Dataset, cfg.CredentialsFile)
	if err != nil {
		return err
	}
	defer wh.Close()

	idSearcher, err := search.NewIDSearcher(wh, wh.TableRef(cfg.FilteredTable))
	if err != nil {
		return err
	}

	var text api.TextSearch
	if cfg.SearchEngineID != "" {
		t, err := search.NewTextSearcher(ctx,
			cfg.ProjectID, cfg.Location, cfg.SearchEngineID, cfg.CredentialsFile,
			idSearcher, cfg.DefaultPageSize, cfg.MaxPageSize)
		if err != nil {
			return err
		}
		defer t.Close()
		text = t
	} else {
		logger.Warn("SEARCH_ENGINE_ID not set, text search disabled")
	}

	captioner, err := caption.NewCaptioner(ctx, cfg.CredentialsFile, cfg.MaxImageSizeMB)
	if err != nil {
		return err
	}
	defer captioner.Close()

	server := api.NewServer(api.Config{
		APIKey:           cfg.APIKey,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		DefaultPageSize:  cfg.DefaultPageSize,
		MaxPageSize:      cfg.MaxPageSize,
	}, text, idSearcher, captioner, logger.Named("api"))

	return server.Run(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
}
