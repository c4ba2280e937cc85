// cmd/loader/main.go
//
// loader runs one catalog ingestion: it locates today's export (local
// file or Drive), loads it into the warehouse and refreshes the search
// index.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tridorian/catalog-ingress/pkg/aggregate"
	"github.com/tridorian/catalog-ingress/pkg/config"
	"github.com/tridorian/catalog-ingress/pkg/datastore"
	"github.com/tridorian/catalog-ingress/pkg/drive"
	"github.com/tridorian/catalog-ingress/pkg/filter"
	"github.com/tridorian/catalog-ingress/pkg/ingest"
	"github.com/tridorian/catalog-ingress/pkg/load"
	"github.com/tridorian/catalog-ingress/pkg/logging"
	"github.com/tridorian/catalog-ingress/pkg/normalize"
	"github.com/tridorian/catalog-ingress/pkg/pipeline"
	"github.com/tridorian/catalog-ingress/pkg/warehouse"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "loader: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	csvPath, err := resolveExport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if csvPath == "" {
		logger.Warn("No export available today, nothing to load")
		return nil
	}

	wh, err := warehouse.NewClient(ctx, cfg.ProjectID, cfg.Dataset, cfg.CredentialsFile)
	if err != nil {
		return err
	}
	defer wh.Close()

	if err := wh.TestConnection(ctx); err != nil {
		return fmt.Errorf("warehouse connection check failed: %w", err)
	}

	loader, err := load.NewLoader(wh, cfg.BatchSize, cfg.ErrorRowsFile, logger.Named("load"))
	if err != nil {
		return err
	}

	var refresher pipeline.IndexRefresher
	if cfg.DataStoreID != "" {
		r, err := datastore.NewRefresher(ctx, cfg.ProjectID, cfg.Location, cfg.DataStoreID, cfg.CredentialsFile)
		if err != nil {
			return err
		}
		defer r.Close()
		refresher = r
	} else {
		logger.Warn("DATASTORE_ID not set, skipping search index refresh")
	}

	runner, err := pipeline.NewRunner(
		ingest.NewIngestor(cfg.CSVEncoding, logger.Named("ingest")),
		normalize.NewNormalizer(logger.Named("normalize")),
		aggregate.NewAggregator(logger.Named("aggregate")),
		filter.NewFilter(cfg.ProductBaseURL, logger.Named("filter")),
		loader,
		wh,
		refresher,
		pipeline.Options{
			Dataset:       cfg.Dataset,
			RawTable:      cfg.RawTable,
			FilteredTable: cfg.FilteredTable,
			SmokeRows:     cfg.SmokeTestRows,
		},
		logger.Named("pipeline"),
	)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, csvPath)
	if err != nil {
		return err
	}

	logger.Info("Load finished",
		zap.String("runID", result.RunID),
		zap.Int64("rawRows", result.RawCount),
		zap.Int64("filteredRows", result.FilteredCount))
	return nil
}

// resolveExport returns the export to load: an explicit local file when
// configured, otherwise today's download from the shared Drive folder.
func resolveExport(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, error) {
	if cfg.CSVFile != "" {
		logger.Info("Using local export file", zap.String("file", cfg.CSVFile))
		return cfg.CSVFile, nil
	}
	if cfg.DriveFolderID == "" {
		return "", fmt.Errorf("either CSV_FILE or DRIVE_FOLDER_ID must be set")
	}

	fetcher, err := drive.NewFetcher(ctx, cfg.DriveFolderID, cfg.CredentialsFile)
	if err != nil {
		return "", err
	}
	return fetcher.FetchToday(ctx)
}
