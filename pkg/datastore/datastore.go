// pkg/datastore/datastore.go
package datastore

import (
	"context"
	"fmt"

	discoveryengine "cloud.google.com/go/discoveryengine/apiv1"
	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Refresher re-imports the filtered catalog table into a Discovery
// Engine data store so the search index tracks the warehouse.
type Refresher struct {
	client      *discoveryengine.DocumentClient
	project     string
	location    string
	dataStoreID string
	logger      *zap.Logger
}

// NewRefresher creates a new Refresher instance
func NewRefresher(ctx context.Context, project, location, dataStoreID, credentialsFile string) (*Refresher, error) {
	if project == "" || dataStoreID == "" {
		return nil, fmt.Errorf("project and data store ID are required")
	}
	if location == "" {
		location = "global"
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := discoveryengine.NewDocumentClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document client: %w", err)
	}

	return &Refresher{
		client:      client,
		project:     project,
		location:    location,
		dataStoreID: dataStoreID,
		logger:      zap.L().Named("datastore"),
	}, nil
}

// Close releases the underlying connection.
func (r *Refresher) Close() error {
	return r.client.Close()
}

// Refresh starts a full document import from the given BigQuery table.
// FULL reconciliation drops documents that no longer exist in the table.
// The import runs server side; Refresh returns once the operation is
// accepted and reports its name for later inspection.
func (r *Refresher) Refresh(ctx context.Context, dataset, table string) (string, error) {
	req := &discoveryenginepb.ImportDocumentsRequest{
		Parent: r.branchPath(),
		Source: &discoveryenginepb.ImportDocumentsRequest_BigquerySource{
			BigquerySource: &discoveryenginepb.BigQuerySource{
				ProjectId:  r.project,
				DatasetId:  dataset,
				TableId:    table,
				DataSchema: "custom",
			},
		},
		ReconciliationMode: discoveryenginepb.ImportDocumentsRequest_FULL,
		AutoGenerateIds:    true,
	}

	op, err := r.client.ImportDocuments(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to start document import for %s.%s: %w", dataset, table, err)
	}

	r.logger.Info("Started search index refresh",
		zap.String("dataset", dataset),
		zap.String("table", table),
		zap.String("operation", op.Name()))

	return op.Name(), nil
}

// branchPath returns the default-branch resource the import targets.
func (r *Refresher) branchPath() string {
	return fmt.Sprintf(
		"projects/%s/locations/%s/collections/default_collection/dataStores/%s/branches/default_branch",
		r.project, r.location, r.dataStoreID)
}
