package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "test-project")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Dataset != "shopchannel" || cfg.RawTable != "products_raw" || cfg.FilteredTable != "products" {
		t.Errorf("unexpected table defaults: %s/%s/%s", cfg.Dataset, cfg.RawTable, cfg.FilteredTable)
	}
	if cfg.BatchSize != 10000 || cfg.SmokeTestRows != 100 {
		t.Errorf("unexpected load defaults: batch=%d smoke=%d", cfg.BatchSize, cfg.SmokeTestRows)
	}
	if cfg.ProductBaseURL != "https://www.shopch.in.th/" {
		t.Errorf("unexpected product base URL: %s", cfg.ProductBaseURL)
	}
	if cfg.DefaultPageSize != 10 || cfg.MaxPageSize != 50 {
		t.Errorf("unexpected page size defaults: %d/%d", cfg.DefaultPageSize, cfg.MaxPageSize)
	}
	if cfg.MaxImageSizeMB != 1.0 {
		t.Errorf("unexpected image size limit: %v", cfg.MaxImageSizeMB)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "test-project")
	t.Setenv("BATCH_SIZE", "500")
	t.Setenv("BQ_DATASET", "staging")
	t.Setenv("MAX_IMAGE_SIZE_MB", "2.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.BatchSize != 500 || cfg.Dataset != "staging" || cfg.MaxImageSizeMB != 2.5 {
		t.Errorf("overrides not applied: batch=%d dataset=%s image=%v",
			cfg.BatchSize, cfg.Dataset, cfg.MaxImageSizeMB)
	}
}

func TestLoadConfigRequiresProject(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected an error without GCP_PROJECT_ID")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			ProjectID:       "p",
			Dataset:         "d",
			RawTable:        "r",
			FilteredTable:   "f",
			BatchSize:       10,
			SmokeTestRows:   100,
			DefaultPageSize: 10,
			MaxPageSize:     50,
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero batch size should be rejected")
	}

	cfg = base()
	cfg.SmokeTestRows = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero smoke row count should be rejected")
	}

	cfg = base()
	cfg.MaxPageSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max page size should be rejected")
	}
}
