// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
)

// Config represents the application configuration
type Config struct {
	// Google Cloud access
	ProjectID       string
	CredentialsFile string
	Location        string

	// Warehouse tables
	Dataset       string
	RawTable      string
	FilteredTable string

	// Load settings
	BatchSize     int
	SmokeTestRows int
	ErrorRowsFile string

	// Input
	CSVFile       string // local override; skips the Drive download when set
	CSVEncoding   string
	DriveFolderID string

	// Filtered view
	ProductBaseURL string

	// Search index
	DataStoreID    string
	SearchEngineID string

	// Search service
	Host             string
	Port             int
	APIKey           string
	CORSAllowOrigins string
	DefaultPageSize  int
	MaxPageSize      int
	MaxImageSizeMB   float64

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ProjectID:       getEnv("GCP_PROJECT_ID", ""),
		CredentialsFile: getEnv("GCP_CREDENTIALS_FILE", "gcp_master_key.json"),
		Location:        getEnv("GOOGLE_LOCATION", "global"),

		Dataset:       getEnv("BQ_DATASET", "shopchannel"),
		RawTable:      getEnv("BQ_RAW_TABLE", "products_raw"),
		FilteredTable: getEnv("BQ_FILTERED_TABLE", "products"),

		BatchSize:     getEnvAsInt("BATCH_SIZE", 10000),
		SmokeTestRows: getEnvAsInt("SMOKE_TEST_ROWS", 100),
		ErrorRowsFile: getEnv("ERROR_ROWS_FILE", "error_rows.csv"),

		CSVFile:       getEnv("CSV_FILE", ""),
		CSVEncoding:   getEnv("CSV_ENCODING", "utf-8"),
		DriveFolderID: getEnv("DRIVE_FOLDER_ID", ""),

		ProductBaseURL: getEnv("PRODUCT_BASE_URL", "https://www.shopch.in.th/"),

		DataStoreID:    getEnv("DATASTORE_ID", ""),
		SearchEngineID: getEnv("SEARCH_ENGINE_ID", ""),

		Host:             getEnv("HOST", "0.0.0.0"),
		Port:             getEnvAsInt("PORT", 8080),
		APIKey:           getEnv("API_KEY", ""),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		DefaultPageSize:  getEnvAsInt("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:      getEnvAsInt("MAX_PAGE_SIZE", 50),
		MaxImageSizeMB:   getEnvAsFloat("MAX_IMAGE_SIZE_MB", 1.0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return errors.New("GCP_PROJECT_ID environment variable is required")
	}

	if c.Dataset == "" || c.RawTable == "" || c.FilteredTable == "" {
		return errors.New("warehouse dataset and table names are required")
	}

	if c.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}

	if c.SmokeTestRows <= 0 {
		return errors.New("smoke test row count must be positive")
	}

	if c.MaxPageSize <= 0 || c.DefaultPageSize <= 0 {
		return errors.New("page sizes must be positive")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
