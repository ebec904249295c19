// Package config provides centralized configuration management for the WatchLens system.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern WATCHLENS_* for namespacing:
//
//	WATCHLENS_SERVER_PORT=8080
//	WATCHLENS_LOGGING_LEVEL=info
//	WATCHLENS_PATHS_DATA_DIR=data
//	WATCHLENS_BUILD_WORKERS=4
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	rawPath := paths.GetRawPath("watch_history_2023.xlsx")
//	recordsCSV := paths.GetRecordsCSVPath()
//
// Raw spreadsheet exports live under data/raw, the normalized dataset and
// its build report under data/processed, and CSV downloads under
// data/exports.
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Required fields are present
//	- Values are within acceptable ranges
//	- Directories exist or can be created
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
