// Package files provides file system operations and discovery utilities
// for the WatchLens application.
//
// This package contains two main components:
//
// Discovery: Provides file discovery operations such as finding spreadsheet
// and CSV exports and classifying them by filename into watch history,
// questionnaire, and video metadata sources. Source listings are sorted by
// name so repeated dataset builds walk files in the same order.
//
// Manager: Provides basic file management operations such as reading, writing,
// atomic writes, and ensuring directories exist. Relative paths are routed to
// the data layout by prefix (raw/, processed/, exports/, ...), so callers stay
// independent of where the executable lives.
//
// Example usage:
//
//	// Create a discovery instance
//	discovery := files.NewDiscovery("/path/to/base")
//
//	// Find and classify raw exports
//	sources, err := discovery.FindSourceFiles("raw")
//
//	// Create a manager instance
//	manager := files.NewManager(paths)
//
//	// Check if the dataset has been built
//	if manager.FileExists("processed/watch_records.csv") {
//	    // Serve dashboards
//	}
package files
