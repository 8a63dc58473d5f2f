package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for config and data directory resolution.
	DefaultAppName    = "bcollapse"
	DefaultConfigPath = filepath.Join(getHomeDir(), ".config", DefaultAppName)

	// Default collapse parameters.
	DefaultEditDistance        = 1
	DefaultAdaptiveMinDistance = 1
	DefaultAdaptiveMaxDistance = 4
	DefaultWorkers             = 1
	DefaultReportInterval      = 100000

	// Default database settings; used by the store when no DSN is given.
	DefaultDatabaseDSN = "file::memory:?cache=shared" // Default to in-memory SQLite
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			// Last resort - use tmp directory
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
