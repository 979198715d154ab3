package config

import (
	"os"
	"path/filepath"
)

// DATA_DIR is the directory where pixshift keeps its databases.
// Defaults to "./data" relative to the working directory.
var DATA_DIR = getDataDir()

// getDataDir determines the data directory path from environment or default.
// Priority: PIXSHIFT_DATA_DIR environment variable > "./data" default
func getDataDir() string {
	if dir := os.Getenv("PIXSHIFT_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data"
}

// GetDataDir returns the current data directory path.
// The environment is read on every call so tests and long-running
// processes see changes without a restart.
func GetDataDir() string {
	return getDataDir()
}

// GetSettingsDBPath returns the path of the Pebble database holding
// conversion settings profiles.
// Path: {DATA_DIR}/settings.db
func GetSettingsDBPath() string {
	return filepath.Join(GetDataDir(), "settings.db")
}

// GetCredentialsDBPath returns the path of the database holding publish
// target credentials.
// Path: {DATA_DIR}/credentials.db
func GetCredentialsDBPath() string {
	return filepath.Join(GetDataDir(), "credentials.db")
}

// GetUploadDir returns the directory files uploaded over HTTP are staged in
// before they are registered. They are kept on disk so "save beside source"
// works for uploads too.
// Path: {DATA_DIR}/uploads
func GetUploadDir() string {
	return filepath.Join(GetDataDir(), "uploads")
}
