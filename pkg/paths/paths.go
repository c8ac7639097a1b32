// Package paths resolves turnwire's per-user directories.
package paths

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the directory holding turnwire's configuration file.
//
// If the home directory cannot be determined, it falls back to a directory
// under the system temporary directory.
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".turnwire-config"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".config", "turnwire"))
}

// GetDataDir returns the directory holding turnwire's logs.
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".turnwire"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".turnwire"))
}

// DefaultConfigFile is the configuration loaded when --config is not given.
func DefaultConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}
