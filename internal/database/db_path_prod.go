//go:build prod

package database

import (
	"os"
	"path/filepath"
)

// GetDefaultDBPath places the review history under the user's config
// directory, e.g. ~/.config/uxreview/uxreview.db.
func GetDefaultDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil || configDir == "" {
		return dbFileName
	}
	return filepath.Join(configDir, "uxreview", dbFileName)
}
