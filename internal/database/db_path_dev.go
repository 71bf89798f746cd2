//go:build !prod

package database

// GetDefaultDBPath keeps the development database in the working directory.
func GetDefaultDBPath() string {
	return dbFileName
}
