package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

type Paths struct {
	ConfigDir string
	DataDir   string
}

// GetPaths returns the base paths respecting environment variables
func GetPaths() Paths {
	return Paths{
		ConfigDir: getConfigDir(),
		DataDir:   GetDataDir(),
	}
}

func getConfigDir() string {
	// 1. Check RAGSRA-specific env
	if dir := os.Getenv("RAGSRA_CONFIG_HOME"); dir != "" {
		return dir
	}

	// 2. Check XDG env
	if xdgBase := os.Getenv("XDG_CONFIG_HOME"); xdgBase != "" {
		return filepath.Join(xdgBase, "ragsra")
	}

	// 3. Use default
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ragsra")
}

// GetDataDir returns the working directory holding dumps, database, index,
// and exported corpus files. Defaults to ~/.ragsra.
func GetDataDir() string {
	if dir := os.Getenv("RAGSRA_DATA_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ragsra")
}

// GetDumpsPath returns the directory metadata dumps are downloaded into
func GetDumpsPath() string {
	return filepath.Join(GetDataDir(), "dumps")
}

// GetDatabasePath returns the path to the study catalog database
func GetDatabasePath() string {
	if path := os.Getenv("RAGSRA_DB_PATH"); path != "" {
		return path
	}
	return filepath.Join(GetDataDir(), "ragsra.db")
}

// GetIndexPath returns the path to the search index
// Default: adjacent to database for easy backup/migration
func GetIndexPath() string {
	if path := os.Getenv("RAGSRA_INDEX_PATH"); path != "" {
		return path
	}

	// Get database path and place index adjacent to it
	dbPath := GetDatabasePath()
	dir := filepath.Dir(dbPath)
	dbName := filepath.Base(dbPath)
	dbNameNoExt := dbName[:len(dbName)-len(filepath.Ext(dbName))]

	// Return path like: /data/myproject/ragsra.bleve (next to ragsra.db)
	return filepath.Join(dir, dbNameNoExt+".bleve")
}

// GetCorpusPath returns the default path for the exported corpus file
func GetCorpusPath() string {
	return filepath.Join(GetDataDir(), "corpus.json")
}

// EnsureDirectories creates all necessary directories
func EnsureDirectories() error {
	paths := GetPaths()
	dirs := []string{
		paths.ConfigDir,
		paths.DataDir,
		filepath.Join(paths.DataDir, "dumps"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
