// Package database provides SQLite-backed storage for the preprocessed
// study catalog: one row per retained study, carrying the rendered text
// body and the promoted identifier metadata.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

// ErrNotFound marks a lookup for an accession the catalog does not hold.
var ErrNotFound = errors.New("study not found")

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
	path string
}

// GetSQLDB returns the underlying SQL database connection
func (db *DB) GetSQLDB() *sql.DB {
	return db.DB
}

// Path returns the filesystem path the database was opened with
func (db *DB) Path() string {
	return db.path
}

// Initialize creates and configures the database connection
func Initialize(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_sync=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set pragmas for bulk ingestion performance
	pragmas := []string{
		"PRAGMA journal_mode = WAL",       // Write-ahead logging
		"PRAGMA synchronous = NORMAL",     // Balanced safety/speed
		"PRAGMA cache_size = 10000",       // ~40MB cache
		"PRAGMA temp_store = MEMORY",      // Use memory for temp tables
		"PRAGMA mmap_size = 268435456",    // 256MB memory mapping
		"PRAGMA busy_timeout = 10000",     // 10 second timeout
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		DB:   db,
		path: path,
	}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS studies (
		sra_id TEXT PRIMARY KEY,
		bioproject TEXT,
		srp_id TEXT,
		species TEXT,
		text TEXT NOT NULL,
		indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_studies_bioproject ON studies(bioproject);
	CREATE INDEX IF NOT EXISTS idx_studies_srp ON studies(srp_id);
	CREATE INDEX IF NOT EXISTS idx_studies_species ON studies(species);
	`

	_, err := db.Exec(schema)
	return err
}

// InsertStudy inserts or replaces a single study record.
func (db *DB) InsertStudy(study *Study) error {
	query := `
		INSERT OR REPLACE INTO studies (
			sra_id, bioproject, srp_id, species, text, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query,
		study.SRAID, study.Bioproject, study.SRPID, study.Species,
		study.Text, insertTime(study))
	return err
}

// InsertStudies inserts or replaces a batch of studies in one transaction.
// An arriving study replaces an earlier row with the same accession, which
// makes re-running a dump idempotent.
func (db *DB) InsertStudies(studies []Study) error {
	if len(studies) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO studies (
			sra_id, bioproject, srp_id, species, text, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range studies {
		study := &studies[i]
		_, err = stmt.Exec(
			study.SRAID, study.Bioproject, study.SRPID, study.Species,
			study.Text, insertTime(study))
		if err != nil {
			return fmt.Errorf("inserting %s: %w", study.SRAID, err)
		}
	}

	return tx.Commit()
}

func insertTime(study *Study) time.Time {
	if study.IndexedAt.IsZero() {
		return time.Now().UTC()
	}
	return study.IndexedAt
}

// GetStudy retrieves a study by its accession identifier.
func (db *DB) GetStudy(sraID string) (*Study, error) {
	study := &Study{}
	query := `
		SELECT sra_id, bioproject, srp_id, species, text, indexed_at
		FROM studies
		WHERE sra_id = ?
	`
	err := db.QueryRow(query, sraID).Scan(
		&study.SRAID, &study.Bioproject, &study.SRPID, &study.Species,
		&study.Text, &study.IndexedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sraID)
	}
	return study, err
}

// ListStudies returns catalog rows matching opts, paged in sra_id order
// unless opts.OrderBy names another allowed column.
func (db *DB) ListStudies(opts ListOptions) ([]Study, error) {
	orderBy := "sra_id"
	if opts.OrderBy != "" {
		col, err := SafeColumnName(opts.OrderBy)
		if err != nil {
			return nil, err
		}
		orderBy = col
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	query := `
		SELECT sra_id, bioproject, srp_id, species, text, indexed_at
		FROM studies
		WHERE (? = '' OR species = ?)
		  AND (? = '' OR bioproject = ?)
		ORDER BY ` + orderBy + `
		LIMIT ? OFFSET ?
	`
	rows, err := db.Query(query,
		opts.Species, opts.Species,
		opts.Bioproject, opts.Bioproject,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scanner := errors.NewRowScanner("listing studies")
	var studies []Study
	for rows.Next() {
		var study Study
		err := rows.Scan(
			&study.SRAID, &study.Bioproject, &study.SRPID, &study.Species,
			&study.Text, &study.IndexedAt)
		if err != nil {
			scanner.RecordSkip(err, study.SRAID)
			continue
		}
		scanner.RecordScan()
		studies = append(studies, study)
	}
	scanner.Report()

	return studies, rows.Err()
}

// CountStudies returns the number of catalog rows.
func (db *DB) CountStudies() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM studies").Scan(&count)
	return count, err
}

// SpeciesCounts returns study counts grouped by species metadata value.
func (db *DB) SpeciesCounts() (map[string]int, error) {
	rows, err := db.Query("SELECT species, COUNT(*) FROM studies GROUP BY species")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var species string
		var n int
		if err := rows.Scan(&species, &n); err != nil {
			return nil, err
		}
		counts[species] = n
	}
	return counts, rows.Err()
}

// Stats holds aggregate counts for the catalog.
type Stats struct {
	TotalStudies int            `json:"total_studies"`
	BySpecies    map[string]int `json:"by_species"`
	LastUpdate   time.Time      `json:"last_update"`
}

// GetStats returns live counts for the catalog.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	total, err := db.CountStudies()
	if err != nil {
		return nil, fmt.Errorf("failed to count studies: %w", err)
	}
	stats.TotalStudies = total

	bySpecies, err := db.SpeciesCounts()
	if err != nil {
		return nil, fmt.Errorf("failed to count species: %w", err)
	}
	stats.BySpecies = bySpecies
	stats.LastUpdate = time.Now()

	return stats, nil
}

// IterateStudies streams every catalog row to fn in sra_id order. It is
// used by the indexer, which must not hold the whole catalog in memory.
func (db *DB) IterateStudies(fn func(*Study) error) error {
	rows, err := db.Query(`
		SELECT sra_id, bioproject, srp_id, species, text, indexed_at
		FROM studies
		ORDER BY sra_id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var study Study
		err := rows.Scan(
			&study.SRAID, &study.Bioproject, &study.SRPID, &study.Species,
			&study.Text, &study.IndexedAt)
		if err != nil {
			return err
		}
		if err := fn(&study); err != nil {
			return err
		}
	}
	return rows.Err()
}
