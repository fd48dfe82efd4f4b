// Package export writes the study catalog out as a JSON corpus file, the
// interchange format consumed by downstream retrieval tooling. Records
// stream one at a time, so the corpus never has to fit in memory.
package export

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Puumanamana/RAG-SRA/internal/database"
	"github.com/Puumanamana/RAG-SRA/internal/processor"
)

// Config holds the export configuration
type Config struct {
	SourceDB   string
	OutputPath string
	Compress   bool
	Verbose    bool
}

// Stats holds export statistics
type Stats struct {
	Studies  int
	Duration time.Duration
}

// Exporter handles the export process
type Exporter struct {
	cfg      *Config
	sourceDB *database.DB
	stats    *Stats
	writer   io.Writer
	file     *os.File
	gzWriter *gzip.Writer
}

// NewExporter creates a new exporter instance
func NewExporter(cfg *Config) (*Exporter, error) {
	sourceDB, err := database.Initialize(cfg.SourceDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}

	// Create output directory if needed
	outputDir := filepath.Dir(cfg.OutputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		sourceDB.Close()
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write to a temporary file first so a failed export never clobbers an
	// existing corpus
	tempPath := cfg.OutputPath + ".tmp"
	os.Remove(tempPath)

	file, err := os.Create(tempPath)
	if err != nil {
		sourceDB.Close()
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	e := &Exporter{
		cfg:      cfg,
		sourceDB: sourceDB,
		stats:    &Stats{},
		file:     file,
		writer:   file,
	}

	if cfg.Compress {
		e.gzWriter = gzip.NewWriter(file)
		e.gzWriter.Name = filepath.Base(strings.TrimSuffix(cfg.OutputPath, ".gz"))
		e.gzWriter.ModTime = time.Now()
		e.writer = e.gzWriter
	}

	return e, nil
}

// Close cleans up resources
func (e *Exporter) Close() {
	if e.gzWriter != nil {
		e.gzWriter.Close()
	}
	if e.file != nil {
		e.file.Close()
	}
	if e.sourceDB != nil {
		e.sourceDB.Close()
	}
}

// Export streams every catalog row into the corpus file and atomically
// moves it into place.
func (e *Exporter) Export() (*Stats, error) {
	startTime := time.Now()

	if err := e.writeCorpus(); err != nil {
		return nil, err
	}

	// Flush and close before renaming
	if e.gzWriter != nil {
		if err := e.gzWriter.Close(); err != nil {
			return nil, fmt.Errorf("failed to finish compression: %w", err)
		}
		e.gzWriter = nil
	}
	if err := e.file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output file: %w", err)
	}
	e.file = nil

	tempPath := e.cfg.OutputPath + ".tmp"
	if err := os.Rename(tempPath, e.cfg.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to move corpus into place: %w", err)
	}

	e.stats.Duration = time.Since(startTime)
	return e.stats, nil
}

func (e *Exporter) writeCorpus() error {
	if _, err := io.WriteString(e.writer, "[\n"); err != nil {
		return err
	}

	first := true
	err := e.sourceDB.IterateStudies(func(study *database.Study) error {
		record := processor.StudyRecord{
			Text: study.Text,
			Metadata: processor.Metadata{
				SRAID:      study.SRAID,
				Bioproject: study.Bioproject,
				SRPID:      study.SRPID,
				Species:    study.Species,
			},
		}
		data, err := json.MarshalIndent(record, "  ", "  ")
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", study.SRAID, err)
		}

		if !first {
			if _, err := io.WriteString(e.writer, ",\n"); err != nil {
				return err
			}
		}
		first = false

		if _, err := io.WriteString(e.writer, "  "); err != nil {
			return err
		}
		if _, err := e.writer.Write(data); err != nil {
			return err
		}

		e.stats.Studies++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to export studies: %w", err)
	}

	if _, err := io.WriteString(e.writer, "\n]\n"); err != nil {
		return err
	}
	return nil
}
