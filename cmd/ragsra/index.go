package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Puumanamana/RAG-SRA/internal/database"
	"github.com/Puumanamana/RAG-SRA/internal/errors"
	"github.com/Puumanamana/RAG-SRA/internal/progress"
	"github.com/Puumanamana/RAG-SRA/internal/search"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the search index from the catalog",
	Long: `Index every cataloged study into the Bleve full-text index used by
search and ask.

Indexing is idempotent: documents keep their SRA ID, so reindexed studies
replace their previous version. Use --rebuild to start from an empty index.`,
	Example: `  ragsra index
  ragsra index --rebuild --batch-size 2000`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

var (
	indexDB      string
	indexPath    string
	indexBatch   int
	indexRebuild bool
)

func init() {
	indexCmd.Flags().StringVar(&indexDB, "db", "", "Catalog database path (default: data dir)")
	indexCmd.Flags().StringVar(&indexPath, "index", "", "Index path (default: alongside the database)")
	indexCmd.Flags().IntVar(&indexBatch, "batch-size", 0, "Documents per index batch (default 1000)")
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "Delete the existing index first")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := indexDB
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	idxPath := indexPath
	if idxPath == "" {
		idxPath = cfg.Search.IndexPath
	}
	batchSize := indexBatch
	if batchSize <= 0 {
		batchSize = cfg.Search.BatchSize
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	if indexRebuild {
		if err := os.RemoveAll(idxPath); err != nil {
			return fmt.Errorf("removing index: %w", err)
		}
	}

	db, err := database.Initialize(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	total, err := db.CountStudies()
	if err != nil {
		return err
	}
	if total == 0 {
		printWarning("Catalog at %s is empty; run preprocess first", dbPath)
		return nil
	}

	idx, err := search.Open(idxPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	printInfo("Indexing %s studies into %s", humanize.Comma(int64(total)), idxPath)

	tracker := progress.NewTracker()
	tracker.SetTotalRecords(int64(total))
	reporter := progress.NewReporter(tracker, time.Second, func(s progress.Statistics) {
		if !quiet {
			fmt.Printf("\r%s   ", s)
		}
	})

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	batch := make([]search.StudyDoc, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := idx.IndexBatch(batch); err != nil {
			return err
		}
		tracker.AddRecords(int64(len(batch)))
		reporter.Tick()
		batch = batch[:0]
		return nil
	}

	err = db.IterateStudies(func(study *database.Study) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = append(batch, search.StudyDoc{
			SRAID:      study.SRAID,
			Bioproject: study.Bioproject,
			SRPID:      study.SRPID,
			Species:    study.Species,
			Text:       study.Text,
		})
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	reporter.Flush()
	if !quiet {
		fmt.Println()
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			printWarning("Interrupted; the index keeps the documents committed so far")
			return nil
		}
		return err
	}

	docs, err := idx.DocCount()
	if err != nil {
		return err
	}
	printSuccess("Indexed %s documents in %s", humanize.Comma(int64(docs)), time.Since(start).Round(time.Second))
	return nil
}
