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
	"github.com/Puumanamana/RAG-SRA/internal/export"
	"github.com/Puumanamana/RAG-SRA/internal/processor"
	"github.com/Puumanamana/RAG-SRA/internal/progress"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess <dump.tar.gz>",
	Short: "Build the study catalog from a metadata dump",
	Long: `Stream a metadata dump into per-study records and load them into the
catalog database.

Each study folder in the dump becomes one text record: field values are
aggregated across samples into frequency tables ("liver(N=8)|blood(N=4)"),
rare values are suppressed, and studies outside the retained species or with
a single sample are dropped.`,
	Example: `  ragsra preprocess ~/.ragsra/dumps/NCBI_SRA_Metadata_Full_20240101.tar.gz

  # Keep rat studies too, export the corpus alongside
  ragsra preprocess dump.tar.gz \
    --species "Homo sapiens,Mus musculus,Rattus norvegicus" \
    --export corpus.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPreprocess,
}

var (
	preprocessDB         string
	preprocessExportPath string
	preprocessGzip       bool
	preprocessMinSamples int
	preprocessMinCount   int
	preprocessSpecies    []string
	preprocessBatch      int
)

func init() {
	preprocessCmd.Flags().StringVar(&preprocessDB, "db", "", "Catalog database path (default: data dir)")
	preprocessCmd.Flags().StringVar(&preprocessExportPath, "export", "", "Also export the corpus as a JSON array to this path")
	preprocessCmd.Flags().BoolVar(&preprocessGzip, "gzip", false, "Gzip the exported corpus")
	preprocessCmd.Flags().IntVar(&preprocessMinSamples, "min-samples", 0, "Distinct values per field before rare ones are suppressed (default 10)")
	preprocessCmd.Flags().IntVar(&preprocessMinCount, "min-count", 0, "Occurrences a value needs to escape suppression (default 3)")
	preprocessCmd.Flags().StringSliceVar(&preprocessSpecies, "species", nil, "Retained species (default: Homo sapiens, Mus musculus)")
	preprocessCmd.Flags().IntVar(&preprocessBatch, "batch-size", 0, "Records per catalog transaction (default 500)")
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	dumpPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := preprocessDB
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	batchSize := preprocessBatch
	if batchSize <= 0 {
		batchSize = cfg.Preprocess.BatchSize
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	opts := processor.DefaultPipelineOptions()
	if cfg.Preprocess.MinSamples > 0 {
		opts.Assemble.Aggregate.MinSamples = cfg.Preprocess.MinSamples
	}
	if cfg.Preprocess.MinCount > 0 {
		opts.Assemble.Aggregate.MinCount = cfg.Preprocess.MinCount
	}
	if len(cfg.Preprocess.Species) > 0 {
		opts.Assemble.Species = cfg.Preprocess.Species
	}
	if preprocessMinSamples > 0 {
		opts.Assemble.Aggregate.MinSamples = preprocessMinSamples
	}
	if preprocessMinCount > 0 {
		opts.Assemble.Aggregate.MinCount = preprocessMinCount
	}
	if len(preprocessSpecies) > 0 {
		opts.Assemble.Species = preprocessSpecies
	}

	f, err := os.Open(dumpPath)
	if err != nil {
		return fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()

	tracker := progress.NewTracker()
	if info, err := f.Stat(); err == nil {
		tracker.SetTotalBytes(info.Size())
	}
	reporter := progress.NewReporter(tracker, time.Second, func(s progress.Statistics) {
		if !quiet {
			fmt.Printf("\r%s   ", s)
		}
	})

	opts.ProgressInterval = 100
	opts.Progress = func(s processor.Stats) {
		skipped := s.SkippedIncomplete + s.SkippedSingleSample + s.SkippedSpecies
		tracker.SetGroups(int64(s.GroupsRead), int64(skipped))
		tracker.SetRecords(int64(s.RecordsEmitted))
		reporter.Tick()
	}

	pipe, err := processor.NewPipeline(tracker.Reader(f), opts)
	if err != nil {
		return err
	}
	defer pipe.Close()

	db, err := database.Initialize(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	printInfo("Processing %s into %s", dumpPath, dbPath)

	ctx, cancel := signalContext()
	defer cancel()

	batch := make([]database.Study, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := db.InsertStudies(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	stats, runErr := pipe.Run(ctx, func(rec *processor.StudyRecord) error {
		batch = append(batch, database.Study{
			SRAID:      rec.Metadata.SRAID,
			Bioproject: rec.Metadata.Bioproject,
			SRPID:      rec.Metadata.SRPID,
			Species:    rec.Metadata.Species,
			Text:       rec.Text,
		})
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	// Completed records are valid regardless of how the run ended.
	if err := flush(); err != nil && runErr == nil {
		runErr = err
	}
	reporter.Flush()
	if !quiet {
		fmt.Println()
	}

	if verbose {
		pipe.ReportSkips()
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			printWarning("Interrupted after %s groups; the catalog keeps the %s records loaded so far",
				humanize.Comma(int64(stats.GroupsRead)), humanize.Comma(int64(stats.RecordsEmitted)))
			return nil
		}
		return runErr
	}

	printSuccess("Cataloged %s studies from %s groups in %s (skipped: %d incomplete, %d single-sample, %d off-species)",
		humanize.Comma(int64(stats.RecordsEmitted)),
		humanize.Comma(int64(stats.GroupsRead)),
		stats.Elapsed.Round(time.Second),
		stats.SkippedIncomplete,
		stats.SkippedSingleSample,
		stats.SkippedSpecies)

	if preprocessExportPath == "" {
		return nil
	}
	return exportCorpus(dbPath, preprocessExportPath, preprocessGzip)
}

func exportCorpus(dbPath, outPath string, compress bool) error {
	exp, err := export.NewExporter(&export.Config{
		SourceDB:   dbPath,
		OutputPath: outPath,
		Compress:   compress,
		Verbose:    verbose,
	})
	if err != nil {
		return err
	}
	defer exp.Close()

	stats, err := exp.Export()
	if err != nil {
		return err
	}
	printSuccess("Exported %s studies to %s", humanize.Comma(int64(stats.Studies)), outPath)
	return nil
}
