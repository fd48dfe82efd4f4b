package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Puumanamana/RAG-SRA/internal/downloader"
	"github.com/Puumanamana/RAG-SRA/internal/paths"
	"github.com/Puumanamana/RAG-SRA/internal/progress"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch NCBI SRA metadata dumps",
	Long: `Fetch metadata dumps from the NCBI mirror.

Without flags the newest dump of any kind is downloaded. Monthly dumps
(NCBI_SRA_Metadata_Full_YYYYMMDD.tar.gz) snapshot the whole archive; daily
ones carry that day's changes. An already-downloaded dump is left untouched.`,
	Example: `  # Show what the mirror offers
  ragsra download --list

  # Fetch the latest monthly dump
  ragsra download --type monthly

  # Fetch a specific day
  ragsra download --date 20240115`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

var (
	downloadList   bool
	downloadType   string
	downloadDate   string
	downloadFile   string
	downloadOutput string
	downloadMirror string
)

func init() {
	downloadCmd.Flags().BoolVarP(&downloadList, "list", "l", false, "List available dumps without downloading")
	downloadCmd.Flags().StringVarP(&downloadType, "type", "t", "", "Dump type (daily|monthly)")
	downloadCmd.Flags().StringVar(&downloadDate, "date", "", "Dump date (YYYYMMDD)")
	downloadCmd.Flags().StringVar(&downloadFile, "file", "", "Exact dump file name")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output directory (default: dumps/ under the data dir)")
	downloadCmd.Flags().StringVar(&downloadMirror, "mirror", "", "Mirror base URL (default: NCBI)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	switch downloadType {
	case "", string(downloader.FileTypeDaily), string(downloader.FileTypeMonthly):
	default:
		return fmt.Errorf("invalid --type %q (daily|monthly)", downloadType)
	}

	ctx, cancel := signalContext()
	defer cancel()

	mgr := downloader.NewManager(downloadMirror)

	if downloadList {
		files, err := mgr.ListAvailable(ctx)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			printInfo("No dumps listed")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			colorize(colorBold, "NAME"),
			colorize(colorBold, "TYPE"),
			colorize(colorBold, "DATE"),
			colorize(colorBold, "SIZE"))
		for _, f := range files {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				colorize(colorCyan, f.Name),
				f.Type,
				f.Date.Format("2006-01-02"),
				downloader.FormatSize(f.Size))
		}
		return w.Flush()
	}

	var (
		file *downloader.MetadataFile
		err  error
	)
	switch {
	case downloadFile != "":
		file, err = mgr.ByName(ctx, downloadFile)
	case downloadDate != "":
		file, err = mgr.ByDate(ctx, downloadDate)
	default:
		file, err = mgr.Latest(ctx, downloader.FileType(downloadType))
	}
	if err != nil {
		return err
	}

	outDir := downloadOutput
	if outDir == "" {
		outDir = paths.GetDumpsPath()
	}

	printInfo("Downloading %s (%s) to %s", file.Name, downloader.FormatSize(file.Size), outDir)

	tracker := progress.NewTracker()
	reporter := progress.NewReporter(tracker, time.Second, func(s progress.Statistics) {
		if !quiet {
			fmt.Printf("\r%s   ", s)
		}
	})
	start := time.Now()

	dest, err := mgr.Download(ctx, file, outDir, func(done, total int64) {
		tracker.SetTotalBytes(total)
		tracker.SetBytesRead(done)
		reporter.Tick()
	})
	if !quiet {
		fmt.Println()
	}
	if err != nil {
		return err
	}

	printSuccess("Saved %s in %s", dest, time.Since(start).Round(time.Second))
	return nil
}
