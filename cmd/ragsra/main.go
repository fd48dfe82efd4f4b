package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Puumanamana/RAG-SRA/internal/config"
)

// Version info
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// Global flags
var (
	noColor bool
	quiet   bool
	verbose bool
	cfgFile string
)

// Root command
var rootCmd = &cobra.Command{
	Use:   "ragsra",
	Short: "Retrieval-augmented search over NCBI SRA metadata",
	Long: `ragsra turns NCBI SRA metadata dumps into a question-answering corpus.

It streams the tar.gz dumps into one aggregated text record per study,
catalogs the records in SQLite, indexes them with Bleve, and answers
natural-language questions about the catalog through an OpenAI-compatible
model.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Example: `  # Fetch the latest monthly dump
  ragsra download --type monthly

  # Build the study catalog from a dump
  ragsra preprocess ~/.ragsra/dumps/NCBI_SRA_Metadata_Full_20240101.tar.gz

  # Index the catalog and ask a question
  ragsra index
  ragsra ask "Which studies sequenced human liver tissue?"`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ragsra.yaml, then ~/.config/ragsra/config.yaml)")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(preprocessCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves the active configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.GetConfigPath()
	}
	return config.Load(path)
}

func main() {
	// Pick up OPENAI_API_KEY and friends from a local .env when present.
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
