package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Puumanamana/RAG-SRA/internal/query"
	"github.com/Puumanamana/RAG-SRA/internal/search"
	"github.com/Puumanamana/RAG-SRA/internal/ui"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the cataloged studies",
	Long: `Answer a natural-language question with retrieval-augmented generation.

The question is matched against the index, the best study records become the
model's context, and the model returns the studies that answer the question
as a structured list. Requires an OpenAI-compatible API key (by default the
OPENAI_API_KEY environment variable, also read from a local .env file).`,
	Example: `  ragsra ask "Which studies sequenced human liver tissue?"
  ragsra ask "single-cell lupus datasets" --top-k 50
  ragsra ask "mouse brain development" --retrieve-only`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var (
	askModel        string
	askTopK         int
	askMinScore     float64
	askRetrieveOnly bool
	askIndexPath    string
	askJSON         bool
)

func init() {
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "Chat model (default from config)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "Studies retrieved as context (default 30)")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", 0, "Similarity cutoff as a fraction of the top score (default 0.4)")
	askCmd.Flags().BoolVarP(&askRetrieveOnly, "retrieve-only", "r", false, "Print the retrieved studies without calling the model")
	askCmd.Flags().StringVar(&askIndexPath, "index", "", "Index path (default: alongside the database)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full answer as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if askModel != "" {
		cfg.LLM.Model = askModel
	}
	if askTopK > 0 {
		cfg.LLM.TopK = askTopK
	}
	if askMinScore > 0 {
		cfg.LLM.MinScore = askMinScore
	}
	idxPath := askIndexPath
	if idxPath == "" {
		idxPath = cfg.Search.IndexPath
	}

	idx, err := search.Open(idxPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	engine := query.NewEngine(idx, cfg)
	defer engine.Close()

	if askRetrieveOnly {
		hits, err := engine.Retrieve(question)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			printInfo("Nothing retrieved for %q", question)
			return nil
		}
		for i, h := range hits {
			fmt.Printf("%s %s (score %.2f)\n",
				colorize(colorBold, fmt.Sprintf("[%d]", i+1)),
				colorize(colorCyan, h.SRAID),
				h.Score)
			fmt.Println(indent(h.Text, "    "))
			fmt.Println()
		}
		return nil
	}

	if cfg.APIKey() == "" {
		return fmt.Errorf("no API key: set %s (a .env file works) or use --retrieve-only", cfg.LLM.APIKeyEnv)
	}

	ctx, cancel := signalContext()
	defer cancel()

	spin := ui.NewSpinner("Asking " + cfg.LLM.Model)
	if !quiet {
		spin.Start()
	}
	answer, err := engine.Ask(ctx, question)
	spin.Stop()
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Println(answer.StudyList.String())
	if !quiet {
		fmt.Printf("\n%s\n", colorize(colorGray,
			fmt.Sprintf("%d studies retrieved | model %s | %s",
				answer.Retrieved, answer.Model, answer.AskTime.Round(time.Millisecond))))
	}
	return nil
}
