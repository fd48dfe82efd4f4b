package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Puumanamana/RAG-SRA/internal/database"
	"github.com/Puumanamana/RAG-SRA/internal/errors"
	"github.com/Puumanamana/RAG-SRA/internal/search"
	"github.com/Puumanamana/RAG-SRA/internal/service"
	"github.com/Puumanamana/RAG-SRA/internal/validator"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the study catalog",
	Long: `Full-text search over the indexed study records.

Submission accessions (SRA...) and BioProject IDs (PRJNA...) are looked up
directly in the catalog; anything else is matched against the index.`,
	Example: `  ragsra search "human liver"
  ragsra search lupus --species "homo sapiens" --limit 20
  ragsra search SRA123456
  ragsra search "single cell" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var (
	searchLimit      int
	searchSpecies    string
	searchBioproject string
	searchFormat     string
	searchNoHeader   bool
	searchFacets     bool
	searchDB         string
	searchIndexPath  string
)

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "Maximum results to return (default from config)")
	searchCmd.Flags().StringVar(&searchSpecies, "species", "", "Filter by species (exact, lowercased)")
	searchCmd.Flags().StringVar(&searchBioproject, "bioproject", "", "Filter by BioProject accession")
	searchCmd.Flags().StringVarP(&searchFormat, "format", "f", "table", "Output format (table|json|accession)")
	searchCmd.Flags().BoolVar(&searchNoHeader, "no-header", false, "Omit the header row in table output")
	searchCmd.Flags().BoolVar(&searchFacets, "facets", false, "Show species counts for the matches instead of results")
	searchCmd.Flags().StringVar(&searchDB, "db", "", "Catalog database path (default: data dir)")
	searchCmd.Flags().StringVar(&searchIndexPath, "index", "", "Index path (default: alongside the database)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath := searchDB
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	idxPath := searchIndexPath
	if idxPath == "" {
		idxPath = cfg.Search.IndexPath
	}
	limit := searchLimit
	if limit <= 0 {
		limit = cfg.Search.DefaultLimit
	}

	db, err := database.Initialize(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	// Identifier-shaped queries skip the index.
	switch validator.TypeOf(query) {
	case validator.TypeSubmission:
		study, err := service.NewMetadataService(db).GetStudy(ctx, query)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				printInfo("%s is not in the catalog", query)
				return nil
			}
			return err
		}
		printStudy(study)
		return nil
	case validator.TypeBioproject:
		studies, err := db.ListStudies(database.ListOptions{Bioproject: query, Limit: limit})
		if err != nil {
			return err
		}
		if len(studies) == 0 {
			printInfo("No cataloged studies under %s", query)
			return nil
		}
		for i := range studies {
			printStudy(&studies[i])
		}
		return nil
	}

	idx, err := search.Open(idxPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	if searchFacets {
		return printSpeciesFacet(idx, query)
	}

	req := &service.SearchRequest{Query: query, Limit: limit}
	if searchSpecies != "" || searchBioproject != "" {
		req.Filters = map[string]string{}
		if searchSpecies != "" {
			req.Filters["species"] = searchSpecies
		}
		if searchBioproject != "" {
			req.Filters["bioproject"] = searchBioproject
		}
	}

	resp, err := service.NewSearchService(db, idx).Search(ctx, req)
	if err != nil {
		return err
	}

	switch searchFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)

	case "accession":
		for _, r := range resp.Results {
			fmt.Println(r.SRAID)
		}
		return nil

	default:
		if len(resp.Results) == 0 {
			printInfo("No results for %q", query)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		if !searchNoHeader {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				colorize(colorBold, "SRA_ID"),
				colorize(colorBold, "BIOPROJECT"),
				colorize(colorBold, "SPECIES"),
				colorize(colorBold, "SCORE"),
				colorize(colorBold, "TITLE"))
		}
		for _, r := range resp.Results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
				colorize(colorCyan, r.SRAID),
				r.Bioproject,
				r.Species,
				r.Score,
				truncateStr(studyTitle(r.Text), 50))
		}
		w.Flush()

		if !quiet {
			fmt.Printf("\n%s\n", colorize(colorGray,
				fmt.Sprintf("%d results in %dms", resp.TotalResults, resp.TimeTaken)))
		}
		return nil
	}
}

// studyTitle pulls the title line off a study's text body.
func studyTitle(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimPrefix(line, "title: ")
}

func printStudy(s *database.Study) {
	fmt.Printf("%s %s\n", colorize(colorBold, "Study"), colorize(colorCyan, s.SRAID))
	if s.Bioproject != "" {
		fmt.Printf("  Bioproject: %s\n", s.Bioproject)
	}
	if s.SRPID != "" {
		fmt.Printf("  SRP:        %s\n", s.SRPID)
	}
	if s.Species != "" {
		fmt.Printf("  Species:    %s\n", s.Species)
	}
	fmt.Println()
	fmt.Println(indent(s.Text, "  "))
	fmt.Println()
}

func printSpeciesFacet(idx *search.Index, query string) error {
	counts, err := idx.SpeciesFacet(query, 20)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		printInfo("No results for %q", query)
		return nil
	}

	type entry struct {
		species string
		count   int
	}
	entries := make([]entry, 0, len(counts))
	for s, c := range counts {
		entries = append(entries, entry{s, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].species < entries[j].species
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if !searchNoHeader {
		fmt.Fprintf(w, "%s\t%s\n", colorize(colorBold, "SPECIES"), colorize(colorBold, "STUDIES"))
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\n", e.species, e.count)
	}
	return w.Flush()
}
