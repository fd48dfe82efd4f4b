package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Puumanamana/RAG-SRA/internal/config"
	"github.com/Puumanamana/RAG-SRA/internal/paths"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ragsra configuration",
	Long:  `Inspect and initialize the ragsra configuration file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Create a config file with the defaults at the standard location
(~/.config/ragsra/config.yaml). If a config file already exists, use
--force to overwrite it.`,
	Example: `  ragsra config init
  ragsra config init --force`,
	RunE: runConfigInit,
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show the active data paths",
	Long: `Display the directories and files ragsra works with, including any
environment variable overrides.`,
	RunE: runConfigPaths,
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing configuration")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathsCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", colorize(colorBold, "Config file:"), path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println(colorize(colorYellow, "  (not present, showing defaults)"))
	}
	fmt.Println()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	os.Stdout.Write(data)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = filepath.Join(paths.GetPaths().ConfigDir, "config.yaml")
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		printWarning("Configuration already exists at %s (use --force to overwrite)", path)
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(path); err != nil {
		return err
	}
	printSuccess("Wrote %s", path)
	return nil
}

func runConfigPaths(cmd *cobra.Command, args []string) error {
	p := paths.GetPaths()

	fmt.Printf("%s\n", colorize(colorBold, "Directories:"))
	fmt.Printf("  Config: %s\n", colorize(colorCyan, p.ConfigDir))
	fmt.Printf("  Data:   %s\n", colorize(colorCyan, p.DataDir))

	fmt.Println()
	fmt.Printf("%s\n", colorize(colorBold, "Files:"))
	fmt.Printf("  Dumps:    %s\n", colorize(colorCyan, paths.GetDumpsPath()))
	fmt.Printf("  Database: %s\n", colorize(colorCyan, paths.GetDatabasePath()))
	fmt.Printf("  Index:    %s\n", colorize(colorCyan, paths.GetIndexPath()))
	fmt.Printf("  Corpus:   %s\n", colorize(colorCyan, paths.GetCorpusPath()))

	envVars := []string{
		"RAGSRA_DATA_DIR",
		"RAGSRA_CONFIG_HOME",
		"RAGSRA_CONFIG",
		"RAGSRA_DB_PATH",
		"RAGSRA_INDEX_PATH",
		"OPENAI_API_KEY",
	}
	shown := false
	for _, name := range envVars {
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		if !shown {
			fmt.Println()
			fmt.Printf("%s\n", colorize(colorBold, "Environment:"))
			shown = true
		}
		if name == "OPENAI_API_KEY" {
			val = "(set)"
		}
		fmt.Printf("  %s = %s\n", colorize(colorYellow, name), colorize(colorCyan, val))
	}

	fmt.Println()
	fmt.Printf("%s\n", colorize(colorBold, "Status:"))
	checks := []struct {
		name string
		path string
	}{
		{"Database", paths.GetDatabasePath()},
		{"Index", paths.GetIndexPath()},
		{"Corpus", paths.GetCorpusPath()},
	}
	for _, check := range checks {
		if _, err := os.Stat(check.path); err == nil {
			fmt.Printf("  %-9s %s\n", check.name+":", colorize(colorGreen, "✓ exists"))
		} else {
			fmt.Printf("  %-9s %s\n", check.name+":", colorize(colorGray, "✗ not found"))
		}
	}

	return nil
}
