package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	// Check preprocess defaults
	if cfg.Preprocess.MinSamples != 10 {
		t.Errorf("expected min_samples 10, got %d", cfg.Preprocess.MinSamples)
	}
	if cfg.Preprocess.MinCount != 3 {
		t.Errorf("expected min_count 3, got %d", cfg.Preprocess.MinCount)
	}
	if len(cfg.Preprocess.Species) != 2 {
		t.Errorf("expected two default species, got %v", cfg.Preprocess.Species)
	}

	// Check database defaults
	if cfg.Database.JournalMode != "WAL" {
		t.Errorf("expected journal_mode WAL, got %q", cfg.Database.JournalMode)
	}
	if cfg.Database.CacheSize != 10000 {
		t.Errorf("expected cache_size 10000, got %d", cfg.Database.CacheSize)
	}

	// Check search defaults
	if cfg.Search.DefaultLimit != 100 {
		t.Errorf("expected default_limit 100, got %d", cfg.Search.DefaultLimit)
	}
	if cfg.Search.BatchSize != 1000 {
		t.Errorf("expected batch_size 1000, got %d", cfg.Search.BatchSize)
	}

	// Check LLM defaults
	if cfg.LLM.TopK != 30 {
		t.Errorf("expected top_k 30, got %d", cfg.LLM.TopK)
	}
	if cfg.LLM.MinScore != 0.4 {
		t.Errorf("expected min_score 0.4, got %f", cfg.LLM.MinScore)
	}
	if cfg.LLM.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("expected api_key_env OPENAI_API_KEY, got %q", cfg.LLM.APIKeyEnv)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("Load should return defaults for non-existent file, got error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config for non-existent file")
	}
}

func TestLoadValidFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
data_directory: /tmp/ragsra-test
preprocess:
  min_samples: 20
  species:
    - Homo sapiens
database:
  path: /tmp/ragsra-test/test.db
  cache_size: 5000
  journal_mode: WAL
llm:
  model: gpt-4o
  top_k: 5
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DataDirectory != "/tmp/ragsra-test" {
		t.Errorf("expected data_directory /tmp/ragsra-test, got %q", cfg.DataDirectory)
	}
	if cfg.Preprocess.MinSamples != 20 {
		t.Errorf("expected min_samples 20, got %d", cfg.Preprocess.MinSamples)
	}
	if len(cfg.Preprocess.Species) != 1 || cfg.Preprocess.Species[0] != "Homo sapiens" {
		t.Errorf("expected species override, got %v", cfg.Preprocess.Species)
	}
	if cfg.Database.CacheSize != 5000 {
		t.Errorf("expected cache_size 5000, got %d", cfg.Database.CacheSize)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.TopK != 5 {
		t.Errorf("expected top_k 5, got %d", cfg.LLM.TopK)
	}

	// Values absent from the file keep their defaults
	if cfg.Preprocess.MinCount != 3 {
		t.Errorf("expected default min_count 3, got %d", cfg.Preprocess.MinCount)
	}
	if cfg.LLM.MinScore != 0.4 {
		t.Errorf("expected default min_score 0.4, got %f", cfg.LLM.MinScore)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("invalid: yaml: [broken"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Database.CacheSize = 999
	cfg.Server.Port = 9999

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Database.CacheSize != 999 {
		t.Errorf("expected cache_size 999, got %d", loaded.Database.CacheSize)
	}
	if loaded.Server.Port != 9999 {
		t.Errorf("expected port 9999 after save/load, got %d", loaded.Server.Port)
	}
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(string) bool
		desc  string
	}{
		{
			name:  "empty string",
			input: "",
			check: func(s string) bool { return s == "" },
			desc:  "should return empty string",
		},
		{
			name:  "absolute path",
			input: "/usr/local/bin",
			check: func(s string) bool { return s == "/usr/local/bin" },
			desc:  "should return unchanged",
		},
		{
			name:  "tilde expansion",
			input: "~/Documents",
			check: func(s string) bool { return s != "~/Documents" && len(s) > 0 },
			desc:  "should expand tilde",
		},
		{
			name:  "relative path",
			input: "relative/path",
			check: func(s string) bool { return s == "relative/path" },
			desc:  "should return unchanged",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if !tt.check(result) {
				t.Errorf("expandPath(%q) = %q, %s", tt.input, result, tt.desc)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	// Test with environment variable
	t.Setenv("RAGSRA_CONFIG", "/custom/config.yaml")
	path := GetConfigPath()
	if path != "/custom/config.yaml" {
		t.Errorf("expected /custom/config.yaml, got %q", path)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	if addr := cfg.ListenAddr(); addr != "127.0.0.1:8080" {
		t.Errorf("expected 127.0.0.1:8080, got %q", addr)
	}

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 9090
	if addr := cfg.ListenAddr(); addr != "0.0.0.0:9090" {
		t.Errorf("expected 0.0.0.0:9090, got %q", addr)
	}
}

func TestAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKeyEnv = "RAGSRA_TEST_KEY"

	t.Setenv("RAGSRA_TEST_KEY", "secret")
	if key := cfg.APIKey(); key != "secret" {
		t.Errorf("expected key from env, got %q", key)
	}

	cfg.LLM.APIKeyEnv = ""
	if key := cfg.APIKey(); key != "" {
		t.Errorf("expected empty key without env name, got %q", key)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("RAGSRA_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("RAGSRA_DATA_DIR", filepath.Join(dir, "base"))

	cfg := DefaultConfig()
	cfg.DataDirectory = filepath.Join(dir, "data")
	cfg.Database.Path = filepath.Join(dir, "data", "test.db")
	cfg.Search.IndexPath = filepath.Join(dir, "data", "test.bleve")

	err := cfg.EnsureDirectories()
	if err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	// Verify directories were created
	if _, err := os.Stat(cfg.DataDirectory); os.IsNotExist(err) {
		t.Error("data directory was not created")
	}
}
