package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Puumanamana/RAG-SRA/internal/paths"
	"gopkg.in/yaml.v3"
)

// Config represents the RAG-SRA configuration
type Config struct {
	DataDirectory string           `yaml:"data_directory"`
	Preprocess    PreprocessConfig `yaml:"preprocess"` // ETL thresholds
	Database      DatabaseConfig   `yaml:"database"`   // SQLite settings
	Search        SearchConfig     `yaml:"search"`     // Bleve index
	Server        ServerConfig     `yaml:"server"`     // HTTP API
	LLM           LLMConfig        `yaml:"llm"`        // Ask command backend
}

// PreprocessConfig contains the dump-to-record pipeline settings
type PreprocessConfig struct {
	MinSamples int      `yaml:"min_samples"` // distinct values before suppression applies
	MinCount   int      `yaml:"min_count"`   // repetition needed to escape suppression
	Species    []string `yaml:"species"`     // retained scientific names
	BatchSize  int      `yaml:"batch_size"`  // records per database transaction
}

// DatabaseConfig contains SQLite database settings
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	CacheSize   int    `yaml:"cache_size"`   // in KB
	MMapSize    int64  `yaml:"mmap_size"`    // in bytes
	JournalMode string `yaml:"journal_mode"` // WAL
}

// SearchConfig contains search-related settings
type SearchConfig struct {
	IndexPath    string `yaml:"index_path"`    // Path to Bleve index
	DefaultLimit int    `yaml:"default_limit"` // Default result limit
	BatchSize    int    `yaml:"batch_size"`    // Indexing batch size
	UseCache     bool   `yaml:"use_cache"`     // Enable search cache
	CacheTTL     int    `yaml:"cache_ttl"`     // Cache TTL in seconds
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig contains settings for the retrieval-augmented ask command
type LLMConfig struct {
	Model     string  `yaml:"model"`
	BaseURL   string  `yaml:"base_url"`    // OpenAI-compatible endpoint, empty for api.openai.com
	APIKeyEnv string  `yaml:"api_key_env"` // environment variable holding the key
	TopK      int     `yaml:"top_k"`       // retrieved studies per question
	MinScore  float64 `yaml:"min_score"`   // similarity cutoff, fraction of top score
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	p := paths.GetPaths()

	return &Config{
		DataDirectory: p.DataDir,
		Preprocess: PreprocessConfig{
			MinSamples: 10,
			MinCount:   3,
			Species:    []string{"Homo sapiens", "Mus musculus"},
			BatchSize:  500,
		},
		Database: DatabaseConfig{
			Path:        paths.GetDatabasePath(),
			CacheSize:   10000,     // 40MB
			MMapSize:    268435456, // 256MB
			JournalMode: "WAL",
		},
		Search: SearchConfig{
			IndexPath:    paths.GetIndexPath(),
			DefaultLimit: 100,
			BatchSize:    1000,
			UseCache:     true,
			CacheTTL:     3600,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
			TopK:      30,
			MinScore:  0.4,
		},
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Return defaults if file doesn't exist
		return config, nil
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate and expand paths
	config.DataDirectory = expandPath(config.DataDirectory)
	config.Database.Path = expandPath(config.Database.Path)
	config.Search.IndexPath = expandPath(config.Search.IndexPath)

	return config, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to YAML
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv("RAGSRA_CONFIG"); path != "" {
		return path
	}

	// Check current directory
	if _, err := os.Stat("ragsra.yaml"); err == nil {
		return "ragsra.yaml"
	}

	// Use default location
	p := paths.GetPaths()
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// EnsureDirectories creates necessary directories
func (c *Config) EnsureDirectories() error {
	// First ensure base directories using paths package
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	// Then ensure any custom directories from config
	dirs := []string{
		c.DataDirectory,
		filepath.Dir(c.Database.Path),
		filepath.Dir(c.Search.IndexPath),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// APIKey resolves the LLM API key from the configured environment variable
func (c *Config) APIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}

// ListenAddr returns the host:port pair the API server binds to
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}

	return path
}
