// Package config provides configuration loading and structs for zukan.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Index     IndexConfig     `yaml:"index"`
	Generator GeneratorConfig `yaml:"generator"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// MaxUploadMB bounds the size of uploaded documents and query images.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

// EmbeddingConfig selects and configures the joint text/image embedder.
type EmbeddingConfig struct {
	// Provider is "onnx" (CLIP exported to ONNX) or "mock" (deterministic, for tests and demos).
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	TextModelPath  string `yaml:"text_model_path"`
	ImageModelPath string `yaml:"image_model_path"`
	// TokenizerPath is CLIP's tokenizer.json. Without it text is hash-tokenized and text
	// vectors do not line up with image vectors.
	TokenizerPath string `yaml:"tokenizer_path"`
	Dimensions     int    `yaml:"dimensions"`
	MaxTokens      int    `yaml:"max_tokens"`
	ImageSize      int    `yaml:"image_size"`
	CacheSize      int    `yaml:"cache_size"`
}

// IngestConfig holds segmentation settings.
type IngestConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	MaxImageWidth  int `yaml:"max_image_width"`
	MaxImageHeight int `yaml:"max_image_height"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	DefaultK int `yaml:"default_k"`
	// Path is the directory used by save/load when none is given explicitly.
	Path string `yaml:"path"`
}

// GeneratorConfig configures the vision-capable answer generator.
type GeneratorConfig struct {
	// Provider is "anthropic" or "gemini".
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	APIKey            string `yaml:"api_key"`
	MaxTokens         int    `yaml:"max_tokens"`
	Timeout           string `yaml:"timeout"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, expands paths and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Embedding.TextModelPath = expandPath(cfg.Embedding.TextModelPath, configDir)
	cfg.Embedding.ImageModelPath = expandPath(cfg.Embedding.ImageModelPath, configDir)
	cfg.Embedding.TokenizerPath = expandPath(cfg.Embedding.TokenizerPath, configDir)
	cfg.Index.Path = expandPath(cfg.Index.Path, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path. The API key is never written back.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.Generator.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv fills the generator API key from the provider's environment variable
// when the config file leaves it empty.
func ApplyEnv(cfg *Config) {
	if cfg.Generator.APIKey != "" {
		return
	}
	switch cfg.Generator.Provider {
	case ProviderAnthropic:
		cfg.Generator.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case ProviderGemini:
		cfg.Generator.APIKey = os.Getenv("GEMINI_API_KEY")
		if cfg.Generator.APIKey == "" {
			cfg.Generator.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size), got %d", c.Ingest.ChunkOverlap)
	}
	if c.Ingest.MaxImageWidth <= 0 || c.Ingest.MaxImageHeight <= 0 {
		return fmt.Errorf("ingest.max_image_width/height must be positive")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.Embedding.Provider {
	case EmbeddingONNX, EmbeddingMock:
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: onnx, mock)", c.Embedding.Provider)
	}
	switch c.Generator.Provider {
	case ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("unknown generator provider %q (supported: anthropic, gemini)", c.Generator.Provider)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
