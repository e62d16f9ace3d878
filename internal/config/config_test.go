package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
ingest:
  chunk_size: 300
  chunk_overlap: 50
embedding:
  provider: mock
  dimensions: 64
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Ingest.ChunkSize != 300 || cfg.Ingest.ChunkOverlap != 50 {
		t.Errorf("unexpected ingest config: %+v", cfg.Ingest)
	}
	if cfg.Embedding.Dimensions != 64 || cfg.Embedding.Provider != EmbeddingMock {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
index:
  path: "./data/index"
embedding:
  text_model_path: "./models/text.onnx"
  tokenizer_path: "./models/tokenizer.json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "data", "index"); cfg.Index.Path != want {
		t.Errorf("index path = %s, want %s", cfg.Index.Path, want)
	}
	if want := filepath.Join(dir, "models", "text.onnx"); cfg.Embedding.TextModelPath != want {
		t.Errorf("text model path = %s, want %s", cfg.Embedding.TextModelPath, want)
	}
	if want := filepath.Join(dir, "models", "tokenizer.json"); cfg.Embedding.TokenizerPath != want {
		t.Errorf("tokenizer path = %s, want %s", cfg.Embedding.TokenizerPath, want)
	}
}

func TestLoad_rejectsOverlapNotSmallerThanChunk(t *testing.T) {
	path := writeConfig(t, `
ingest:
  chunk_size: 100
  chunk_overlap: 100
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for overlap >= chunk size")
	}
}

func TestLoad_rejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, `
generator:
  provider: "carrier-pigeon"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown generator provider")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Ingest.ChunkSize != 500 || cfg.Ingest.ChunkOverlap != 100 {
		t.Errorf("chunking defaults: %+v", cfg.Ingest)
	}
	if cfg.Ingest.MaxImageWidth != 1024 || cfg.Ingest.MaxImageHeight != 1024 {
		t.Errorf("image defaults: %+v", cfg.Ingest)
	}
	if cfg.Index.DefaultK != 5 {
		t.Errorf("default k: got %d", cfg.Index.DefaultK)
	}
	if cfg.Embedding.MaxTokens != 77 {
		t.Errorf("max tokens: got %d", cfg.Embedding.MaxTokens)
	}
	if cfg.Generator.Provider != ProviderAnthropic || cfg.Generator.Model == "" {
		t.Errorf("generator defaults: %+v", cfg.Generator)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_GeminiModel(t *testing.T) {
	cfg := &Config{Generator: GeneratorConfig{Provider: ProviderGemini}}
	ApplyDefaults(cfg)
	if cfg.Generator.Model != "gemini-2.5-flash" {
		t.Errorf("gemini default model: got %s", cfg.Generator.Model)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	cfg := Default()
	ApplyEnv(cfg)
	if cfg.Generator.APIKey != "sk-test" {
		t.Errorf("api key from env: got %q", cfg.Generator.APIKey)
	}

	cfg = Default()
	cfg.Generator.APIKey = "from-file"
	ApplyEnv(cfg)
	if cfg.Generator.APIKey != "from-file" {
		t.Errorf("file key should win, got %q", cfg.Generator.APIKey)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	cfg.Generator.APIKey = "secret"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "" {
		t.Fatal("empty config written")
	}
	t.Setenv("ANTHROPIC_API_KEY", "")
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Generator.APIKey != "" {
		t.Error("api key must not be persisted")
	}
	if cfg.Generator.APIKey != "secret" {
		t.Error("Save must not mutate the caller's config")
	}
}
