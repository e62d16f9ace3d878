package config

const (
	EmbeddingONNX = "onnx"
	EmbeddingMock = "mock"

	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 64
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = EmbeddingONNX
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "openai/clip-vit-base-patch32"
	}
	if cfg.Embedding.TextModelPath == "" {
		cfg.Embedding.TextModelPath = "/usr/local/var/zukan/models/clip-vit-base-patch32-text.onnx"
	}
	if cfg.Embedding.ImageModelPath == "" {
		cfg.Embedding.ImageModelPath = "/usr/local/var/zukan/models/clip-vit-base-patch32-vision.onnx"
	}
	if cfg.Embedding.TokenizerPath == "" {
		cfg.Embedding.TokenizerPath = "/usr/local/var/zukan/models/clip-vit-base-patch32-tokenizer.json"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 512
	}
	// CLIP's context length.
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 77
	}
	if cfg.Embedding.ImageSize == 0 {
		cfg.Embedding.ImageSize = 224
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 500
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 100
	}
	if cfg.Ingest.MaxImageWidth == 0 {
		cfg.Ingest.MaxImageWidth = 1024
	}
	if cfg.Ingest.MaxImageHeight == 0 {
		cfg.Ingest.MaxImageHeight = 1024
	}
	if cfg.Index.DefaultK == 0 {
		cfg.Index.DefaultK = 5
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "/usr/local/var/zukan/index"
	}
	if cfg.Generator.Provider == "" {
		cfg.Generator.Provider = ProviderAnthropic
	}
	if cfg.Generator.Model == "" {
		switch cfg.Generator.Provider {
		case ProviderGemini:
			cfg.Generator.Model = "gemini-2.5-flash"
		default:
			cfg.Generator.Model = "claude-sonnet-4-20250514"
		}
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 2048
	}
	if cfg.Generator.Timeout == "" {
		cfg.Generator.Timeout = "120s"
	}
	if cfg.Generator.RequestsPerMinute == 0 {
		cfg.Generator.RequestsPerMinute = 30
	}
}
