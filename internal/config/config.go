// Package config loads the daemon's configuration from .semsearch/config.yml
// with SEMSEARCH_* environment variable overrides.
package config

// Config represents the complete semsearchd configuration. It can be loaded
// from .semsearch/config.yml with environment variable overrides.
type Config struct {
	Sources     []SourceConfig    `yaml:"sources" mapstructure:"sources"`
	VectorStore VectorStoreConfig `yaml:"vector_store" mapstructure:"vector_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Rerank      RerankConfig      `yaml:"rerank" mapstructure:"rerank"`
	Chunk       ChunkConfig       `yaml:"chunk" mapstructure:"chunk"`
	Watch       WatchConfig       `yaml:"watch" mapstructure:"watch"`
}

// SourceConfig declares one ingestion root.
type SourceConfig struct {
	ID      string   `yaml:"id" mapstructure:"id"`
	Name    string   `yaml:"name" mapstructure:"name"`
	Path    string   `yaml:"path" mapstructure:"path"`
	Kind    string   `yaml:"kind" mapstructure:"kind"` // markdown, code, text
	Include []string `yaml:"include" mapstructure:"include"`
	Exclude []string `yaml:"exclude" mapstructure:"exclude"`
}

// VectorStoreConfig points at the persisted vector repository directory.
type VectorStoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Model      string `yaml:"model" mapstructure:"model"`
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
}

// RerankConfig configures the cross-encoder reranker.
type RerankConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Model    string `yaml:"model" mapstructure:"model"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// ChunkConfig carries the chunker's token thresholds.
type ChunkConfig struct {
	Target int `yaml:"target" mapstructure:"target"`
	Max    int `yaml:"max" mapstructure:"max"`
	Min    int `yaml:"min" mapstructure:"min"`
}

// WatchConfig configures the file-system watcher.
type WatchConfig struct {
	Enabled         bool `yaml:"enabled" mapstructure:"enabled"`
	DebounceSeconds int  `yaml:"debounce_seconds" mapstructure:"debounce_seconds"`
}

// Default returns a configuration with every field set to its documented
// default value.
func Default() *Config {
	return &Config{
		Sources: nil,
		VectorStore: VectorStoreConfig{
			Path: ".semsearch/vectors",
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			BatchSize:  100,
			Endpoint:   "http://localhost:8080",
			Dimensions: 1536,
		},
		Rerank: RerankConfig{
			Enabled:  true,
			Model:    "ms-marco-TinyBERT-L-2-v2",
			Endpoint: "http://localhost:8080",
		},
		Chunk: ChunkConfig{
			Target: 1000,
			Max:    2000,
			Min:    100,
		},
		Watch: WatchConfig{
			Enabled:         true,
			DebounceSeconds: 30,
		},
	}
}
