package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfigFromDir loads .semsearch/config.yml from rootDir, applying
// SEMSEARCH_* environment overrides. A missing file is not an error — the
// defaults from Default() are returned instead, the same contract the
// prior global config loader follows for a missing config file.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(filepath.Join(rootDir, ".semsearch"))

	v.SetEnvPrefix("SEMSEARCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Sources) == 0 {
		cwd := rootDir
		if abs, err := filepath.Abs(cwd); err == nil {
			cwd = abs
		}
		cfg.Sources = []SourceConfig{{
			ID:      "current_project",
			Name:    filepath.Base(cwd),
			Path:    cwd,
			Kind:    "text",
			Include: []string{"**/*"},
		}}
	}

	return cfg, nil
}

// LoadConfig loads configuration rooted at the current working directory.
func LoadConfig() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadConfigFromDir(cwd)
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("embedding.model")
	v.BindEnv("embedding.batch_size")
	v.BindEnv("embedding.api_key")
	v.BindEnv("embedding.endpoint")
	v.BindEnv("embedding.dimensions")
	v.BindEnv("rerank.enabled")
	v.BindEnv("rerank.model")
	v.BindEnv("rerank.endpoint")
	v.BindEnv("vector_store.path")
	v.BindEnv("watch.enabled")
	v.BindEnv("watch.debounce_seconds")
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("vector_store.path", d.VectorStore.Path)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("embedding.endpoint", d.Embedding.Endpoint)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("rerank.enabled", d.Rerank.Enabled)
	v.SetDefault("rerank.model", d.Rerank.Model)
	v.SetDefault("rerank.endpoint", d.Rerank.Endpoint)
	v.SetDefault("chunk.target", d.Chunk.Target)
	v.SetDefault("chunk.max", d.Chunk.Max)
	v.SetDefault("chunk.min", d.Chunk.Min)
	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.debounce_seconds", d.Watch.DebounceSeconds)
}
