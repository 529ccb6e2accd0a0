// Package config loads the operator configuration from YAML. Every value
// has a default so the CLI runs without a file; the API key may also come
// from the environment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv is consulted when the config file carries no capability key.
const APIKeyEnv = "OPENAI_API_KEY"

// LoggingConfig selects the slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// StoreConfig locates the SQLite databases.
type StoreConfig struct {
	Path       string `yaml:"path"`        // return/order aggregate DB
	CorpusPath string `yaml:"corpus_path"` // policy clause DB
}

// CapabilityConfig describes the OpenAI-compatible endpoint used for
// vision, text generation, and embeddings. Leaving the key empty keeps
// every stage on its deterministic fallback.
type CapabilityConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	ChatModel      string `yaml:"chat_model"`
	VisionModel    string `yaml:"vision_model"`
	EmbedModel     string `yaml:"embed_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PolicyConfig tunes clause retrieval.
type PolicyConfig struct {
	TopN int `yaml:"top_n"`
}

// ResolutionConfig carries the decision thresholds. The boost and the
// reject-side time factor are empirically chosen constants; they are
// config-tunable rather than hard invariants.
type ResolutionConfig struct {
	WindowDays            int     `yaml:"window_days"`
	ApproveThreshold      float64 `yaml:"approve_threshold"`
	LowConfidenceFloor    float64 `yaml:"low_confidence_floor"`
	ManufacturingDiscount float64 `yaml:"manufacturing_discount"`
	AgreementBoost        float64 `yaml:"agreement_boost"`
	ConsistencyFloor      float64 `yaml:"consistency_floor"`
}

// Config is the full operator configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Store      StoreConfig      `yaml:"store"`
	Capability CapabilityConfig `yaml:"capability"`
	Policy     PolicyConfig     `yaml:"policy"`
	Resolution ResolutionConfig `yaml:"resolution"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Path:       ".redress/returns.db",
			CorpusPath: ".redress/policies.db",
		},
		Capability: CapabilityConfig{
			Endpoint:       "https://api.openai.com/v1",
			ChatModel:      "gpt-4o",
			VisionModel:    "gpt-4o",
			EmbedModel:     "text-embedding-3-small",
			TimeoutSeconds: 30,
		},
		Policy: PolicyConfig{TopN: 10},
		Resolution: ResolutionConfig{
			WindowDays:            30,
			ApproveThreshold:      0.60,
			LowConfidenceFloor:    0.30,
			ManufacturingDiscount: 0.10,
			AgreementBoost:        0.15,
			ConsistencyFloor:      0.50,
		},
	}
}

// Load reads YAML from path over the defaults. An empty path returns the
// defaults. The capability key falls back to $OPENAI_API_KEY.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if cfg.Capability.APIKey == "" {
		cfg.Capability.APIKey = os.Getenv(APIKeyEnv)
	}
	return cfg, nil
}
