package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/beaubromley/bball-stats-sub000/internal/voicecmd"
)

// validSpeechProviders lists known STT provider names. Unknown names
// only warn, so third-party providers still load.
var validSpeechProviders = []string{"deepgram"}

// validLLMProviders lists LLM backends the corrector can construct.
var validLLMProviders = []string{"openai", "anthropic", "ollama"}

// Load reads the YAML configuration file at path, applies defaults for
// omitted values, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty file means all defaults.
			return cfg, Validate(cfg)
		}
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It
// returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !cfg.Ledger.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("ledger.driver %q is invalid; valid values: postgres, sqlite, none", cfg.Ledger.Driver))
	}
	if cfg.Ledger.Driver == DriverPostgres && cfg.Ledger.PostgresDSN == "" {
		errs = append(errs, errors.New("ledger.postgres_dsn is required when ledger.driver is postgres"))
	}
	if cfg.Ledger.Driver == DriverSQLite && cfg.Ledger.SQLitePath == "" {
		errs = append(errs, errors.New("ledger.sqlite_path is required when ledger.driver is sqlite"))
	}
	if cfg.Ledger.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("ledger.poll_interval %v must not be negative", cfg.Ledger.PollInterval))
	}

	if cfg.Game.TargetScore <= 0 {
		errs = append(errs, fmt.Errorf("game.target_score %d must be positive", cfg.Game.TargetScore))
	}
	if !voicecmd.ScoringMode(cfg.Game.ScoringMode).IsValid() {
		errs = append(errs, fmt.Errorf("game.scoring_mode %q is invalid; valid values: 1s2s, 2s3s", cfg.Game.ScoringMode))
	}

	if cfg.Speech.Provider != "" {
		if !slices.Contains(validSpeechProviders, cfg.Speech.Provider) {
			slog.Warn("unknown speech provider name",
				"name", cfg.Speech.Provider,
				"known", validSpeechProviders,
			)
		}
		if cfg.Speech.APIKey == "" {
			errs = append(errs, fmt.Errorf("speech.api_key is required when speech.provider is %q", cfg.Speech.Provider))
		}
	}

	if cfg.Corrector.LLM.Provider != "" && !slices.Contains(validLLMProviders, cfg.Corrector.LLM.Provider) {
		errs = append(errs, fmt.Errorf("corrector.llm.provider %q is invalid; valid values: openai, anthropic, ollama", cfg.Corrector.LLM.Provider))
	}
	for _, th := range []struct {
		name string
		v    float64
	}{
		{"corrector.phonetic.phonetic_threshold", cfg.Corrector.Phonetic.PhoneticThreshold},
		{"corrector.phonetic.fuzzy_threshold", cfg.Corrector.Phonetic.FuzzyThreshold},
		{"corrector.llm.confidence_threshold", cfg.Corrector.LLM.ConfidenceThreshold},
	} {
		if th.v < 0 || th.v > 1 {
			errs = append(errs, fmt.Errorf("%s %.2f is out of range [0, 1]", th.name, th.v))
		}
	}

	return errors.Join(errs...)
}
