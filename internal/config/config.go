// Package config provides the configuration schema and YAML loader for
// the scoreboard server.
package config

import (
	"time"

	"github.com/beaubromley/bball-stats-sub000/internal/voicecmd"
)

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// LedgerDriver selects the persistence backend.
type LedgerDriver string

const (
	// DriverPostgres stores games in PostgreSQL, the shared ledger for
	// multi-device play.
	DriverPostgres LedgerDriver = "postgres"

	// DriverSQLite stores games in a local SQLite file.
	DriverSQLite LedgerDriver = "sqlite"

	// DriverNone scores fully in memory.
	DriverNone LedgerDriver = "none"
)

// IsValid reports whether d is a recognised ledger driver.
func (d LedgerDriver) IsValid() bool {
	switch d {
	case DriverPostgres, DriverSQLite, DriverNone:
		return true
	}
	return false
}

// Config is the root configuration structure, typically loaded from a
// YAML file using [Load].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Game      GameConfig      `yaml:"game"`
	Speech    SpeechConfig    `yaml:"speech"`
	Corrector CorrectorConfig `yaml:"corrector"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g. ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// LedgerConfig selects and configures the persistence backend.
type LedgerConfig struct {
	// Driver picks the backend: postgres, sqlite, or none.
	Driver LedgerDriver `yaml:"driver"`

	// PostgresDSN is the connection string when Driver is postgres.
	PostgresDSN string `yaml:"postgres_dsn"`

	// SQLitePath is the database file path when Driver is sqlite.
	SQLitePath string `yaml:"sqlite_path"`

	// PollInterval is how often the ledger is polled for corrections
	// written by other devices.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// GameConfig holds defaults for games started by voice.
type GameConfig struct {
	// TargetScore is the score that wins a game.
	TargetScore int `yaml:"target_score"`

	// ScoringMode is "1s2s" or "2s3s".
	ScoringMode string `yaml:"scoring_mode"`

	// MicWearer names the player holding the microphone. Utterances
	// without an actor are credited to them.
	MicWearer string `yaml:"mic_wearer"`

	// Location is recorded on created game records (e.g. "Sunset Park").
	Location string `yaml:"location"`
}

// SpeechConfig configures the streaming STT provider.
type SpeechConfig struct {
	// Provider names the STT backend. Currently "deepgram" or empty to
	// run without live audio (transcripts come in over HTTP).
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key"`

	// Model selects the provider's model (e.g. "nova-3").
	Model string `yaml:"model"`

	// Language is the BCP-47 recognition language.
	Language string `yaml:"language"`

	// SampleRate is the audio sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// KeywordBoost is the boost applied to roster names.
	KeywordBoost float64 `yaml:"keyword_boost"`
}

// CorrectorConfig configures the transcript-correction pipeline.
type CorrectorConfig struct {
	Phonetic PhoneticConfig `yaml:"phonetic"`
	LLM      LLMConfig      `yaml:"llm"`
}

// PhoneticConfig tunes the in-process phonetic matcher.
type PhoneticConfig struct {
	// Enabled turns the phonetic stage on.
	Enabled bool `yaml:"enabled"`

	// PhoneticThreshold is the minimum similarity for words whose
	// phonetic codes overlap a roster name's.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`

	// FuzzyThreshold is the stricter minimum for pure spelling
	// similarity without phonetic overlap.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// LLMConfig configures the optional LLM correction stage.
type LLMConfig struct {
	// Provider names the LLM backend: openai, anthropic, or ollama.
	// Empty disables the stage.
	Provider string `yaml:"provider"`

	// Model selects the model within the provider.
	Model string `yaml:"model"`

	// Temperature for correction requests.
	Temperature float64 `yaml:"temperature"`

	// ConfidenceThreshold is the STT word confidence below which a word
	// is submitted for LLM review.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// Default returns the configuration used when no file is provided: a
// local SQLite ledger, games to 11 in 1s/2s, phonetic correction on.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Ledger: LedgerConfig{
			Driver:       DriverSQLite,
			SQLitePath:   "games.db",
			PollInterval: 2 * time.Second,
		},
		Game: GameConfig{
			TargetScore: 11,
			ScoringMode: string(voicecmd.ModeOnesTwos),
		},
		Speech: SpeechConfig{
			Language:     "en",
			SampleRate:   16000,
			KeywordBoost: 5,
		},
		Corrector: CorrectorConfig{
			Phonetic: PhoneticConfig{Enabled: true},
			LLM: LLMConfig{
				Temperature:         0.1,
				ConfidenceThreshold: 0.5,
			},
		},
	}
}
