// Package stt defines the speech-to-text transport types the scoreboard
// consumes. Providers live in subpackages; the engine itself never
// touches audio, only transcripts.
package stt

import "time"

// Transcript is one speech-to-text result. Both partial (interim) and
// final transcripts use this type; only finals should reach the
// command interpreter.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or
	// partial (interim) transcript.
	IsFinal bool

	// Confidence is the overall confidence score (0.0-1.0). May be
	// zero if the provider does not report confidence.
	Confidence float64

	// Words contains per-word detail when available. May be nil for
	// providers without word-level output.
	Words []WordDetail
}

// WordDetail holds per-word metadata from STT providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// KeywordBoost is a keyword to boost in STT recognition. Used to
// improve recognition of the roster's names during a game.
type KeywordBoost struct {
	// Keyword is the text to boost (e.g. "Garett").
	Keyword string

	// Boost is the intensity of the boost (provider-specific scale).
	Boost float64
}

// StreamConfig configures one streaming transcription session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz.
	SampleRate int

	// Language is the BCP-47 language code for recognition.
	Language string

	// Keywords are boosted for the lifetime of the stream.
	Keywords []KeywordBoost
}

// Stream is a live transcription session. SendAudio queues PCM audio;
// results arrive on the Partials and Finals channels, which are closed
// when the stream ends.
type Stream interface {
	SendAudio(chunk []byte) error
	Partials() <-chan Transcript
	Finals() <-chan Transcript
	Close() error
}
