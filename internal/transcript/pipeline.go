// Package transcript corrects misheard player names in speech
// transcripts before they reach the command interpreter. Correction is
// staged: a fast in-process phonetic matcher first, then an optional
// conservative LLM pass for low-confidence spans. Either stage failing
// degrades to the text it was given; a bad correction pipeline must
// never lose an utterance.
package transcript

import (
	"context"

	"github.com/beaubromley/bball-stats-sub000/pkg/stt"
)

// Correction is one word-level substitution applied to a transcript.
type Correction struct {
	Original   string
	Corrected  string
	Confidence float64

	// Method is "phonetic" or "llm".
	Method string
}

// CorrectedTranscript is the pipeline output: the original transcript,
// the corrected text, and the substitutions applied.
type CorrectedTranscript struct {
	Original    stt.Transcript
	Corrected   string
	Corrections []Correction
}

// Pipeline corrects one transcript against the active roster.
type Pipeline interface {
	Correct(ctx context.Context, t stt.Transcript, roster []string) (*CorrectedTranscript, error)
}

// PhoneticMatcher aligns one word (or short phrase) with a roster
// name. When matched is false, corrected equals word unchanged.
type PhoneticMatcher interface {
	Match(word string, names []string) (corrected string, confidence float64, matched bool)
}
