// Package llmcorrect implements a language-model-based transcript
// correction stage that resolves roster-name mishears not caught by
// the phonetic matcher.
//
// The [Corrector] sends the transcript to a model along with the
// active roster and a conservative prompt: fix only words that look
// like misheard player names, return structured JSON. It runs off the
// hot path (the interpreter waits for it, the game clock does not),
// and an unparseable response degrades to the original text rather
// than failing the pipeline.
package llmcorrect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anyllm "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
)

const defaultTemperature = 0.1

// systemPromptTemplate is the base system prompt. The roster is
// appended at call time so each request carries the current game.
const systemPromptTemplate = `You are a transcript correction assistant for a pickup basketball scorekeeper.

Your task: fix player name mishears in the provided transcript text.

Rules:
- ONLY correct words that appear to be misheard versions of the player names listed below.
- Do NOT change basketball vocabulary (bucket, two, three, layup, steal, block, assist, undo) or ordinary English words.
- Be conservative: if you are not confident a word is a misheard player name, leave it unchanged.
- Player names in the corrected text must match the roster spelling exactly.

Players in this game:
%s

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "corrected_text": "<full corrected transcript>",
  "corrections": [
    {"original": "<original word>", "corrected": "<corrected word>", "confidence": <0.0-1.0>}
  ]
}

If no corrections are needed, return an empty corrections array and corrected_text equal to the input.`

// Correction captures a single word-level substitution produced by
// the model.
type Correction struct {
	Original   string
	Corrected  string
	Confidence float64
}

// llmResponse is the expected JSON structure returned by the model.
type llmResponse struct {
	CorrectedText string `json:"corrected_text"`
	Corrections   []struct {
		Original   string  `json:"original"`
		Corrected  string  `json:"corrected"`
		Confidence float64 `json:"confidence"`
	} `json:"corrections"`
}

// Completer is the completion surface of an any-llm-go provider.
// Narrowed so tests can substitute a canned backend.
type Completer interface {
	Completion(ctx context.Context, params anyllm.CompletionParams) (*anyllm.ChatCompletion, error)
}

// NewBackend creates an any-llm-go provider by name: "openai",
// "anthropic" or "ollama". Without an API key option, the relevant
// environment variable is used.
func NewBackend(providerName string, opts ...anyllm.Option) (Completer, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("llmcorrect: unsupported provider %q; supported: openai, anthropic, ollama", providerName)
	}
}

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithTemperature sets the sampling temperature. Lower values produce
// more deterministic corrections. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(c *Corrector) {
		c.temperature = temp
	}
}

// Corrector asks a model to fix misheard player names in transcript
// text. It is safe for concurrent use.
type Corrector struct {
	backend     Completer
	model       string
	temperature float64
}

// New returns a [Corrector] over the given backend and model.
func New(backend Completer, model string, opts ...Option) *Corrector {
	c := &Corrector{
		backend:     backend,
		model:       model,
		temperature: defaultTemperature,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct sends text to the model with the roster as context.
// lowConfidenceSpans are highlighted as candidate mishears.
//
// When the response is unparseable, Correct returns the original text
// unchanged with nil corrections and a nil error. Context cancellation
// and network errors are returned as non-nil errors.
func (c *Corrector) Correct(ctx context.Context, text string, roster []string, lowConfidenceSpans []string) (string, []Correction, error) {
	if len(roster) == 0 {
		return text, nil, nil
	}

	userMsg := text
	if len(lowConfidenceSpans) > 0 {
		userMsg = fmt.Sprintf(
			"Transcript: %s\n\nLow-confidence spans that may be misheard: %s",
			text, strings.Join(lowConfidenceSpans, ", "),
		)
	}

	temp := c.temperature
	params := anyllm.CompletionParams{
		Model: c.model,
		Messages: []anyllm.Message{
			{Role: anyllm.RoleSystem, Content: buildSystemPrompt(roster)},
			{Role: anyllm.RoleUser, Content: userMsg},
		},
		Temperature: &temp,
	}

	resp, err := c.backend.Completion(ctx, params)
	if err != nil {
		return text, nil, fmt.Errorf("llmcorrect: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return text, nil, nil
	}

	corrected, corrections, parseErr := parseResponse(resp.Choices[0].Message.ContentString(), text)
	if parseErr != nil {
		// Unparseable response: degrade to the original text.
		return text, nil, nil
	}
	return corrected, corrections, nil
}

func buildSystemPrompt(roster []string) string {
	var sb strings.Builder
	for _, name := range roster {
		sb.WriteString("- ")
		sb.WriteString(name)
		sb.WriteByte('\n')
	}
	return fmt.Sprintf(systemPromptTemplate, sb.String())
}

// parseResponse unmarshals the model output, stripping optional
// markdown code fences first.
func parseResponse(content, originalText string) (string, []Correction, error) {
	cleaned := stripMarkdown(content)

	var r llmResponse
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return "", nil, fmt.Errorf("llmcorrect: parse response: %w", err)
	}
	if r.CorrectedText == "" {
		return originalText, nil, nil
	}

	corrections := make([]Correction, 0, len(r.Corrections))
	for _, c := range r.Corrections {
		if c.Original == c.Corrected || c.Original == "" {
			continue
		}
		corrections = append(corrections, Correction{
			Original:   c.Original,
			Corrected:  c.Corrected,
			Confidence: c.Confidence,
		})
	}
	return r.CorrectedText, corrections, nil
}

func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
