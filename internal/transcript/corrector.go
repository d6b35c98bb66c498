package transcript

import (
	"context"
	"strings"

	"github.com/beaubromley/bball-stats-sub000/internal/transcript/llmcorrect"
	"github.com/beaubromley/bball-stats-sub000/pkg/stt"
)

const defaultLLMConfidenceThreshold = 0.5

// PipelineOption is a functional option for a [CorrectionPipeline].
type PipelineOption func(*CorrectionPipeline)

// WithPhoneticMatcher attaches a [PhoneticMatcher] as the first
// correction stage. When nil (the default), the stage is skipped.
func WithPhoneticMatcher(m PhoneticMatcher) PipelineOption {
	return func(p *CorrectionPipeline) {
		p.phonetic = m
	}
}

// WithLLMCorrector attaches an [llmcorrect.Corrector] as the second
// correction stage. When nil (the default), the stage is skipped.
func WithLLMCorrector(c *llmcorrect.Corrector) PipelineOption {
	return func(p *CorrectionPipeline) {
		p.llmCorrector = c
	}
}

// WithLLMOnLowConfidence sets the STT word-confidence threshold below
// which a word is flagged for LLM review. Words without confidence
// data are always submitted when the LLM stage is configured.
// Default: 0.5.
func WithLLMOnLowConfidence(threshold float64) PipelineOption {
	return func(p *CorrectionPipeline) {
		p.llmThreshold = threshold
	}
}

// WithProtectedWords marks words the phonetic stage must never
// rewrite. The scoring vocabulary goes here, or "bucket" gets aligned
// with a similarly-spelled player.
func WithProtectedWords(words []string) PipelineOption {
	return func(p *CorrectionPipeline) {
		for _, w := range words {
			p.protected[strings.ToLower(w)] = struct{}{}
		}
	}
}

// CorrectionPipeline is the staged [Pipeline] implementation. Safe for
// concurrent use.
type CorrectionPipeline struct {
	phonetic     PhoneticMatcher
	llmCorrector *llmcorrect.Corrector
	llmThreshold float64
	protected    map[string]struct{}
}

var _ Pipeline = (*CorrectionPipeline)(nil)

// NewPipeline constructs a [CorrectionPipeline]. By default both
// stages are disabled; use [WithPhoneticMatcher] and
// [WithLLMCorrector] to activate them.
func NewPipeline(opts ...PipelineOption) *CorrectionPipeline {
	p := &CorrectionPipeline{
		llmThreshold: defaultLLMConfidenceThreshold,
		protected:    make(map[string]struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Correct applies the configured stages to t and returns the corrected
// transcript. An LLM failure returns the phonetic-stage text with the
// error; the caller can keep scoring off the partial result.
func (p *CorrectionPipeline) Correct(ctx context.Context, t stt.Transcript, roster []string) (*CorrectedTranscript, error) {
	result := &CorrectedTranscript{
		Original:    t,
		Corrected:   t.Text,
		Corrections: []Correction{},
	}
	if len(roster) == 0 {
		return result, nil
	}

	workingText := t.Text
	var phoneticCorrections []Correction
	if p.phonetic != nil {
		workingText, phoneticCorrections = p.applyPhonetic(t.Text, roster)
	}

	alreadyCorrected := make(map[string]struct{}, len(phoneticCorrections))
	for _, c := range phoneticCorrections {
		alreadyCorrected[strings.ToLower(c.Original)] = struct{}{}
	}

	var llmCorrections []Correction
	if p.llmCorrector != nil {
		lowConfSpans := p.collectLowConfidenceSpans(t.Words, alreadyCorrected)
		if len(t.Words) == 0 || len(lowConfSpans) > 0 {
			correctedText, rawCorrections, err := p.llmCorrector.Correct(ctx, workingText, roster, lowConfSpans)
			if err != nil {
				result.Corrected = workingText
				result.Corrections = phoneticCorrections
				return result, err
			}
			workingText = correctedText
			for _, rc := range rawCorrections {
				llmCorrections = append(llmCorrections, Correction{
					Original:   rc.Original,
					Corrected:  rc.Corrected,
					Confidence: rc.Confidence,
					Method:     "llm",
				})
			}
		}
	}

	result.Corrected = workingText
	result.Corrections = append(result.Corrections, phoneticCorrections...)
	result.Corrections = append(result.Corrections, llmCorrections...)
	return result, nil
}

// applyPhonetic walks the text token by token, trying n-gram windows
// (longest first, up to the longest roster name) against the matcher.
// Protected vocabulary is never rewritten.
func (p *CorrectionPipeline) applyPhonetic(text string, roster []string) (string, []Correction) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}
	maxNameWords := maxWordCount(roster)

	var output []string
	var corrections []Correction

	i := 0
	for i < len(tokens) {
		maxN := maxNameWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			if p.windowProtected(tokens[i : i+n]) {
				continue
			}
			name, conf, ok := p.phonetic.Match(window, roster)
			if !ok {
				continue
			}
			output = append(output, strings.Fields(name)...)
			corrections = append(corrections, Correction{
				Original:   window,
				Corrected:  name,
				Confidence: conf,
				Method:     "phonetic",
			})
			i += n
			matched = true
			break
		}
		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}
	return strings.Join(output, " "), corrections
}

// windowProtected reports whether any token in the window is reserved
// vocabulary.
func (p *CorrectionPipeline) windowProtected(tokens []string) bool {
	for _, t := range tokens {
		if _, ok := p.protected[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}

// collectLowConfidenceSpans returns words whose STT confidence falls
// below the threshold and that the phonetic stage left untouched.
func (p *CorrectionPipeline) collectLowConfidenceSpans(words []stt.WordDetail, alreadyCorrected map[string]struct{}) []string {
	var spans []string
	for _, wd := range words {
		if _, done := alreadyCorrected[strings.ToLower(wd.Word)]; done {
			continue
		}
		if wd.Confidence < p.llmThreshold {
			spans = append(spans, wd.Word)
		}
	}
	return spans
}

// maxWordCount returns the longest roster name in words, at least 1.
func maxWordCount(roster []string) int {
	n := 1
	for _, name := range roster {
		if c := len(strings.Fields(name)); c > n {
			n = c
		}
	}
	return n
}
