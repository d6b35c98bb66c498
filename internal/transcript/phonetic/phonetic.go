// Package phonetic matches misheard words against a roster using
// Double Metaphone phonetic encoding combined with Jaro-Winkler string
// similarity.
//
// Matching proceeds in two stages: names whose phonetic codes overlap
// with the input become candidates and the best Jaro-Winkler score
// above the phonetic threshold wins; when no candidate sounds alike, a
// stricter pure-similarity fallback runs against all names. Multi-word
// names ("De Andre") are handled by comparing full strings, the
// space-stripped forms and the best token pair.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required
// for a phonetically-matched name to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when
// no phonetic match is found and the matcher falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher aligns misheard words with roster names. It is read-only
// after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match finds the roster name most phonetically similar to word. When
// matched is false, corrected equals word unchanged and confidence is 0.
func (m *Matcher) Match(word string, names []string) (corrected string, confidence float64, matched bool) {
	if len(names) == 0 || strings.TrimSpace(word) == "" {
		return word, 0, false
	}

	wordLower := strings.ToLower(strings.TrimSpace(word))
	wordTokens := strings.Fields(wordLower)
	inputCodes := codesForTokens(wordTokens)

	type candidate struct {
		name     string
		score    float64
		phonetic bool
	}
	var best candidate

	for _, name := range names {
		nameLower := strings.ToLower(strings.TrimSpace(name))
		if nameLower == "" {
			continue
		}
		if nameLower == wordLower {
			// Already spelled right; nothing to correct.
			return word, 0, false
		}
		nameTokens := strings.Fields(nameLower)

		soundsAlike := codesOverlap(inputCodes, codesForTokens(nameTokens))
		jwScore := bestJWScore(wordTokens, nameTokens, wordLower, nameLower)

		if soundsAlike {
			if jwScore >= m.phoneticThreshold && (!best.phonetic || jwScore > best.score) {
				best = candidate{name: name, score: jwScore, phonetic: true}
			}
		} else if !best.phonetic && jwScore >= m.fuzzyThreshold && jwScore > best.score {
			best = candidate{name: name, score: jwScore, phonetic: false}
		}
	}

	if best.name != "" {
		return best.name, best.score, true
	}
	return word, 0, false
}

// codesForTokens returns the union of all Double Metaphone codes for
// the given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the
// input and the name: full strings, space-stripped strings, and the
// best pairwise token score.
func bestJWScore(inputTokens, nameTokens []string, inputFull, nameFull string) float64 {
	score := matchr.JaroWinkler(inputFull, nameFull, false)

	if len(inputTokens) > 1 || len(nameTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(inputTokens, ""), strings.Join(nameTokens, ""), false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, nt := range nameTokens {
			if s := matchr.JaroWinkler(it, nt, false); s > score {
				score = s
			}
		}
	}
	return score
}
