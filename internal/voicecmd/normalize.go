package voicecmd

import (
	"regexp"
	"sort"
	"strings"
)

// aliases maps common speech-recognition mishearings to the word that
// was meant. Grown entry by entry as new mishears show up during games.
var aliases = map[string]string{
	// Names
	"gauge":   "gage",
	"gates":   "gage",
	"bow":     "beau",
	"bo":      "beau",
	"o":       "beau",
	"add":     "ed",
	"john":    "jon",
	"garrett": "garett",
	"gareth":  "garett",
	"jarrett": "garett",
	"print":   "brent",
	"brett":   "brent",
	"boston":  "austin",
	"awesome": "austin",
	"austen":  "austin",
	"madison": "addison",
	"edison":  "addison",
	"brendan": "brandon",
	"brenton": "brandon",
	"jaxon":   "jackson",
	"tailor":  "taylor",
	"tiler":   "tyler",
	"a j":     "aj",
	"jay":     "aj",
	"jane":    "james",
	"chains":  "james",
	"mac":     "mack",
	"tie":     "ty",
	"thai":    "ty",
	"jesse":   "jc",
	"jaycee":  "jc",
	"don":     "jon",
	"bison":   "bryson",
	"brian":   "ryan",
	"dave":    "david",
	"darker":  "parker",
	"grand":   "grant",
	"golden":  "colton",
	// Basketball terms
	"still":    "steal",
	"steel":    "steal",
	"steele":   "steal",
	"stills":   "steals",
	"steels":   "steals",
	"a cyst":   "assist",
	"a sister": "assist",
	"blok":     "block",
	"blocked":  "block",
	"blocks":   "block",
	"bloc":     "block",
	"lock":     "block",
	"tu":       "two",
	"to":       "two",
	"too":      "two",
	"free":     "three",
	"tree":     "three",
	"buckets":  "bucket",
	"buggy":    "bucket",
	"lay up":   "layup",
	"lay-up":   "layup",
	"late":     "layup",
	"flurter":  "floater",
	"flutter":  "floater",
	"done":     "dunk",
	"drunk":    "dunk",
}

type aliasRule struct {
	re   *regexp.Regexp
	repl string
}

// aliasRules is the alias table compiled to word-boundary regexes,
// longest mishearing first so multi-word entries win over their parts.
var aliasRules = compileAliases()

func compileAliases() []aliasRule {
	mishears := make([]string, 0, len(aliases))
	for m := range aliases {
		mishears = append(mishears, m)
	}
	sort.Slice(mishears, func(i, j int) bool {
		if len(mishears[i]) != len(mishears[j]) {
			return len(mishears[i]) > len(mishears[j])
		}
		return mishears[i] < mishears[j]
	})

	rules := make([]aliasRule, 0, len(mishears))
	for _, m := range mishears {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(m) + `\b`)
		rules = append(rules, aliasRule{re: re, repl: aliases[m]})
	}
	return rules
}

var (
	punctRe       = regexp.MustCompile(`[.,!?']`)
	letterDigitRe = regexp.MustCompile(`([a-z])(\d)`)
	digitLetterRe = regexp.MustCompile(`(\d)([a-z])`)

	// The "to" in "assists to <name>" is a preposition, not a misheard
	// "two". It is fused into the preceding word before the alias pass
	// so the to->two rewrite cannot eat it, and unfused afterwards.
	assistToGuardRe = regexp.MustCompile(`\b(assists?)\s+to\b`)
)

// Normalize lowercases and strips punctuation from a transcript,
// splits joined name+number combos ("joe3" becomes "joe 3") and
// rewrites known mishearings through the alias table.
func Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = punctRe.ReplaceAllString(t, "")
	t = letterDigitRe.ReplaceAllString(t, "$1 $2")
	t = digitLetterRe.ReplaceAllString(t, "$1 $2")
	t = assistToGuardRe.ReplaceAllString(t, "${1}_to")
	for _, r := range aliasRules {
		t = r.re.ReplaceAllString(t, r.repl)
	}
	return strings.ReplaceAll(t, "_to", " to")
}
