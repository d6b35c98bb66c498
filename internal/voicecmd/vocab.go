package voicecmd

import "regexp"

// outsideRe matches vocabulary for an outside shot (the higher value
// in either scoring mode).
var outsideRe = regexp.MustCompile(`\b(two|2|three|3|three ?pointer|deep ?3|deep ?three|deep|from ?deep|from ?outside|downtown|splash|long ?range|pull ?up|bomb)\b`)

// insideRe matches vocabulary for an inside shot.
var insideRe = regexp.MustCompile(`\b(bucket|score[ds]?|one|won|1|layup|lay ?up|dunk|floater|mid[- ]?range|hook|hook ?shot|put ?back|tip ?in|finger ?roll|bank|bank ?shot|off ?the ?glass)\b`)

// scoringWords is every scoring-related or filler word. Candidate
// player names are filtered against it so "bucket" never becomes a
// player called Bucket.
var scoringWords = map[string]struct{}{
	"bucket": {}, "score": {}, "scored": {}, "scores": {}, "two": {},
	"three": {}, "pointer": {}, "layup": {}, "lay": {}, "dunk": {},
	"deep": {}, "downtown": {}, "splash": {}, "from": {}, "for": {},
	"with": {}, "the": {}, "a": {}, "an": {}, "and": {}, "got": {},
	"mid": {}, "range": {}, "floater": {}, "one": {}, "won": {},
	"hook": {}, "shot": {}, "put": {}, "back": {}, "tip": {}, "in": {},
	"finger": {}, "roll": {}, "bank": {}, "off": {}, "glass": {},
	"long": {}, "pull": {}, "up": {}, "bomb": {}, "outside": {},
	"steal": {}, "steals": {}, "assist": {}, "assists": {},
	"block": {}, "blocks": {}, "to": {}, "his": {}, "her": {},
}

func isScoringWord(w string) bool {
	_, ok := scoringWords[w]
	return ok
}

// ReservedWords returns the command and scoring vocabulary. Transcript
// correction stages must leave these words alone or "bucket" ends up
// rewritten into a similarly-spelled player.
func ReservedWords() []string {
	words := make([]string, 0, len(scoringWords)+8)
	for w := range scoringWords {
		words = append(words, w)
	}
	words = append(words, "cancel", "undo", "game", "over", "new", "teams", "versus", "team")
	return words
}

// detectPoints returns the point value implied by the shot vocabulary
// in text. Absent any outside-shot word the inside value applies.
func detectPoints(text string, mode ScoringMode) int {
	if outsideRe.MatchString(text) {
		return mode.OutsideValue()
	}
	return mode.InsideValue()
}
