package voicecmd

import "strings"

// resolvePlayer matches a captured word against the known-player list.
// It returns the canonical roster spelling and true on a match, or the
// word with its first letter capitalized and false otherwise.
func resolvePlayer(word string, knownPlayers []string) (string, bool) {
	lower := strings.ToLower(word)
	for _, p := range knownPlayers {
		if strings.ToLower(p) == lower {
			return p, true
		}
	}
	return capitalize(word), false
}

// findPlayerName scans text for any known player, preferring roster
// matches over guesses. Names in exclude are skipped (so the scorer is
// never the same person as an already-captured assister). When no
// roster name appears, the first word that is not scoring vocabulary
// is returned as a capitalized guess.
func findPlayerName(text string, knownPlayers, exclude []string) (name string, found, rosterMatched bool) {
	lower := strings.ToLower(text)
	excluded := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		excluded[strings.ToLower(e)] = struct{}{}
	}

	for _, p := range knownPlayers {
		pl := strings.ToLower(p)
		if _, skip := excluded[pl]; skip {
			continue
		}
		if strings.Contains(lower, pl) {
			return p, true, true
		}
	}

	for _, w := range strings.Fields(text) {
		if len(w) <= 1 || isScoringWord(w) {
			continue
		}
		if _, skip := excluded[w]; skip {
			continue
		}
		return capitalize(w), true, false
	}
	return "", false, false
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
