// Package voicecmd turns final speech transcripts into typed scoreboard
// commands. Transcripts are normalized (lowercased, punctuation stripped,
// known mishearings rewritten) and then checked against an ordered set of
// rules, first match wins. Interpretation is pure and deterministic: the
// same transcript, player list and scoring mode always produce the same
// command.
package voicecmd

import (
	"regexp"
	"strings"
)

var (
	correctionRe = regexp.MustCompile(`\b(cancel|undo|take that back|never ?mind|scratch that|no good|my bad)\b`)
	newGameRe    = regexp.MustCompile(`\b(new game|start game|next game|run it back)\b`)
	endGameRe    = regexp.MustCompile(`\b(game over|game done|thats game|were done)\b`)
	weWonRe      = regexp.MustCompile(`\b(we won|we win|dub|lets go)\b`)
	theyWonRe    = regexp.MustCompile(`\b(they won|they win|we lost|we lose)\b`)
	setTeamsRe   = regexp.MustCompile(`\bteams?\b[:\s]*([\w\s]+?)\s+(?:versus|vs\.?|v)\s+([\w\s]+)`)

	stealAssistRe = regexp.MustCompile(`(\w+)\s+steals?\s+and\s+assists?\s+to\s+(\w+)`)
	assistToRe    = regexp.MustCompile(`(\w+)\s+assists?\s+to\s+(\w+)`)
	bareAssistRe  = regexp.MustCompile(`^assists?\s+to\s+(\w+)`)
	assistNoToRe  = regexp.MustCompile(`(\w+)\s+assists?\s+(?:to\s+)?(\w+)`)
	stealScoreRe  = regexp.MustCompile(`(\w+)\s+steals?\s+and\s+`)
	stealRe       = regexp.MustCompile(`(\w+)\s+steals?(?:\s|$)`)
	bareStealRe   = regexp.MustCompile(`\bsteals?\b`)
	blockRe       = regexp.MustCompile(`(\w+)\s+blocks?(?:\s|$)`)
	bareBlockRe   = regexp.MustCompile(`\bblocks?\b`)
	assistWordRe  = regexp.MustCompile(`\bassists?\b`)
	assistLeadRe  = regexp.MustCompile(`(\w+)\s+assists?(?:\s|$)`)
	assistTrailRe = regexp.MustCompile(`assists?\s+(?:by\s+|to\s+)?(\w+)`)
	scoreAssistRe = regexp.MustCompile(`\bassists?\s+(?:to\s+|by\s+)?(\w+)`)
)

// rule pairs a label with an attempt at building a command from the
// normalized text. The first rule whose build returns ok produces the
// interpretation.
type rule struct {
	name  string
	build func(text string, players []string, mode ScoringMode) (Command, bool)
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMicWearer names the player holding the microphone. Utterances
// without an actor ("steal", "assist to Gage") are credited to them.
func WithMicWearer(name string) Option {
	return func(in *Interpreter) {
		in.micWearer = name
	}
}

// Interpreter classifies transcripts through an ordered rule ladder.
// Safe for concurrent use; it holds no mutable state.
type Interpreter struct {
	micWearer string
	rules     []rule
}

// New creates an Interpreter with the default rule ladder.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{}
	for _, o := range opts {
		o(in)
	}
	in.rules = []rule{
		{name: "correction", build: in.buildCorrection},
		{name: "new-game", build: in.buildNewGame},
		{name: "end-game", build: in.buildEndGame},
		{name: "set-teams", build: in.buildSetTeams},
		{name: "steal-and-assist", build: in.buildStealAssist},
		{name: "assist-to", build: in.buildAssistTo},
		{name: "assist-no-to", build: in.buildAssistNoTo},
		{name: "steal-and-score", build: in.buildStealScore},
		{name: "steal", build: in.buildSteal},
		{name: "block", build: in.buildBlock},
		{name: "assist-only", build: in.buildAssistOnly},
		{name: "score", build: in.buildScore},
	}
	return in
}

// Interpret resolves one final transcript into a command. It never
// returns more than one command; transcripts that match nothing come
// back as CommandUnknown with zero confidence.
func (in *Interpreter) Interpret(transcript string, knownPlayers []string, mode ScoringMode) Command {
	cmd := Command{Type: CommandUnknown, RawTranscript: transcript}
	text := Normalize(transcript)
	if text == "" {
		return cmd
	}

	for _, r := range in.rules {
		if built, ok := r.build(text, knownPlayers, mode); ok {
			built.RawTranscript = transcript
			return built
		}
	}
	return cmd
}

func (in *Interpreter) buildCorrection(text string, _ []string, _ ScoringMode) (Command, bool) {
	if !correctionRe.MatchString(text) {
		return Command{}, false
	}
	return Command{Type: CommandCorrection, Confidence: 0.9}, true
}

func (in *Interpreter) buildNewGame(text string, _ []string, _ ScoringMode) (Command, bool) {
	if !newGameRe.MatchString(text) {
		return Command{}, false
	}
	return Command{Type: CommandNewGame, Confidence: 0.9}, true
}

// buildEndGame infers the winner from "we won" / "they won" phrasing.
// An end signal without a resolvable winner is still reported, at
// lower confidence, never dropped.
func (in *Interpreter) buildEndGame(text string, _ []string, _ ScoringMode) (Command, bool) {
	if !endGameRe.MatchString(text) {
		return Command{}, false
	}
	cmd := Command{Type: CommandEndGame, Confidence: 0.7}
	switch {
	case weWonRe.MatchString(text):
		cmd.WinningTeam = TeamA
		cmd.Confidence = 0.9
	case theyWonRe.MatchString(text):
		cmd.WinningTeam = TeamB
		cmd.Confidence = 0.9
	}
	return cmd, true
}

func (in *Interpreter) buildSetTeams(text string, _ []string, _ ScoringMode) (Command, bool) {
	m := setTeamsRe.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	return Command{
		Type:       CommandSetTeams,
		Teams:      &TeamSplit{A: splitNames(m[1]), B: splitNames(m[2])},
		Confidence: 0.8,
	}, true
}

// splitNames breaks "beau gage and jon" into its individual names.
func splitNames(s string) []string {
	var names []string
	for _, w := range strings.Fields(s) {
		if w == "and" {
			continue
		}
		names = append(names, w)
	}
	return names
}

// buildStealAssist handles "<name> steals and assists to <name>":
// one actor got the steal and the assist, the second the bucket.
func (in *Interpreter) buildStealAssist(text string, players []string, mode ScoringMode) (Command, bool) {
	m := stealAssistRe.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	actor, _ := resolvePlayer(m[1], players)
	scorer, _ := resolvePlayer(m[2], players)
	return Command{
		Type:       CommandScore,
		PlayerName: scorer,
		StealBy:    actor,
		AssistBy:   actor,
		Points:     detectPoints(text, mode),
		Confidence: 0.85,
	}, true
}

func (in *Interpreter) buildAssistTo(text string, players []string, mode ScoringMode) (Command, bool) {
	if m := assistToRe.FindStringSubmatch(text); m != nil {
		assister, _ := resolvePlayer(m[1], players)
		scorer, _ := resolvePlayer(m[2], players)
		return Command{
			Type:       CommandScore,
			PlayerName: scorer,
			AssistBy:   assister,
			Points:     detectPoints(text, mode),
			Confidence: 0.85,
		}, true
	}
	// "assist to <name>" with no actor credits the mic wearer.
	if m := bareAssistRe.FindStringSubmatch(text); m != nil && in.micWearer != "" {
		scorer, _ := resolvePlayer(m[1], players)
		return Command{
			Type:       CommandScore,
			PlayerName: scorer,
			AssistBy:   in.micWearer,
			Points:     detectPoints(text, mode),
			Confidence: 0.85,
		}, true
	}
	return Command{}, false
}

func (in *Interpreter) buildAssistNoTo(text string, players []string, mode ScoringMode) (Command, bool) {
	m := assistNoToRe.FindStringSubmatch(text)
	if m == nil || isScoringWord(m[1]) || isScoringWord(m[2]) {
		return Command{}, false
	}
	assister, _ := resolvePlayer(m[1], players)
	scorer, _ := resolvePlayer(m[2], players)
	return Command{
		Type:       CommandScore,
		PlayerName: scorer,
		AssistBy:   assister,
		Points:     detectPoints(text, mode),
		Confidence: 0.8,
	}, true
}

// buildStealScore handles "<name> steals and <shot>": a self-score
// off the player's own steal.
func (in *Interpreter) buildStealScore(text string, players []string, mode ScoringMode) (Command, bool) {
	m := stealScoreRe.FindStringSubmatch(text)
	if m == nil || (!outsideRe.MatchString(text) && !insideRe.MatchString(text)) {
		return Command{}, false
	}
	player, _ := resolvePlayer(m[1], players)
	return Command{
		Type:       CommandScore,
		PlayerName: player,
		StealBy:    player,
		Points:     detectPoints(text, mode),
		Confidence: 0.85,
	}, true
}

func (in *Interpreter) buildSteal(text string, players []string, _ ScoringMode) (Command, bool) {
	if m := stealRe.FindStringSubmatch(text); m != nil && !isScoringWord(m[1]) {
		name, _ := resolvePlayer(m[1], players)
		return Command{Type: CommandSteal, PlayerName: name, Confidence: 0.8}, true
	}
	if bareStealRe.MatchString(text) && in.micWearer != "" {
		return Command{Type: CommandSteal, PlayerName: in.micWearer, Confidence: 0.8}, true
	}
	return Command{}, false
}

func (in *Interpreter) buildBlock(text string, players []string, _ ScoringMode) (Command, bool) {
	if m := blockRe.FindStringSubmatch(text); m != nil && !isScoringWord(m[1]) {
		name, _ := resolvePlayer(m[1], players)
		return Command{Type: CommandBlock, PlayerName: name, Confidence: 0.8}, true
	}
	if bareBlockRe.MatchString(text) && in.micWearer != "" {
		return Command{Type: CommandBlock, PlayerName: in.micWearer, Confidence: 0.8}, true
	}
	return Command{}, false
}

// buildAssistOnly handles "Tyler assist" or "assist Tyler" when no
// shot vocabulary is present.
func (in *Interpreter) buildAssistOnly(text string, players []string, _ ScoringMode) (Command, bool) {
	if !assistWordRe.MatchString(text) || outsideRe.MatchString(text) || insideRe.MatchString(text) {
		return Command{}, false
	}
	m := assistLeadRe.FindStringSubmatch(text)
	if m == nil {
		m = assistTrailRe.FindStringSubmatch(text)
	}
	if m == nil {
		return Command{}, false
	}
	name := m[1]
	if isScoringWord(name) {
		return Command{}, false
	}
	resolved, _ := resolvePlayer(name, players)
	return Command{Type: CommandAssist, PlayerName: resolved, Confidence: 0.8}, true
}

// buildScore handles plain scoring calls like "Beau two" or "bucket",
// including an assist mentioned alongside ("Tyler bucket assist Joe").
func (in *Interpreter) buildScore(text string, players []string, mode ScoringMode) (Command, bool) {
	isOutside := outsideRe.MatchString(text)
	if !isOutside && !insideRe.MatchString(text) {
		return Command{}, false
	}

	points := mode.InsideValue()
	if isOutside {
		points = mode.OutsideValue()
	}

	var assistBy, playerName string
	rosterMatched := false
	if m := scoreAssistRe.FindStringSubmatch(text); m != nil && !isScoringWord(m[1]) {
		assistBy, _ = resolvePlayer(m[1], players)
		playerName, _, rosterMatched = findPlayerName(text, players, []string{assistBy})
	} else {
		playerName, _, rosterMatched = findPlayerName(text, players, nil)
	}

	confidence := 0.3
	if rosterMatched {
		confidence = 0.85
	}
	return Command{
		Type:       CommandScore,
		PlayerName: playerName,
		Points:     points,
		AssistBy:   assistBy,
		Confidence: confidence,
	}, true
}
