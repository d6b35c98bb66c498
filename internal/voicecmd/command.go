package voicecmd

// CommandType identifies the kind of action a transcript resolved to.
type CommandType string

const (
	CommandScore      CommandType = "score"
	CommandCorrection CommandType = "correction"
	CommandNewGame    CommandType = "new_game"
	CommandEndGame    CommandType = "end_game"
	CommandSetTeams   CommandType = "set_teams"
	CommandSteal      CommandType = "steal"
	CommandBlock      CommandType = "block"
	CommandAssist     CommandType = "assist"
	CommandUnknown    CommandType = "unknown"
)

// Team identifies one of the two sides in a game.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// ScoringMode selects the point values for inside and outside shots.
// In 1s/2s games an inside bucket is worth 1 and an outside shot 2;
// in 2s/3s games they are worth 2 and 3.
type ScoringMode string

const (
	ModeOnesTwos   ScoringMode = "1s2s"
	ModeTwosThrees ScoringMode = "2s3s"
)

// IsValid reports whether m is a recognized scoring mode.
func (m ScoringMode) IsValid() bool {
	return m == ModeOnesTwos || m == ModeTwosThrees
}

// InsideValue returns the point value of an inside shot under m.
func (m ScoringMode) InsideValue() int {
	if m == ModeTwosThrees {
		return 2
	}
	return 1
}

// OutsideValue returns the point value of an outside shot under m.
func (m ScoringMode) OutsideValue() int {
	if m == ModeTwosThrees {
		return 3
	}
	return 2
}

// TeamSplit holds the roster names for each side of a set_teams command.
type TeamSplit struct {
	A []string
	B []string
}

// Command is the typed result of interpreting one final transcript.
// Exactly one command is produced per transcript; fields beyond Type,
// RawTranscript and Confidence are populated per variant.
type Command struct {
	Type CommandType

	// PlayerName is the primary actor: the scorer for score commands,
	// the defender for steal/block, the passer for assist.
	PlayerName string

	// Points is the value of a score command (1, 2 or 3 depending on
	// the scoring mode). Zero for all other variants.
	Points int

	// AssistBy and StealBy name secondary actors bundled into a score
	// command ("Jon steals and assists to Gage").
	AssistBy string
	StealBy  string

	// WinningTeam is set on end_game commands when the phrasing made
	// the winner inferable ("we won" / "they won").
	WinningTeam Team

	// Teams carries the roster split of a set_teams command.
	Teams *TeamSplit

	// RawTranscript is the transcript as heard, before normalization.
	RawTranscript string

	// Confidence estimates resolution quality in [0,1]. Scores whose
	// player came from the known-player list rate 0.85; a fallback
	// name guess rates 0.3 so callers can apply stricter acceptance.
	Confidence float64
}
