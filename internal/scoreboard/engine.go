package scoreboard

import (
	"fmt"
	"time"

	"github.com/beaubromley/bball-stats-sub000/internal/voicecmd"
)

// Intent is a ledger write the caller should fire after a transition.
// Transitions never touch the ledger themselves: they stay pure and
// the shell decides how (and whether) to persist. Exactly one of the
// fields is set.
type Intent struct {
	// Append asks for this event to be appended to the game's ledger.
	Append *Event

	// End asks for the game to be marked finished with this winner.
	End voicecmd.Team
}

// StartGame moves an idle scoreboard into setup with the given target
// score and scoring mode.
func StartGame(s GameState, targetScore int, mode voicecmd.ScoringMode) (GameState, error) {
	if s.Status != StatusIdle {
		return s, ErrNotIdle
	}
	if targetScore <= 0 {
		return s, fmt.Errorf("%w: %d", ErrBadTargetScore, targetScore)
	}
	if !mode.IsValid() {
		return s, fmt.Errorf("%w: %q", ErrBadScoringMode, mode)
	}
	next := NewGameState()
	next.Status = StatusSetup
	next.TargetScore = targetScore
	next.ScoringMode = mode
	return next, nil
}

// ConfirmTeams locks in the rosters and activates the game. Both
// sides must have at least one player.
func ConfirmTeams(s GameState, teamA, teamB []string) (GameState, error) {
	if s.Status != StatusSetup {
		return s, ErrNotSetup
	}
	if len(teamA) == 0 || len(teamB) == 0 {
		return s, ErrEmptyTeam
	}
	next := s.clone()
	next.Status = StatusActive
	next.TeamA = append([]string(nil), teamA...)
	next.TeamB = append([]string(nil), teamB...)
	return next, nil
}

// Reset returns the scoreboard to idle, keeping the configured target
// score and scoring mode for the next game.
func Reset(s GameState) GameState {
	next := NewGameState()
	next.TargetScore = s.TargetScore
	next.ScoringMode = s.ScoringMode
	return next
}

// Apply runs one interpreted command against the state and returns the
// next state plus the ledger writes the transition calls for. The
// input state is never mutated. Commands that cannot apply in the
// current phase are rejected with a sentinel error; commands that are
// well-formed but have nothing to do (a correction with no score left
// to undo, an end call without a winner) are no-ops.
func Apply(s GameState, cmd voicecmd.Command, now time.Time) (GameState, []Intent, error) {
	switch cmd.Type {
	case voicecmd.CommandScore:
		return applyScore(s, cmd, now)
	case voicecmd.CommandSteal:
		return applyHustle(s, cmd, EventSteal, now)
	case voicecmd.CommandBlock:
		return applyHustle(s, cmd, EventBlock, now)
	case voicecmd.CommandAssist:
		return applyHustle(s, cmd, EventAssist, now)
	case voicecmd.CommandCorrection:
		return applyCorrection(s, cmd, now)
	case voicecmd.CommandEndGame:
		if s.Status != StatusActive {
			return s, nil, ErrNotActive
		}
		if cmd.WinningTeam == "" {
			return s, nil, nil
		}
		return EndGame(s, cmd.WinningTeam)
	default:
		// new_game and set_teams are lifecycle actions handled by
		// StartGame/ConfirmTeams; unknown commands change nothing.
		return s, nil, nil
	}
}

// EndGame finishes an active game with an explicit winner.
func EndGame(s GameState, winner voicecmd.Team) (GameState, []Intent, error) {
	if s.Status != StatusActive {
		return s, nil, ErrNotActive
	}
	next := s.clone()
	next.Status = StatusFinished
	next.WinningTeam = winner
	return next, []Intent{{End: winner}}, nil
}

func applyScore(s GameState, cmd voicecmd.Command, now time.Time) (GameState, []Intent, error) {
	if s.Status != StatusActive {
		return s, nil, ErrNotActive
	}
	if cmd.Points <= 0 {
		return s, nil, ErrNoPoints
	}
	team := s.TeamOf(cmd.PlayerName)
	if team == "" {
		return s, nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, cmd.PlayerName)
	}

	next := s.clone()
	ev := Event{
		ID:         next.nextEventID(),
		Type:       EventScore,
		PlayerName: cmd.PlayerName,
		Team:       team,
		Points:     cmd.Points,
		AssistBy:   cmd.AssistBy,
		StealBy:    cmd.StealBy,
		Transcript: cmd.RawTranscript,
		CreatedAt:  now,
	}
	next.Events = append(next.Events, ev)
	next.TeamAScore, next.TeamBScore = RecomputeScores(next)

	intents := []Intent{{Append: &ev}}
	// Bundled assists and steals become their own zero-point ledger
	// entries, as they would if called out separately.
	if cmd.AssistBy != "" {
		intents = append(intents, Intent{Append: &Event{
			Type:       EventAssist,
			PlayerName: cmd.AssistBy,
			Team:       s.TeamOf(cmd.AssistBy),
			Transcript: cmd.RawTranscript,
			CreatedAt:  now,
		}})
	}
	if cmd.StealBy != "" {
		intents = append(intents, Intent{Append: &Event{
			Type:       EventSteal,
			PlayerName: cmd.StealBy,
			Team:       s.TeamOf(cmd.StealBy),
			Transcript: cmd.RawTranscript,
			CreatedAt:  now,
		}})
	}

	if winner := winnerAt(next); winner != "" {
		next.Status = StatusFinished
		next.WinningTeam = winner
		intents = append(intents, Intent{End: winner})
	}
	return next, intents, nil
}

// winnerAt reports which team, if any, has reached the target score.
// Team A wins ties by checking first.
func winnerAt(s GameState) voicecmd.Team {
	if s.TargetScore <= 0 {
		return ""
	}
	if s.TeamAScore >= s.TargetScore {
		return voicecmd.TeamA
	}
	if s.TeamBScore >= s.TargetScore {
		return voicecmd.TeamB
	}
	return ""
}

func applyHustle(s GameState, cmd voicecmd.Command, typ EventType, now time.Time) (GameState, []Intent, error) {
	if s.Status != StatusActive {
		return s, nil, ErrNotActive
	}
	team := s.TeamOf(cmd.PlayerName)
	if team == "" {
		return s, nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, cmd.PlayerName)
	}

	next := s.clone()
	ev := Event{
		ID:         next.nextEventID(),
		Type:       typ,
		PlayerName: cmd.PlayerName,
		Team:       team,
		Transcript: cmd.RawTranscript,
		CreatedAt:  now,
	}
	next.Events = append(next.Events, ev)
	return next, []Intent{{Append: &ev}}, nil
}

// applyCorrection undoes the most recent score event that no earlier
// correction references, by appending a negating event. The original
// entry stays in the history. With nothing left to undo this is a
// no-op, not an error.
func applyCorrection(s GameState, cmd voicecmd.Command, now time.Time) (GameState, []Intent, error) {
	if s.Status != StatusActive {
		return s, nil, ErrNotActive
	}
	target, ok := s.lastUncorrectedScore()
	if !ok {
		return s, nil, nil
	}

	next := s.clone()
	ev := Event{
		ID:               next.nextEventID(),
		Type:             EventCorrection,
		PlayerName:       target.PlayerName,
		Team:             target.Team,
		Points:           -target.Points,
		CorrectedEventID: target.ID,
		Transcript:       cmd.RawTranscript,
		CreatedAt:        now,
	}
	next.Events = append(next.Events, ev)
	next.TeamAScore, next.TeamBScore = RecomputeScores(next)
	return next, []Intent{{Append: &ev}}, nil
}
