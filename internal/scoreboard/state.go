package scoreboard

import (
	"slices"
	"strings"

	"github.com/beaubromley/bball-stats-sub000/internal/voicecmd"
)

// Status is a game's lifecycle phase.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusSetup    Status = "setup"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// GameState is the complete state of one game. It is a value: every
// transition returns a new state and never mutates its input, so
// snapshots can be handed out without locking and histories replayed
// in tests.
type GameState struct {
	GameID      string
	Status      Status
	TargetScore int
	ScoringMode voicecmd.ScoringMode

	TeamA []string
	TeamB []string

	// Events is the append-only history for this game.
	Events []Event

	// TeamAScore and TeamBScore are recomputed from Events on every
	// mutation, never adjusted incrementally.
	TeamAScore int
	TeamBScore int

	WinningTeam voicecmd.Team
}

// NewGameState returns the idle state games start and reset to.
func NewGameState() GameState {
	return GameState{Status: StatusIdle, ScoringMode: voicecmd.ModeOnesTwos}
}

// Roster returns all players on both teams, team A first.
func (s GameState) Roster() []string {
	r := make([]string, 0, len(s.TeamA)+len(s.TeamB))
	r = append(r, s.TeamA...)
	r = append(r, s.TeamB...)
	return r
}

// TeamOf returns which side a player is on, or "" when the name is on
// neither roster. Matching is case-insensitive.
func (s GameState) TeamOf(name string) voicecmd.Team {
	lower := strings.ToLower(name)
	for _, p := range s.TeamA {
		if strings.ToLower(p) == lower {
			return voicecmd.TeamA
		}
	}
	for _, p := range s.TeamB {
		if strings.ToLower(p) == lower {
			return voicecmd.TeamB
		}
	}
	return ""
}

// clone returns a copy whose slices are safe to modify independently.
func (s GameState) clone() GameState {
	s.TeamA = slices.Clone(s.TeamA)
	s.TeamB = slices.Clone(s.TeamB)
	s.Events = slices.Clone(s.Events)
	return s
}

// nextEventID returns the local ID for the next appended event.
func (s GameState) nextEventID() int64 {
	return int64(len(s.Events)) + 1
}

// correctedIDs returns the set of local score-event IDs that some
// correction in the history already references.
func (s GameState) correctedIDs() map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, e := range s.Events {
		if e.Type == EventCorrection && e.CorrectedEventID != 0 {
			ids[e.CorrectedEventID] = struct{}{}
		}
	}
	return ids
}

// lastUncorrectedScore returns the most recent score event that no
// correction references, or false when every score is already
// corrected (or none exists).
func (s GameState) lastUncorrectedScore() (Event, bool) {
	corrected := s.correctedIDs()
	for i := len(s.Events) - 1; i >= 0; i-- {
		e := s.Events[i]
		if e.Type != EventScore {
			continue
		}
		if _, done := corrected[e.ID]; done {
			continue
		}
		return e, true
	}
	return Event{}, false
}

// eventByLedgerID finds the local event persisted under the given
// ledger ID.
func (s GameState) eventByLedgerID(id int64) (Event, bool) {
	if id == 0 {
		return Event{}, false
	}
	for _, e := range s.Events {
		if e.LedgerID == id {
			return e, true
		}
	}
	return Event{}, false
}
