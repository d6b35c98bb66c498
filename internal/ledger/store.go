// Package ledger persists games and their append-only event history.
// The ledger is the durable collaborator behind the live scoreboard:
// writes are fired after each transition and the event list is polled
// to pick up corrections issued from other devices.
package ledger

import (
	"context"
	"time"
)

// Game is a persisted game record.
type Game struct {
	ID          string
	Location    string
	Status      string
	TargetScore int
	ScoringMode string
	TeamA       []string
	TeamB       []string
	WinningTeam string

	// LastFailedTranscript holds the most recent utterance the
	// interpreter or engine rejected, kept for operator review.
	LastFailedTranscript string

	StartedAt time.Time
	EndedAt   time.Time
}

// Event is one persisted entry of a game's event history. Histories
// only ever grow: an undo is recorded as a correction event that
// references the score it cancels.
type Event struct {
	ID         int64
	GameID     string
	Type       string
	PlayerName string
	Team       string
	Points     int

	// CorrectedEventID is the ID of the score event a correction
	// cancels, or zero.
	CorrectedEventID int64

	Transcript string
	CreatedAt  time.Time
}

// Event types stored in the ledger.
const (
	EventScore      = "score"
	EventCorrection = "correction"
	EventSteal      = "steal"
	EventBlock      = "block"
	EventAssist     = "assist"
)

// Store persists games and events. Implementations must be safe for
// concurrent use.
type Store interface {
	// CreateGame inserts a new game. A missing ID is assigned;
	// ID and StartedAt are filled in on return.
	CreateGame(ctx context.Context, g *Game) error

	// GetGame retrieves a game by ID, or (nil, nil) when absent.
	GetGame(ctx context.Context, id string) (*Game, error)

	// SetRoster replaces both team rosters.
	SetRoster(ctx context.Context, gameID string, teamA, teamB []string) error

	// SetTargetScore updates the game's target score.
	SetTargetScore(ctx context.Context, gameID string, target int) error

	// AppendEvent appends one event to a game's history and returns
	// the assigned event ID.
	AppendEvent(ctx context.Context, e *Event) (int64, error)

	// ListEvents returns a game's full history in append order.
	ListEvents(ctx context.Context, gameID string) ([]Event, error)

	// EndGame marks a game finished with the given winner.
	EndGame(ctx context.Context, gameID, winningTeam string) error

	// SetFailedTranscript records the latest rejected utterance.
	SetFailedTranscript(ctx context.Context, gameID, transcript string) error

	// DeleteGame removes a game and its events. This is an explicit
	// admin override, not part of normal play.
	DeleteGame(ctx context.Context, gameID string) error
}
