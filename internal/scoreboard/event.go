package scoreboard

import (
	"time"

	"github.com/beaubromley/bball-stats-sub000/internal/voicecmd"
)

// EventType identifies what a scoring event records.
type EventType string

const (
	EventScore      EventType = "score"
	EventCorrection EventType = "correction"
	EventSteal      EventType = "steal"
	EventBlock      EventType = "block"
	EventAssist     EventType = "assist"
)

// Event is one entry in a game's append-only event list. Events are
// never removed: a correction appends a negating entry that references
// the score it cancels, so the full history stays replayable.
type Event struct {
	// ID is assigned locally and is monotonically increasing within
	// one game. It is stable across recomputation.
	ID int64

	// LedgerID is the durable ID assigned by the ledger once the
	// corresponding write lands. Zero until then. Remote corrections
	// are deduplicated against it.
	LedgerID int64

	Type       EventType
	PlayerName string
	Team       voicecmd.Team

	// Points is the value of a score event, or the negative of the
	// corrected score for a correction. Zero for steals, blocks and
	// assists.
	Points int

	// CorrectedEventID references the local ID of the score event a
	// correction cancels. Zero for every other event type.
	CorrectedEventID int64

	// AssistBy and StealBy carry secondary actors on a score event.
	AssistBy string
	StealBy  string

	Transcript string
	CreatedAt  time.Time
}
