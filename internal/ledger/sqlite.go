package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// sqliteSchema mirrors [Schema] for an embedded SQLite database, the
// local-first mode for scoring games without a Postgres around.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
    id                     TEXT PRIMARY KEY,
    location               TEXT NOT NULL DEFAULT '',
    status                 TEXT NOT NULL DEFAULT 'active',
    target_score           INTEGER NOT NULL DEFAULT 11,
    scoring_mode           TEXT NOT NULL DEFAULT '1s2s',
    team_a                 TEXT NOT NULL DEFAULT '[]',
    team_b                 TEXT NOT NULL DEFAULT '[]',
    winning_team           TEXT NOT NULL DEFAULT '',
    last_failed_transcript TEXT NOT NULL DEFAULT '',
    started_at             INTEGER NOT NULL,
    ended_at               INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS game_events (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    game_id            TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
    event_type         TEXT NOT NULL,
    player_name        TEXT NOT NULL DEFAULT '',
    team               TEXT NOT NULL DEFAULT '',
    point_value        INTEGER NOT NULL DEFAULT 0,
    corrected_event_id INTEGER NOT NULL DEFAULT 0,
    raw_transcript     TEXT NOT NULL DEFAULT '',
    created_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_events_game ON game_events(game_id);
`

// SQLiteStore is a [Store] backed by an embedded SQLite database.
// Timestamps are stored as Unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the SQLite database at path
// and applies the schema. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}
	// The sqlite driver does not tolerate concurrent writers on one
	// connection pool the way a server database does.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable, for readiness probes.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateGame inserts a new game, assigning a UUID when g.ID is empty.
func (s *SQLiteStore) CreateGame(ctx context.Context, g *Game) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = "active"
	}
	if g.StartedAt.IsZero() {
		g.StartedAt = time.Now().UTC()
	}

	teamA, err := json.Marshal(emptySlice(g.TeamA))
	if err != nil {
		return fmt.Errorf("ledger: marshal team_a: %w", err)
	}
	teamB, err := json.Marshal(emptySlice(g.TeamB))
	if err != nil {
		return fmt.Errorf("ledger: marshal team_b: %w", err)
	}

	const query = `
		INSERT INTO games (id, location, status, target_score, scoring_mode, team_a, team_b, started_at)
		VALUES (?,?,?,?,?,?,?,?)`
	if _, err := s.db.ExecContext(ctx, query,
		g.ID, g.Location, g.Status, g.TargetScore, g.ScoringMode,
		string(teamA), string(teamB), g.StartedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("ledger: create game: %w", err)
	}
	return nil
}

// GetGame retrieves a game by ID, or (nil, nil) when absent.
func (s *SQLiteStore) GetGame(ctx context.Context, id string) (*Game, error) {
	const query = `
		SELECT id, location, status, target_score, scoring_mode,
		       team_a, team_b, winning_team, last_failed_transcript,
		       started_at, ended_at
		FROM games
		WHERE id = ?`

	var g Game
	var teamA, teamB string
	var startedAt, endedAt int64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.Location, &g.Status, &g.TargetScore, &g.ScoringMode,
		&teamA, &teamB, &g.WinningTeam, &g.LastFailedTranscript,
		&startedAt, &endedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: get game %q: %w", id, err)
	}

	g.StartedAt = time.UnixMilli(startedAt).UTC()
	if endedAt != 0 {
		g.EndedAt = time.UnixMilli(endedAt).UTC()
	}
	if err := json.Unmarshal([]byte(teamA), &g.TeamA); err != nil {
		return nil, fmt.Errorf("ledger: unmarshal team_a: %w", err)
	}
	if err := json.Unmarshal([]byte(teamB), &g.TeamB); err != nil {
		return nil, fmt.Errorf("ledger: unmarshal team_b: %w", err)
	}
	return &g, nil
}

// SetRoster replaces both rosters of a game.
func (s *SQLiteStore) SetRoster(ctx context.Context, gameID string, teamA, teamB []string) error {
	aJSON, err := json.Marshal(emptySlice(teamA))
	if err != nil {
		return fmt.Errorf("ledger: marshal team_a: %w", err)
	}
	bJSON, err := json.Marshal(emptySlice(teamB))
	if err != nil {
		return fmt.Errorf("ledger: marshal team_b: %w", err)
	}
	const query = `UPDATE games SET team_a = ?, team_b = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, string(aJSON), string(bJSON), gameID); err != nil {
		return fmt.Errorf("ledger: set roster: %w", err)
	}
	return nil
}

// SetTargetScore updates a game's target score.
func (s *SQLiteStore) SetTargetScore(ctx context.Context, gameID string, target int) error {
	const query = `UPDATE games SET target_score = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, target, gameID); err != nil {
		return fmt.Errorf("ledger: set target score: %w", err)
	}
	return nil
}

// AppendEvent appends one event and returns its assigned ID.
func (s *SQLiteStore) AppendEvent(ctx context.Context, e *Event) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO game_events (game_id, event_type, player_name, team, point_value, corrected_event_id, raw_transcript, created_at)
		VALUES (?,?,?,?,?,?,?,?)`
	res, err := s.db.ExecContext(ctx, query,
		e.GameID, e.Type, e.PlayerName, e.Team, e.Points,
		e.CorrectedEventID, e.Transcript, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("ledger: append event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ledger: append event id: %w", err)
	}
	e.ID = id
	return id, nil
}

// ListEvents returns a game's history in append order.
func (s *SQLiteStore) ListEvents(ctx context.Context, gameID string) ([]Event, error) {
	const query = `
		SELECT id, game_id, event_type, player_name, team, point_value, corrected_event_id, raw_transcript, created_at
		FROM game_events
		WHERE game_id = ?
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.GameID, &e.Type, &e.PlayerName, &e.Team,
			&e.Points, &e.CorrectedEventID, &e.Transcript, &createdAt); err != nil {
			return nil, fmt.Errorf("ledger: scan event: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list events: %w", err)
	}
	return events, nil
}

// EndGame marks a game finished with the given winner.
func (s *SQLiteStore) EndGame(ctx context.Context, gameID, winningTeam string) error {
	const query = `UPDATE games SET status = 'finished', winning_team = ?, ended_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, winningTeam, time.Now().UTC().UnixMilli(), gameID); err != nil {
		return fmt.Errorf("ledger: end game: %w", err)
	}
	return nil
}

// SetFailedTranscript records the latest rejected utterance.
func (s *SQLiteStore) SetFailedTranscript(ctx context.Context, gameID, transcript string) error {
	const query = `UPDATE games SET last_failed_transcript = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, transcript, gameID); err != nil {
		return fmt.Errorf("ledger: set failed transcript: %w", err)
	}
	return nil
}

// DeleteGame removes a game; its events cascade.
func (s *SQLiteStore) DeleteGame(ctx context.Context, gameID string) error {
	const query = `DELETE FROM games WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, gameID); err != nil {
		return fmt.Errorf("ledger: delete game: %w", err)
	}
	return nil
}
