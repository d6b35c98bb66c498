package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the games and game_events tables. Execute
// it via [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS games (
    id                     TEXT PRIMARY KEY,
    location               TEXT NOT NULL DEFAULT '',
    status                 TEXT NOT NULL DEFAULT 'active',
    target_score           INT NOT NULL DEFAULT 11,
    scoring_mode           TEXT NOT NULL DEFAULT '1s2s',
    team_a                 JSONB NOT NULL DEFAULT '[]',
    team_b                 JSONB NOT NULL DEFAULT '[]',
    winning_team           TEXT NOT NULL DEFAULT '',
    last_failed_transcript TEXT NOT NULL DEFAULT '',
    started_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
    ended_at               TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS game_events (
    id                 BIGSERIAL PRIMARY KEY,
    game_id            TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
    event_type         TEXT NOT NULL,
    player_name        TEXT NOT NULL DEFAULT '',
    team               TEXT NOT NULL DEFAULT '',
    point_value        INT NOT NULL DEFAULT 0,
    corrected_event_id BIGINT NOT NULL DEFAULT 0,
    raw_transcript     TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_game_events_game ON game_events(game_id);
`

// DB is the database interface used by [PostgresStore]. Both
// *pgxpool.Pool and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. Rosters
// are serialised as JSONB.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] over the given connection
// or pool. The caller is responsible for calling
// [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the tables and indexes
// if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

// CreateGame inserts a new game, assigning a UUID when g.ID is empty.
func (s *PostgresStore) CreateGame(ctx context.Context, g *Game) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = "active"
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
		INSERT INTO games (id, location, status, target_score, scoring_mode, team_a, team_b)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING started_at`

	err = s.db.QueryRow(ctx, query,
		g.ID, g.Location, g.Status, g.TargetScore, g.ScoringMode, teamA, teamB,
	).Scan(&g.StartedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("ledger: game %q already exists", g.ID)
		}
		return fmt.Errorf("ledger: create game: %w", err)
	}
	return nil
}

// GetGame retrieves a game by ID. It returns (nil, nil) if no game
// with the given ID exists.
func (s *PostgresStore) GetGame(ctx context.Context, id string) (*Game, error) {
	const query = `
		SELECT id, location, status, target_score, scoring_mode,
		       team_a, team_b, winning_team, last_failed_transcript,
		       started_at, COALESCE(ended_at, 'epoch'::timestamptz)
		FROM games
		WHERE id = $1`

	var g Game
	var teamA, teamB []byte
	err := s.db.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.Location, &g.Status, &g.TargetScore, &g.ScoringMode,
		&teamA, &teamB, &g.WinningTeam, &g.LastFailedTranscript,
		&g.StartedAt, &g.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: get game %q: %w", id, err)
	}
	if g.EndedAt.Equal(time.Unix(0, 0).UTC()) {
		g.EndedAt = time.Time{}
	}

	if err := json.Unmarshal(teamA, &g.TeamA); err != nil {
		return nil, fmt.Errorf("ledger: unmarshal team_a: %w", err)
	}
	if err := json.Unmarshal(teamB, &g.TeamB); err != nil {
		return nil, fmt.Errorf("ledger: unmarshal team_b: %w", err)
	}
	return &g, nil
}

// SetRoster replaces both rosters of a game.
func (s *PostgresStore) SetRoster(ctx context.Context, gameID string, teamA, teamB []string) error {
	aJSON, err := json.Marshal(emptySlice(teamA))
	if err != nil {
		return fmt.Errorf("ledger: marshal team_a: %w", err)
	}
	bJSON, err := json.Marshal(emptySlice(teamB))
	if err != nil {
		return fmt.Errorf("ledger: marshal team_b: %w", err)
	}
	const query = `UPDATE games SET team_a = $2, team_b = $3 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, gameID, aJSON, bJSON); err != nil {
		return fmt.Errorf("ledger: set roster: %w", err)
	}
	return nil
}

// SetTargetScore updates a game's target score.
func (s *PostgresStore) SetTargetScore(ctx context.Context, gameID string, target int) error {
	const query = `UPDATE games SET target_score = $2 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, gameID, target); err != nil {
		return fmt.Errorf("ledger: set target score: %w", err)
	}
	return nil
}

// AppendEvent appends one event and returns its assigned ID.
func (s *PostgresStore) AppendEvent(ctx context.Context, e *Event) (int64, error) {
	const query = `
		INSERT INTO game_events (game_id, event_type, player_name, team, point_value, corrected_event_id, raw_transcript)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at`

	err := s.db.QueryRow(ctx, query,
		e.GameID, e.Type, e.PlayerName, e.Team, e.Points, e.CorrectedEventID, e.Transcript,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("ledger: append event: %w", err)
	}
	return e.ID, nil
}

// ListEvents returns a game's history in append order.
func (s *PostgresStore) ListEvents(ctx context.Context, gameID string) ([]Event, error) {
	const query = `
		SELECT id, game_id, event_type, player_name, team, point_value, corrected_event_id, raw_transcript, created_at
		FROM game_events
		WHERE game_id = $1
		ORDER BY id`

	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.GameID, &e.Type, &e.PlayerName, &e.Team,
			&e.Points, &e.CorrectedEventID, &e.Transcript, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list events: %w", err)
	}
	return events, nil
}

// EndGame marks a game finished with the given winner.
func (s *PostgresStore) EndGame(ctx context.Context, gameID, winningTeam string) error {
	const query = `UPDATE games SET status = 'finished', winning_team = $2, ended_at = now() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, gameID, winningTeam); err != nil {
		return fmt.Errorf("ledger: end game: %w", err)
	}
	return nil
}

// SetFailedTranscript records the latest rejected utterance.
func (s *PostgresStore) SetFailedTranscript(ctx context.Context, gameID, transcript string) error {
	const query = `UPDATE games SET last_failed_transcript = $2 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, gameID, transcript); err != nil {
		return fmt.Errorf("ledger: set failed transcript: %w", err)
	}
	return nil
}

// DeleteGame removes a game; its events cascade.
func (s *PostgresStore) DeleteGame(ctx context.Context, gameID string) error {
	const query = `DELETE FROM games WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, gameID); err != nil {
		return fmt.Errorf("ledger: delete game: %w", err)
	}
	return nil
}

// emptySlice converts nil to an empty slice so JSON marshals to []
// instead of null.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// isDuplicateKeyError reports whether err is a unique-constraint
// violation (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
