// Package mock provides an in-memory ledger.Store for tests and for
// scoring games fully offline.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/beaubromley/bball-stats-sub000/internal/ledger"
	"github.com/google/uuid"
)

// Store is an in-memory ledger.Store. The zero value is ready to use.
// Error fields, when set, are returned by the corresponding method so
// tests can exercise write-failure paths.
type Store struct {
	mu     sync.Mutex
	games  map[string]*ledger.Game
	events []ledger.Event
	nextID int64

	CreateGameErr  error
	AppendEventErr error
	ListEventsErr  error
	EndGameErr     error
}

var _ ledger.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{games: make(map[string]*ledger.Game)}
}

func (s *Store) CreateGame(_ context.Context, g *ledger.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateGameErr != nil {
		return s.CreateGameErr
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = "active"
	}
	if g.StartedAt.IsZero() {
		g.StartedAt = time.Now().UTC()
	}
	if s.games == nil {
		s.games = make(map[string]*ledger.Game)
	}
	if _, exists := s.games[g.ID]; exists {
		return fmt.Errorf("ledger: game %q already exists", g.ID)
	}
	cp := *g
	s.games[g.ID] = &cp
	return nil
}

func (s *Store) GetGame(_ context.Context, id string) (*ledger.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (s *Store) SetRoster(_ context.Context, gameID string, teamA, teamB []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return fmt.Errorf("ledger: no game %q", gameID)
	}
	g.TeamA = slices.Clone(teamA)
	g.TeamB = slices.Clone(teamB)
	return nil
}

func (s *Store) SetTargetScore(_ context.Context, gameID string, target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return fmt.Errorf("ledger: no game %q", gameID)
	}
	g.TargetScore = target
	return nil
}

func (s *Store) AppendEvent(_ context.Context, e *ledger.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AppendEventErr != nil {
		return 0, s.AppendEventErr
	}
	s.nextID++
	e.ID = s.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, *e)
	return e.ID, nil
}

func (s *Store) ListEvents(_ context.Context, gameID string) ([]ledger.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListEventsErr != nil {
		return nil, s.ListEventsErr
	}
	var out []ledger.Event
	for _, e := range s.events {
		if e.GameID == gameID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) EndGame(_ context.Context, gameID, winningTeam string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EndGameErr != nil {
		return s.EndGameErr
	}
	g, ok := s.games[gameID]
	if !ok {
		return fmt.Errorf("ledger: no game %q", gameID)
	}
	g.Status = "finished"
	g.WinningTeam = winningTeam
	g.EndedAt = time.Now().UTC()
	return nil
}

func (s *Store) SetFailedTranscript(_ context.Context, gameID, transcript string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return fmt.Errorf("ledger: no game %q", gameID)
	}
	g.LastFailedTranscript = transcript
	return nil
}

func (s *Store) DeleteGame(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		return fmt.Errorf("ledger: no game %q", gameID)
	}
	delete(s.games, gameID)
	s.events = slices.DeleteFunc(s.events, func(e ledger.Event) bool {
		return e.GameID == gameID
	})
	return nil
}

// InjectEvent appends an event directly, bypassing error injection.
// Tests use it to simulate corrections written by another device.
func (s *Store) InjectEvent(e ledger.Event) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, e)
	return e.ID
}
