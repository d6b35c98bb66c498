package session

import (
	"context"
	"fmt"
	"time"

	"github.com/beaubromley/bball-stats-sub000/internal/ledger"
	"github.com/beaubromley/bball-stats-sub000/internal/scoreboard"
)

// Run polls the ledger for correction events written by other devices
// and replays them into the local scoreboard. It blocks until ctx is
// cancelled. Sessions without a ledger have nothing to poll; Run still
// blocks so callers can treat it uniformly.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.reconcile(ctx); err != nil {
				s.log.WarnContext(ctx, "reconcile poll failed", "error", err)
			}
		}
	}
}

// reconcile fetches the game's ledger history and applies any
// correction the local state has not seen. Replays are idempotent, so
// racing a local undo at worst skips the remote copy.
func (s *Session) reconcile(ctx context.Context) error {
	s.mu.Lock()
	if !s.usingLedger() || s.state.Status != scoreboard.StatusActive {
		s.mu.Unlock()
		return nil
	}
	gameID := s.state.GameID
	s.mu.Unlock()

	events, err := s.store.ListEvents(ctx, gameID)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	remotes := remoteCorrections(events)
	if len(remotes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.GameID != gameID {
		return nil
	}

	changed := false
	for _, rc := range scoreboard.FilterNew(s.state, remotes) {
		next, applied := scoreboard.ApplyRemote(s.state, rc, s.now())
		if applied {
			s.state = next
			changed = true
			s.metrics.RecordRemoteEvent(ctx, "applied")
		} else {
			s.metrics.RecordRemoteEvent(ctx, "skipped")
		}
	}
	if changed {
		s.broadcastLocked()
	}
	return nil
}

// remoteCorrections extracts the correction events from a ledger
// history in append order.
func remoteCorrections(events []ledger.Event) []scoreboard.RemoteCorrection {
	var out []scoreboard.RemoteCorrection
	for _, e := range events {
		if e.Type != ledger.EventCorrection {
			continue
		}
		out = append(out, scoreboard.RemoteCorrection{
			LedgerID:          e.ID,
			CorrectedLedgerID: e.CorrectedEventID,
			PlayerName:        e.PlayerName,
			Points:            e.Points,
			Transcript:        e.Transcript,
		})
	}
	return out
}
