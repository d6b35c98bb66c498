package ledger

import (
	"context"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteGameLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	g := &Game{
		Location:    "driveway",
		TargetScore: 11,
		ScoringMode: "1s2s",
		TeamA:       []string{"Beau", "Gage"},
		TeamB:       []string{"Jon", "Tyler"},
	}
	if err := s.CreateGame(ctx, g); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if g.ID == "" || g.StartedAt.IsZero() {
		t.Fatalf("CreateGame did not fill in ID/StartedAt: %+v", g)
	}

	got, err := s.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got == nil || got.TargetScore != 11 || len(got.TeamA) != 2 || got.TeamA[0] != "Beau" {
		t.Fatalf("GetGame = %+v", got)
	}
	if !got.EndedAt.IsZero() {
		t.Fatalf("unfinished game has EndedAt = %v", got.EndedAt)
	}

	if err := s.SetRoster(ctx, g.ID, []string{"Beau"}, []string{"Jon"}); err != nil {
		t.Fatalf("SetRoster: %v", err)
	}
	if err := s.SetTargetScore(ctx, g.ID, 15); err != nil {
		t.Fatalf("SetTargetScore: %v", err)
	}
	if err := s.SetFailedTranscript(ctx, g.ID, "mumble bucket"); err != nil {
		t.Fatalf("SetFailedTranscript: %v", err)
	}
	if err := s.EndGame(ctx, g.ID, "A"); err != nil {
		t.Fatalf("EndGame: %v", err)
	}

	got, err = s.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame after updates: %v", err)
	}
	if got.Status != "finished" || got.WinningTeam != "A" || got.TargetScore != 15 {
		t.Fatalf("updated game = %+v", got)
	}
	if len(got.TeamA) != 1 || got.LastFailedTranscript != "mumble bucket" || got.EndedAt.IsZero() {
		t.Fatalf("updated game = %+v", got)
	}
}

func TestSQLiteGetMissingGame(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	got, err := s.GetGame(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("GetGame(missing) = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestSQLiteEventsAppendInOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	g := &Game{TargetScore: 11, ScoringMode: "1s2s"}
	if err := s.CreateGame(ctx, g); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	first := &Event{GameID: g.ID, Type: EventScore, PlayerName: "Beau", Team: "A", Points: 2, Transcript: "beau two"}
	id1, err := s.AppendEvent(ctx, first)
	if err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	second := &Event{GameID: g.ID, Type: EventCorrection, PlayerName: "Beau", Team: "A", Points: -2, CorrectedEventID: id1, Transcript: "undo"}
	id2, err := s.AppendEvent(ctx, second)
	if err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if id2 <= id1 {
		t.Fatalf("event IDs not increasing: %d then %d", id1, id2)
	}

	events, err := s.ListEvents(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].ID != id1 || events[1].ID != id2 {
		t.Fatalf("events out of order: %+v", events)
	}
	if events[1].CorrectedEventID != id1 || events[1].Points != -2 {
		t.Fatalf("correction row = %+v", events[1])
	}
	if events[0].CreatedAt.IsZero() {
		t.Fatal("created_at not persisted")
	}
}

func TestSQLiteDeleteGameCascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	g := &Game{TargetScore: 11, ScoringMode: "1s2s"}
	if err := s.CreateGame(ctx, g); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, err := s.AppendEvent(ctx, &Event{GameID: g.ID, Type: EventScore, PlayerName: "Beau", Team: "A", Points: 1}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	if err := s.DeleteGame(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	got, err := s.GetGame(ctx, g.ID)
	if err != nil || got != nil {
		t.Fatalf("game survived delete: (%v, %v)", got, err)
	}
	events, err := s.ListEvents(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events survived delete: %+v", events)
	}
}
