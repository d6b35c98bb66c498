package scoreboard

import "time"

// RemoteCorrection is a correction event that landed in the ledger
// without going through this scoreboard, typically an undo issued
// from a companion device.
type RemoteCorrection struct {
	// LedgerID is the durable ID of the correction itself.
	LedgerID int64

	// CorrectedLedgerID is the ledger ID of the score it cancels,
	// when the remote writer recorded one.
	CorrectedLedgerID int64

	PlayerName string
	Points     int
	Transcript string
}

// FilterNew returns the remote corrections the state has not applied
// yet, preserving ledger order. A correction counts as seen when an
// event with its ledger ID is already in the history.
func FilterNew(s GameState, remote []RemoteCorrection) []RemoteCorrection {
	var fresh []RemoteCorrection
	for _, rc := range remote {
		if _, seen := s.eventByLedgerID(rc.LedgerID); seen {
			continue
		}
		fresh = append(fresh, rc)
	}
	return fresh
}

// ApplyRemote replays one remote correction through the same negation
// logic local corrections use. It is idempotent: a correction already
// seen by ledger ID, or one whose target score is already corrected,
// changes nothing. The second return reports whether the state
// changed.
func ApplyRemote(s GameState, rc RemoteCorrection, now time.Time) (GameState, bool) {
	if _, seen := s.eventByLedgerID(rc.LedgerID); seen {
		return s, false
	}

	target, ok := s.eventByLedgerID(rc.CorrectedLedgerID)
	if ok && target.Type != EventScore {
		return s, false
	}
	if !ok {
		// The remote writer did not say which score it meant (or the
		// local copy never learned that score's ledger ID); fall back
		// to the most recent uncorrected score.
		target, ok = s.lastUncorrectedScore()
		if !ok {
			return s, false
		}
	}
	if _, done := s.correctedIDs()[target.ID]; done {
		return s, false
	}

	next := s.clone()
	next.Events = append(next.Events, Event{
		ID:               next.nextEventID(),
		LedgerID:         rc.LedgerID,
		Type:             EventCorrection,
		PlayerName:       target.PlayerName,
		Team:             target.Team,
		Points:           -target.Points,
		CorrectedEventID: target.ID,
		Transcript:       rc.Transcript,
		CreatedAt:        now,
	})
	next.TeamAScore, next.TeamBScore = RecomputeScores(next)
	return next, true
}

// MarkDurable records the ledger ID assigned to a locally appended
// event once its write lands. It returns the state unchanged when no
// event has the given local ID.
func MarkDurable(s GameState, localID, ledgerID int64) GameState {
	for i, e := range s.Events {
		if e.ID != localID {
			continue
		}
		next := s.clone()
		next.Events[i].LedgerID = ledgerID
		return next
	}
	return s
}
