package scoreboard

import "github.com/beaubromley/bball-stats-sub000/internal/voicecmd"

// RecomputeScores derives both team totals from the full event list.
// A score event counts unless some correction references it; nothing
// else carries points. This is the authoritative formulation used
// after every mutation.
func RecomputeScores(s GameState) (teamA, teamB int) {
	corrected := s.correctedIDs()
	for _, e := range s.Events {
		if e.Type != EventScore {
			continue
		}
		if _, done := corrected[e.ID]; done {
			continue
		}
		switch e.Team {
		case voicecmd.TeamA:
			teamA += e.Points
		case voicecmd.TeamB:
			teamB += e.Points
		}
	}
	return teamA, teamB
}

// RunningScores derives the same totals by walking the history in
// order and summing signed points: score events add their value and
// corrections subtract it back. It must always agree with
// RecomputeScores; the pair exists so tests can cross-check the
// correction bookkeeping.
func RunningScores(s GameState) (teamA, teamB int) {
	for _, e := range s.Events {
		if e.Type != EventScore && e.Type != EventCorrection {
			continue
		}
		switch e.Team {
		case voicecmd.TeamA:
			teamA += e.Points
		case voicecmd.TeamB:
			teamB += e.Points
		}
	}
	return teamA, teamB
}
