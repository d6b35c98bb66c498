package scoreboard

import "errors"

var (
	// ErrNotIdle rejects starting a game while one is in progress.
	ErrNotIdle = errors.New("scoreboard: game already in progress")

	// ErrNotSetup rejects confirming teams outside the setup phase.
	ErrNotSetup = errors.New("scoreboard: game is not in setup")

	// ErrNotActive rejects play commands when no game is active.
	ErrNotActive = errors.New("scoreboard: no active game")

	// ErrEmptyTeam rejects a roster with an empty side.
	ErrEmptyTeam = errors.New("scoreboard: both teams need at least one player")

	// ErrUnknownPlayer rejects events naming a player on neither
	// roster. The caller should surface the transcript for review
	// rather than guess a team.
	ErrUnknownPlayer = errors.New("scoreboard: player is not on either roster")

	// ErrNoPoints rejects a score command without a point value.
	ErrNoPoints = errors.New("scoreboard: score command carries no points")

	// ErrBadTargetScore rejects a non-positive target score.
	ErrBadTargetScore = errors.New("scoreboard: target score must be positive")

	// ErrBadScoringMode rejects an unrecognized scoring mode.
	ErrBadScoringMode = errors.New("scoreboard: unrecognized scoring mode")
)
