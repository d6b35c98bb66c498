// Package session orchestrates one live game: transcripts come in, the
// correction pipeline and interpreter turn them into commands, the
// scoreboard applies them, and the resulting ledger writes are fired
// best-effort. The ledger failing never blocks play; the session keeps
// scoring locally and says so once.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beaubromley/bball-stats-sub000/internal/ledger"
	"github.com/beaubromley/bball-stats-sub000/internal/observe"
	"github.com/beaubromley/bball-stats-sub000/internal/scoreboard"
	"github.com/beaubromley/bball-stats-sub000/internal/transcript"
	"github.com/beaubromley/bball-stats-sub000/internal/voicecmd"
	"github.com/beaubromley/bball-stats-sub000/pkg/stt"
)

const (
	defaultTargetScore  = 11
	defaultPollInterval = 2 * time.Second
)

// Option configures a [Session].
type Option func(*Session)

// WithStore attaches the ledger. Without one the session scores fully
// offline.
func WithStore(st ledger.Store) Option {
	return func(s *Session) { s.store = st }
}

// WithPipeline attaches the transcript-correction pipeline. Without one
// transcripts are interpreted as heard.
func WithPipeline(p transcript.Pipeline) Option {
	return func(s *Session) { s.pipeline = p }
}

// WithInterpreter replaces the default interpreter, typically to name
// the mic wearer.
func WithInterpreter(in *voicecmd.Interpreter) Option {
	return func(s *Session) { s.interp = in }
}

// WithMetrics replaces the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithPollInterval sets how often [Session.Run] polls the ledger for
// corrections from other devices. Default: 2s.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithLocation records where the game is played on created game records.
func WithLocation(loc string) Option {
	return func(s *Session) { s.location = loc }
}

// WithGameDefaults sets the target score and scoring mode used when a
// game is started by voice rather than through [Session.StartGame].
func WithGameDefaults(target int, mode voicecmd.ScoringMode) Option {
	return func(s *Session) {
		s.defaultTarget = target
		s.defaultMode = mode
	}
}

// WithClock replaces the event timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Result reports what one transcript did to the game.
type Result struct {
	Command voicecmd.Command
	State   scoreboard.GameState

	// Applied is false when the command was rejected or had nothing to
	// do; Reason says why.
	Applied bool
	Reason  string
}

// Session owns the state of one game and serialises every mutation
// through an internal mutex, so transcripts arriving concurrently are
// applied one at a time in arrival order.
type Session struct {
	store    ledger.Store        // may be nil: fully offline
	pipeline transcript.Pipeline // may be nil: no correction
	interp   *voicecmd.Interpreter
	metrics  *observe.Metrics
	log      *slog.Logger

	pollInterval  time.Duration
	location      string
	defaultTarget int
	defaultMode   voicecmd.ScoringMode
	now           func() time.Time

	mu      sync.Mutex
	state   scoreboard.GameState
	offline bool
	subs    map[int]chan scoreboard.GameState
	nextSub int
}

// New creates a session holding an idle scoreboard.
func New(opts ...Option) *Session {
	s := &Session{
		interp:        voicecmd.New(),
		log:           slog.Default(),
		pollInterval:  defaultPollInterval,
		defaultTarget: defaultTargetScore,
		defaultMode:   voicecmd.ModeOnesTwos,
		now:           time.Now,
		state:         scoreboard.NewGameState(),
		subs:          make(map[int]chan scoreboard.GameState),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// StartGame moves the session into setup and creates the game record.
// A ledger failure drops the session into offline scoring instead of
// failing the start.
func (s *Session) StartGame(ctx context.Context, targetScore int, mode voicecmd.ScoringMode) (scoreboard.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startGameLocked(ctx, targetScore, mode)
}

func (s *Session) startGameLocked(ctx context.Context, targetScore int, mode voicecmd.ScoringMode) (scoreboard.GameState, error) {
	next, err := scoreboard.StartGame(s.state, targetScore, mode)
	if err != nil {
		return s.state, err
	}

	next.GameID = uuid.NewString()
	s.offline = false
	if s.store != nil {
		g := &ledger.Game{
			ID:          next.GameID,
			Location:    s.location,
			Status:      string(scoreboard.StatusSetup),
			TargetScore: targetScore,
			ScoringMode: string(mode),
		}
		if err := s.store.CreateGame(ctx, g); err != nil {
			s.offline = true
			s.metrics.RecordLedgerWrite(ctx, "create_game", "error")
			s.log.WarnContext(ctx, "ledger unavailable, scores tracked locally", "error", err)
		} else {
			s.metrics.RecordLedgerWrite(ctx, "create_game", "ok")
		}
	}

	s.state = next
	s.broadcastLocked()
	return s.state, nil
}

// ConfirmTeams locks in the rosters and activates the game.
func (s *Session) ConfirmTeams(ctx context.Context, teamA, teamB []string) (scoreboard.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmTeamsLocked(ctx, teamA, teamB)
}

func (s *Session) confirmTeamsLocked(ctx context.Context, teamA, teamB []string) (scoreboard.GameState, error) {
	next, err := scoreboard.ConfirmTeams(s.state, teamA, teamB)
	if err != nil {
		return s.state, err
	}

	if s.usingLedger() {
		if err := s.store.SetRoster(ctx, next.GameID, teamA, teamB); err != nil {
			s.metrics.RecordLedgerWrite(ctx, "set_roster", "error")
			s.log.WarnContext(ctx, "roster write failed", "error", err)
		} else {
			s.metrics.RecordLedgerWrite(ctx, "set_roster", "ok")
		}
	}

	s.state = next
	s.metrics.ActiveGames.Add(ctx, 1)
	s.broadcastLocked()
	return s.state, nil
}

// SubmitTranscript runs one final transcript through correction,
// interpretation and the scoreboard. Rejected transcripts are recorded
// on the game for review and never return an error; the Result says
// what happened.
func (s *Session) SubmitTranscript(ctx context.Context, t stt.Transcript) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := t.Text
	if s.pipeline != nil {
		start := s.now()
		corrected, err := s.pipeline.Correct(ctx, t, s.state.Roster())
		s.metrics.CorrectionDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			// The pipeline degrades to partial text on failure; keep
			// scoring off what it got through.
			s.log.WarnContext(ctx, "transcript correction failed", "error", err)
		}
		if corrected != nil {
			text = corrected.Corrected
		}
	}

	cmd := s.interp.Interpret(text, s.state.Roster(), s.state.ScoringMode)
	cmd.RawTranscript = t.Text
	s.metrics.RecordCommand(ctx, string(cmd.Type), cmd.Confidence)

	return s.dispatchLocked(ctx, cmd)
}

// dispatchLocked routes one command: lifecycle commands drive the
// start/confirm transitions, everything else goes through the
// scoreboard.
func (s *Session) dispatchLocked(ctx context.Context, cmd voicecmd.Command) (Result, error) {
	res := Result{Command: cmd}

	switch cmd.Type {
	case voicecmd.CommandUnknown:
		s.rejectLocked(ctx, cmd.RawTranscript, "unrecognized")
		res.Reason = "unrecognized"
		res.State = s.state
		return res, nil

	case voicecmd.CommandNewGame:
		if s.state.Status == scoreboard.StatusActive {
			res.Reason = "game in progress"
			res.State = s.state
			return res, nil
		}
		target := s.state.TargetScore
		if target <= 0 {
			target = s.defaultTarget
		}
		mode := s.state.ScoringMode
		if !mode.IsValid() {
			mode = s.defaultMode
		}
		s.state = scoreboard.Reset(s.state)
		if _, err := s.startGameLocked(ctx, target, mode); err != nil {
			s.rejectLocked(ctx, cmd.RawTranscript, err.Error())
			res.Reason = err.Error()
			res.State = s.state
			return res, nil
		}
		res.Applied = true
		res.State = s.state
		return res, nil

	case voicecmd.CommandSetTeams:
		if cmd.Teams == nil {
			s.rejectLocked(ctx, cmd.RawTranscript, "no rosters heard")
			res.Reason = "no rosters heard"
			res.State = s.state
			return res, nil
		}
		if _, err := s.confirmTeamsLocked(ctx, cmd.Teams.A, cmd.Teams.B); err != nil {
			s.rejectLocked(ctx, cmd.RawTranscript, err.Error())
			res.Reason = err.Error()
			res.State = s.state
			return res, nil
		}
		res.Applied = true
		res.State = s.state
		return res, nil
	}

	next, intents, err := scoreboard.Apply(s.state, cmd, s.now())
	if err != nil {
		s.rejectLocked(ctx, cmd.RawTranscript, err.Error())
		res.Reason = err.Error()
		res.State = s.state
		return res, nil
	}

	changed := len(next.Events) != len(s.state.Events) || next.Status != s.state.Status
	s.state = next
	s.fireIntentsLocked(ctx, intents)
	if changed {
		s.broadcastLocked()
	} else {
		res.Reason = "nothing to do"
	}
	res.Applied = changed
	res.State = s.state
	return res, nil
}

// ManualScore credits a basket entered through the UI rather than by
// voice.
func (s *Session) ManualScore(ctx context.Context, player string, points int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(ctx, voicecmd.Command{
		Type:          voicecmd.CommandScore,
		PlayerName:    player,
		Points:        points,
		RawTranscript: "manual entry",
		Confidence:    1,
	})
}

// ManualUndo cancels the most recent uncorrected score, as the spoken
// "cancel that" would.
func (s *Session) ManualUndo(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(ctx, voicecmd.Command{
		Type:          voicecmd.CommandCorrection,
		RawTranscript: "manual undo",
		Confidence:    1,
	})
}

// EndGame finishes the active game with an explicit winner.
func (s *Session) EndGame(ctx context.Context, winner voicecmd.Team) (scoreboard.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, intents, err := scoreboard.EndGame(s.state, winner)
	if err != nil {
		return s.state, err
	}
	s.state = next
	s.fireIntentsLocked(ctx, intents)
	s.broadcastLocked()
	return s.state, nil
}

// Reset abandons the current game and returns to idle, keeping the
// configured target score and scoring mode.
func (s *Session) Reset(ctx context.Context) scoreboard.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == scoreboard.StatusActive {
		s.metrics.ActiveGames.Add(ctx, -1)
	}
	s.state = scoreboard.Reset(s.state)
	s.broadcastLocked()
	return s.state
}

// Snapshot returns the current game state. Transitions never mutate
// shared slices, so the copy is safe to read without coordination.
func (s *Session) Snapshot() scoreboard.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers for state updates. Slow subscribers miss updates
// rather than block play; each delivered state is complete, so a missed
// one is recovered by the next. The returned cancel func must be called
// to release the channel.
func (s *Session) Subscribe() (<-chan scoreboard.GameState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan scoreboard.GameState, 8)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- s.state:
		default:
		}
	}
}

// usingLedger reports whether ledger writes should be attempted.
func (s *Session) usingLedger() bool {
	return s.store != nil && !s.offline
}

// rejectLocked records a transcript the interpreter or scoreboard could
// not act on. The write is best-effort; losing it only loses review
// material.
func (s *Session) rejectLocked(ctx context.Context, transcript, reason string) {
	s.metrics.RecordRejectedTranscript(ctx, reason)
	s.log.InfoContext(ctx, "transcript rejected", "reason", reason, "transcript", transcript)
	if !s.usingLedger() || s.state.GameID == "" {
		return
	}
	if err := s.store.SetFailedTranscript(ctx, s.state.GameID, transcript); err != nil {
		s.log.WarnContext(ctx, "failed-transcript write failed", "error", err)
	}
}

// fireIntentsLocked performs the ledger writes a transition called for.
// Each write is independent and best-effort: one failing is logged and
// the rest still fire, so the local scoreboard stays ahead of a flaky
// ledger.
func (s *Session) fireIntentsLocked(ctx context.Context, intents []scoreboard.Intent) {
	if len(intents) == 0 {
		return
	}
	if !s.usingLedger() {
		// Still finish the metrics bookkeeping for game-over.
		for _, in := range intents {
			if in.End != "" {
				s.metrics.ActiveGames.Add(ctx, -1)
			}
		}
		return
	}

	for _, in := range intents {
		switch {
		case in.Append != nil:
			s.fireAppendLocked(ctx, in.Append)
		case in.End != "":
			if err := s.store.EndGame(ctx, s.state.GameID, string(in.End)); err != nil {
				s.metrics.RecordLedgerWrite(ctx, "end_game", "error")
				s.log.WarnContext(ctx, "end-game write failed", "error", err)
			} else {
				s.metrics.RecordLedgerWrite(ctx, "end_game", "ok")
			}
			s.metrics.ActiveGames.Add(ctx, -1)
		}
	}
}

func (s *Session) fireAppendLocked(ctx context.Context, ev *scoreboard.Event) {
	rec := &ledger.Event{
		GameID:     s.state.GameID,
		Type:       string(ev.Type),
		PlayerName: ev.PlayerName,
		Team:       string(ev.Team),
		Points:     ev.Points,
		Transcript: ev.Transcript,
		CreatedAt:  ev.CreatedAt,
	}
	// A correction references its target by the target's durable ID,
	// resolved at fire time since the append that assigned it may have
	// raced this one.
	if ev.CorrectedEventID != 0 {
		for _, e := range s.state.Events {
			if e.ID == ev.CorrectedEventID {
				rec.CorrectedEventID = e.LedgerID
				break
			}
		}
	}

	ledgerID, err := s.store.AppendEvent(ctx, rec)
	if err != nil {
		s.metrics.RecordLedgerWrite(ctx, "append_event", "error")
		s.log.WarnContext(ctx, "event write failed", "type", rec.Type, "error", err)
		return
	}
	s.metrics.RecordLedgerWrite(ctx, "append_event", "ok")
	if ev.ID != 0 {
		s.state = scoreboard.MarkDurable(s.state, ev.ID, ledgerID)
	}
}
