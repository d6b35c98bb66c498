// Package server exposes the live scoreboard over HTTP: REST endpoints
// for game control and transcript submission, a WebSocket feed pushing
// every state change, and the usual health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beaubromley/bball-stats-sub000/internal/observe"
	"github.com/beaubromley/bball-stats-sub000/internal/scoreboard"
	"github.com/beaubromley/bball-stats-sub000/internal/session"
	"github.com/beaubromley/bball-stats-sub000/internal/voicecmd"
	"github.com/beaubromley/bball-stats-sub000/pkg/stt"
)

// readyTimeout bounds the ledger probe on /readyz.
const readyTimeout = 5 * time.Second

// defaultKeywordBoost is applied to roster names on speech streams.
const defaultKeywordBoost = 5

// SpeechProvider opens streaming transcription sessions for /listen.
type SpeechProvider interface {
	StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.Stream, error)
}

// Config holds the server's dependencies. Session must be set; the
// rest default sensibly.
type Config struct {
	Session *session.Session

	// ReadyCheck probes the ledger for /readyz. When nil, readiness
	// equals liveness.
	ReadyCheck func(ctx context.Context) error

	// Speech enables the /listen audio endpoint. When nil, transcripts
	// only arrive via POST /transcript.
	Speech SpeechProvider

	// SpeechDefaults seeds each speech stream's config; roster names
	// are appended as boosted keywords per connection.
	SpeechDefaults stt.StreamConfig

	// KeywordBoost overrides the boost applied to roster names.
	KeywordBoost float64

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Server routes HTTP traffic to the session.
type Server struct {
	session      *session.Session
	readyCheck   func(ctx context.Context) error
	speech       SpeechProvider
	speechCfg    stt.StreamConfig
	keywordBoost float64
	metrics      *observe.Metrics
	log          *slog.Logger
}

// New creates a Server from the given config.
func New(cfg Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("server: Session must not be nil")
	}
	s := &Server{
		session:      cfg.Session,
		readyCheck:   cfg.ReadyCheck,
		speech:       cfg.Speech,
		speechCfg:    cfg.SpeechDefaults,
		keywordBoost: cfg.KeywordBoost,
		metrics:      cfg.Metrics,
		log:          cfg.Logger,
	}
	if s.keywordBoost == 0 {
		s.keywordBoost = defaultKeywordBoost
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s, nil
}

// Handler returns the full route table wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /game", s.handleStartGame)
	mux.HandleFunc("POST /game/teams", s.handleSetTeams)
	mux.HandleFunc("POST /game/end", s.handleEndGame)
	mux.HandleFunc("POST /game/reset", s.handleReset)
	mux.HandleFunc("POST /transcript", s.handleTranscript)
	mux.HandleFunc("POST /score", s.handleScore)
	mux.HandleFunc("POST /undo", s.handleUndo)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /listen", s.handleListen)

	return observe.Middleware(s.metrics)(mux)
}

// stateView is the JSON shape of a game state.
type stateView struct {
	GameID      string      `json:"game_id"`
	Status      string      `json:"status"`
	TargetScore int         `json:"target_score"`
	ScoringMode string      `json:"scoring_mode"`
	TeamA       []string    `json:"team_a"`
	TeamB       []string    `json:"team_b"`
	TeamAScore  int         `json:"team_a_score"`
	TeamBScore  int         `json:"team_b_score"`
	WinningTeam string      `json:"winning_team,omitempty"`
	Events      []eventView `json:"events"`
}

type eventView struct {
	ID               int64     `json:"id"`
	Type             string    `json:"type"`
	PlayerName       string    `json:"player_name,omitempty"`
	Team             string    `json:"team,omitempty"`
	Points           int       `json:"points,omitempty"`
	CorrectedEventID int64     `json:"corrected_event_id,omitempty"`
	AssistBy         string    `json:"assist_by,omitempty"`
	StealBy          string    `json:"steal_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func viewOf(st scoreboard.GameState) stateView {
	v := stateView{
		GameID:      st.GameID,
		Status:      string(st.Status),
		TargetScore: st.TargetScore,
		ScoringMode: string(st.ScoringMode),
		TeamA:       st.TeamA,
		TeamB:       st.TeamB,
		TeamAScore:  st.TeamAScore,
		TeamBScore:  st.TeamBScore,
		WinningTeam: string(st.WinningTeam),
		Events:      make([]eventView, 0, len(st.Events)),
	}
	for _, e := range st.Events {
		v.Events = append(v.Events, eventView{
			ID:               e.ID,
			Type:             string(e.Type),
			PlayerName:       e.PlayerName,
			Team:             string(e.Team),
			Points:           e.Points,
			CorrectedEventID: e.CorrectedEventID,
			AssistBy:         e.AssistBy,
			StealBy:          e.StealBy,
			CreatedAt:        e.CreatedAt,
		})
	}
	return v
}

// resultView is the JSON shape of a transcript or manual-entry result.
type resultView struct {
	CommandType string    `json:"command_type"`
	Confidence  float64   `json:"confidence"`
	Applied     bool      `json:"applied"`
	Reason      string    `json:"reason,omitempty"`
	State       stateView `json:"state"`
}

func viewOfResult(res session.Result) resultView {
	return resultView{
		CommandType: string(res.Command.Type),
		Confidence:  res.Command.Confidence,
		Applied:     res.Applied,
		Reason:      res.Reason,
		State:       viewOf(res.State),
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.readyCheck == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.readyCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "fail",
			"ledger": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "ledger": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.session.Snapshot()))
}

type startGameRequest struct {
	TargetScore int    `json:"target_score"`
	ScoringMode string `json:"scoring_mode"`
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	st, err := s.session.StartGame(r.Context(), req.TargetScore, voicecmd.ScoringMode(req.ScoringMode))
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(st))
}

type setTeamsRequest struct {
	TeamA []string `json:"team_a"`
	TeamB []string `json:"team_b"`
}

func (s *Server) handleSetTeams(w http.ResponseWriter, r *http.Request) {
	var req setTeamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	st, err := s.session.ConfirmTeams(r.Context(), req.TeamA, req.TeamB)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(st))
}

type endGameRequest struct {
	Winner string `json:"winner"`
}

func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	var req endGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Winner != string(voicecmd.TeamA) && req.Winner != string(voicecmd.TeamB) {
		http.Error(w, "winner must be A or B", http.StatusBadRequest)
		return
	}
	st, err := s.session.EndGame(r.Context(), voicecmd.Team(req.Winner))
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(st))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.session.Reset(r.Context())))
}

type transcriptRequest struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if !req.IsFinal {
		// Partials are display-only; nothing to interpret.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	res, err := s.session.SubmitTranscript(r.Context(), stt.Transcript{
		Text:       req.Text,
		IsFinal:    true,
		Confidence: req.Confidence,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, viewOfResult(res))
}

type scoreRequest struct {
	Player string `json:"player"`
	Points int    `json:"points"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.session.ManualScore(r.Context(), req.Player, req.Points)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, viewOfResult(res))
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.ManualUndo(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, viewOfResult(res))
}

// handleWS upgrades to WebSocket and pushes the current state followed
// by every subsequent change until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WarnContext(r.Context(), "websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ctx := r.Context()
	updates, cancel := s.session.Subscribe()
	defer cancel()

	if err := wsjson.Write(ctx, conn, viewOf(s.session.Snapshot())); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, viewOf(st)); err != nil {
				return
			}
		}
	}
}

// listenEvent is one message pushed to a /listen client: interim text
// for display, or a final transcript with what it did to the game.
type listenEvent struct {
	Kind        string `json:"kind"` // "partial" or "final"
	Text        string `json:"text"`
	CommandType string `json:"command_type,omitempty"`
	Applied     bool   `json:"applied,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// handleListen bridges client audio to the speech provider: binary
// WebSocket frames go out as audio, transcripts come back as JSON.
// Final transcripts are scored as they arrive.
func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	if s.speech == nil {
		http.Error(w, "no speech provider configured", http.StatusNotImplemented)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WarnContext(r.Context(), "websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cfg := s.speechCfg
	for _, name := range s.session.Snapshot().Roster() {
		cfg.Keywords = append(cfg.Keywords, stt.KeywordBoost{Keyword: name, Boost: s.keywordBoost})
	}

	stream, err := s.speech.StartStream(ctx, cfg)
	if err != nil {
		s.log.WarnContext(ctx, "speech stream failed", "error", err)
		conn.Close(websocket.StatusInternalError, "speech provider unavailable")
		return
	}
	defer stream.Close()

	go func() {
		defer cancel()
		partials, finals := stream.Partials(), stream.Finals()
		for partials != nil || finals != nil {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-partials:
				if !ok {
					partials = nil
					continue
				}
				_ = wsjson.Write(ctx, conn, listenEvent{Kind: "partial", Text: t.Text})
			case t, ok := <-finals:
				if !ok {
					finals = nil
					continue
				}
				res, err := s.session.SubmitTranscript(ctx, t)
				if err != nil {
					s.log.WarnContext(ctx, "transcript submit failed", "error", err)
					continue
				}
				_ = wsjson.Write(ctx, conn, listenEvent{
					Kind:        "final",
					Text:        t.Text,
					CommandType: string(res.Command.Type),
					Applied:     res.Applied,
					Reason:      res.Reason,
				})
			}
		}
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}
		if err := stream.SendAudio(data); err != nil {
			return
		}
	}
}

// writeJSON encodes v as JSON with the given status code. On encoding
// failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
