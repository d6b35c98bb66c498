package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/beaubromley/bball-stats-sub000/internal/ledger/mock"
	"github.com/beaubromley/bball-stats-sub000/internal/session"
	"github.com/beaubromley/bball-stats-sub000/pkg/stt"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.Session == nil {
		cfg.Session = session.New(session.WithStore(mock.New()))
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Config{
		ReadyCheck: func(context.Context) error { return errors.New("ledger down") },
	})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", resp.StatusCode)
	}
}

func TestGameFlowOverHTTP(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Config{})

	resp := postJSON(t, ts, "/game", startGameRequest{TargetScore: 11, ScoringMode: "1s2s"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /game status = %d, want 201", resp.StatusCode)
	}
	st := decode[stateView](t, resp)
	if st.Status != "setup" || st.GameID == "" {
		t.Fatalf("state after start = %+v", st)
	}

	resp = postJSON(t, ts, "/game/teams", setTeamsRequest{
		TeamA: []string{"Beau", "Gage"},
		TeamB: []string{"Jon", "Tyler"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /game/teams status = %d, want 200", resp.StatusCode)
	}

	resp = postJSON(t, ts, "/transcript", transcriptRequest{Text: "Beau two", IsFinal: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /transcript status = %d, want 200", resp.StatusCode)
	}
	res := decode[resultView](t, resp)
	if !res.Applied || res.CommandType != "score" {
		t.Fatalf("result = %+v, want applied score", res)
	}
	if res.State.TeamAScore != 2 {
		t.Errorf("score = %d, want 2", res.State.TeamAScore)
	}

	resp = postJSON(t, ts, "/undo", struct{}{})
	res = decode[resultView](t, resp)
	if !res.Applied || res.State.TeamAScore != 0 {
		t.Errorf("undo result = %+v, want score back to 0", res)
	}

	resp, err := http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatalf("GET /state: %v", err)
	}
	defer resp.Body.Close()
	st = decode[stateView](t, resp)
	if len(st.Events) != 2 {
		t.Errorf("history = %d events, want score plus correction", len(st.Events))
	}
}

func TestTranscriptValidation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Config{})

	resp := postJSON(t, ts, "/transcript", transcriptRequest{Text: "", IsFinal: true})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty text status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, ts, "/transcript", transcriptRequest{Text: "beau two", IsFinal: false})
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("partial status = %d, want 204", resp.StatusCode)
	}
}

func TestStartGameTwiceConflicts(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Config{})

	postJSON(t, ts, "/game", startGameRequest{TargetScore: 11, ScoringMode: "1s2s"})
	resp := postJSON(t, ts, "/game", startGameRequest{TargetScore: 11, ScoringMode: "1s2s"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", resp.StatusCode)
	}
}

func TestWebSocketPushesUpdates(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Config{})

	postJSON(t, ts, "/game", startGameRequest{TargetScore: 11, ScoringMode: "1s2s"})
	postJSON(t, ts, "/game/teams", setTeamsRequest{
		TeamA: []string{"Beau"},
		TeamB: []string{"Jon"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	var snapshot stateView
	if err := wsjson.Read(ctx, conn, &snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.Status != "active" {
		t.Fatalf("snapshot status = %q, want active", snapshot.Status)
	}

	postJSON(t, ts, "/score", scoreRequest{Player: "Beau", Points: 2})

	var update stateView
	if err := wsjson.Read(ctx, conn, &update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if update.TeamAScore != 2 {
		t.Errorf("pushed score = %d, want 2", update.TeamAScore)
	}
}

// fakeSpeech is a SpeechProvider whose streams replay canned finals.
type fakeSpeech struct {
	finals []stt.Transcript

	mu      sync.Mutex
	lastCfg stt.StreamConfig
}

func (f *fakeSpeech) StartStream(_ context.Context, cfg stt.StreamConfig) (stt.Stream, error) {
	f.mu.Lock()
	f.lastCfg = cfg
	f.mu.Unlock()

	s := &fakeStream{
		partials: make(chan stt.Transcript),
		finals:   make(chan stt.Transcript, len(f.finals)),
	}
	close(s.partials)
	for _, t := range f.finals {
		s.finals <- t
	}
	close(s.finals)
	return s, nil
}

type fakeStream struct {
	partials chan stt.Transcript
	finals   chan stt.Transcript
}

func (s *fakeStream) SendAudio([]byte) error          { return nil }
func (s *fakeStream) Partials() <-chan stt.Transcript { return s.partials }
func (s *fakeStream) Finals() <-chan stt.Transcript   { return s.finals }
func (s *fakeStream) Close() error                    { return nil }

func TestListenScoresFinalTranscripts(t *testing.T) {
	t.Parallel()
	speech := &fakeSpeech{finals: []stt.Transcript{
		{Text: "Beau two", IsFinal: true, Confidence: 0.9},
	}}
	sess := session.New(session.WithStore(mock.New()))
	ts := newTestServer(t, Config{Session: sess, Speech: speech})

	postJSON(t, ts, "/game", startGameRequest{TargetScore: 11, ScoringMode: "1s2s"})
	postJSON(t, ts, "/game/teams", setTeamsRequest{
		TeamA: []string{"Beau"},
		TeamB: []string{"Jon"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/listen"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	var ev listenEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Kind != "final" || !ev.Applied || ev.CommandType != "score" {
		t.Fatalf("event = %+v, want applied final score", ev)
	}
	if got := sess.Snapshot().TeamAScore; got != 2 {
		t.Errorf("score = %d, want 2", got)
	}

	// Roster names rode along as boosted keywords.
	speech.mu.Lock()
	defer speech.mu.Unlock()
	if len(speech.lastCfg.Keywords) != 2 {
		t.Errorf("keywords = %+v, want both players", speech.lastCfg.Keywords)
	}
}

func TestListenWithoutProviderIsNotImplemented(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/listen")
	if err != nil {
		t.Fatalf("GET /listen: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}
