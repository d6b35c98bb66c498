package voicecmd

import "testing"

var pickupRoster = []string{"Beau", "Gage", "Jon", "Tyler", "Garett"}

func TestInterpretScoring(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		players  []string
		mode     ScoringMode
		wantType CommandType
		wantName string
		wantPts  int
		wantConf float64
	}{
		{
			name:     "roster name with outside shot",
			text:     "Beau two",
			players:  pickupRoster,
			mode:     ModeOnesTwos,
			wantType: CommandScore,
			wantName: "Beau",
			wantPts:  2,
			wantConf: 0.85,
		},
		{
			name:     "bare bucket with no roster",
			text:     "bucket",
			players:  nil,
			mode:     ModeOnesTwos,
			wantType: CommandScore,
			wantName: "",
			wantPts:  1,
			wantConf: 0.3,
		},
		{
			name:     "unknown name falls back to a guess at low confidence",
			text:     "marcus layup",
			players:  pickupRoster,
			mode:     ModeOnesTwos,
			wantType: CommandScore,
			wantName: "Marcus",
			wantPts:  1,
			wantConf: 0.3,
		},
		{
			name:     "outside shot in twos and threes mode",
			text:     "Gage from downtown",
			players:  pickupRoster,
			mode:     ModeTwosThrees,
			wantType: CommandScore,
			wantName: "Gage",
			wantPts:  3,
			wantConf: 0.85,
		},
		{
			name:     "inside shot in twos and threes mode",
			text:     "Gage layup",
			players:  pickupRoster,
			mode:     ModeTwosThrees,
			wantType: CommandScore,
			wantName: "Gage",
			wantPts:  2,
			wantConf: 0.85,
		},
		{
			name:     "misheard name rewritten by alias table",
			text:     "gauge bucket",
			players:  pickupRoster,
			mode:     ModeOnesTwos,
			wantType: CommandScore,
			wantName: "Gage",
			wantPts:  1,
			wantConf: 0.85,
		},
		{
			name:     "misheard number word",
			text:     "Beau free",
			players:  pickupRoster,
			mode:     ModeOnesTwos,
			wantType: CommandScore,
			wantName: "Beau",
			wantPts:  2,
			wantConf: 0.85,
		},
		{
			name:     "joined name and digit",
			text:     "beau2",
			players:  pickupRoster,
			mode:     ModeOnesTwos,
			wantType: CommandScore,
			wantName: "Beau",
			wantPts:  2,
			wantConf: 0.85,
		},
		{
			name:     "trailing punctuation stripped",
			text:     "Jon bucket!",
			players:  pickupRoster,
			mode:     ModeOnesTwos,
			wantType: CommandScore,
			wantName: "Jon",
			wantPts:  1,
			wantConf: 0.85,
		},
	}

	in := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := in.Interpret(tt.text, tt.players, tt.mode)
			if got.Type != tt.wantType {
				t.Fatalf("Interpret(%q) type = %q, want %q", tt.text, got.Type, tt.wantType)
			}
			if got.PlayerName != tt.wantName {
				t.Errorf("Interpret(%q) player = %q, want %q", tt.text, got.PlayerName, tt.wantName)
			}
			if got.Points != tt.wantPts {
				t.Errorf("Interpret(%q) points = %d, want %d", tt.text, got.Points, tt.wantPts)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("Interpret(%q) confidence = %v, want %v", tt.text, got.Confidence, tt.wantConf)
			}
			if got.RawTranscript != tt.text {
				t.Errorf("Interpret(%q) raw = %q, want original transcript", tt.text, got.RawTranscript)
			}
		})
	}
}

func TestInterpretCompoundPlays(t *testing.T) {
	t.Parallel()
	in := New(WithMicWearer("Beau"))

	t.Run("steal and assist", func(t *testing.T) {
		t.Parallel()
		got := in.Interpret("Jon steals and assists to Gage", []string{"Jon", "Gage"}, ModeOnesTwos)
		if got.Type != CommandScore {
			t.Fatalf("type = %q, want score", got.Type)
		}
		if got.PlayerName != "Gage" || got.AssistBy != "Jon" || got.StealBy != "Jon" {
			t.Errorf("actors = (%q, assist %q, steal %q), want (Gage, Jon, Jon)",
				got.PlayerName, got.AssistBy, got.StealBy)
		}
		if got.Points != 1 {
			t.Errorf("points = %d, want 1", got.Points)
		}
	})

	t.Run("assist to with shot type", func(t *testing.T) {
		t.Parallel()
		got := in.Interpret("Tyler assists to Gage three", pickupRoster, ModeTwosThrees)
		if got.Type != CommandScore || got.PlayerName != "Gage" || got.AssistBy != "Tyler" {
			t.Fatalf("got %+v, want Gage scored assisted by Tyler", got)
		}
		if got.Points != 3 {
			t.Errorf("points = %d, want 3", got.Points)
		}
	})

	t.Run("bare assist to credits mic wearer", func(t *testing.T) {
		t.Parallel()
		got := in.Interpret("assist to Gage", pickupRoster, ModeOnesTwos)
		if got.Type != CommandScore || got.PlayerName != "Gage" || got.AssistBy != "Beau" {
			t.Fatalf("got %+v, want Gage scored assisted by mic wearer", got)
		}
	})

	t.Run("steal and score", func(t *testing.T) {
		t.Parallel()
		got := in.Interpret("Gage steals and layup", pickupRoster, ModeOnesTwos)
		if got.Type != CommandScore || got.PlayerName != "Gage" || got.StealBy != "Gage" {
			t.Fatalf("got %+v, want Gage self-score off a steal", got)
		}
		if got.Points != 1 {
			t.Errorf("points = %d, want 1", got.Points)
		}
	})

	t.Run("assist mentioned inside a score", func(t *testing.T) {
		t.Parallel()
		got := in.Interpret("Tyler bucket assist by Jon", pickupRoster, ModeOnesTwos)
		if got.Type != CommandScore || got.PlayerName != "Tyler" || got.AssistBy != "Jon" {
			t.Fatalf("got %+v, want Tyler scored assisted by Jon", got)
		}
	})
}

func TestInterpretDefensivePlays(t *testing.T) {
	t.Parallel()
	in := New(WithMicWearer("Beau"))

	tests := []struct {
		name     string
		text     string
		wantType CommandType
		wantName string
	}{
		{"named steal", "Gage steals", CommandSteal, "Gage"},
		{"misheard steal", "gage steel", CommandSteal, "Gage"},
		{"bare steal credits mic wearer", "steal", CommandSteal, "Beau"},
		{"named block", "Jon block", CommandBlock, "Jon"},
		{"misheard block", "jon blocked", CommandBlock, "Jon"},
		{"assist without shot type", "Tyler assist", CommandAssist, "Tyler"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := in.Interpret(tt.text, pickupRoster, ModeOnesTwos)
			if got.Type != tt.wantType {
				t.Fatalf("Interpret(%q) type = %q, want %q", tt.text, got.Type, tt.wantType)
			}
			if got.PlayerName != tt.wantName {
				t.Errorf("Interpret(%q) player = %q, want %q", tt.text, got.PlayerName, tt.wantName)
			}
			if got.Confidence != 0.8 {
				t.Errorf("Interpret(%q) confidence = %v, want 0.8", tt.text, got.Confidence)
			}
		})
	}
}

func TestInterpretGameControl(t *testing.T) {
	t.Parallel()
	in := New()

	t.Run("corrections", func(t *testing.T) {
		t.Parallel()
		for _, text := range []string{"undo", "cancel that", "take that back", "my bad", "scratch that"} {
			got := in.Interpret(text, pickupRoster, ModeOnesTwos)
			if got.Type != CommandCorrection {
				t.Errorf("Interpret(%q) type = %q, want correction", text, got.Type)
			}
			if got.Confidence != 0.9 {
				t.Errorf("Interpret(%q) confidence = %v, want 0.9", text, got.Confidence)
			}
		}
	})

	t.Run("new game", func(t *testing.T) {
		t.Parallel()
		for _, text := range []string{"new game", "run it back", "next game"} {
			got := in.Interpret(text, nil, ModeOnesTwos)
			if got.Type != CommandNewGame || got.Confidence != 0.9 {
				t.Errorf("Interpret(%q) = %+v, want new_game at 0.9", text, got)
			}
		}
	})

	t.Run("end game with inferable winner", func(t *testing.T) {
		t.Parallel()
		got := in.Interpret("game over we won", nil, ModeOnesTwos)
		if got.Type != CommandEndGame || got.WinningTeam != TeamA || got.Confidence != 0.9 {
			t.Fatalf("got %+v, want end_game team A at 0.9", got)
		}
		got = in.Interpret("thats game they won", nil, ModeOnesTwos)
		if got.Type != CommandEndGame || got.WinningTeam != TeamB || got.Confidence != 0.9 {
			t.Fatalf("got %+v, want end_game team B at 0.9", got)
		}
	})

	t.Run("end game without winner still reported", func(t *testing.T) {
		t.Parallel()
		got := in.Interpret("game over", nil, ModeOnesTwos)
		if got.Type != CommandEndGame || got.WinningTeam != "" || got.Confidence != 0.7 {
			t.Fatalf("got %+v, want end_game with no winner at 0.7", got)
		}
	})

	t.Run("set teams", func(t *testing.T) {
		t.Parallel()
		got := in.Interpret("teams beau and gage versus jon and tyler", nil, ModeOnesTwos)
		if got.Type != CommandSetTeams {
			t.Fatalf("type = %q, want set_teams", got.Type)
		}
		if got.Teams == nil {
			t.Fatal("teams split missing")
		}
		wantA := []string{"beau", "gage"}
		wantB := []string{"jon", "tyler"}
		if len(got.Teams.A) != 2 || got.Teams.A[0] != wantA[0] || got.Teams.A[1] != wantA[1] {
			t.Errorf("team A = %v, want %v", got.Teams.A, wantA)
		}
		if len(got.Teams.B) != 2 || got.Teams.B[0] != wantB[0] || got.Teams.B[1] != wantB[1] {
			t.Errorf("team B = %v, want %v", got.Teams.B, wantB)
		}
	})

	t.Run("gibberish is unknown", func(t *testing.T) {
		t.Parallel()
		got := in.Interpret("how about that weather", pickupRoster, ModeOnesTwos)
		if got.Type != CommandUnknown || got.Confidence != 0 {
			t.Fatalf("got %+v, want unknown at zero confidence", got)
		}
	})

	t.Run("empty transcript is unknown", func(t *testing.T) {
		t.Parallel()
		got := in.Interpret("   ", pickupRoster, ModeOnesTwos)
		if got.Type != CommandUnknown {
			t.Fatalf("type = %q, want unknown", got.Type)
		}
	})
}

func TestInterpretIsDeterministic(t *testing.T) {
	t.Parallel()
	in := New(WithMicWearer("Beau"))
	first := in.Interpret("Gage steals and assists to Jon downtown", pickupRoster, ModeOnesTwos)
	for range 10 {
		again := in.Interpret("Gage steals and assists to Jon downtown", pickupRoster, ModeOnesTwos)
		if again != first {
			t.Fatalf("interpretation drifted: %+v vs %+v", again, first)
		}
	}
}
