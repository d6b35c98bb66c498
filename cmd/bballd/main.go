// Command bballd runs the pickup-basketball scoreboard server: voice
// transcripts in, live scores and a durable game ledger out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/beaubromley/bball-stats-sub000/internal/config"
	"github.com/beaubromley/bball-stats-sub000/internal/ledger"
	"github.com/beaubromley/bball-stats-sub000/internal/observe"
	"github.com/beaubromley/bball-stats-sub000/internal/server"
	"github.com/beaubromley/bball-stats-sub000/internal/session"
	"github.com/beaubromley/bball-stats-sub000/internal/transcript"
	"github.com/beaubromley/bball-stats-sub000/internal/transcript/llmcorrect"
	"github.com/beaubromley/bball-stats-sub000/internal/transcript/phonetic"
	"github.com/beaubromley/bball-stats-sub000/internal/voicecmd"
	"github.com/beaubromley/bball-stats-sub000/pkg/stt"
	"github.com/beaubromley/bball-stats-sub000/pkg/stt/deepgram"
)

// version is stamped at build time via -ldflags.
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "bballd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "bballd: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("bballd starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"ledger", cfg.Ledger.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "bballd",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	store, readyCheck, closeStore, err := buildStore(ctx, cfg.Ledger)
	if err != nil {
		slog.Error("failed to open ledger", "err", err)
		return 1
	}
	if closeStore != nil {
		defer closeStore()
	}

	pipeline, err := buildPipeline(cfg.Corrector)
	if err != nil {
		slog.Error("failed to build correction pipeline", "err", err)
		return 1
	}

	sessOpts := []session.Option{
		session.WithPipeline(pipeline),
		session.WithInterpreter(voicecmd.New(voicecmd.WithMicWearer(cfg.Game.MicWearer))),
		session.WithLocation(cfg.Game.Location),
		session.WithPollInterval(cfg.Ledger.PollInterval),
		session.WithGameDefaults(cfg.Game.TargetScore, voicecmd.ScoringMode(cfg.Game.ScoringMode)),
	}
	if store != nil {
		sessOpts = append(sessOpts, session.WithStore(store))
	}
	sess := session.New(sessOpts...)

	speech, err := buildSpeech(cfg.Speech)
	if err != nil {
		slog.Error("failed to build speech provider", "err", err)
		return 1
	}

	srv, err := server.New(server.Config{
		Session:    sess,
		ReadyCheck: readyCheck,
		Speech:     speech,
		SpeechDefaults: stt.StreamConfig{
			SampleRate: cfg.Speech.SampleRate,
			Language:   cfg.Speech.Language,
		},
		KeywordBoost: cfg.Speech.KeywordBoost,
	})
	if err != nil {
		slog.Error("failed to build server", "err", err)
		return 1
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})
	g.Go(func() error {
		if err := sess.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildStore opens the configured ledger backend. The returned ready
// func probes it for /readyz; the close func releases it.
func buildStore(ctx context.Context, cfg config.LedgerConfig) (ledger.Store, func(context.Context) error, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		st := ledger.NewPostgresStore(pool)
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return st, pool.Ping, pool.Close, nil

	case config.DriverSQLite:
		st, err := ledger.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return st, st.Ping, func() { _ = st.Close() }, nil

	case config.DriverNone:
		return nil, nil, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}

// buildPipeline assembles the transcript-correction stages.
func buildPipeline(cfg config.CorrectorConfig) (*transcript.CorrectionPipeline, error) {
	opts := []transcript.PipelineOption{
		transcript.WithProtectedWords(voicecmd.ReservedWords()),
	}

	if cfg.Phonetic.Enabled {
		var popts []phonetic.Option
		if cfg.Phonetic.PhoneticThreshold > 0 {
			popts = append(popts, phonetic.WithPhoneticThreshold(cfg.Phonetic.PhoneticThreshold))
		}
		if cfg.Phonetic.FuzzyThreshold > 0 {
			popts = append(popts, phonetic.WithFuzzyThreshold(cfg.Phonetic.FuzzyThreshold))
		}
		opts = append(opts, transcript.WithPhoneticMatcher(phonetic.New(popts...)))
	}

	if cfg.LLM.Provider != "" {
		backend, err := llmcorrect.NewBackend(cfg.LLM.Provider)
		if err != nil {
			return nil, err
		}
		corrector := llmcorrect.New(backend, cfg.LLM.Model,
			llmcorrect.WithTemperature(cfg.LLM.Temperature))
		opts = append(opts,
			transcript.WithLLMCorrector(corrector),
			transcript.WithLLMOnLowConfidence(cfg.LLM.ConfidenceThreshold),
		)
	}

	return transcript.NewPipeline(opts...), nil
}

// buildSpeech constructs the optional streaming STT provider.
func buildSpeech(cfg config.SpeechConfig) (server.SpeechProvider, error) {
	if cfg.Provider == "" {
		return nil, nil
	}
	var opts []deepgram.Option
	if cfg.Model != "" {
		opts = append(opts, deepgram.WithModel(cfg.Model))
	}
	if cfg.Language != "" {
		opts = append(opts, deepgram.WithLanguage(cfg.Language))
	}
	if cfg.SampleRate > 0 {
		opts = append(opts, deepgram.WithSampleRate(cfg.SampleRate))
	}
	return deepgram.New(cfg.APIKey, opts...)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
