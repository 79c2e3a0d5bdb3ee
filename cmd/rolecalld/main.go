// Command rolecalld serves the role-assignment websocket endpoint.
//
// Configuration comes from the environment:
//
//	ROLECALL_NATS_URL       NATS server URL (default nats://127.0.0.1:4222)
//	ROLECALL_LISTEN_ADDR    HTTP listen address (default :8080)
//	ROLECALL_OPENAI_API_KEY recommendation service API key (required)
//	ROLECALL_OPENAI_BASE_URL optional OpenAI-compatible endpoint override
//	ROLECALL_OPENAI_MODEL   chat model name (default gpt-4o-mini)
//	ROLECALL_SUBJECT_PREFIX broadcast subject prefix (default rolecall)
//	ROLECALL_LOG_LEVEL      debug, info, warn or error (default info)
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/nats-io/nats.go"

	"github.com/teamflow/rolecall"
	"github.com/teamflow/rolecall/internal/logging"
	"github.com/teamflow/rolecall/recommend"
	"github.com/teamflow/rolecall/store"
	"github.com/teamflow/rolecall/types"
)

type serverConfig struct {
	NATSURL       string        `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	ListenAddr    string        `env:"LISTEN_ADDR" envDefault:":8080"`
	OpenAIKey     string        `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	OpenAIModel   string        `env:"OPENAI_MODEL"`
	SubjectPrefix string        `env:"SUBJECT_PREFIX"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	Shutdown      time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	var cfg serverConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ROLECALL_"}); err != nil {
		slog.Error("failed to parse environment", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg serverConfig, logger *logging.SlogLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("rolecalld"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return err
	}
	defer nc.Close()

	stores, err := store.Bootstrap(ctx, nc, store.DefaultConfig())
	if err != nil {
		return err
	}

	rec, err := recommend.NewClient(recommend.Config{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	}, recommend.WithLogger(logger))
	if err != nil {
		return err
	}

	hubCfg := rolecall.DefaultConfig()
	hubCfg.SubjectPrefix = cfg.SubjectPrefix
	rolecall.SetDefaults(&hubCfg)

	coord, err := rolecall.NewCoordinator(&hubCfg, rolecall.Dependencies{
		Submissions: stores.Submissions,
		Membership:  stores.Sessions,
		State:       stores.Sessions,
		Assignments: stores.Assignments,
		Recommender: rec,
	}, rolecall.WithLogger(logger))
	if err != nil {
		return err
	}

	hub, err := rolecall.NewHub(&hubCfg, nc, coord, rolecall.WithLogger(logger))
	if err != nil {
		return err
	}
	defer hub.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws/roles", hub.WebsocketHandler(cookieAuthenticator{sessions: stores.Sessions}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !nc.IsConnected() {
			http.Error(w, "nats disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "nats", cfg.NATSURL)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// cookieAuthenticator resolves the member from the X-Participant-ID header by
// checking it against the session roster. Deployments put a real
// authenticating proxy in front; the header is trusted here.
type cookieAuthenticator struct {
	sessions *store.Sessions
}

func (a cookieAuthenticator) Authenticate(ctx context.Context, r *http.Request) (types.RosterMember, error) {
	participantID := r.Header.Get("X-Participant-ID")
	if participantID == "" {
		participantID = r.URL.Query().Get("participant")
	}
	if participantID == "" {
		return types.RosterMember{}, errors.New("missing participant identity")
	}

	sessionID := r.URL.Query().Get("session")
	roster, err := a.sessions.Roster(ctx, sessionID)
	if err != nil {
		return types.RosterMember{}, err
	}

	for _, member := range roster {
		if member.ID == participantID {
			return member, nil
		}
	}

	return types.RosterMember{}, types.ErrUnknownParticipant
}

func newLogger(level string) *logging.SlogLogger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})

	return logging.NewSlog(slog.New(handler))
}
