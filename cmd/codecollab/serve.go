package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codecollab/server/internal/ai"
	"github.com/codecollab/server/internal/auth"
	"github.com/codecollab/server/internal/config"
	"github.com/codecollab/server/internal/httpapi"
	"github.com/codecollab/server/internal/logging"
	"github.com/codecollab/server/internal/store"
	"github.com/codecollab/server/internal/ws"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (optional; environment variables take precedence)")
	return cmd
}

// userDirectory adapts the users repository to the session gate.
type userDirectory struct {
	users *store.Users
}

func (d userDirectory) UserByID(ctx context.Context, id string) (*auth.User, error) {
	user, err := d.users.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &auth.User{
		ID:       user.ID.Hex(),
		Username: user.Username,
		Email:    user.Email,
		Active:   user.IsActive,
	}, nil
}

// chatSink adapts the chats repository to the relay's persistence sink.
type chatSink struct {
	chats *store.Chats
}

func (s chatSink) SaveExchange(ctx context.Context, ex ws.Exchange) (string, error) {
	return s.chats.Insert(ctx, ex.UserID, ex.Prompt, ex.Response, string(ex.Mode), ex.CodeContext)
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return errors.New("auth secret is required (CODECOLLAB_AUTH_SECRET)")
	}

	log := logging.New(cfg.LogLevel)

	st, err := store.Connect(context.Background(), cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("error disconnecting from mongodb")
		}
	}()

	if err := st.EnsureIndexes(context.Background()); err != nil {
		return err
	}

	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL())
	gate := auth.NewGate(tokens, userDirectory{users: st.Users})
	engine := ai.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)

	hub := ws.NewHub(ws.Options{
		MaxMessageSize: cfg.WS.MaxMessageSize,
		SendBuffer:     cfg.WS.SendBuffer,
		CloseReplaced:  cfg.WS.CloseReplaced,
		RateLimit:      cfg.RateLimit.Requests,
		RateWindow:     cfg.RateLimit.Window(),
	}, engine, chatSink{chats: st.Chats}, log)

	api := httpapi.New(gate, tokens, st.Users, st.Snippets, st.Chats, engine, hub, cfg.Server.AllowedOrigins, log)
	server := httpapi.NewServer(cfg.Server.Addr, api.Router())

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpapi.Start(server, log)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	if err := httpapi.Shutdown(server, cfg.Server.ShutdownTimeout, log); err != nil {
		log.Error().Err(err).Msg("http shutdown incomplete")
	}
	if err := hub.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("hub shutdown incomplete")
	}

	return nil
}
