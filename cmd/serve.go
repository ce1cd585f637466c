package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexa0/lexa/internal/api"
	"github.com/lexa0/lexa/internal/chat"
	"github.com/lexa0/lexa/internal/config"
	"github.com/lexa0/lexa/internal/conversation"
	"github.com/lexa0/lexa/internal/database"
	"github.com/lexa0/lexa/internal/log"
	"github.com/lexa0/lexa/internal/provider"
	"github.com/lexa0/lexa/internal/retrieval"
	"github.com/lexa0/lexa/internal/task"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.Open(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer pool.Close()

	source := provider.NewClientSource(cfg.GeminiAPIKey, cfg.ClientTTL)

	gemini, err := provider.NewGemini(provider.GeminiConfig{
		Source:    source,
		ModelName: cfg.ModelName,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	embedder, err := provider.NewEmbedder(source, cfg.EmbedderModel)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	retriever, err := retrieval.NewRetriever(pool, embedder, logger, cfg.RetrievalTopK)
	if err != nil {
		return fmt.Errorf("creating retriever: %w", err)
	}

	executor, err := task.NewExecutor(pool, logger)
	if err != nil {
		return fmt.Errorf("creating task executor: %w", err)
	}

	turns := conversation.NewStore(pool, logger)

	orchestrator, err := chat.New(chat.Config{
		Provider: gemini,
		Executor: executor,
		Turns:    turns,
		Logger:   logger,
		MaxTurns: cfg.MaxTurns,
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	chatHandler, err := api.NewChat(api.ChatConfig{
		Converser: orchestrator,
		Retriever: retriever,
		Turns:     turns,
		ModelName: cfg.ModelName,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating chat handler: %w", err)
	}

	server, err := api.NewServer(api.Config{Chat: chatHandler, Logger: logger})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "model", cfg.ModelName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
