package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/poiesic/rostermatch"
	"github.com/poiesic/rostermatch/ai"
	"github.com/poiesic/rostermatch/ai/openai"
	"github.com/poiesic/rostermatch/api"
	"github.com/poiesic/rostermatch/core"
	"github.com/poiesic/rostermatch/retry"
	"github.com/poiesic/rostermatch/roster"
	"github.com/poiesic/rostermatch/storage"
	"github.com/poiesic/rostermatch/storage/badger"
	"github.com/poiesic/rostermatch/storage/file"
	"github.com/urfave/cli/v2"
)

const (
	backendFile   = "file"
	backendBadger = "badger"

	shutdownTimeout = 10 * time.Second
)

// newProvider builds the embedding provider. Tests replace it with a mock.
var newProvider = func(config *ai.Config, progress io.Writer) (ai.EmbeddingProvider, error) {
	return openai.NewProvider(config, openai.WithProgress(progress))
}

// openStore opens the cache backend named by backend under dir.
func openStore(backend, dir string) (storage.CacheStore, error) {
	switch backend {
	case backendFile:
		return file.NewCacheStore(dir)
	case backendBadger:
		return badger.NewCacheStore(filepath.Join(dir, "badger"))
	default:
		return nil, fmt.Errorf("unknown cache backend %q: must be one of %s, %s", backend, backendFile, backendBadger)
	}
}

// buildMatcher wires a Matcher from the global flags.
func buildMatcher(c *cli.Context) (*rostermatch.Matcher, error) {
	policy, err := roster.ParseDedupPolicy(c.String("dedup"))
	if err != nil {
		return nil, err
	}
	fingerprinter, err := roster.ParseFingerprinter(c.String("fingerprint"))
	if err != nil {
		return nil, err
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithBatchSize(c.Int("batch-size")),
		ai.WithConcurrency(c.Int("concurrency")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	store, err := openStore(c.String("cache-backend"), c.String("cache-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	provider, err := newProvider(aiConfig, c.App.ErrWriter)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	opts := []rostermatch.Option{
		rostermatch.WithDedupPolicy(policy),
		rostermatch.WithFingerprinter(fingerprinter),
		rostermatch.WithLogger(slog.Default()),
	}
	if c.Bool("distinct-blank-emails") {
		opts = append(opts, rostermatch.WithDistinctBlankEmails())
	}
	m, err := rostermatch.NewMatcher(c.String("roster"), provider, store, opts...)
	if err != nil {
		provider.Close()
		store.Close()
		return nil, err
	}
	return m, nil
}

// initWithRetry initializes m, retrying provider and storage failures.
// A malformed roster is not retried.
func initWithRetry(ctx context.Context, c *cli.Context, m *rostermatch.Matcher) error {
	return retry.WithBackoff(ctx, func(ctx context.Context) error {
		err := m.Init(ctx)
		if errors.Is(err, core.ErrStructuralInput) {
			return retry.Permanent(err)
		}
		return err
	}, c.Int("max-retries"), c.Duration("retry-delay"))
}

// formatMatch renders one result line.
func formatMatch(m core.Match) string {
	return fmt.Sprintf("%s %s @ %s – %s (score %.3f)", m.FirstName, m.LastName, m.Company, m.Title, m.Score)
}

func matchCommand(c *cli.Context) error {
	m, err := buildMatcher(c)
	if err != nil {
		return err
	}
	defer m.Close()

	matches, err := m.Match(c.Context, c.String("query"), c.Int("top-n"))
	if err != nil {
		return err
	}

	for _, match := range matches {
		fmt.Fprintln(c.App.Writer, formatMatch(match))
	}
	return nil
}

func warmCommand(c *cli.Context) error {
	m, err := buildMatcher(c)
	if err != nil {
		return err
	}
	defer m.Close()

	start := time.Now()
	if err := initWithRetry(c.Context, c, m); err != nil {
		return fmt.Errorf("failed to warm cache: %w", err)
	}

	stats := m.CacheStats()
	outcome := "miss"
	if stats.Hits > 0 {
		outcome = "hit"
	}
	fmt.Fprintf(c.App.Writer, "cache %s: %d records ready in %s\n",
		outcome, len(m.Dataset().Records), time.Since(start).Round(time.Millisecond))
	return nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := buildMatcher(c)
	if err != nil {
		return err
	}
	defer m.Close()

	listener, err := net.Listen("tcp", c.String("addr"))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	logger := slog.Default()
	server := &http.Server{
		Handler:           api.NewRouter(m, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", listener.Addr().String())
		serveErr <- server.Serve(listener)
	}()

	if err := initWithRetry(ctx, c, m); err != nil {
		shutdown(server)
		return fmt.Errorf("failed to initialize matcher: %w", err)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdown(server)
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("error shutting down server", "err", err)
	}
}
