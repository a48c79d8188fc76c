// Answerd is a question-answering daemon over multiple document
// collections.
//
// It routes each incoming task to the collections matching its domain,
// retrieves and ranks supporting passages, enforces a compliance
// guardrail on regulated content, and hands the merged context to a
// language-model backend.
//
// Usage:
//
//	# Start server with defaults
//	answerd
//
//	# Configure via file and environment
//	answerd -config /etc/answerd/config.yaml
//	ANSWERD_SERVER__PORT=9180 answerd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/embeddings"
	"github.com/fyrsmithlabs/answerd/internal/generation"
	"github.com/fyrsmithlabs/answerd/internal/http"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/responder"
	"github.com/fyrsmithlabs/answerd/internal/retrieval"
	"github.com/fyrsmithlabs/answerd/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("answerd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the answerd server and blocks until the context is
// cancelled. It wires configuration, logging, the embedding cache, the
// vector store provider, the retrieval engine and the HTTP surface, then
// performs graceful shutdown.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // best-effort on shutdown
	}()

	logger.Info("starting answerd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.Int("collections", len(cfg.Collections)),
	)

	cache, err := embeddings.NewCache(embeddings.CacheConfig{
		BaseURL:      cfg.Embeddings.BaseURL,
		DefaultModel: cfg.Embeddings.DefaultModel,
		Models:       cfg.Embeddings.Models,
		APIKey:       cfg.Embeddings.APIKey,
	}, logger.Named("embeddings"))
	if err != nil {
		return fmt.Errorf("creating embedding cache: %w", err)
	}

	provider, err := vectorstore.NewProvider(cfg, logger.Named("vectorstore"))
	if err != nil {
		return fmt.Errorf("creating vector store provider: %w", err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("closing vector store provider", zap.Error(err))
		}
	}()

	registry, err := retrieval.NewRegistry(cfg.Collections, cache, provider, logger.Named("registry"))
	if err != nil {
		return fmt.Errorf("creating collection registry: %w", err)
	}

	advisor := retrieval.NewAdvisor(cfg.Routing, cfg.Collections, logger.Named("routing"))
	aggregator := retrieval.NewAggregator(cfg.Retrieval.PerCollectionK, cfg.Retrieval.ContextLimit, logger.Named("aggregator"))
	guard := retrieval.NewGuard(cfg.Compliance, logger.Named("guard"))

	generator, err := generation.NewService(generation.Config{
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		APIKey:  cfg.Generation.APIKey,
		Prompts: cfg.Generation.Prompts,
	}, logger.Named("generation"))
	if err != nil {
		return fmt.Errorf("creating generation service: %w", err)
	}

	svc, err := responder.NewService(registry, advisor, aggregator, guard, generator, cfg.Collections, logger.Named("responder"))
	if err != nil {
		return fmt.Errorf("creating responder service: %w", err)
	}

	srv, err := http.NewServer(svc, logger.Named("http"), &http.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
