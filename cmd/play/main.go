package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sbstnppl/branch-engine/internal/config"
	"github.com/sbstnppl/branch-engine/internal/services"
	"github.com/sbstnppl/branch-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file (or nowhere).
	logger, closeLog := setupLogger(cfg)
	defer closeLog()

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, logger)
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	fmt.Println("Connecting to storage...")
	if err := store.WaitForConnection(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to Redis at %s: %v\nTry: docker-compose up -d\n", cfg.RedisURL, err)
		os.Exit(1)
	}

	oracle := newOracle(cfg, logger)
	fmt.Println("Preparing model...")
	if err := oracle.InitModel(ctx, cfg.ModelName); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize model %q: %v\n", cfg.ModelName, err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	p := tea.NewProgram(NewConsoleUI(cfg, store, oracle, rng, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithMouseAllMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func newOracle(cfg *config.Config, logger *slog.Logger) services.Oracle {
	switch cfg.OracleProvider {
	case "anthropic":
		return services.NewAnthropicOracle(cfg.AnthropicAPIKey, cfg.ModelName, cfg.BackendModelName, logger)
	case "mock":
		return services.NewMockOracle()
	default:
		return services.NewOllamaOracle(cfg.OllamaBaseURL, cfg.ModelName, cfg.BackendModelName, logger)
	}
}

// setupLogger writes logs to PLAY_LOG_FILE when set, otherwise discards
// them. Writing slog output to stdout would corrupt the alt-screen UI.
func setupLogger(cfg *config.Config) (*slog.Logger, func()) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	path := os.Getenv("PLAY_LOG_FILE")
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", path, err)
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}
	return slog.New(slog.NewTextHandler(f, opts)), func() { _ = f.Close() }
}
