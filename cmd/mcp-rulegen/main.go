// Command mcp-rulegen serves the rule extraction pipeline over the Model
// Context Protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/a3tai/formfill-rulegen/internal/catalog"
	"github.com/a3tai/formfill-rulegen/internal/config"
	"github.com/a3tai/formfill-rulegen/internal/llm"
	"github.com/a3tai/formfill-rulegen/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger *zap.SugaredLogger) {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		logger.Infow("received signal, shutting down", "signal", sig.String())
		cancel()

		// Wait for server to shutdown
		if err := <-serverErrCh; err != nil {
			logger.Errorw("server shutdown with error", "error", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			logger.Errorw("server error", "error", err)
			os.Exit(1)
		}
	}

	logger.Infow("server stopped")
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server, logger *zap.SugaredLogger) {
	// In stdio mode, the parent process controls our lifecycle
	// We should exit cleanly when stdin is closed or we get an error
	if err := server.Run(ctx); err != nil {
		logger.Errorw("server error", "error", err)
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadServerFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}
	cfg.ServerName = "mcp-rulegen"

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The catalog is fixed for the lifetime of the server; schemas arrive
	// per tool call.
	cat, err := catalog.Load(cfg.CatalogPath, sugar)
	if err != nil {
		sugar.Errorw("failed to load rule catalog", "error", err)
		os.Exit(1)
	}

	var fallback llm.Classifier
	if cfg.LLMFallback {
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			sugar.Errorw("llm-fallback enabled but GEMINI_API_KEY is not set")
			os.Exit(1)
		}
		fallback, err = llm.NewGeminiClassifier(ctx, apiKey, cfg.GeminiModel)
		if err != nil {
			sugar.Errorw("failed to initialize fallback classifier", "error", err)
			os.Exit(1)
		}
	}

	server, err := mcp.NewServer(cfg, cat, fallback, sugar)
	if err != nil {
		sugar.Errorw("failed to create MCP server", "error", err)
		os.Exit(1)
	}

	// Handle different modes
	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server, sugar)
	} else {
		runStdioMode(ctx, cancel, server, sugar)
	}
}

// newLogger builds the process logger. In stdio mode everything goes to
// stderr to avoid interfering with the MCP protocol, and drops to
// error-only unless debug is enabled.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		lvl = zapcore.ErrorLevel
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Formfill Rulegen MCP Server\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
