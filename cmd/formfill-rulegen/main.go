// Command formfill-rulegen is the batch extractor: it reads a document
// schema and a rule-schema catalog, classifies every field's business
// logic, and writes the schema back with its formFillRules populated.
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

	"github.com/a3tai/formfill-rulegen/internal/bud"
	"github.com/a3tai/formfill-rulegen/internal/catalog"
	"github.com/a3tai/formfill-rulegen/internal/config"
	"github.com/a3tai/formfill-rulegen/internal/crossref"
	"github.com/a3tai/formfill-rulegen/internal/extract"
	"github.com/a3tai/formfill-rulegen/internal/llm"
	"github.com/a3tai/formfill-rulegen/internal/registry"
	"github.com/a3tai/formfill-rulegen/internal/schema"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	ctx, cancel := signalContext()
	defer cancel()

	if err := run(ctx, cfg, sugar); err != nil {
		sugar.Errorw("extraction failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	logger.Infow("loading inputs", "schema", cfg.SchemaPath, "catalog", cfg.CatalogPath)

	doc, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.CatalogPath, logger)
	if err != nil {
		return err
	}
	logger.Infow("inputs loaded", "fields", len(doc.Fields()), "catalogEntries", cat.Len())

	reg := registry.New(doc.Fields(), logger)

	if cfg.IntraPanelPath != "" {
		refs, err := crossref.Load(cfg.IntraPanelPath)
		if err != nil {
			return err
		}
		touched := crossref.Enrich(refs, reg, logger)
		logger.Infow("intra-panel references applied",
			"references", len(refs.References), "fieldsTouched", touched)
	}

	var budInfo *extract.BUDInfo
	if cfg.BUDPath != "" {
		info, err := bud.Enrich(cfg.BUDPath, reg, logger)
		if err != nil {
			// The BUD is supplementary; a bad PDF must not block extraction.
			logger.Warnw("BUD enrichment skipped", "path", cfg.BUDPath, "error", err)
		} else {
			budInfo = &extract.BUDInfo{
				Path:           info.Path,
				PageCount:      info.PageCount,
				FieldsEnriched: info.FieldsEnriched,
			}
			logger.Infow("BUD processed",
				"pages", info.PageCount, "fieldsEnriched", info.FieldsEnriched)
		}
	}

	fallback, err := buildFallback(ctx, cfg, logger)
	if err != nil {
		return err
	}

	engine := extract.New(doc, cat, extract.Options{
		RuleIDBase:    cfg.RuleIDBase,
		MinConfidence: cfg.MinConfidence,
		Fallback:      fallback,
		Logger:        logger,
	})
	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	result.Report.SchemaPath = cfg.SchemaPath
	result.Report.BUD = budInfo

	if err := doc.Save(cfg.OutputPath); err != nil {
		return err
	}
	logger.Infow("populated schema written",
		"output", cfg.OutputPath, "rules", result.Report.RulesTotal)

	if cfg.ReportPath != "" {
		if err := result.Report.Save(cfg.ReportPath); err != nil {
			logger.Warnw("failed to write report", "path", cfg.ReportPath, "error", err)
		} else {
			logger.Infow("report written", "path", cfg.ReportPath)
		}
	}
	return nil
}

// buildFallback wires the Gemini classifier when requested. A missing API
// key is a configuration error, not a silent downgrade.
func buildFallback(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (llm.Classifier, error) {
	if !cfg.LLMFallback {
		return nil, nil
	}
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("llm-fallback enabled but GEMINI_API_KEY is not set")
	}
	fallback, err := llm.NewGeminiClassifier(ctx, apiKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fallback classifier: %w", err)
	}
	logger.Infow("fallback classifier enabled", "model", cfg.GeminiModel)
	return fallback, nil
}

// newLogger builds a console zap logger on stderr at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Formfill Rulegen\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
