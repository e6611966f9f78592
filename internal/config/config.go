package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultRuleIDBase    = 9000
	DefaultMinConfidence = 0.5
)

// Config holds all configuration for the rule extraction tools
type Config struct {
	// Input/output paths
	SchemaPath     string
	CatalogPath    string
	IntraPanelPath string
	BUDPath        string
	OutputPath     string
	ReportPath     string

	// Extraction tuning
	RuleIDBase    int
	MinConfidence float64
	LLMFallback   bool
	GeminiModel   string

	// Server configuration (MCP binary only)
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
	Verbose    bool
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		RuleIDBase:    DefaultRuleIDBase,
		MinConfidence: DefaultMinConfidence,
		Mode:          ModeStdio, // Default to stdio mode for MCP compatibility
		Host:          DefaultHost,
		Port:          DefaultPort,
		Version:       "1.0.0",
		ServerName:    "formfill-rulegen",
		LogLevel:      DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags for the batch extractor and
// returns a validated configuration.
func LoadFromFlags() (*Config, error) {
	cfg, err := parseFlags()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadServerFromFlags parses command line flags for the MCP server binary.
// The schema arrives per tool call, so only the catalog is required up front.
func LoadServerFromFlags() (*Config, error) {
	cfg, err := parseFlags()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateServer(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.SchemaPath != "" {
		if expandedPath, err := filepath.Abs(cfg.SchemaPath); err == nil {
			cfg.SchemaPath = expandedPath
		}
	}
	if cfg.OutputPath == "" && cfg.SchemaPath != "" {
		cfg.OutputPath = DerivedOutputPath(cfg.SchemaPath)
	}
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

// DerivedOutputPath places the populated schema next to the input with a
// conventional suffix.
func DerivedOutputPath(schemaPath string) string {
	ext := filepath.Ext(schemaPath)
	return strings.TrimSuffix(schemaPath, ext) + "_with_rules" + ext
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("RULEGEN")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Define flags with Viper
	viper.SetDefault("schema", cfg.SchemaPath)
	viper.SetDefault("catalog", cfg.CatalogPath)
	viper.SetDefault("intra-panel", cfg.IntraPanelPath)
	viper.SetDefault("bud", cfg.BUDPath)
	viper.SetDefault("output", cfg.OutputPath)
	viper.SetDefault("report", cfg.ReportPath)
	viper.SetDefault("rule-id-base", cfg.RuleIDBase)
	viper.SetDefault("min-confidence", cfg.MinConfidence)
	viper.SetDefault("llm-fallback", cfg.LLMFallback)
	viper.SetDefault("gemini-model", cfg.GeminiModel)
	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("verbose", cfg.Verbose)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("schema", cfg.SchemaPath, "Path to the target document schema JSON")
	pflag.String("catalog", cfg.CatalogPath, "Path to the rule-schema catalog JSON")
	pflag.String("intra-panel", cfg.IntraPanelPath, "Optional intra-panel references JSON")
	pflag.String("bud", cfg.BUDPath, "Optional BUD PDF used to enrich field logic")
	pflag.String("output", cfg.OutputPath, "Output path (default: schema path with _with_rules suffix)")
	pflag.String("report", cfg.ReportPath, "Optional extraction report path")
	pflag.Int("rule-id-base", cfg.RuleIDBase, "Base id for generated rules")
	pflag.Float64("min-confidence", cfg.MinConfidence, "Classification confidence threshold")
	pflag.Bool("llm-fallback", cfg.LLMFallback, "Route low-confidence fields to the Gemini fallback classifier")
	pflag.String("gemini-model", cfg.GeminiModel, "Gemini model for the fallback classifier")
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Bool("verbose", cfg.Verbose, "Enable verbose output (same as --loglevel=debug)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"schema", "catalog", "intra-panel", "bud", "output", "report",
		"rule-id-base", "min-confidence", "llm-fallback", "gemini-model",
		"mode", "host", "port", "loglevel", "verbose",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nFormfill Rulegen - extracts form-fill rules from field business logic\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --schema=template.json --catalog=rule_schema.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --schema=template.json --catalog=rule_schema.json --bud=bud.pdf --report=report.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  RULEGEN_SCHEMA          Target schema path\n")
		fmt.Fprintf(os.Stderr, "  RULEGEN_CATALOG         Rule-schema catalog path\n")
		fmt.Fprintf(os.Stderr, "  RULEGEN_OUTPUT          Output path\n")
		fmt.Fprintf(os.Stderr, "  RULEGEN_MIN_CONFIDENCE  Classification confidence threshold\n")
		fmt.Fprintf(os.Stderr, "  RULEGEN_LLM_FALLBACK    Enable the Gemini fallback classifier\n")
		fmt.Fprintf(os.Stderr, "  RULEGEN_LOGLEVEL        Log level\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.SchemaPath = viper.GetString("schema")
	cfg.CatalogPath = viper.GetString("catalog")
	cfg.IntraPanelPath = viper.GetString("intra-panel")
	cfg.BUDPath = viper.GetString("bud")
	cfg.OutputPath = viper.GetString("output")
	cfg.ReportPath = viper.GetString("report")
	cfg.RuleIDBase = viper.GetInt("rule-id-base")
	cfg.MinConfidence = viper.GetFloat64("min-confidence")
	cfg.LLMFallback = viper.GetBool("llm-fallback")
	cfg.GeminiModel = viper.GetString("gemini-model")
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.Verbose = viper.GetBool("verbose")
}

// Validate checks if the configuration is valid for a batch run
func (c *Config) Validate() error {
	// Validate required inputs
	if c.SchemaPath == "" {
		return errors.New("schema path is required (--schema)")
	}
	if _, err := os.Stat(c.SchemaPath); err != nil {
		return fmt.Errorf("cannot access schema file %s: %w", c.SchemaPath, err)
	}
	return c.validateCommon()
}

// ValidateServer checks if the configuration is valid for the MCP server,
// where the schema path is optional
func (c *Config) ValidateServer() error {
	if c.SchemaPath != "" {
		if _, err := os.Stat(c.SchemaPath); err != nil {
			return fmt.Errorf("cannot access schema file %s: %w", c.SchemaPath, err)
		}
	}
	return c.validateCommon()
}

func (c *Config) validateCommon() error {
	if c.CatalogPath == "" {
		return errors.New("catalog path is required (--catalog)")
	}
	if _, err := os.Stat(c.CatalogPath); err != nil {
		return fmt.Errorf("cannot access catalog file %s: %w", c.CatalogPath, err)
	}
	if c.IntraPanelPath != "" {
		if _, err := os.Stat(c.IntraPanelPath); err != nil {
			return fmt.Errorf("cannot access intra-panel references file %s: %w", c.IntraPanelPath, err)
		}
	}
	if c.BUDPath != "" {
		if _, err := os.Stat(c.BUDPath); err != nil {
			return fmt.Errorf("cannot access BUD file %s: %w", c.BUDPath, err)
		}
	}

	// Validate extraction tuning
	if c.RuleIDBase < 1 {
		return errors.New("rule-id-base must be positive")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.New("min-confidence must be between 0.0 and 1.0")
	}

	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Schema: %s, Catalog: %s, Output: %s, RuleIDBase: %d, MinConfidence: %.2f, LogLevel: %s}",
		c.SchemaPath, c.CatalogPath, c.OutputPath, c.RuleIDBase, c.MinConfidence, c.LogLevel)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
