package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to clear environment variables
func clearEnvVars() {
	os.Unsetenv("RULEGEN_SCHEMA")
	os.Unsetenv("RULEGEN_CATALOG")
	os.Unsetenv("RULEGEN_OUTPUT")
	os.Unsetenv("RULEGEN_MIN_CONFIDENCE")
	os.Unsetenv("RULEGEN_LLM_FALLBACK")
	os.Unsetenv("RULEGEN_LOGLEVEL")
	os.Unsetenv("RULEGEN_MODE")
}

func TestLoadFromFlags_RequiredPaths(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	schemaPath, catalogPath := writeTempInputs(t)

	os.Args = []string{"formfill-rulegen", "--schema=" + schemaPath, "--catalog=" + catalogPath}
	resetFlags()
	clearEnvVars()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.SchemaPath != schemaPath {
		t.Errorf("SchemaPath = %v, want %v", cfg.SchemaPath, schemaPath)
	}
	if cfg.CatalogPath != catalogPath {
		t.Errorf("CatalogPath = %v, want %v", cfg.CatalogPath, catalogPath)
	}
	if cfg.RuleIDBase != DefaultRuleIDBase {
		t.Errorf("RuleIDBase = %v, want %v", cfg.RuleIDBase, DefaultRuleIDBase)
	}
	if cfg.MinConfidence != DefaultMinConfidence {
		t.Errorf("MinConfidence = %v, want %v", cfg.MinConfidence, DefaultMinConfidence)
	}

	// Output derives from the schema path when not given.
	want := DerivedOutputPath(schemaPath)
	if cfg.OutputPath != want {
		t.Errorf("OutputPath = %v, want %v", cfg.OutputPath, want)
	}
}

func TestLoadFromFlags_MissingSchemaFails(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	os.Args = []string{"formfill-rulegen"}
	resetFlags()
	clearEnvVars()

	if _, err := LoadFromFlags(); err == nil {
		t.Error("Expected error when schema path is missing")
	}
}

func TestLoadFromFlags_EnvironmentOverride(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	schemaPath, catalogPath := writeTempInputs(t)

	os.Args = []string{"formfill-rulegen", "--schema=" + schemaPath, "--catalog=" + catalogPath}
	resetFlags()
	clearEnvVars()
	os.Setenv("RULEGEN_LOGLEVEL", "debug")
	os.Setenv("RULEGEN_MIN_CONFIDENCE", "0.7")

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug (from environment)", cfg.LogLevel)
	}
	if cfg.MinConfidence != 0.7 {
		t.Errorf("MinConfidence = %v, want 0.7 (from environment)", cfg.MinConfidence)
	}
}

func TestLoadFromFlags_VerboseForcesDebug(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	schemaPath, catalogPath := writeTempInputs(t)

	os.Args = []string{"formfill-rulegen", "--schema=" + schemaPath, "--catalog=" + catalogPath, "--verbose"}
	resetFlags()
	clearEnvVars()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug when --verbose is set", cfg.LogLevel)
	}
}
