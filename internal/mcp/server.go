// Package mcp exposes the rule extraction pipeline as Model Context
// Protocol tools, so agent frontends can classify logic text and extract
// rules without shelling out to the batch binary.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/formfill-rulegen/internal/catalog"
	"github.com/a3tai/formfill-rulegen/internal/classify"
	"github.com/a3tai/formfill-rulegen/internal/config"
	"github.com/a3tai/formfill-rulegen/internal/extract"
	"github.com/a3tai/formfill-rulegen/internal/llm"
	"github.com/a3tai/formfill-rulegen/internal/schema"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	catalog    *catalog.Catalog
	classifier *classify.Classifier
	fallback   llm.Classifier
	logger     *zap.SugaredLogger
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, cat *catalog.Catalog, fallback llm.Classifier, logger *zap.SugaredLogger) (*Server, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		catalog:    cat,
		classifier: classify.NewClassifier(logger),
		fallback:   fallback,
		logger:     logger,
		mcpServer:  mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	rulesExtractTool := mcp.NewTool(
		"rules_extract",
		mcp.WithDescription("Extract form-fill rules from a document schema's field logic and write the populated schema"),
		mcp.WithString("schema_path",
			mcp.Required(),
			mcp.Description("Full path to the document schema JSON"),
		),
		mcp.WithString("output_path",
			mcp.Description("Output path for the populated schema (default: derived from schema_path)"),
		),
		mcp.WithString("report_path",
			mcp.Description("Optional path for the extraction report JSON"),
		),
	)
	s.mcpServer.AddTool(rulesExtractTool, s.handleRulesExtract)

	logicClassifyTool := mcp.NewTool(
		"logic_classify",
		mcp.WithDescription("Classify one field's business-logic text into rule categories without touching any schema"),
		mcp.WithString("logic",
			mcp.Required(),
			mcp.Description("The free-text business logic to classify"),
		),
		mcp.WithString("field_name",
			mcp.Description("Display name of the field carrying the logic"),
		),
		mcp.WithString("field_type",
			mcp.Description("Field type (TEXT, FILE, DROP_DOWN, ...)"),
		),
	)
	s.mcpServer.AddTool(logicClassifyTool, s.handleLogicClassify)

	catalogInfoTool := mcp.NewTool(
		"catalog_info",
		mcp.WithDescription("Inspect the loaded rule-schema catalog: archetypes, their source types, and destination layouts"),
		mcp.WithString("source_type",
			mcp.Description("Optional source type filter (e.g. PAN_NUMBER)"),
		),
		mcp.WithString("action_type",
			mcp.Description("Optional action type filter (e.g. VERIFY)"),
		),
	)
	s.mcpServer.AddTool(catalogInfoTool, s.handleCatalogInfo)
}

// Handler functions
func (s *Server) handleRulesExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schemaPath, err := request.RequireString("schema_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	outputPath := config.DerivedOutputPath(schemaPath)
	if p, ok := args["output_path"].(string); ok && p != "" {
		outputPath = p
	}
	reportPath := ""
	if p, ok := args["report_path"].(string); ok {
		reportPath = p
	}

	doc, err := schema.Load(schemaPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	engine := extract.New(doc, s.catalog, extract.Options{
		RuleIDBase:    s.config.RuleIDBase,
		MinConfidence: s.config.MinConfidence,
		Fallback:      s.fallback,
		Logger:        s.logger,
	})
	result, err := engine.Run(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := doc.Save(outputPath); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if reportPath != "" {
		if err := result.Report.Save(reportPath); err != nil {
			s.logger.Warnw("failed to write report", "path", reportPath, "error", err)
		}
	}

	return mcp.NewToolResultText(s.formatExtractResult(schemaPath, outputPath, result)), nil
}

func (s *Server) handleLogicClassify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logic, err := request.RequireString("logic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	field := &schema.FieldInfo{Logic: logic, FieldType: schema.FieldTypeText}
	if name, ok := args["field_name"].(string); ok {
		field.Name = name
	}
	if ft, ok := args["field_type"].(string); ok && ft != "" {
		field.FieldType = ft
	}

	parsed := s.classifier.Classify(field)

	if s.fallback != nil && !parsed.HasAnyMatch() && !parsed.ShouldSkip {
		sel, err := s.fallback.Classify(ctx, logic, llm.FieldContext{
			Name:      field.Name,
			FieldType: field.FieldType,
		})
		if err == nil && sel != nil {
			return mcp.NewToolResultText(fmt.Sprintf(
				"No deterministic match; fallback classifier suggests action %s (confidence %.2f): %s",
				sel.ActionType, sel.Confidence, sel.Reason)), nil
		}
	}

	raw, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (s *Server) handleCatalogInfo(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sourceType := ""
	if v, ok := args["source_type"].(string); ok {
		sourceType = v
	}
	actionType := ""
	if v, ok := args["action_type"].(string); ok {
		actionType = v
	}

	var matched []*catalog.Entry
	for _, e := range s.catalog.Entries() {
		if sourceType != "" && e.Source != sourceType {
			continue
		}
		if actionType != "" && e.Action != actionType {
			continue
		}
		matched = append(matched, e)
	}

	if len(matched) == 0 {
		return mcp.NewToolResultText("No catalog entries match the given filters"), nil
	}
	return mcp.NewToolResultText(s.formatCatalogEntries(matched)), nil
}

// Formatting methods
func (s *Server) formatExtractResult(schemaPath, outputPath string, result *extract.Result) string {
	rep := result.Report
	text := fmt.Sprintf("Extracted %d rule(s) from %s\n", rep.RulesTotal, schemaPath)
	text += fmt.Sprintf("Output written to: %s\n", outputPath)
	text += fmt.Sprintf("Fields scanned: %d\n", rep.FieldCount)
	text += fmt.Sprintf("Classified deterministically: %d, via fallback: %d\n",
		rep.ClassifiedBy.Deterministic, rep.ClassifiedBy.Fallback)

	if len(rep.RulesByAction) > 0 {
		text += "\nRules by action:\n"
		for _, action := range sortedActionKeys(rep.RulesByAction) {
			text += fmt.Sprintf("  %s: %d\n", action, rep.RulesByAction[action])
		}
	}
	if len(rep.Skips) > 0 {
		text += fmt.Sprintf("\nSkipped fields: %d (see report for reasons)\n", len(rep.Skips))
	}
	if len(rep.UnresolvedRefs) > 0 {
		text += fmt.Sprintf("Unresolved field references: %s\n", strings.Join(rep.UnresolvedRefs, ", "))
	}
	return text
}

func (s *Server) formatCatalogEntries(entries []*catalog.Entry) string {
	text := fmt.Sprintf("Found %d catalog entr%s:\n", len(entries), pluralY(len(entries)))
	for _, e := range entries {
		text += fmt.Sprintf("\n• [%d] %s\n", e.ID, e.Name)
		text += fmt.Sprintf("  Action: %s, Source: %s, Processing: %s\n", e.Action, e.Source, e.ProcessingType)
		if e.Button != "" {
			text += fmt.Sprintf("  Button: %s\n", e.Button)
		}
		if n := e.DestinationCount(); n > 0 {
			text += fmt.Sprintf("  Destinations (%d):\n", n)
			for _, f := range e.DestinationFields.Fields {
				text += fmt.Sprintf("    %d. %s\n", f.Ordinal, f.Name)
			}
		}
	}
	return text
}

func sortedActionKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		s.logger.Debugw("starting rulegen MCP server in stdio mode",
			"catalogEntries", s.catalog.Len())
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// The mark3labs transport only speaks stdio here; keep the flag for
	// forward compatibility and fall back.
	s.logger.Warnw("server mode not implemented, falling back to stdio")
	return s.runStdioMode(ctx)
}
