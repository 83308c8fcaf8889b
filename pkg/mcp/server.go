package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/source-wizard/pkg/config"
	"github.com/Sriram-PR/source-wizard/pkg/llm"
	"github.com/Sriram-PR/source-wizard/pkg/testrun"
	"github.com/Sriram-PR/source-wizard/pkg/wizard"
)

const (
	serverName    = "source-wizard"
	serverVersion = "0.4.0"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig *config.AppConfig
	Wizard    *wizard.Wizard
	Runner    *testrun.Runner // Built from AppConfig.TestRun when nil
	Logger    *logrus.Logger
}

// Server exposes the wizard and its helper tools over MCP
type Server struct {
	mcpServer *server.MCPServer
	cfg       *ServerConfig
	log       *logrus.Entry
	wizard    *wizard.Wizard
	runner    *testrun.Runner

	ctx    context.Context // Lives until Shutdown; bounds result tracking
	cancel context.CancelFunc
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Wizard == nil {
		return nil, fmt.Errorf("Wizard is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	log := cfg.Logger.WithField("component", "mcp")

	runner := cfg.Runner
	if runner == nil {
		tok, err := llm.NewTokenizer(cfg.AppConfig.LLM.Encoding)
		if err != nil {
			log.WithError(err).Warn("Tokenizer unavailable, token counts are estimates")
		}
		runner = testrun.NewRunner(cfg.AppConfig.TestRun, tok, log)
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		mcpServer: mcpServer,
		cfg:       cfg,
		log:       log,
		wizard:    cfg.Wizard,
		runner:    runner,
		ctx:       ctx,
		cancel:    cancel,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	tools := []struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}{
		{mcp.NewTool("wizard_status",
			mcp.WithDescription("Show the current wizard step, the state of every step and the current step's issues"),
		), s.handleWizardStatus},
		{mcp.NewTool("wizard_next",
			mcp.WithDescription("Complete the current step and advance. Fails with the blocking issues when the step is invalid."),
		), s.handleWizardNext},
		{mcp.NewTool("wizard_previous",
			mcp.WithDescription("Go back one step"),
		), s.handleWizardPrevious},
		{mcp.NewTool("wizard_jump",
			mcp.WithDescription("Jump to a step. Steps ahead of the current one need the step before them completed."),
			mcp.WithString("step", mcp.Description("Step ID, e.g. 'discovery_setup' or 'review'")),
			mcp.WithNumber("index", mcp.Description("Zero-based step index, used when step is empty")),
		), s.handleWizardJump},
		{mcp.NewTool("wizard_dispatch",
			mcp.WithDescription("Apply an edit action to the draft config"),
			mcp.WithString("action",
				mcp.Required(),
				mcp.Description(`Action envelope as JSON: {"type": "...", "payload": {...}}`),
			),
		), s.handleWizardDispatch},
		{mcp.NewTool("wizard_finish",
			mcp.WithDescription("Finish from the review step and return the final config as JSON, YAML and a markdown summary"),
		), s.handleWizardFinish},
		{mcp.NewTool("match_links",
			mcp.WithDescription("Classify URLs against include/exclude patterns (substring, glob, regex or /regex/)"),
			mcp.WithString("urls", mcp.Required(), mcp.Description("URLs, one per line")),
			mcp.WithString("include", mcp.Description("Include patterns, one per line")),
			mcp.WithString("exclude", mcp.Description("Exclude patterns, one per line")),
			mcp.WithBoolean("dedupe", mcp.Description("Drop URLs that normalize to one already seen")),
			mcp.WithBoolean("keep_query", mcp.Description("Keep query strings when deduplicating")),
		), s.handleMatchLinks},
		{mcp.NewTool("build_cron",
			mcp.WithDescription("Build a cron expression from days, an hour window and a frequency"),
			mcp.WithString("days", mcp.Description("Comma-separated day names (Mon..Sun) or 'all' (default: all)")),
			mcp.WithNumber("start_hour", mcp.Description("First hour of the window, 0-23")),
			mcp.WithNumber("end_hour", mcp.Description("Last hour of the window, 0-23")),
			mcp.WithNumber("frequency", mcp.Description("Minutes between runs: 15, 30, 60 or 120")),
		), s.handleBuildCron},
		{mcp.NewTool("parse_cron",
			mcp.WithDescription("Read a cron expression back into days, hours and frequency, with the next runs"),
			mcp.WithString("expression", mcp.Required(), mcp.Description("5-field cron expression")),
		), s.handleParseCron},
		{mcp.NewTool("parse_curl",
			mcp.WithDescription("Extract URL, method, headers, cookies and body from a cURL command"),
			mcp.WithString("command", mcp.Required(), mcp.Description("cURL command text")),
		), s.handleParseCurl},
		{mcp.NewTool("jsonpath_generate",
			mcp.WithDescription("Find the JSONPath of a value in a JSON document, or list every leaf path when no value is given"),
			mcp.WithString("json", mcp.Required(), mcp.Description("JSON document")),
			mcp.WithString("value", mcp.Description("Target value as a JSON literal, e.g. \"Berlin\" or 42")),
		), s.handleJSONPathGenerate},
		{mcp.NewTool("jsonpath_extract",
			mcp.WithDescription("Extract the value at a JSONPath from a JSON document"),
			mcp.WithString("json", mcp.Required(), mcp.Description("JSON document")),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path such as $.data.items[*].title")),
		), s.handleJSONPathExtract},
		{mcp.NewTool("compile_popups",
			mcp.WithDescription("Compile popup handling settings into interactions and custom JS"),
			mcp.WithString("state", mcp.Required(), mcp.Description("Popup handling state as JSON")),
		), s.handleCompilePopups},
		{mcp.NewTool("run_test",
			mcp.WithDescription("Start a simulated discovery or extraction test of the draft. Returns immediately with a job ID."),
			mcp.WithString("phase", mcp.Required(), mcp.Description("'discovery' or 'extraction'")),
		), s.handleRunTest},
		{mcp.NewTool("get_test_status",
			mcp.WithDescription("Get the status and result of a test job"),
			mcp.WithString("job_id", mcp.Required(), mcp.Description("The job ID returned by run_test")),
		), s.handleGetTestStatus},
		{mcp.NewTool("retry_test",
			mcp.WithDescription("Retry a failed or cancelled test job"),
			mcp.WithString("job_id", mcp.Required(), mcp.Description("The failed job's ID")),
		), s.handleRetryTest},
	}

	for _, t := range tools {
		s.mcpServer.AddTool(t.tool, t.handler)
	}
	s.log.Infof("Registered %d MCP tools", len(tools))
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.AppConfig.MCP.Transport {
	case config.TransportStdio:
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case config.TransportSSE:
		addr := fmt.Sprintf(":%d", s.cfg.AppConfig.MCP.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		sseServer := server.NewSSEServer(s.mcpServer)
		return sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.AppConfig.MCP.Transport)
	}
}

// Shutdown cancels running tests and stops result tracking
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.cancel()
	s.runner.Close()
	return nil
}
