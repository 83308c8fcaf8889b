package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sriram-PR/source-wizard/pkg/config"
	"github.com/Sriram-PR/source-wizard/pkg/mcp"
)

const mcpUsage = `mcp-server [options]

Start an MCP (Model Context Protocol) server that drives the wizard draft.

Examples:
  # Start with stdio transport
  source-wizard mcp-server -config config.yaml

  # Start with SSE transport on port 8080
  source-wizard mcp-server -config config.yaml -transport sse -port 8080`

// doMcpServer runs the MCP server until its transport ends or a signal arrives.
func doMcpServer(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("mcp-server", mcpUsage, stderr)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	transport := fs.String("transport", "", "Transport type (stdio, sse); overrides the config")
	port := fs.Int("port", 0, "HTTP port for sse; overrides the config")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error); overrides the config")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// MCP protocol uses stdout, logs go to stderr
	s, err := openSession(*configFile, *logLevel, "", stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer s.Close()
	log := s.log

	appCfg := s.app
	if *transport != "" {
		appCfg.MCP.Transport = *transport
	}
	if *port != 0 {
		appCfg.MCP.Port = *port
	}
	if appCfg.MCP.Transport != config.TransportStdio && appCfg.MCP.Transport != config.TransportSSE {
		fmt.Fprintf(stderr, "Error: unknown transport '%s' (supported: stdio, sse)\n", appCfg.MCP.Transport)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go s.store.RunGC(ctx, appCfg.GCInterval)

	server, err := mcp.NewServer(&mcp.ServerConfig{
		AppConfig: &appCfg,
		Wizard:    s.wizard,
		Logger:    log,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		log.WithError(serr).Warn("MCP server shutdown")
	}
	if err != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", err)
		return 1
	}
	return 0
}
