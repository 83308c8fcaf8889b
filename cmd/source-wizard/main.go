package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/source-wizard/pkg/config"
	wlog "github.com/Sriram-PR/source-wizard/pkg/log"
	"github.com/Sriram-PR/source-wizard/pkg/review"
	"github.com/Sriram-PR/source-wizard/pkg/wizard"
)

const version = "0.4.0"

// stdin is read by commands that accept "-" or piped input.
var stdin io.Reader = os.Stdin

func main() {
	if len(os.Args) < 2 {
		printUsageTo(os.Stderr)
		os.Exit(1)
	}

	args := os.Args[2:]
	var code int
	switch os.Args[1] {
	case "validate":
		code = doValidate(args, os.Stdout, os.Stderr)
	case "draft":
		code = doDraft(args, os.Stdout, os.Stderr)
	case "dispatch":
		code = doDispatch(args, os.Stdout, os.Stderr)
	case "match":
		code = doMatch(args, os.Stdout, os.Stderr)
	case "cron":
		code = doCron(args, os.Stdout, os.Stderr)
	case "curl":
		code = doCurl(args, os.Stdout, os.Stderr)
	case "jsonpath":
		code = doJSONPath(args, os.Stdout, os.Stderr)
	case "review":
		code = doReview(args, os.Stdout, os.Stderr)
	case "mcp-server":
		code = doMcpServer(args, os.Stdout, os.Stderr)
	case "version":
		fmt.Printf("source-wizard %s\n", version)
	case "-h", "--help", "help":
		printUsageTo(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsageTo(os.Stderr)
		code = 1
	}
	os.Exit(code)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `source-wizard - Build and test job source configurations

Usage:
  source-wizard <command> [options]

Commands:
  validate    Validate the app config, or a source config with -source
  draft       Show, list, test, advance, finish or reset the stored draft
  dispatch    Apply an edit action to the draft
  match       Classify URLs against include/exclude patterns
  cron        Build, parse and preview discovery schedules
  curl        Parse a cURL command into an API request
  jsonpath    Generate or evaluate JSONPaths against a JSON document
  review      Render a source config as markdown, HTML, YAML or an outline
  mcp-server  Start MCP server for AI tool integration
  version     Show version info

Run 'source-wizard <command> -h' for command-specific help.`)
}

// newFlagSet returns a FlagSet that reports errors instead of exiting.
func newFlagSet(name, usage string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: source-wizard %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// loadApp loads the config and builds a logger writing to stderr.
// An empty level falls back to the config's log_level.
func loadApp(configPath, level string, stderr io.Writer) (config.AppConfig, *logrus.Logger, error) {
	appCfg, warnings, err := config.Load(configPath)
	if err != nil {
		return appCfg, nil, err
	}
	if level == "" {
		level = appCfg.LogLevel
	}
	logger, ok := wlog.NewLogger(level, stderr)
	if !ok {
		logger.Warnf("Invalid log level '%s', using 'info'", level)
	}
	for _, w := range warnings {
		logger.Warn(w)
	}
	return appCfg, logger, nil
}

// doValidate checks the app config and, with -source, a source config file.
// Returns exit code (0 = success, 1 = error).
func doValidate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("validate", "validate [options]", stderr)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	sourceFile := fs.String("source", "", "Source config (YAML or JSON) to validate step by step")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	appCfg, warnings, err := config.Load(*configFile)
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "OK: app config (storage %s, transport %s)\n", appCfg.Storage, appCfg.MCP.Transport)

	if *sourceFile == "" {
		fmt.Fprintln(stdout, "\nConfiguration valid.")
		return 0
	}

	data, err := readInput(*sourceFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	cfg, err := review.ImportYAML(data)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	hasError := false
	for _, step := range wizard.Steps() {
		issues := wizard.Validate(step, cfg)
		for _, is := range issues {
			if is.Severity == wizard.SeverityError {
				fmt.Fprintf(stderr, "ERROR: [%s] %s\n", step, is)
				hasError = true
			} else {
				fmt.Fprintf(stdout, "WARN: [%s] %s\n", step, is)
			}
		}
		if len(wizard.Blocking(issues)) == 0 {
			fmt.Fprintf(stdout, "OK: [%s]\n", step)
		}
	}
	if hasError {
		return 1
	}
	fmt.Fprintln(stdout, "\nSource configuration valid.")
	return 0
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// argOrStdin joins the positional args, or reads stdin when there are none or the only one is "-".
func argOrStdin(args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
