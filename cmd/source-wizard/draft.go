package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/source-wizard/pkg/config"
	"github.com/Sriram-PR/source-wizard/pkg/llm"
	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/review"
	"github.com/Sriram-PR/source-wizard/pkg/storage"
	"github.com/Sriram-PR/source-wizard/pkg/testrun"
	"github.com/Sriram-PR/source-wizard/pkg/wizard"
)

// navigatorBase is the location the CLI mounts the wizard at; the step rides in its query.
const navigatorBase = "/sources/new"

// session is a mounted wizard over the configured draft store.
type session struct {
	app    config.AppConfig
	log    *logrus.Logger
	store  storage.Store
	wizard *wizard.Wizard
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.log.WithError(err).Warn("Failed to close draft store")
	}
}

// openStore returns the draft store named by the config.
func openStore(appCfg config.AppConfig, logger *logrus.Entry) (storage.Store, error) {
	if appCfg.Storage == config.StorageMemory {
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewBadgerStore(appCfg.StateDir, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openSession loads config, opens the store and mounts the wizard at step (empty = first step).
func openSession(configPath, level, step string, stderr io.Writer) (*session, error) {
	if step != "" {
		if _, ok := wizard.StepIndex(wizard.StepID(step)); !ok {
			return nil, fmt.Errorf("unknown step '%s' (steps: %v)", step, wizard.Steps())
		}
	}

	appCfg, logger, err := loadApp(configPath, level, stderr)
	if err != nil {
		return nil, err
	}
	store, err := openStore(appCfg, logger.WithField("component", "storage"))
	if err != nil {
		return nil, err
	}

	nav, err := wizard.NewURLNavigator(navigatorBase, appCfg.Wizard.StepParam)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if step != "" {
		nav.SetStep(wizard.StepID(step))
	}

	w := wizard.New(wizard.Options{
		Store:     store,
		DraftKey:  appCfg.DraftKey,
		Navigator: nav,
		Defaults:  appCfg.NewSourceConfig,
		Logger:    logger.WithField("component", "wizard"),
	})
	return &session{app: appCfg, log: logger, store: store, wizard: w}, nil
}

// sessionFlags are shared by every command that works on the stored draft.
type sessionFlags struct {
	config   *string
	logLevel *string
	step     *string
}

func addSessionFlags(fs *flag.FlagSet) sessionFlags {
	return sessionFlags{
		config:   fs.String("config", "config.yaml", "Path to config file"),
		logLevel: fs.String("loglevel", "warn", "Log level (debug, info, warn, error)"),
		step:     fs.String("step", "", "Wizard step to act from, e.g. 'basics' or 'review'"),
	}
}

func (f sessionFlags) open(stderr io.Writer) (*session, error) {
	return openSession(*f.config, *f.logLevel, *f.step, stderr)
}

// doDraft handles the draft subcommands.
func doDraft(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: source-wizard draft <show|list|test|next|finish|reset> [options]")
		return 2
	}
	sub, args := args[0], args[1:]

	fs := newFlagSet("draft "+sub, "draft "+sub+" [options]", stderr)
	flags := addSessionFlags(fs)
	format := fs.String("format", "summary", "Output for show: summary, status, json, yaml or html")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	switch sub {
	case "show", "list", "test", "next", "finish", "reset":
	default:
		fmt.Fprintf(stderr, "Unknown draft command: %s\n", sub)
		return 2
	}

	s, err := flags.open(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer s.Close()

	switch sub {
	case "show":
		err = showDraft(s, *format, stdout)
	case "list":
		err = listDrafts(s, stdout)
	case "test":
		err = testDraft(s, stdout)
	case "next":
		if err = s.wizard.Next(); err == nil {
			cur := s.wizard.Current()
			fmt.Fprintf(stdout, "Now at: %s (%s)\n", cur, cur.Title())
		}
	case "finish":
		err = finishDraft(s, stdout)
	case "reset":
		s.wizard.Reset()
		fmt.Fprintf(stdout, "Draft '%s' reset\n", s.app.DraftKey)
	}
	if err != nil {
		printWizardError(stderr, err)
		return 1
	}
	return 0
}

func showDraft(s *session, format string, stdout io.Writer) error {
	cfg, err := s.wizard.Config()
	if err != nil {
		return err
	}
	switch format {
	case "status":
		return writeJSON(stdout, s.wizard.Status())
	case "json":
		return writeJSON(stdout, cfg)
	case "yaml":
		out, err := review.ExportYAML(cfg)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	case "html":
		out, err := review.HTML(review.Summary(cfg, time.Now()))
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, out)
		return err
	case "summary":
		_, err := io.WriteString(stdout, review.Summary(cfg, time.Now()))
		return err
	}
	return fmt.Errorf("unknown format '%s' (use summary, status, json, yaml, html)", format)
}

func listDrafts(s *session, stdout io.Writer) error {
	drafts, err := s.store.List(context.Background())
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		fmt.Fprintln(stdout, "No stored drafts.")
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSAVED\tSIZE\tFINGERPRINT")
	for _, d := range drafts {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.Key, d.SavedAt.Local().Format(time.DateTime), d.Size, d.Fingerprint)
	}
	return tw.Flush()
}

// testDraft runs every enabled test phase and caches the results on the draft.
func testDraft(s *session, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	entry := s.log.WithField("component", "testrun")
	tok, err := llm.NewTokenizer(s.app.LLM.Encoding)
	if err != nil {
		entry.WithError(err).Warn("Tokenizer unavailable, token counts are estimates")
	}
	runner := testrun.NewRunner(s.app.TestRun, tok, entry)
	defer runner.Close()

	cfg, err := s.wizard.Config()
	if err != nil {
		return err
	}
	results, err := runner.RunAll(ctx, cfg)
	if err != nil {
		return err
	}
	for phase, res := range map[wizard.Phase]*models.TestResult{
		wizard.PhaseDiscovery:  results.Discovery,
		wizard.PhaseExtraction: results.Extraction,
	} {
		if res == nil {
			continue
		}
		if _, err := s.wizard.Dispatch(wizard.SetTestResult{Phase: phase, Result: res}); err != nil {
			return err
		}
	}

	printResult(stdout, "Discovery", results.Discovery)
	printResult(stdout, "Extraction", results.Extraction)
	return nil
}

func printResult(w io.Writer, label string, res *models.TestResult) {
	if res == nil {
		return
	}
	fmt.Fprintf(w, "%s (%s): %s\n", label, res.Technique, res.Status)
	if res.Summary != "" {
		fmt.Fprintf(w, "  %s\n", res.Summary)
	}
	if res.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", res.Error)
	}
	for _, u := range res.URLs {
		fmt.Fprintf(w, "  - %s\n", u)
	}
}

func finishDraft(s *session, stdout io.Writer) error {
	cfg, err := s.wizard.Finish()
	if err != nil {
		return err
	}
	out, err := review.ExportYAML(cfg)
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

// doDispatch applies one action envelope to the stored draft.
func doDispatch(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("dispatch", `dispatch [options] '{"type": "...", "payload": {...}}'`, stderr)
	flags := addSessionFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	raw, err := argOrStdin(fs.Args())
	if err != nil || raw == "" {
		fmt.Fprintln(stderr, "Error: an action envelope is required (argument or stdin)")
		return 1
	}
	action, err := wizard.DecodeAction([]byte(raw))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\nKnown action types: %v\n", err, wizard.ActionTypes())
		return 1
	}

	s, err := flags.open(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer s.Close()

	issues, err := s.wizard.Dispatch(action)
	if err != nil {
		printWizardError(stderr, err)
		return 1
	}
	if err := writeJSON(stdout, map[string]any{
		"applied": action.Type(),
		"step":    s.wizard.Current(),
		"issues":  issues,
	}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// printWizardError lists the blocking issues of a ValidationError, one per line.
func printWizardError(w io.Writer, err error) {
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(w, "Step '%s' has blocking issues:\n", verr.Step)
		for _, is := range verr.Issues {
			fmt.Fprintf(w, "  - %s\n", is)
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
