package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Sriram-PR/source-wizard/pkg/curl"
	"github.com/Sriram-PR/source-wizard/pkg/jsonpath"
	"github.com/Sriram-PR/source-wizard/pkg/match"
	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/review"
	"github.com/Sriram-PR/source-wizard/pkg/schedule"
	"github.com/Sriram-PR/source-wizard/pkg/wizard"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// doMatch classifies URLs from the arguments or stdin (one per line).
func doMatch(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("match", "match [options] [url ...]", stderr)
	var include, exclude multiFlag
	fs.Var(&include, "include", "Include pattern (repeatable)")
	fs.Var(&exclude, "exclude", "Exclude pattern (repeatable)")
	dedupe := fs.Bool("dedupe", false, "Drop URLs that normalize to one already seen")
	keepQuery := fs.Bool("keep-query", false, "Keep query strings when deduplicating")
	asJSON := fs.Bool("json", false, "Print the classification as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	urls := fs.Args()
	if len(urls) == 0 {
		raw, err := argOrStdin(nil)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		urls = strings.Fields(raw)
	}
	if len(urls) == 0 {
		fmt.Fprintln(stderr, "Error: no URLs given")
		return 1
	}

	filters := match.Filters{IncludePatterns: include, ExcludePatterns: exclude}
	for _, w := range append(match.ValidatePatterns(include), match.ValidatePatterns(exclude)...) {
		fmt.Fprintf(stderr, "WARN: %s\n", w)
	}
	classified := match.Classify(urls, filters, match.Dedupe{Enabled: *dedupe, KeepQuery: *keepQuery})

	if *asJSON {
		if err := writeJSON(stdout, classified); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	for _, l := range classified.Links {
		fmt.Fprintf(stdout, "%-9s %s  (%s)\n", l.Type, l.URL, l.Reason)
	}
	fmt.Fprintf(stdout, "\n%d included, %d excluded, %d unmatched, %d duplicates\n",
		classified.Included, classified.Excluded, classified.Unmatched, classified.Duplicates)
	return 0
}

// doCron builds a cron expression from flags, or describes the one given as an argument.
func doCron(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("cron", "cron [options] [expression]", stderr)
	days := fs.String("days", "all", "Comma-separated day names (Mon..Sun) or 'all'")
	start := fs.Int("start", 0, "First hour of the window, 0-23")
	end := fs.Int("end", 23, "Last hour of the window, 0-23")
	freq := fs.Int("freq", int(schedule.Hourly), "Minutes between runs: 15, 30, 60 or 120")
	runs := fs.Int("next", 5, "Number of upcoming runs to list")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var expr string
	var state schedule.CronState
	if fs.NArg() > 0 {
		expr = strings.Join(fs.Args(), " ")
		if err := schedule.Validate(expr); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		state = schedule.ParseCron(expr)
	} else {
		selected, err := schedule.ParseDays(*days)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		f := schedule.Frequency(*freq)
		if !f.IsValid() {
			fmt.Fprintf(stderr, "Error: frequency %d is not one of 15, 30, 60, 120\n", *freq)
			return 1
		}
		state = schedule.DefaultCronState()
		state.Days = selected
		state = state.WithStartHour(*start).WithEndHour(*end).WithFreq(f)
		expr = schedule.BuildCron(state)
	}

	fmt.Fprintf(stdout, "Expression:  %s\n", expr)
	fmt.Fprintf(stdout, "Runs:        %s\n", schedule.Describe(state))

	now := time.Now()
	if perWeek, err := schedule.RunsPerWeek(expr, now); err == nil {
		fmt.Fprintf(stdout, "Per week:    %d\n", perWeek)
	}
	if *runs > 0 {
		next, err := schedule.NextRuns(expr, now, *runs)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "Next runs:")
		for _, t := range next {
			fmt.Fprintf(stdout, "  %s\n", t.Format("Mon 2006-01-02 15:04"))
		}
	}
	return 0
}

// doCurl parses a cURL command from the arguments or stdin.
func doCurl(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("curl", "curl 'curl https://...'", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw, err := argOrStdin(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	req := curl.Parse(raw)
	if req == nil {
		fmt.Fprintf(stderr, "Error: %v\n", wizard.ErrUnparsedCurl)
		return 1
	}
	if err := writeJSON(stdout, req); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// doJSONPath lists leaf paths, locates a value, or extracts a path from a JSON document.
func doJSONPath(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("jsonpath", "jsonpath -file doc.json [-path $.a.b | -value \"x\"]", stderr)
	file := fs.String("file", "-", "JSON document ('-' for stdin)")
	path := fs.String("path", "", "Extract the value at this path")
	value := fs.String("value", "", "Find the path of this value (JSON literal or bare text)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	data, err := readInput(*file)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	root, err := jsonpath.Decode(data)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	switch {
	case *path != "":
		if err := jsonpath.Validate(*path); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		v, found := jsonpath.Extract(root, *path)
		if !found {
			fmt.Fprintf(stderr, "No value at %s\n", *path)
			return 1
		}
		err = writeJSON(stdout, v)
	case *value != "":
		var target any
		if json.Unmarshal([]byte(*value), &target) != nil {
			target = *value
		}
		sel, ok := jsonpath.Select(root, target)
		if !ok {
			fmt.Fprintf(stderr, "Value %s not found in the document\n", *value)
			return 1
		}
		err = writeJSON(stdout, sel)
	default:
		for _, p := range jsonpath.Leaves(root) {
			fmt.Fprintln(stdout, p)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// doReview renders a source config file, or the stored draft when no file is given.
func doReview(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("review", "review [options]", stderr)
	flags := addSessionFlags(fs)
	file := fs.String("file", "", "Source config (YAML or JSON, '-' for stdin); the stored draft when empty")
	format := fs.String("format", "markdown", "Output: markdown, html, yaml or outline")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var cfg models.SourceConfig
	if *file != "" {
		data, err := readInput(*file)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if cfg, err = review.ImportYAML(data); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	} else {
		s, err := flags.open(stderr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		cfg, err = s.wizard.Config()
		s.Close()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	summary := review.Summary(cfg, time.Now())
	switch *format {
	case "markdown":
		fmt.Fprint(stdout, summary)
	case "html":
		out, err := review.HTML(summary)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprint(stdout, out)
	case "yaml":
		out, err := review.ExportYAML(cfg)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		_, _ = stdout.Write(out)
	case "outline":
		for _, line := range review.Outline([]byte(summary)) {
			fmt.Fprintln(stdout, line)
		}
	default:
		fmt.Fprintf(stderr, "Error: unknown format '%s' (use markdown, html, yaml, outline)\n", *format)
		return 2
	}
	return 0
}
