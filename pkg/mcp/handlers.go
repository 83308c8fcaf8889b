package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Sriram-PR/source-wizard/pkg/curl"
	"github.com/Sriram-PR/source-wizard/pkg/interact"
	"github.com/Sriram-PR/source-wizard/pkg/jsonpath"
	"github.com/Sriram-PR/source-wizard/pkg/match"
	"github.com/Sriram-PR/source-wizard/pkg/review"
	"github.com/Sriram-PR/source-wizard/pkg/schedule"
	"github.com/Sriram-PR/source-wizard/pkg/testrun"
	"github.com/Sriram-PR/source-wizard/pkg/wizard"
)

// nextRuns is how many upcoming fire times the cron tools list.
const nextRuns = 5

// handleWizardStatus handles the wizard_status tool
func (s *Server) handleWizardStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.wizard.Status())), nil
}

// handleWizardNext handles the wizard_next tool
func (s *Server) handleWizardNext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.wizard.Next(); err != nil {
		return wizardError(err), nil
	}
	return mcp.NewToolResultText(formatJSON(s.wizard.Status())), nil
}

// handleWizardPrevious handles the wizard_previous tool
func (s *Server) handleWizardPrevious(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.wizard.Previous(); err != nil {
		return wizardError(err), nil
	}
	return mcp.NewToolResultText(formatJSON(s.wizard.Status())), nil
}

// handleWizardJump handles the wizard_jump tool
func (s *Server) handleWizardJump(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx := request.GetInt("index", -1)
	if step := request.GetString("step", ""); step != "" {
		i, ok := wizard.StepIndex(wizard.StepID(step))
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown step '%s'. Steps: %v", step, wizard.Steps())), nil
		}
		idx = i
	}
	if idx < 0 {
		return mcp.NewToolResultError("step or index parameter is required"), nil
	}
	if err := s.wizard.JumpTo(idx); err != nil {
		return wizardError(err), nil
	}
	return mcp.NewToolResultText(formatJSON(s.wizard.Status())), nil
}

// handleWizardDispatch handles the wizard_dispatch tool
func (s *Server) handleWizardDispatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("action", "")
	if raw == "" {
		return mcp.NewToolResultError("action parameter is required"), nil
	}
	action, err := wizard.DecodeAction([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v. Known action types: %v", err, wizard.ActionTypes())), nil
	}
	issues, err := s.wizard.Dispatch(action)
	if err != nil {
		return wizardError(err), nil
	}

	result := map[string]any{
		"applied": action.Type(),
		"step":    s.wizard.Current(),
		"issues":  issues,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleWizardFinish handles the wizard_finish tool
func (s *Server) handleWizardFinish(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := s.wizard.Finish()
	if err != nil {
		return wizardError(err), nil
	}
	out, err := review.ExportYAML(cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to export config: %v", err)), nil
	}

	result := map[string]any{
		"config":  cfg,
		"yaml":    string(out),
		"summary": review.Summary(cfg, time.Now()),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleMatchLinks handles the match_links tool
func (s *Server) handleMatchLinks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urls := splitLines(request.GetString("urls", ""))
	if len(urls) == 0 {
		return mcp.NewToolResultError("urls parameter is required"), nil
	}
	filters := match.Filters{
		IncludePatterns: splitLines(request.GetString("include", "")),
		ExcludePatterns: splitLines(request.GetString("exclude", "")),
	}
	dedupe := match.Dedupe{
		Enabled:   request.GetBool("dedupe", false),
		KeepQuery: request.GetBool("keep_query", false),
	}

	classified := match.Classify(urls, filters, dedupe)
	result := map[string]any{
		"links":      classified.Links,
		"included":   classified.Included,
		"excluded":   classified.Excluded,
		"unmatched":  classified.Unmatched,
		"duplicates": classified.Duplicates,
		"kept":       classified.Kept(filters),
	}
	warnings := append(match.ValidatePatterns(filters.IncludePatterns), match.ValidatePatterns(filters.ExcludePatterns)...)
	if len(warnings) > 0 {
		result["warnings"] = warnings
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleBuildCron handles the build_cron tool
func (s *Server) handleBuildCron(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := schedule.DefaultCronState()
	days, err := schedule.ParseDays(request.GetString("days", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state.Days = days
	state = state.
		WithStartHour(request.GetInt("start_hour", state.StartHour)).
		WithEndHour(request.GetInt("end_hour", state.EndHour))

	freq := schedule.Frequency(request.GetInt("frequency", int(state.Freq)))
	if !freq.IsValid() {
		return mcp.NewToolResultError(fmt.Sprintf("frequency %d is not one of 15, 30, 60, 120", freq)), nil
	}
	state = state.WithFreq(freq)

	return mcp.NewToolResultText(formatJSON(describeCron(schedule.BuildCron(state), state))), nil
}

// handleParseCron handles the parse_cron tool
func (s *Server) handleParseCron(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr := strings.TrimSpace(request.GetString("expression", ""))
	if expr == "" {
		return mcp.NewToolResultError("expression parameter is required"), nil
	}
	if err := schedule.Validate(expr); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatJSON(describeCron(expr, schedule.ParseCron(expr)))), nil
}

func describeCron(expr string, state schedule.CronState) map[string]any {
	result := map[string]any{
		"expression":  expr,
		"state":       state,
		"description": schedule.Describe(state),
	}
	now := time.Now()
	if runs, err := schedule.NextRuns(expr, now, nextRuns); err == nil {
		formatted := make([]string, 0, len(runs))
		for _, r := range runs {
			formatted = append(formatted, r.Format(time.RFC3339))
		}
		result["next_runs"] = formatted
	}
	if perWeek, err := schedule.RunsPerWeek(expr, now); err == nil {
		result["runs_per_week"] = perWeek
	}
	return result
}

// handleParseCurl handles the parse_curl tool
func (s *Server) handleParseCurl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := request.GetString("command", "")
	if command == "" {
		return mcp.NewToolResultError("command parameter is required"), nil
	}
	req := curl.Parse(command)
	if req == nil {
		return mcp.NewToolResultError(wizard.ErrUnparsedCurl.Error()), nil
	}
	return mcp.NewToolResultText(formatJSON(req)), nil
}

// handleJSONPathGenerate handles the jsonpath_generate tool
func (s *Server) handleJSONPathGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, errResult := decodeDocument(request)
	if errResult != nil {
		return errResult, nil
	}

	raw := strings.TrimSpace(request.GetString("value", ""))
	if raw == "" {
		return mcp.NewToolResultText(formatJSON(map[string]any{"paths": jsonpath.Leaves(root)})), nil
	}
	var target any
	if err := json.Unmarshal([]byte(raw), &target); err != nil {
		// Bare text is treated as a string value.
		target = raw
	}
	sel, ok := jsonpath.Select(root, target)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("value %s not found in the document", raw)), nil
	}
	return mcp.NewToolResultText(formatJSON(sel)), nil
}

// handleJSONPathExtract handles the jsonpath_extract tool
func (s *Server) handleJSONPathExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, errResult := decodeDocument(request)
	if errResult != nil {
		return errResult, nil
	}
	path := request.GetString("path", "")
	if err := jsonpath.Validate(path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, found := jsonpath.Extract(root, path)
	result := map[string]any{
		"path":  path,
		"found": found,
		"value": value,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

func decodeDocument(request mcp.CallToolRequest) (any, *mcp.CallToolResult) {
	doc := request.GetString("json", "")
	if doc == "" {
		return nil, mcp.NewToolResultError("json parameter is required")
	}
	root, err := jsonpath.Decode([]byte(doc))
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return root, nil
}

// handleCompilePopups handles the compile_popups tool
func (s *Server) handleCompilePopups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("state", "")
	if raw == "" {
		return mcp.NewToolResultError("state parameter is required"), nil
	}
	state := interact.DefaultPopupHandlingState()
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid popup handling state: %v", err)), nil
	}

	script := interact.Compile(state)
	result := map[string]any{
		"interactions": script.Interactions,
		"customJS":     script.CustomJS,
	}
	if warnings := interact.Warnings(state); len(warnings) > 0 {
		result["warnings"] = warnings
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleRunTest handles the run_test tool
func (s *Server) handleRunTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phase := wizard.Phase(request.GetString("phase", ""))
	if phase != wizard.PhaseDiscovery && phase != wizard.PhaseExtraction {
		return mcp.NewToolResultError("phase must be 'discovery' or 'extraction'"), nil
	}
	cfg, err := s.wizard.Config()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read draft: %v", err)), nil
	}
	job, err := s.runner.Start(cfg, phase)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to start test: %v", err)), nil
	}
	s.track(job)

	result := map[string]any{
		"status":    "started",
		"message":   "Test started, poll get_test_status for the result",
		"job_id":    job.ID,
		"phase":     job.Phase,
		"technique": job.Technique,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetTestStatus handles the get_test_status tool
func (s *Server) handleGetTestStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}
	job, err := s.runner.Status(jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}
	return mcp.NewToolResultText(formatJSON(jobResult(job))), nil
}

// handleRetryTest handles the retry_test tool
func (s *Server) handleRetryTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}
	job, err := s.runner.Retry(jobID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.track(job)
	return mcp.NewToolResultText(formatJSON(jobResult(job))), nil
}

// track caches a job's result on the draft once it finishes.
func (s *Server) track(job testrun.Job) {
	go func() {
		done, err := s.runner.Wait(s.ctx, job.ID)
		if err != nil {
			return
		}
		action, ok := testrun.ResultAction(done)
		if !ok {
			return
		}
		if _, err := s.wizard.Dispatch(action); err != nil {
			s.log.WithError(err).WithField("job_id", job.ID).Debug("Test result not cached on draft")
		}
	}()
}

func jobResult(job testrun.Job) map[string]any {
	result := map[string]any{
		"job_id":     job.ID,
		"phase":      job.Phase,
		"technique":  job.Technique,
		"status":     job.Status,
		"started_at": job.StartedAt.Format(time.RFC3339),
	}
	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}
	if job.Error != "" {
		result["error_message"] = job.Error
	}
	if job.RetryOf != "" {
		result["retry_of"] = job.RetryOf
	}
	if job.Result != nil {
		result["result"] = job.Result
	}
	return result
}

// wizardError renders a wizard failure, listing blocking issues for validation errors.
func wizardError(err error) *mcp.CallToolResult {
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		lines := make([]string, 0, len(verr.Issues)+1)
		lines = append(lines, fmt.Sprintf("step '%s' has blocking issues:", verr.Step))
		for _, is := range verr.Issues {
			lines = append(lines, "- "+is.String())
		}
		return mcp.NewToolResultError(strings.Join(lines, "\n"))
	}
	return mcp.NewToolResultError(err.Error())
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// formatJSON formats data as an indented JSON string
func formatJSON(data any) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
