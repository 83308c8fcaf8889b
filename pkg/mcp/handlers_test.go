package mcp

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/source-wizard/pkg/config"
	"github.com/Sriram-PR/source-wizard/pkg/log"
	"github.com/Sriram-PR/source-wizard/pkg/storage"
	"github.com/Sriram-PR/source-wizard/pkg/testrun"
	"github.com/Sriram-PR/source-wizard/pkg/wizard"
)

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	appCfg := config.Default()
	appCfg.TestRun.Delay = time.Millisecond

	logger, _ := log.NewLogger("error", io.Discard)

	s, err := NewServer(&ServerConfig{
		AppConfig: &appCfg,
		Wizard:    wizard.New(wizard.Options{Store: storage.NewMemoryStore(), Logger: log.Discard()}),
		Runner:    testrun.NewRunner(appCfg.TestRun, nil, log.Discard()),
		Logger:    logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func call(t *testing.T, h handler, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func decode(t *testing.T, text string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out), text)
	return out
}

func TestNewServer_RequiresWizard(t *testing.T) {
	appCfg := config.Default()
	_, err := NewServer(&ServerConfig{AppConfig: &appCfg, Logger: logrus.New()})
	assert.Error(t, err)
	_, err = NewServer(&ServerConfig{})
	assert.Error(t, err)
}

func TestWizardTools(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s.handleWizardStatus, nil)
	require.False(t, isErr)
	assert.Equal(t, "basics", decode(t, text)["current"])

	text, isErr = call(t, s.handleWizardNext, nil)
	assert.True(t, isErr, "empty basics must block")
	assert.Contains(t, text, "blocking issues")
	assert.Contains(t, text, "name")

	text, isErr = call(t, s.handleWizardJump, map[string]any{"step": "review"})
	assert.True(t, isErr)
	assert.Contains(t, text, "locked")

	text, isErr = call(t, s.handleWizardDispatch, map[string]any{
		"action": `{"type":"set_basics","payload":{"name":"Acme Careers","siteUrl":"https://acme.example"}}`,
	})
	require.False(t, isErr, text)
	out := decode(t, text)
	assert.Equal(t, "set_basics", out["applied"])
	assert.Equal(t, "basics", out["step"])

	text, isErr = call(t, s.handleWizardNext, nil)
	require.False(t, isErr, text)
	assert.Equal(t, "discovery_setup", decode(t, text)["current"])

	text, isErr = call(t, s.handleWizardJump, map[string]any{"index": 0})
	require.False(t, isErr, text)
	assert.Equal(t, "basics", decode(t, text)["current"])

	_, isErr = call(t, s.handleWizardJump, map[string]any{"step": "nowhere"})
	assert.True(t, isErr)
	_, isErr = call(t, s.handleWizardJump, nil)
	assert.True(t, isErr)

	text, isErr = call(t, s.handleWizardPrevious, nil)
	require.False(t, isErr)
	assert.Equal(t, "basics", decode(t, text)["current"])

	text, isErr = call(t, s.handleWizardFinish, nil)
	assert.True(t, isErr)
	assert.Contains(t, text, "review")
}

func TestWizardDispatch_BadAction(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleWizardDispatch, map[string]any{"action": `{"type":"launch_rocket"}`})
	assert.True(t, isErr)
	assert.Contains(t, text, "set_basics", "known types are listed")

	_, isErr = call(t, s.handleWizardDispatch, map[string]any{})
	assert.True(t, isErr)
}

func TestMatchLinks(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleMatchLinks, map[string]any{
		"urls":    "https://acme.example/jobs/1\nhttps://acme.example/jobs/1/\nhttps://acme.example/about\n",
		"include": "/jobs/*",
		"exclude": "about",
		"dedupe":  true,
	})
	require.False(t, isErr, text)
	out := decode(t, text)
	assert.Equal(t, float64(1), out["included"])
	assert.Equal(t, float64(1), out["excluded"])
	assert.Equal(t, float64(1), out["duplicates"])
	assert.Equal(t, []any{"https://acme.example/jobs/1"}, out["kept"])

	_, isErr = call(t, s.handleMatchLinks, map[string]any{"urls": " \n "})
	assert.True(t, isErr)
}

func TestCronTools(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s.handleBuildCron, map[string]any{
		"days": "Mon, tue,WEDNESDAY", "start_hour": 9, "end_hour": 17, "frequency": 30,
	})
	require.False(t, isErr, text)
	out := decode(t, text)
	expr, _ := out["expression"].(string)
	require.NotEmpty(t, expr)
	assert.Len(t, out["next_runs"], nextRuns)

	text, isErr = call(t, s.handleParseCron, map[string]any{"expression": expr})
	require.False(t, isErr, text)
	state := decode(t, text)["state"].(map[string]any)
	assert.Equal(t, []any{true, true, true, false, false, false, false}, state["days"])
	assert.Equal(t, float64(9), state["startHour"])
	assert.Equal(t, float64(17), state["endHour"])
	assert.Equal(t, float64(30), state["freq"])

	_, isErr = call(t, s.handleBuildCron, map[string]any{"days": "Funday"})
	assert.True(t, isErr)
	_, isErr = call(t, s.handleBuildCron, map[string]any{"frequency": 7})
	assert.True(t, isErr)
	_, isErr = call(t, s.handleParseCron, map[string]any{"expression": "not cron"})
	assert.True(t, isErr)
}

func TestParseCurl(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleParseCurl, map[string]any{
		"command": `curl -X POST 'https://api.acme.example/jobs' -H 'Accept: application/json' --data '{"page":1}'`,
	})
	require.False(t, isErr, text)
	out := decode(t, text)
	assert.Equal(t, "https://api.acme.example/jobs", out["url"])
	assert.Equal(t, "POST", out["method"])
	assert.Equal(t, `{"page":1}`, out["body"])

	_, isErr = call(t, s.handleParseCurl, map[string]any{"command": "curl --silent"})
	assert.True(t, isErr)
}

const apiDoc = `{"data":{"items":[{"title":"Senior Go Engineer","location":{"city":"Berlin"}},{"title":"Designer","location":{"city":"Lisbon"}}]}}`

func TestJSONPathTools(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s.handleJSONPathGenerate, map[string]any{"json": apiDoc, "value": `"Berlin"`})
	require.False(t, isErr, text)
	assert.Equal(t, "$.data.items[*].location.city", decode(t, text)["path"])

	text, isErr = call(t, s.handleJSONPathGenerate, map[string]any{"json": apiDoc})
	require.False(t, isErr, text)
	assert.Contains(t, decode(t, text)["paths"], "$.data.items[*].title")

	_, isErr = call(t, s.handleJSONPathGenerate, map[string]any{"json": apiDoc, "value": "Tokyo"})
	assert.True(t, isErr)

	text, isErr = call(t, s.handleJSONPathExtract, map[string]any{"json": apiDoc, "path": "$.data.items[1].title"})
	require.False(t, isErr, text)
	out := decode(t, text)
	assert.Equal(t, true, out["found"])
	assert.Equal(t, "Designer", out["value"])

	_, isErr = call(t, s.handleJSONPathExtract, map[string]any{"json": "{broken", "path": "$.a"})
	assert.True(t, isErr)
}

func TestCompilePopups(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleCompilePopups, map[string]any{
		"state": `{"enabled":true,"cookies":{"selectors":["#accept"],"waitMs":500,"attempts":1}}`,
	})
	require.False(t, isErr, text)
	out := decode(t, text)
	assert.NotEmpty(t, out["interactions"])

	_, isErr = call(t, s.handleCompilePopups, map[string]any{"state": "nope"})
	assert.True(t, isErr)
}

func TestTestTools(t *testing.T) {
	s := newTestServer(t)
	_, err := s.wizard.Dispatch(wizard.SetBasics{Name: "Acme", SiteURL: "https://acme.example"})
	require.NoError(t, err)

	_, isErr := call(t, s.handleRunTest, map[string]any{"phase": "publish"})
	assert.True(t, isErr)

	text, isErr := call(t, s.handleRunTest, map[string]any{"phase": "extraction"})
	require.False(t, isErr, text)
	jobID, _ := decode(t, text)["job_id"].(string)
	require.NotEmpty(t, jobID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = s.runner.Wait(ctx, jobID)
	require.NoError(t, err)

	text, isErr = call(t, s.handleGetTestStatus, map[string]any{"job_id": jobID})
	require.False(t, isErr, text)
	assert.Equal(t, "completed", decode(t, text)["status"])

	assert.Eventually(t, func() bool {
		cfg, err := s.wizard.Config()
		if err != nil {
			return false
		}
		tr := cfg.TestResults
		return tr != nil && tr.Extraction != nil && tr.Extraction.JobID == jobID
	}, 2*time.Second, 10*time.Millisecond, "result should be cached on the draft")

	text, isErr = call(t, s.handleRetryTest, map[string]any{"job_id": jobID})
	assert.True(t, isErr, "completed jobs are not retried")
	assert.Contains(t, text, "retried")

	_, isErr = call(t, s.handleGetTestStatus, map[string]any{"job_id": "missing"})
	assert.True(t, isErr)
}
