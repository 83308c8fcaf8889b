package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a config whose drafts live in a fresh badger directory.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := "state_dir: " + filepath.Join(dir, "state") + `
storage: badger
draft_key: cli-test
log_level: error
test_run:
  delay: 1ms
` + extra
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func withStdin(t *testing.T, input string) {
	t.Helper()
	old := stdin
	stdin = strings.NewReader(input)
	t.Cleanup(func() { stdin = old })
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsageTo(&buf)
	for _, c := range []string{"validate", "draft", "dispatch", "match", "cron", "curl", "jsonpath", "review", "mcp-server"} {
		assert.Contains(t, buf.String(), c)
	}
}

func TestDoValidate(t *testing.T) {
	t.Run("app config", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := doValidate([]string{"-config", writeConfig(t, "")}, &stdout, &stderr)
		assert.Equal(t, 0, code, stderr.String())
		assert.Contains(t, stdout.String(), "OK: app config (storage badger, transport stdio)")
		assert.Contains(t, stdout.String(), "Configuration valid")
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := doValidate([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, &stdout, &stderr)
		assert.Equal(t, 0, code)
		assert.Contains(t, stdout.String(), "WARN: config file")
	})

	t.Run("bad technique", func(t *testing.T) {
		path := writeConfig(t, "wizard:\n  discovery_technique: carrier-pigeon\n")
		var stdout, stderr bytes.Buffer
		code := doValidate([]string{"-config", path}, &stdout, &stderr)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "carrier-pigeon")
	})

	t.Run("source file", func(t *testing.T) {
		source := filepath.Join(t.TempDir(), "source.yaml")
		require.NoError(t, os.WriteFile(source, []byte("name: \"\"\nsiteUrl: not a url\n"), 0644))

		var stdout, stderr bytes.Buffer
		code := doValidate([]string{"-config", writeConfig(t, ""), "-source", source}, &stdout, &stderr)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "ERROR: [basics]")
	})

	t.Run("bad flag", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, doValidate([]string{"-bogus"}, &stdout, &stderr))
	})
}

func TestDraftLifecycle(t *testing.T) {
	cfgPath := writeConfig(t, "")
	var stdout, stderr bytes.Buffer

	code := doDispatch([]string{"-config", cfgPath,
		`{"type":"set_basics","payload":{"name":"Acme Careers","siteUrl":"https://acme.example"}}`}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `"applied": "set_basics"`)

	stdout.Reset()
	code = doDraft([]string{"show", "-config", cfgPath, "-format", "json"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Acme Careers", "draft persisted between commands")

	stdout.Reset()
	code = doDraft([]string{"show", "-config", cfgPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "# Acme Careers")

	stdout.Reset()
	code = doDraft([]string{"next", "-config", cfgPath, "-step", "basics"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Now at: discovery_setup")

	stdout.Reset()
	code = doDraft([]string{"list", "-config", cfgPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "cli-test")

	stdout.Reset()
	code = doDraft([]string{"reset", "-config", cfgPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	stdout.Reset()
	code = doDraft([]string{"show", "-config", cfgPath, "-format", "json"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.NotContains(t, stdout.String(), "Acme Careers")
}

func TestDraftErrors(t *testing.T) {
	cfgPath := writeConfig(t, "")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, doDraft(nil, &stdout, &stderr))
	assert.Equal(t, 2, doDraft([]string{"explode", "-config", cfgPath}, &stdout, &stderr))

	stderr.Reset()
	code := doDraft([]string{"next", "-config", cfgPath}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "blocking issues")

	stderr.Reset()
	code = doDraft([]string{"show", "-config", cfgPath, "-step", "launchpad"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown step")

	stderr.Reset()
	code = doDraft([]string{"finish", "-config", cfgPath}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "review")

	stderr.Reset()
	code = doDispatch([]string{"-config", cfgPath, `{"type":"launch_rocket"}`}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Known action types")
}

func TestDraftTest(t *testing.T) {
	cfgPath := writeConfig(t, "")
	var stdout, stderr bytes.Buffer

	code := doDraft([]string{"test", "-config", cfgPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Discovery (html): success")
	assert.Contains(t, stdout.String(), "Extraction (html): success")

	stdout.Reset()
	code = doDraft([]string{"show", "-config", cfgPath, "-format", "json"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `"testResults"`, "results are cached on the draft")
}

func TestDispatchFromStdin(t *testing.T) {
	cfgPath := writeConfig(t, "")
	withStdin(t, `{"type":"set_basics","payload":{"name":"Piped"}}`)

	var stdout, stderr bytes.Buffer
	code := doDispatch([]string{"-config", cfgPath, "-"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `"step": "basics"`)
}

func TestDoMatch(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doMatch([]string{"-include", "/jobs/*", "-exclude", "about", "-dedupe",
		"https://acme.example/jobs/1", "https://acme.example/jobs/1/", "https://acme.example/about"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "1 included, 1 excluded, 0 unmatched, 1 duplicates")

	withStdin(t, "https://acme.example/jobs/2\nhttps://acme.example/team\n")
	stdout.Reset()
	code = doMatch([]string{"-include", "/jobs/", "-json"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `"included": 1`)
	assert.Contains(t, stdout.String(), `"unmatched": 1`)
}

func TestDoCron(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doCron([]string{"-days", "Mon,Tue,Wed,Thu,Fri", "-start", "9", "-end", "17", "-freq", "30", "-next", "3"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Expression:  */30 9-17 * * 1,2,3,4,5")
	assert.Contains(t, stdout.String(), "Per week:    90")
	assert.Contains(t, stdout.String(), "Next runs:")

	stdout.Reset()
	code = doCron([]string{"-next", "0", "0 6-22/2 * * *"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "every 2 hours")

	assert.Equal(t, 1, doCron([]string{"-freq", "45"}, &stdout, &stderr))
	assert.Equal(t, 1, doCron([]string{"-days", "Funday"}, &stdout, &stderr))
	assert.Equal(t, 1, doCron([]string{"not", "a", "cron"}, &stdout, &stderr))
}

func TestDoCurl(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doCurl([]string{`curl -X POST 'https://api.acme.example/jobs' -H 'Accept: application/json'`}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `"url": "https://api.acme.example/jobs"`)
	assert.Contains(t, stdout.String(), `"method": "POST"`)

	stderr.Reset()
	assert.Equal(t, 1, doCurl([]string{"curl --silent"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "URL")
}

func TestDoJSONPath(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"data":{"items":[{"title":"Go Engineer","city":"Berlin"},{"title":"Designer","city":"Lisbon"}]}}`), 0644))

	var stdout, stderr bytes.Buffer
	code := doJSONPath([]string{"-file", doc}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "$.data.items[*].title")

	stdout.Reset()
	code = doJSONPath([]string{"-file", doc, "-path", "$.data.items[1].city"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "\"Lisbon\"\n", stdout.String())

	stdout.Reset()
	code = doJSONPath([]string{"-file", doc, "-value", "Berlin"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "$.data.items[*].city")

	assert.Equal(t, 1, doJSONPath([]string{"-file", doc, "-value", "Tokyo"}, &stdout, &stderr))
	assert.Equal(t, 1, doJSONPath([]string{"-file", doc, "-path", "$.data.missing"}, &stdout, &stderr))
}

func TestDoReview(t *testing.T) {
	source := filepath.Join(t.TempDir(), "source.yaml")
	require.NoError(t, os.WriteFile(source, []byte("name: Acme Careers\nsiteUrl: https://acme.example\n"), 0644))

	var stdout, stderr bytes.Buffer
	code := doReview([]string{"-file", source}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "# Acme Careers")

	stdout.Reset()
	code = doReview([]string{"-file", source, "-format", "html"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "<h1>Acme Careers</h1>")

	stdout.Reset()
	code = doReview([]string{"-file", source, "-format", "outline"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.True(t, strings.HasPrefix(stdout.String(), "Acme Careers\n"))
	assert.Contains(t, stdout.String(), "  Discovery")

	stdout.Reset()
	code = doReview([]string{"-file", source, "-format", "yaml"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "name: Acme Careers")

	assert.Equal(t, 2, doReview([]string{"-file", source, "-format", "pdf"}, &stdout, &stderr))
}

func TestDoMcpServer_BadTransport(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doMcpServer([]string{"-config", writeConfig(t, ""), "-transport", "carrier-pigeon"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown transport")
}
