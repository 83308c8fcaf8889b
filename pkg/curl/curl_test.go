package curl

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PostWithHeader(t *testing.T) {
	req := Parse("curl 'https://x.com/a' -H 'Accept: application/json' -X POST")
	require.NotNil(t, req)
	assert.Equal(t, &Request{
		URL:     "https://x.com/a",
		Method:  "POST",
		Headers: map[string]string{"Accept": "application/json"},
	}, req)
}

func TestParse_DevToolsCopy(t *testing.T) {
	raw := `curl 'https://api.example.com/v1/jobs?page=1' \
  -H 'Authorization: Bearer abc:def' \
  -H "Content-Type: application/json" \
  -b 'session=xyz; theme=dark' \
  --data-raw '{"query":"go"}' \
  --compressed`

	req := Parse(raw)
	require.NotNil(t, req)
	assert.Equal(t, "https://api.example.com/v1/jobs?page=1", req.URL)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "Bearer abc:def", req.Headers["Authorization"])
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.Equal(t, "session=xyz; theme=dark", req.Cookies)
	assert.Equal(t, `{"query":"go"}`, req.Body)
}

func TestParse_Variants(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		url    string
		method string
	}{
		{"bare url", "curl https://example.com/feed", "https://example.com/feed", "GET"},
		{"attached method", "curl -XPUT https://example.com/x", "https://example.com/x", "PUT"},
		{"long request flag", "curl --request delete https://example.com/x", "https://example.com/x", "DELETE"},
		{"url flag", "curl --url https://example.com/u -d a=1", "https://example.com/u", "GET"},
		{"no curl prefix", "'http://localhost:8080/api'", "http://localhost:8080/api", "GET"},
		{"first url wins", "curl https://a.com https://b.com", "https://a.com", "GET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Parse(tt.raw)
			require.NotNil(t, req)
			assert.Equal(t, tt.url, req.URL)
			assert.Equal(t, tt.method, req.Method)
		})
	}
}

func TestParse_Unparseable(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"curl",
		"curl -H 'Accept: */*'",
		"not a curl command",
		"curl ftp://example.com/file",
	} {
		assert.Nil(t, Parse(raw), "input %q", raw)
	}
}

func TestParse_UnbalancedQuoteKeepsURL(t *testing.T) {
	req := Parse(`curl 'https://api.example.com/v1/jobs?page=1' -X POST -H 'Content-Type: application/json' --data '{"q":"it's broken"}'`)
	require.NotNil(t, req)
	assert.Equal(t, "https://api.example.com/v1/jobs?page=1", req.URL)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Nil(t, req.Headers)
	assert.Empty(t, req.Body)

	req = Parse("curl 'https://example.com")
	require.NotNil(t, req)
	assert.Equal(t, "https://example.com", req.URL)
	assert.Equal(t, http.MethodGet, req.Method)

	assert.Nil(t, Parse(`curl -H 'Accept: */*' --data 'unterminated`))
}

func TestParse_HeaderWithoutColonIgnored(t *testing.T) {
	req := Parse("curl https://example.com -H 'garbage'")
	require.NotNil(t, req)
	assert.Nil(t, req.Headers)
}
