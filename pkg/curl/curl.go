// Package curl imports an API request from pasted cURL command text.
package curl

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/Sriram-PR/source-wizard/pkg/parse"
)

// Request is the subset of a cURL invocation the API discovery config keeps.
type Request struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Cookies string            `json:"cookies,omitempty"`
	Body    string            `json:"body,omitempty"`
}

var dataFlags = map[string]bool{
	"-d":            true,
	"--data":        true,
	"--data-raw":    true,
	"--data-binary": true,
	"--data-ascii":  true,
}

var (
	urlToken    = regexp.MustCompile(`(?:^|\s)['"]?(https?://[^\s'"]+)`)
	methodToken = regexp.MustCompile(`(?:^|\s)(?:-X\s*|--request\s+)['"]?([A-Za-z]+)`)
)

// Parse extracts URL, method, headers, cookies and body from raw. It returns nil
// when raw holds no http(s) URL. The method defaults to GET even when a body is
// present. Text that cannot be tokenized, such as a body with an unbalanced
// quote, still yields its URL and method.
func Parse(raw string) *Request {
	raw = strings.ReplaceAll(raw, "\\\r\n", " ")
	raw = strings.ReplaceAll(raw, "\\\n", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	args, err := shellwords.Parse(raw)
	if err != nil {
		return salvage(raw)
	}
	if len(args) == 0 {
		return nil
	}
	if args[0] == "curl" {
		args = args[1:]
	}

	req := &Request{Method: http.MethodGet}
	next := func(i *int) (string, bool) {
		if *i+1 >= len(args) {
			return "", false
		}
		*i++
		return args[*i], true
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-X" || arg == "--request":
			if v, ok := next(&i); ok {
				req.Method = strings.ToUpper(v)
			}
		case strings.HasPrefix(arg, "-X") && len(arg) > 2:
			req.Method = strings.ToUpper(arg[2:])
		case arg == "-H" || arg == "--header":
			if v, ok := next(&i); ok {
				req.addHeader(v)
			}
		case arg == "-b" || arg == "--cookie":
			if v, ok := next(&i); ok {
				req.Cookies = v
			}
		case dataFlags[arg]:
			if v, ok := next(&i); ok {
				req.Body = v
			}
		case arg == "--url":
			if v, ok := next(&i); ok && req.URL == "" && parse.IsHTTPURL(v) {
				req.URL = v
			}
		case strings.HasPrefix(arg, "-"):
			// unsupported flag
		default:
			if req.URL == "" && parse.IsHTTPURL(arg) {
				req.URL = arg
			}
		}
	}

	if req.URL == "" {
		return nil
	}
	return req
}

// salvage recovers the first URL token and any -X method from raw.
func salvage(raw string) *Request {
	for _, m := range urlToken.FindAllStringSubmatch(raw, -1) {
		if !parse.IsHTTPURL(m[1]) {
			continue
		}
		req := &Request{URL: m[1], Method: http.MethodGet}
		if mm := methodToken.FindStringSubmatch(raw); mm != nil {
			req.Method = strings.ToUpper(mm[1])
		}
		return req
	}
	return nil
}

// addHeader splits "Name: value" on the first colon. Lines without a colon are ignored.
func (r *Request) addHeader(line string) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[name] = strings.TrimSpace(value)
}
