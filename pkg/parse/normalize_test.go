package parse

import (
	"net/url"
	"testing"
)

func TestNormalizeURL_NilInput(t *testing.T) {
	result := NormalizeURL(nil, NormalizeOptions{})
	if result != "" {
		t.Errorf("NormalizeURL(nil) = %q, want empty string", result)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     NormalizeOptions
		expected string
	}{
		{"UppercaseScheme", "HTTP://example.com/jobs", NormalizeOptions{}, "http://example.com/jobs"},
		{"MixedCaseHostKeepsPathCase", "HTTPS://Example.COM/Jobs", NormalizeOptions{}, "https://example.com/Jobs"},
		{"HTTPPort80Removed", "http://example.com:80/jobs", NormalizeOptions{}, "http://example.com/jobs"},
		{"HTTPSPort443Removed", "https://example.com:443/jobs", NormalizeOptions{}, "https://example.com/jobs"},
		{"NonDefaultPortKept", "http://example.com:8080/jobs", NormalizeOptions{}, "http://example.com:8080/jobs"},
		{"EmptyPathBecomesSlash", "http://example.com", NormalizeOptions{}, "http://example.com/"},
		{"TrailingSlashRemoved", "http://example.com/jobs/", NormalizeOptions{}, "http://example.com/jobs"},
		{"RepeatedTrailingSlashes", "http://example.com/jobs//", NormalizeOptions{}, "http://example.com/jobs"},
		{"FragmentRemoved", "http://example.com/jobs#apply", NormalizeOptions{}, "http://example.com/jobs"},
		{"QueryDropped", "http://example.com/jobs?page=2", NormalizeOptions{}, "http://example.com/jobs"},
		{"QueryKeptAndSorted", "http://example.com/jobs?b=2&a=1", NormalizeOptions{KeepQuery: true}, "http://example.com/jobs?a=1&b=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, _ := url.Parse(tt.input)
			result := NormalizeURL(parsed, tt.opts)
			if result != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeURL_DoesNotModifyInput(t *testing.T) {
	original := "HTTP://EXAMPLE.COM:80/jobs/?q=1#frag"
	parsed, _ := url.Parse(original)
	_ = NormalizeURL(parsed, NormalizeOptions{})
	if parsed.String() != original {
		t.Errorf("NormalizeURL modified input: got %q, want %q", parsed.String(), original)
	}
}

func TestParseAndNormalize_InvalidURLs(t *testing.T) {
	for _, input := range []string{"", "not a url", "example.com/jobs"} {
		t.Run(input, func(t *testing.T) {
			if _, _, err := ParseAndNormalize(input, NormalizeOptions{}); err == nil {
				t.Errorf("ParseAndNormalize(%q) expected error, got nil", input)
			}
		})
	}
}

func TestDedupeKey(t *testing.T) {
	a := DedupeKey("https://Example.com/jobs/1/", NormalizeOptions{})
	b := DedupeKey("https://example.com/jobs/1#top", NormalizeOptions{})
	if a != b {
		t.Errorf("DedupeKey mismatch: %q vs %q", a, b)
	}
	if got := DedupeKey("::bad", NormalizeOptions{}); got != "::bad" {
		t.Errorf("DedupeKey(unparseable) = %q, want raw input", got)
	}
}

func TestResolveLink(t *testing.T) {
	base, _ := url.Parse("https://example.com/careers/")
	tests := []struct {
		href     string
		expected string
	}{
		{"/jobs/1", "https://example.com/jobs/1"},
		{"engineer", "https://example.com/careers/engineer"},
		{"https://other.com/x", "https://other.com/x"},
		{"#top", ""},
		{"javascript:void(0)", ""},
		{"mailto:hr@example.com", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			if got := ResolveLink(base, tt.href); got != tt.expected {
				t.Errorf("ResolveLink(%q) = %q, want %q", tt.href, got, tt.expected)
			}
		})
	}

	if got := ResolveLink(nil, "/jobs"); got != "" {
		t.Errorf("ResolveLink(nil, relative) = %q, want empty", got)
	}
}

func TestIsHTTPURL(t *testing.T) {
	tests := map[string]bool{
		"https://example.com":      true,
		"http://example.com/jobs":  true,
		"ftp://example.com":        false,
		"example.com":              false,
		"":                         false,
		"  https://example.com/  ": true,
	}
	for input, want := range tests {
		if got := IsHTTPURL(input); got != want {
			t.Errorf("IsHTTPURL(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestValidateSelector(t *testing.T) {
	valid := []string{"a.job-link", "div#main > ul li:nth-child(2)", "article, .post", `a[href*="/jobs/"]`}
	for _, sel := range valid {
		if err := ValidateSelector(sel); err != nil {
			t.Errorf("ValidateSelector(%q) unexpected error: %v", sel, err)
		}
	}
	invalid := []string{"", "   ", "div[", "###"}
	for _, sel := range invalid {
		if err := ValidateSelector(sel); err == nil {
			t.Errorf("ValidateSelector(%q) expected error", sel)
		}
	}
}
