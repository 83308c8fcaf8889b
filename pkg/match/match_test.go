package match

import (
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		pattern string
		want    PatternKind
	}{
		{"/jobs/\\d+/", KindRegexLiteral},
		{"/careers/", KindRegexLiteral},
		{"*/jobs/*", KindGlob},
		{"job?", KindGlob},
		{"^https://", KindRegex},
		{"\\d{4}", KindRegex},
		{"(a|b)", KindRegex},
		{"jobs", KindSubstring},
		{"/", KindSubstring},
		{"", KindSubstring},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.pattern))
		})
	}
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		pattern string
		want    bool
	}{
		{"substring hit", "https://example.com/jobs/123", "/jobs", true},
		{"substring miss", "https://example.com/about", "jobs", false},
		{"regex literal", "https://example.com/jobs/123", `/jobs\/\d+$/`, true},
		{"regex literal miss", "https://example.com/jobs/abc", `/jobs\/\d+$/`, false},
		{"glob star", "https://example.com/en/jobs/1", "*/jobs/*", true},
		{"glob is unanchored", "xx-https://example.com/jobs/1-yy", "example.com/jobs/?", true},
		{"glob dot is literal", "https://exampleXcom/jobs", "example.com*", false},
		{"bare regex", "https://example.com/jobs/2024", `jobs/\d{4}`, true},
		{"anchored regex", "https://example.com/jobs", "^https://example", true},
		{"anchored regex miss", "http://example.com/jobs", "^https://", false},
		{"ecmascript lookahead", "https://example.com/jobs/1", `/jobs(?!\/apply)/`, true},
		{"invalid regex literal falls back to substring", "https://x.com/a/[b/", "/[b/", true},
		{"invalid bare regex falls back to substring", "https://x.com/(open", "(open", true},
		{"invalid regex fallback miss", "https://x.com/", "(open", false},
		{"empty pattern matches", "https://x.com/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPattern(tt.url, tt.pattern))
		})
	}
}

// A glob behaves exactly like its hand-expanded, unanchored regex.
func TestMatchesPattern_GlobEquivalence(t *testing.T) {
	urls := []string{
		"https://example.com/jobs/1",
		"https://example.com/en/jobs/senior-engineer",
		"https://example.com/blog/post",
		"https://example.com/jobs",
		"",
	}
	globs := map[string]string{
		"*/jobs/*":    `.*/jobs/.*`,
		"jobs?":       `jobs.`,
		"*.com/en/*":  `.*\.com/en/.*`,
		"?ttps://*":   `.ttps://.*`,
		"blog/p?st":   `blog/p.st`,
		"*engineer*":  `.*engineer.*`,
		"example.com": "",
	}
	for glob, expanded := range globs {
		if expanded == "" {
			continue
		}
		assert.Equal(t, expanded, GlobToRegex(glob))
		re := regexp2.MustCompile(expanded, regexp2.ECMAScript)
		for _, u := range urls {
			want, err := re.MatchString(u)
			require.NoError(t, err)
			assert.Equal(t, want, MatchesPattern(u, glob), "glob %q on %q", glob, u)
		}
	}
}

func TestGetLinkMatchType(t *testing.T) {
	f := Filters{
		IncludePatterns: []string{"/jobs/", "*careers*"},
		ExcludePatterns: []string{"/apply", `/\?page=\d+/`},
	}
	tests := []struct {
		url  string
		want LinkMatchType
	}{
		{"https://example.com/jobs/1", LinkIncluded},
		{"https://example.com/careers", LinkIncluded},
		{"https://example.com/jobs/1/apply", LinkExcluded},
		{"https://example.com/jobs/?page=2", LinkExcluded},
		{"https://example.com/about", LinkUnmatched},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, GetLinkMatchType(tt.url, f))
		})
	}
}

// Any URL hit by an exclude pattern is excluded, whatever the includes say.
func TestGetLinkMatchType_ExcludeWins(t *testing.T) {
	urls := []string{"https://a.com/jobs/x", "https://a.com/x/jobs", "https://a.com/jobs"}
	includeSets := [][]string{nil, {"jobs"}, {"*"}, {"/.*/"}, {"https://"}}
	for _, u := range urls {
		for _, inc := range includeSets {
			f := Filters{IncludePatterns: inc, ExcludePatterns: []string{"nomatch", "jobs"}}
			assert.Equal(t, LinkExcluded, GetLinkMatchType(u, f), "url %q includes %v", u, inc)
		}
	}
}

func TestGetMatchReason(t *testing.T) {
	f := Filters{IncludePatterns: []string{"/jobs/"}, ExcludePatterns: []string{"apply"}}
	assert.Equal(t, "Excluded by pattern: apply", GetMatchReason("https://a.com/jobs/1/apply", f))
	assert.Equal(t, "Included by pattern: /jobs/", GetMatchReason("https://a.com/jobs/1", f))
	assert.Equal(t, "Did not match any include pattern", GetMatchReason("https://a.com/about", f))

	noIncludes := Filters{ExcludePatterns: []string{"apply"}}
	assert.Equal(t, "No include patterns defined", GetMatchReason("https://a.com/about", noIncludes))
}

func TestClassify(t *testing.T) {
	f := Filters{IncludePatterns: []string{"/jobs/"}, ExcludePatterns: []string{"apply"}}
	urls := []string{
		"https://a.com/jobs/1",
		"https://A.com/jobs/1/",
		"https://a.com/jobs/1/apply",
		"https://a.com/about",
	}

	t.Run("without dedupe", func(t *testing.T) {
		c := Classify(urls, f, Dedupe{})
		assert.Equal(t, 2, c.Included)
		assert.Equal(t, 1, c.Excluded)
		assert.Equal(t, 1, c.Unmatched)
		assert.Zero(t, c.Duplicates)
		require.Len(t, c.Links, 4)
		assert.Equal(t, "Excluded by pattern: apply", c.Links[2].Reason)
	})

	t.Run("with dedupe", func(t *testing.T) {
		c := Classify(urls, f, Dedupe{Enabled: true})
		assert.Equal(t, 1, c.Included)
		assert.Equal(t, 1, c.Duplicates)
		assert.Equal(t, []string{"https://a.com/jobs/1"}, c.Kept(f))
	})

	t.Run("kept without includes keeps unmatched", func(t *testing.T) {
		noInc := Filters{ExcludePatterns: []string{"apply"}}
		c := Classify(urls, noInc, Dedupe{})
		assert.Len(t, c.Kept(noInc), 3)
	})
}

func TestValidatePatterns(t *testing.T) {
	warnings := ValidatePatterns([]string{"jobs", "*/jobs/*", "/[unclosed/", "", `\d+`})
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "#3")
	assert.Contains(t, warnings[1], "#4")
}
