// Package match classifies URLs against include/exclude link-filter patterns.
package match

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// regexTimeout bounds a single match so a pathological user regex cannot stall a preview.
const regexTimeout = 100 * time.Millisecond

// regexMeta lists the characters escaped when a glob is turned into a regex.
const regexMeta = `\.+^$()[]{}|`

// regexHints are the fragments that mark a bare pattern as a regular expression.
var regexHints = []string{"^", "$", `\d`, `\w`, `\s`, "[", "(", "+", "{"}

// PatternKind identifies which interpretation a pattern receives.
type PatternKind string

const (
	KindRegexLiteral PatternKind = "regex_literal" // /.../
	KindGlob         PatternKind = "glob"          // contains * or ?
	KindRegex        PatternKind = "regex"         // contains regex metacharacters
	KindSubstring    PatternKind = "substring"
)

// KindOf reports how a pattern is interpreted. Rules are tried in order; first match wins.
func KindOf(pattern string) PatternKind {
	switch {
	case len(pattern) >= 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/"):
		return KindRegexLiteral
	case strings.ContainsAny(pattern, "*?"):
		return KindGlob
	case containsRegexHint(pattern):
		return KindRegex
	default:
		return KindSubstring
	}
}

func containsRegexHint(pattern string) bool {
	for _, hint := range regexHints {
		if strings.Contains(pattern, hint) {
			return true
		}
	}
	return false
}

// GlobToRegex escapes everything except * and ?, then maps * to .* and ? to .
func GlobToRegex(glob string) string {
	var b strings.Builder
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			if strings.ContainsRune(regexMeta, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// regexSource returns the expression to compile for a pattern, or "" for substring patterns.
func regexSource(pattern string) string {
	switch KindOf(pattern) {
	case KindRegexLiteral:
		return pattern[1 : len(pattern)-1]
	case KindGlob:
		return GlobToRegex(pattern)
	case KindRegex:
		return pattern
	}
	return ""
}

func compile(expr string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(expr, regexp2.ECMAScript)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = regexTimeout
	return re, nil
}

// MatchesPattern reports whether url matches pattern. Regex patterns that fail to
// compile or time out degrade to a plain substring test.
func MatchesPattern(url, pattern string) bool {
	if KindOf(pattern) == KindSubstring {
		return strings.Contains(url, pattern)
	}

	re, err := compile(regexSource(pattern))
	if err != nil {
		return strings.Contains(url, pattern)
	}
	ok, err := re.MatchString(url)
	if err != nil {
		return strings.Contains(url, pattern)
	}
	return ok
}

// ValidatePatterns returns a warning for every pattern whose regex form does not compile.
// Such patterns still work, as substring tests.
func ValidatePatterns(patterns []string) []string {
	var warnings []string
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			warnings = append(warnings, fmt.Sprintf("pattern #%d is empty and matches every URL", i+1))
			continue
		}
		if KindOf(p) == KindSubstring {
			continue
		}
		if _, err := compile(regexSource(p)); err != nil {
			warnings = append(warnings, fmt.Sprintf("pattern #%d (%q) is not a valid regex, using substring match: %v", i+1, p, err))
		}
	}
	return warnings
}
