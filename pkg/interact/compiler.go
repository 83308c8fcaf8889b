// Package interact compiles cookie-banner and popup handling settings into the
// primitive browser interaction script stored on a render config.
package interact

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EscapeKey is the only key action the popup handler emits.
const EscapeKey = "Escape"

// CookieSettings configures cookie-banner dismissal.
type CookieSettings struct {
	Selectors []string `json:"selectors"`
	PreWaitMs int      `json:"preWaitMs"`
	WaitMs    int      `json:"waitMs"`
	Attempts  int      `json:"attempts"`
}

// PopupSettings configures modal/popup dismissal and overlay removal.
type PopupSettings struct {
	CloseSelectors  []string `json:"closeSelectors"`
	RemoveSelectors []string `json:"removeSelectors"`
	Key             string   `json:"key"` // EscapeKey to press Escape, empty for none
	PreWaitMs       int      `json:"preWaitMs"`
	WaitMs          int      `json:"waitMs"`
	Attempts        int      `json:"attempts"`
}

// PopupHandlingState is the structured form the compiler consumes.
type PopupHandlingState struct {
	Enabled bool           `json:"enabled"`
	Cookies CookieSettings `json:"cookies"`
	Popups  PopupSettings  `json:"popups"`
}

// DefaultPopupHandlingState is disabled with one attempt and short waits.
func DefaultPopupHandlingState() PopupHandlingState {
	return PopupHandlingState{
		Cookies: CookieSettings{WaitMs: 500, Attempts: 1},
		Popups:  PopupSettings{WaitMs: 500, Attempts: 1},
	}
}

// Clone copies s, including its selector slices.
func (s PopupHandlingState) Clone() PopupHandlingState {
	s.Cookies.Selectors = append([]string(nil), s.Cookies.Selectors...)
	s.Popups.CloseSelectors = append([]string(nil), s.Popups.CloseSelectors...)
	s.Popups.RemoveSelectors = append([]string(nil), s.Popups.RemoveSelectors...)
	return s
}

// Script is the compiled output.
type Script struct {
	Interactions []string `json:"interactions"`
	CustomJS     string   `json:"customJS,omitempty"`
}

// Click renders a click instruction.
func Click(selector string) string {
	return "click('" + quote(selector) + "')"
}

// Wait renders a wait instruction.
func Wait(ms int) string {
	return fmt.Sprintf("wait(%d)", ms)
}

// Press renders a key press instruction.
func Press(key string) string {
	return "press('" + quote(key) + "')"
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func attempts(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Compile turns state into interactions and an optional removal snippet.
// A disabled state compiles to nothing.
func Compile(state PopupHandlingState) Script {
	var script Script
	if !state.Enabled {
		return script
	}

	var lines []string
	emitWait := func(ms int) {
		if ms > 0 {
			lines = append(lines, Wait(ms))
		}
	}

	cookies := nonEmpty(state.Cookies.Selectors)
	if len(cookies) > 0 {
		emitWait(state.Cookies.PreWaitMs)
		for i := 0; i < attempts(state.Cookies.Attempts); i++ {
			for _, sel := range cookies {
				lines = append(lines, Click(sel))
				emitWait(state.Cookies.WaitMs)
			}
		}
	}

	closers := nonEmpty(state.Popups.CloseSelectors)
	escape := state.Popups.Key == EscapeKey
	if len(closers) > 0 || escape {
		emitWait(state.Popups.PreWaitMs)
		for i := 0; i < attempts(state.Popups.Attempts); i++ {
			for _, sel := range closers {
				lines = append(lines, Click(sel))
				emitWait(state.Popups.WaitMs)
			}
			if escape {
				lines = append(lines, Press(EscapeKey))
				emitWait(state.Popups.WaitMs)
			}
		}
	}

	script.Interactions = lines
	script.CustomJS = RemovalJS(nonEmpty(state.Popups.RemoveSelectors))
	return script
}

// RemovalJS builds the snippet removing every element matched by selectors, swallowing runtime errors.
func RemovalJS(selectors []string) string {
	if len(selectors) == 0 {
		return ""
	}
	list, _ := json.Marshal(strings.Join(selectors, ", "))
	return "try {\n" +
		"  document.querySelectorAll(" + string(list) + ").forEach(function (el) { el.remove(); });\n" +
		"} catch (e) {}"
}

// Recompile removes exactly the lines compiled from prev out of existing and prepends
// the lines compiled from next. Lines added by other means keep their order.
func Recompile(existing []string, prev, next PopupHandlingState) []string {
	stale := make(map[string]int)
	for _, line := range Compile(prev).Interactions {
		stale[line]++
	}

	kept := make([]string, 0, len(existing))
	for _, line := range existing {
		if stale[line] > 0 {
			stale[line]--
			continue
		}
		kept = append(kept, line)
	}

	fresh := Compile(next).Interactions
	out := make([]string, 0, len(fresh)+len(kept))
	out = append(out, fresh...)
	return append(out, kept...)
}

// RecompileCustomJS swaps the removal snippet compiled from prev for the one compiled
// from next, keeping any other script in existing.
func RecompileCustomJS(existing string, prev, next PopupHandlingState) string {
	rest := existing
	if old := Compile(prev).CustomJS; old != "" {
		rest = strings.Replace(rest, old, "", 1)
	}
	rest = strings.TrimSpace(rest)

	fresh := Compile(next).CustomJS
	switch {
	case rest == "":
		return fresh
	case fresh == "":
		return rest
	}
	return rest + "\n" + fresh
}
