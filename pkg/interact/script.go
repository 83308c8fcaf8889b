package interact

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/Sriram-PR/source-wizard/pkg/parse"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// ValidateCustomJS reports a syntax error in a customJS snippet. The snippet is
// compiled, never run, so browser globals such as document need not exist.
func ValidateCustomJS(src string) error {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	if _, err := goja.Compile("customJS", src, false); err != nil {
		return fmt.Errorf("%w: customJS: %w", utils.ErrParsing, err)
	}
	return nil
}

// Warnings lists selectors in state that do not compile. A disabled state has none.
func Warnings(state PopupHandlingState) []string {
	if !state.Enabled {
		return nil
	}
	var warnings []string
	check := func(group string, sels []string) {
		for i, sel := range nonEmpty(sels) {
			if err := parse.ValidateSelector(sel); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s selector #%d (%q) is invalid: %v", group, i+1, sel, err))
			}
		}
	}
	check("cookie", state.Cookies.Selectors)
	check("popup close", state.Popups.CloseSelectors)
	check("popup remove", state.Popups.RemoveSelectors)

	if k := state.Popups.Key; k != "" && k != EscapeKey {
		warnings = append(warnings, fmt.Sprintf("popup key %q is not supported; only %q is emitted", k, EscapeKey))
	}
	return warnings
}
