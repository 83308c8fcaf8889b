package parse

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// ValidateSelector reports whether sel is a CSS selector (or comma group) the HTML tooling can evaluate.
func ValidateSelector(sel string) error {
	if strings.TrimSpace(sel) == "" {
		return fmt.Errorf("%w: empty CSS selector", utils.ErrParsing)
	}
	if _, err := cascadia.Compile(sel); err != nil {
		return fmt.Errorf("%w: CSS selector %q: %w", utils.ErrParsing, sel, err)
	}
	return nil
}
