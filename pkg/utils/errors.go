package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrParsing          = errors.New("parsing error")    // Wraps specific parsing error (JSON, XML, HTML, cron, cURL)
	ErrFilesystem       = errors.New("filesystem error") // Wraps os errors
	ErrDatabase         = errors.New("database error")   // Wraps badger errors
	ErrNotFound         = errors.New("not found")
	ErrConfigValidation = errors.New("configuration validation error")
	ErrInvalidAction    = errors.New("invalid wizard action")
	ErrMarkdown         = errors.New("failed to convert HTML to markdown")
	ErrSimulatedFailure = errors.New("simulated test failure")
)

// WrapErrorf wraps a sentinel with a formatted message, keeping it matchable via errors.Is.
func WrapErrorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// CategorizeError maps an error to a predefined category string for logging.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "JSON") {
			return "Parsing_JSON"
		}
		if strings.Contains(errMsg, "XML") {
			return "Parsing_XML"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Parsing_HTML"
		}
		return "Parsing_Other"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	case errors.Is(err, ErrInvalidAction):
		return "Wizard_InvalidAction"
	case errors.Is(err, ErrMarkdown):
		return "Content_Markdown"
	case errors.Is(err, ErrSimulatedFailure):
		return "Test_SimulatedFailure"
	}

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	return "Unknown"
}
