package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/critique/pkg/ai"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// ErrNotInitialized is returned when no .critique directory exists.
var ErrNotInitialized = errors.New("workspace not initialized")

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var genErr *critique.GenerationError
	if errors.As(err, &genErr) {
		hint := "Check the provider settings in .critique/config.yaml and that the backend is reachable, then retry"
		var statusErr *ai.StatusError
		if errors.As(err, &statusErr) && statusErr.Unauthorized() {
			hint = "The backend rejected the credentials; set OPENAI_API_KEY, ANTHROPIC_API_KEY or GEMINI_API_KEY for the configured provider"
		}
		cliErr := NewCLIError(fmt.Sprintf("%s generation failed", genErr.Stage), hint, err)
		cliErr.ExitCode = 2
		return cliErr
	}

	switch {
	case errors.Is(err, ErrNotInitialized):
		return NewCLIError("no critique workspace found", "Run 'critique init' first", err)
	case errors.Is(err, critique.ErrUnknownTone):
		return NewCLIError("unknown tone", "Use one of: normal, persuasive, aggressive, critical", err)
	case errors.Is(err, critique.ErrThemeNotFound):
		return NewCLIError("theme not found", "Run 'critique themes list' to see the board's themes", err)
	case errors.Is(err, critique.ErrNoThemes):
		return NewCLIError("no themes available", "Run 'critique themes generate' or add themes to board.yaml", err)
	case errors.Is(err, critique.ErrNotReady):
		return NewCLIError("no critique yet", "Add decisions to .critique/board.yaml and run 'critique analyze'", err)
	case errors.Is(err, os.ErrNotExist):
		return NewCLIError("board not found", "Run 'critique init' to create .critique/board.yaml", err)
	}

	return err
}
