package critique

import (
	"fmt"
	"regexp"
	"strings"
)

const maxSessionIDLength = 64

// sessionIDPattern matches alphanumerics with inner hyphens/underscores.
// UUIDs qualify.
var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidateSessionID checks that id can name a session. Session ids appear in
// URLs and in the analysis log.
func ValidateSessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session id cannot be empty: %w", ErrInvalidSessionID)
	}
	if len(id) > maxSessionIDLength {
		return fmt.Errorf("session id longer than %d characters: %w", maxSessionIDLength, ErrInvalidSessionID)
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id format %q: %w", id, ErrInvalidSessionID)
	}
	return nil
}
