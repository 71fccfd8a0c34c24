package critique

import (
	"errors"
	"fmt"
)

var (
	ErrStaleResult      = errors.New("result belongs to a superseded epoch")
	ErrNotReady         = errors.New("session has no critique yet")
	ErrEmptyGeneration  = errors.New("generation returned no critique points")
	ErrUnknownTone      = errors.New("unknown tone")
	ErrUnknownLevel     = errors.New("unknown simplification level")
	ErrThemeNotFound    = errors.New("theme not found")
	ErrNoThemes         = errors.New("no themes available")
	ErrFutureEpoch      = errors.New("variant key epoch is ahead of the cache")
	ErrInvalidSessionID = errors.New("invalid session id")
)

// GenerationStage names the external call that failed.
type GenerationStage string

const (
	StageCritique GenerationStage = "critique"
	StageVariant  GenerationStage = "variant"
	StageThemes   GenerationStage = "themes"
	StageBoard    GenerationStage = "board"
)

// GenerationError is the only failure surfaced to users: the backend
// rejected the request or returned text that could not be used.
type GenerationError struct {
	Stage GenerationStage
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationFailure reports whether err carries a GenerationError.
func IsGenerationFailure(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
