package critique

import (
	"context"
	"time"
)

// BoardReader is a read-only view of the whiteboard, taken at session start.
type BoardReader interface {
	DesignChallenge(ctx context.Context) (string, error)
	ConsensusPoints(ctx context.Context) (PointSet, error)
	CurrentThemes(ctx context.Context) ([]Theme, error)
}

// BoardWriter places response artifacts (sticky notes) on the board.
type BoardWriter interface {
	CreateResponseArtifact(ctx context.Context, text string) error
}

// AnalysisRecord is one persisted critique run.
type AnalysisRecord struct {
	ID        string              `json:"id"`
	SessionID string              `json:"session_id,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	Tone      Tone                `json:"tone"`
	Level     SimplificationLevel `json:"level"`
	Points    PointSet            `json:"points"`
}

// AnalysisLog is the append-only history of critique runs.
type AnalysisLog interface {
	Persist(ctx context.Context, points PointSet, tone Tone, level SimplificationLevel) error
	LoadAllHistoricalPointSets(ctx context.Context) ([]PointSet, error)
}
