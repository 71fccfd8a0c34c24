package storage

import (
	"context"
	"time"

	"github.com/felixgeelhaar/critique/pkg/domain/critique"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"
)

// FileAnalysisLog implements critique.AnalysisLog as .critique/analyses.jsonl.
type FileAnalysisLog struct {
	file      *jsonlFile[critique.AnalysisRecord]
	sessionID string
	retry     retry.Config
}

// NewFileAnalysisLog tags every persisted record with sessionID.
func NewFileAnalysisLog(repo *FilesystemRepository, sessionID string) (*FileAnalysisLog, error) {
	path, err := repo.ResolvePath(AnalysesFile)
	if err != nil {
		return nil, err
	}
	return &FileAnalysisLog{
		file:      newJSONLFile[critique.AnalysisRecord](path),
		sessionID: sessionID,
		retry:     repo.retryConfig,
	}, nil
}

// ForSession returns a log sharing the same file but tagging records with sessionID.
func (l *FileAnalysisLog) ForSession(sessionID string) *FileAnalysisLog {
	return &FileAnalysisLog{file: l.file, sessionID: sessionID, retry: l.retry}
}

func (l *FileAnalysisLog) Persist(ctx context.Context, points critique.PointSet, tone critique.Tone, level critique.SimplificationLevel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.file.Append(critique.AnalysisRecord{
		ID:        uuid.New().String(),
		SessionID: l.sessionID,
		Timestamp: time.Now().UTC(),
		Tone:      tone,
		Level:     level,
		Points:    points.Clone(),
	})
}

// Records returns the full history.
func (l *FileAnalysisLog) Records(ctx context.Context) ([]critique.AnalysisRecord, error) {
	retryer := retry.New[[]critique.AnalysisRecord](l.retry)
	return retryer.Do(ctx, func(ctx context.Context) ([]critique.AnalysisRecord, error) {
		return l.file.LoadAll()
	})
}

func (l *FileAnalysisLog) LoadAllHistoricalPointSets(ctx context.Context) ([]critique.PointSet, error) {
	records, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}
	sets := make([]critique.PointSet, 0, len(records))
	for _, r := range records {
		if len(r.Points) > 0 {
			sets = append(sets, r.Points)
		}
	}
	return sets, nil
}

var (
	_ critique.AnalysisLog = (*FileAnalysisLog)(nil)
	_ critique.BoardReader = (*FileBoard)(nil)
	_ critique.BoardWriter = (*FileBoard)(nil)
)
