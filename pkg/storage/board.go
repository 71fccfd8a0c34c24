package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/critique/pkg/domain/critique"
	"github.com/google/uuid"
)

// BoardSnapshot is the on-disk shape of board.yaml.
type BoardSnapshot struct {
	Challenge string           `yaml:"challenge"`
	Decisions []string         `yaml:"decisions"`
	Themes    []critique.Theme `yaml:"themes,omitempty"`
}

// Fingerprint hashes the challenge and the non-blank decisions. Themes are
// excluded; they change the grouping, not the critique.
func (s *BoardSnapshot) Fingerprint() string {
	return critique.Fingerprint(s.Challenge, s.consensus())
}

func (s *BoardSnapshot) consensus() critique.PointSet {
	points := critique.PointSet{}
	for _, d := range s.Decisions {
		if d = strings.TrimSpace(d); d != "" {
			points = append(points, d)
		}
	}
	return points
}

// ResponseArtifact is one sticky note placed on the board by the engine.
type ResponseArtifact struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// FileBoard implements critique.BoardReader and critique.BoardWriter on
// top of .critique/board.yaml and .critique/responses.jsonl.
type FileBoard struct {
	repo      *FilesystemRepository
	responses *jsonlFile[ResponseArtifact]
	mu        sync.Mutex
}

func NewFileBoard(repo *FilesystemRepository) (*FileBoard, error) {
	path, err := repo.ResolvePath(ResponsesFile)
	if err != nil {
		return nil, err
	}
	return &FileBoard{repo: repo, responses: newJSONLFile[ResponseArtifact](path)}, nil
}

// Load reads the current snapshot.
func (b *FileBoard) Load(ctx context.Context) (*BoardSnapshot, error) {
	var snap BoardSnapshot
	if err := b.repo.LoadYAML(ctx, BoardFile, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save overwrites board.yaml.
func (b *FileBoard) Save(snap *BoardSnapshot) error {
	if snap == nil {
		return fmt.Errorf("board snapshot is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.repo.SaveYAML(BoardFile, snap)
}

// SaveThemes replaces the theme list and leaves the rest of the board alone.
func (b *FileBoard) SaveThemes(ctx context.Context, themes []critique.Theme) error {
	snap, err := b.Load(ctx)
	if err != nil {
		return err
	}
	snap.Themes = themes
	return b.Save(snap)
}

// Fingerprint returns the current decisions fingerprint.
func (b *FileBoard) Fingerprint(ctx context.Context) (string, error) {
	snap, err := b.Load(ctx)
	if err != nil {
		return "", err
	}
	return snap.Fingerprint(), nil
}

func (b *FileBoard) DesignChallenge(ctx context.Context) (string, error) {
	snap, err := b.Load(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(snap.Challenge), nil
}

func (b *FileBoard) ConsensusPoints(ctx context.Context) (critique.PointSet, error) {
	snap, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.consensus(), nil
}

func (b *FileBoard) CurrentThemes(ctx context.Context) ([]critique.Theme, error) {
	snap, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	themes := make([]critique.Theme, 0, len(snap.Themes))
	for _, t := range snap.Themes {
		if strings.TrimSpace(t.Name) == "" {
			continue
		}
		if !t.Color.IsValid() {
			t.Color = critique.ColorYellow
		}
		themes = append(themes, t)
	}
	return themes, nil
}

// CreateResponseArtifact appends one sticky note.
func (b *FileBoard) CreateResponseArtifact(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("response artifact text is empty")
	}
	return b.responses.Append(ResponseArtifact{
		ID:        uuid.New().String(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
}

// Responses returns every artifact posted so far.
func (b *FileBoard) Responses() ([]ResponseArtifact, error) {
	return b.responses.LoadAll()
}
