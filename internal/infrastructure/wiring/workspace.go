package wiring

import (
	"fmt"

	"github.com/felixgeelhaar/critique/internal/infrastructure/config"
	"github.com/felixgeelhaar/critique/pkg/storage"
)

// Workspace bundles core infrastructure dependencies.
type Workspace struct {
	Root   string
	Config *config.Config
	Repo   *storage.FilesystemRepository
	Board  *storage.FileBoard
	Log    *storage.FileAnalysisLog
}

func NewWorkspace(root string) (*Workspace, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return NewWorkspaceWithConfig(root, cfg)
}

func NewWorkspaceWithConfig(root string, cfg *config.Config) (*Workspace, error) {
	repo := storage.NewFilesystemRepository(root)
	board, err := storage.NewFileBoard(repo)
	if err != nil {
		return nil, fmt.Errorf("open board: %w", err)
	}
	log, err := storage.NewFileAnalysisLog(repo, "")
	if err != nil {
		return nil, fmt.Errorf("open analysis log: %w", err)
	}
	return &Workspace{
		Root:   root,
		Config: cfg,
		Repo:   repo,
		Board:  board,
		Log:    log,
	}, nil
}
