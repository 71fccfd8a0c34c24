package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"
)

const CritiqueDir = ".critique"
const ConfigFile = "config.yaml"
const BoardFile = "board.yaml"
const ResponsesFile = "responses.jsonl"
const AnalysesFile = "analyses.jsonl"

type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// Dir returns the .critique directory.
func (r *FilesystemRepository) Dir() string {
	return filepath.Join(r.root, CritiqueDir)
}

// ResolvePath ensures the path is within the .critique directory and prevents traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := r.Dir()
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))

	// Only direct children of .critique are allowed.
	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	// G301: Use 0700 for directories
	if err := os.MkdirAll(r.Dir(), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", CritiqueDir, err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(r.Dir())
	return err == nil
}

// Exists reports whether filename is present under .critique.
func (r *FilesystemRepository) Exists(filename string) bool {
	path, err := r.ResolvePath(filename)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// SaveYAML marshals v into filename.
func (r *FilesystemRepository) SaveYAML(filename string, v interface{}) error {
	path, err := r.ResolvePath(filename)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filename, err)
	}

	// G306: Use 0600 for files
	return os.WriteFile(path, data, 0600)
}

// LoadYAML reads filename into v, retrying transient read failures. A
// missing file is returned as an error wrapping os.ErrNotExist without retry.
func (r *FilesystemRepository) LoadYAML(ctx context.Context, filename string, v interface{}) error {
	path, err := r.ResolvePath(filename)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	retryer := retry.New[[]byte](r.retryConfig)
	data, err := retryer.Do(ctx, func(ctx context.Context) ([]byte, error) {
		// #nosec G304 -- Path is resolved and validated via ResolvePath
		return os.ReadFile(path)
	})
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}
	return nil
}
