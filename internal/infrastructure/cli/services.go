package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/critique/internal/infrastructure/config"
	"github.com/felixgeelhaar/critique/internal/infrastructure/wiring"
	domainai "github.com/felixgeelhaar/critique/pkg/domain/ai"
	"github.com/felixgeelhaar/critique/pkg/storage"
)

func loadServices(root string) (*wiring.AppServices, error) {
	if !storage.NewFilesystemRepository(root).IsInitialized() {
		return nil, ErrNotInitialized
	}
	ws, err := wiring.NewWorkspace(root)
	if err != nil {
		return nil, err
	}
	logger := newLogger(ws.Config)
	services, loadErr := wiring.BuildAppServicesWithProvider(ws, func(ws *wiring.Workspace) (domainai.Provider, error) {
		return wiring.ProviderFromConfig(ws.Config)
	}, logger)
	if services == nil {
		return nil, fmt.Errorf("failed to build services: %w", loadErr)
	}
	if loadErr != nil {
		logger.Warn("using fallback provider", "error", loadErr)
	}
	return services, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, format := cfg.LogLevel, cfg.LogFormat
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return wiring.NewLogger(level, format, os.Stderr)
}

func getProjectRoot() (string, error) {
	if projectPath != "" {
		abs, err := filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("invalid project path %q: %w", projectPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("project path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project path %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

func loadServicesForCurrentDir() (*wiring.AppServices, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}
	return loadServices(root)
}
