package wiring

import (
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/critique/pkg/ai"
	"github.com/felixgeelhaar/critique/pkg/application"
	domainai "github.com/felixgeelhaar/critique/pkg/domain/ai"
)

// AppServices exposes the application layer wired together with a workspace.
type AppServices struct {
	Workspace *Workspace
	Sessions  *application.SessionRegistry
	Synthesis *application.SynthesisService
	Themes    *application.ThemeGenerator
	Provider  domainai.Provider
	Logger    *slog.Logger
}

// BuildAppServices constructs the services for a repo root. When the
// configured provider cannot be built, services fall back to the default
// backend and the returned error explains why.
func BuildAppServices(root string, logger *slog.Logger) (*AppServices, error) {
	ws, err := NewWorkspace(root)
	if err != nil {
		return nil, err
	}
	return BuildAppServicesWithProvider(ws, func(ws *Workspace) (domainai.Provider, error) {
		return ProviderFromConfig(ws.Config)
	}, logger)
}

// BuildAppServicesWithProvider allows callers to supply a custom AI provider resolver.
func BuildAppServicesWithProvider(ws *Workspace, resolver func(*Workspace) (domainai.Provider, error), logger *slog.Logger) (*AppServices, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := resolver(ws)
	var loadErr error
	if err != nil {
		loadErr = fmt.Errorf("AI provider config fallback: %w", err)
		fallback, fallbackErr := ai.GetDefaultProvider("ollama", "llama3")
		if fallbackErr != nil {
			return nil, fmt.Errorf("fallback AI provider failed: %w", fallbackErr)
		}
		provider = ai.NewResilientProvider(fallback)
	}

	factory := func(sessionID string) (*application.Coordinator, error) {
		return application.NewCoordinator(application.CoordinatorConfig{
			SessionID: sessionID,
			Provider:  provider,
			Board:     ws.Board,
			Writer:    ws.Board,
			Log:       ws.Log.ForSession(sessionID),
			Logger:    logger,
		})
	}

	cfg := ws.Config
	services := &AppServices{
		Workspace: ws,
		Sessions:  application.NewSessionRegistry(cfg.SessionTTL(), factory, logger),
		Synthesis: application.NewSynthesisService(ws.Log, application.SynthesisOptions{
			SimilarityThreshold: cfg.SimilarityThreshold,
			Cap:                 cfg.SynthesisCap,
			TopicTokens:         cfg.TopicTokens,
		}, logger),
		Themes:   application.NewThemeGenerator(provider, 0, logger),
		Provider: provider,
		Logger:   logger,
	}

	return services, loadErr
}

// Close ends every open session.
func (s *AppServices) Close() {
	s.Sessions.CloseAll()
}
