package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/critique/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/critique/pkg/application"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

// DefaultSessionID is used when a tool call names no session.
const DefaultSessionID = "default"

type Server struct {
	mcpServer *mcp.Server
	services  *wiring.AppServices
	logger    *slog.Logger
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// mcpErr returns a user-friendly error for MCP clients.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

// toolErr turns a domain error into a message an MCP client can act on.
func toolErr(err error) error {
	switch {
	case errors.Is(err, critique.ErrNotReady):
		return mcpErr("No critique yet. Call critique_analyze first.")
	case errors.Is(err, critique.ErrUnknownTone):
		return mcpErr("Unknown tone. Use normal, persuasive, aggressive or critical.")
	case errors.Is(err, critique.ErrInvalidSessionID):
		return mcpErr("Invalid session_id. Use letters, digits, hyphens or underscores.")
	case errors.Is(err, critique.ErrThemeNotFound):
		return mcpErr("Theme not found. Call critique_snapshot with grouped sessions to list themes.")
	case errors.Is(err, critique.ErrNoThemes):
		return mcpErr("The backend proposed no usable themes. Try again.")
	case critique.IsGenerationFailure(err):
		return mcpErr(fmt.Sprintf("Generation failed: %v. Call critique_refresh to retry.", err))
	default:
		return mcpErr(err.Error())
	}
}

func NewServer(services *wiring.AppServices) (*Server, error) {
	if services == nil {
		return nil, fmt.Errorf("services initialization returned nil")
	}

	info := mcp.ServerInfo{
		Name:    "critique",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Critique MCP Server"),
			mcp.WithDescription("Critique turns a board's agreed decisions into design critique with cached tone and simplification variants."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Call critique_analyze to generate, then switch variants with critique_set_tone and critique_set_simplified."),
		),
		services: services,
		logger:   services.Logger,
	}

	s.registerTools()
	s.registerSchemaResource()
	return s, nil
}

type SessionArgs struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to act on (defaults to 'default')"`
}

type ToneArgs struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to act on"`
	Tone      string `json:"tone" jsonschema:"description=normal, persuasive, aggressive or critical; empty clears"`
}

type SimplifiedArgs struct {
	SessionID  string `json:"session_id,omitempty" jsonschema:"description=Session to act on"`
	Simplified bool   `json:"simplified" jsonschema:"description=Use plain, short wording"`
}

type GroupedArgs struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to act on"`
	Grouped   bool   `json:"grouped" jsonschema:"description=Group points by board themes"`
}

type ThemeArgs struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session to act on"`
	Theme     string `json:"theme" jsonschema:"description=Name of the theme to toggle"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("critique_analyze").
		Description("Read the board and generate a critique if the agreed decisions changed").
		Handler(s.handleAnalyze)

	s.mcpServer.Tool("critique_refresh").
		Description("Discard all cached variants and generate a fresh critique").
		Handler(s.handleRefresh)

	s.mcpServer.Tool("critique_snapshot").
		Description("Return the session's current critique, tone and grouping").
		Handler(s.handleSnapshot)

	s.mcpServer.Tool("critique_set_tone").
		Description("Show the critique in another tone").
		Handler(s.handleSetTone)

	s.mcpServer.Tool("critique_set_simplified").
		Description("Toggle simplified wording").
		Handler(s.handleSetSimplified)

	s.mcpServer.Tool("critique_set_grouped").
		Description("Toggle grouping of points by board themes").
		Handler(s.handleSetGrouped)

	s.mcpServer.Tool("critique_toggle_theme").
		Description("Select or deselect one theme in the grouped view").
		Handler(s.handleToggleTheme)

	s.mcpServer.Tool("critique_refresh_themes").
		Description("Re-read the board's theme list").
		Handler(s.handleRefreshThemes)

	s.mcpServer.Tool("critique_generate_themes").
		Description("Ask the backend to propose themes and write them to the board").
		Handler(s.handleGenerateThemes)

	s.mcpServer.Tool("critique_publish").
		Description("Post the displayed critique points to the board").
		Handler(s.handlePublish)

	s.mcpServer.Tool("critique_synthesize").
		Description("Merge every persisted run into one deduplicated, capped list").
		Handler(s.handleSynthesize)

	s.mcpServer.Tool("critique_sessions").
		Description("List open sessions").
		Handler(s.handleSessions)
}

func (s *Server) session(id string) (*application.Coordinator, error) {
	if id == "" {
		id = DefaultSessionID
	}
	coord, err := s.services.Sessions.Open(id)
	if err != nil {
		return nil, mcpErr("Failed to open session.")
	}
	return coord, nil
}

func (s *Server) handleAnalyze(ctx context.Context, args SessionArgs) (any, error) {
	coord, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	if err := coord.NotesChanged(ctx); err != nil {
		return nil, toolErr(err)
	}
	return coord.Snapshot(), nil
}

func (s *Server) handleRefresh(ctx context.Context, args SessionArgs) (any, error) {
	coord, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	if err := coord.Refresh(ctx); err != nil {
		return nil, toolErr(err)
	}
	return coord.Snapshot(), nil
}

func (s *Server) handleSnapshot(ctx context.Context, args SessionArgs) (any, error) {
	coord, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	return coord.Snapshot(), nil
}

func (s *Server) handleSetTone(ctx context.Context, args ToneArgs) (any, error) {
	tone, err := critique.ParseTone(args.Tone)
	if err != nil {
		return nil, toolErr(err)
	}
	coord, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	if err := coord.SetTone(ctx, tone); err != nil {
		return nil, toolErr(err)
	}
	return coord.Snapshot(), nil
}

func (s *Server) handleSetSimplified(ctx context.Context, args SimplifiedArgs) (any, error) {
	coord, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	if err := coord.SetSimplified(ctx, args.Simplified); err != nil {
		return nil, toolErr(err)
	}
	return coord.Snapshot(), nil
}

func (s *Server) handleSetGrouped(ctx context.Context, args GroupedArgs) (any, error) {
	coord, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	coord.SetGrouped(args.Grouped)
	return coord.Snapshot(), nil
}

func (s *Server) handleToggleTheme(ctx context.Context, args ThemeArgs) (any, error) {
	coord, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	if err := coord.ToggleTheme(args.Theme); err != nil {
		return nil, toolErr(err)
	}
	return coord.Snapshot(), nil
}

func (s *Server) handleRefreshThemes(ctx context.Context, args SessionArgs) (any, error) {
	coord, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	if err := coord.RefreshThemes(ctx); err != nil {
		return nil, mcpErr("Failed to read board themes.")
	}
	return coord.Snapshot(), nil
}

func (s *Server) handleGenerateThemes(ctx context.Context, args SessionArgs) (any, error) {
	coord, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	themes, err := s.services.Themes.Generate(ctx, coord.Snapshot().Points)
	if err != nil {
		return nil, toolErr(err)
	}
	if err := s.services.Workspace.Board.SaveThemes(ctx, themes); err != nil {
		return nil, mcpErr("Failed to write themes to the board.")
	}
	if err := coord.ApplyThemes(themes); err != nil {
		return nil, toolErr(err)
	}
	return map[string]any{"themes": themes}, nil
}

func (s *Server) handlePublish(ctx context.Context, args SessionArgs) (any, error) {
	coord, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	n, err := coord.PostToBoard(ctx)
	if err != nil {
		return nil, toolErr(err)
	}
	return map[string]int{"posted": n}, nil
}

func (s *Server) handleSynthesize(ctx context.Context, args struct{}) (any, error) {
	result, err := s.services.Synthesis.Synthesize(ctx)
	if err != nil {
		s.logger.Error("synthesis failed", "error", err)
		return nil, mcpErr("Failed to read the analysis history.")
	}
	return result, nil
}

func (s *Server) handleSessions(ctx context.Context, args struct{}) (any, error) {
	return map[string][]string{"sessions": s.services.Sessions.IDs()}, nil
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}
