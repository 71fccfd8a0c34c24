package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/critique/internal/infrastructure/sse"
	"github.com/felixgeelhaar/critique/pkg/application"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

const requestIDHeader = "X-Request-ID"

// ThemeStore persists generated themes back to the board.
type ThemeStore interface {
	SaveThemes(ctx context.Context, themes []critique.Theme) error
}

// Handlers serves the session API.
type Handlers struct {
	sessions  *application.SessionRegistry
	synthesis *application.SynthesisService
	themes    *application.ThemeGenerator
	store     ThemeStore
	provider  string
	version   string
	logger    *slog.Logger
}

// HandlersConfig wires Handlers. Themes and Store may be nil, which disables
// theme generation.
type HandlersConfig struct {
	Sessions  *application.SessionRegistry
	Synthesis *application.SynthesisService
	Themes    *application.ThemeGenerator
	Store     ThemeStore
	Provider  string
	Version   string
	Logger    *slog.Logger
}

func NewHandlers(cfg HandlersConfig) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		sessions:  cfg.Sessions,
		synthesis: cfg.Synthesis,
		themes:    cfg.Themes,
		store:     cfg.Store,
		provider:  cfg.Provider,
		version:   cfg.Version,
		logger:    logger,
	}
}

func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Header(requestIDHeader, id)
	return id
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, critique.ErrNotReady):
		return http.StatusConflict, "NOT_READY"
	case errors.Is(err, critique.ErrUnknownTone), errors.Is(err, critique.ErrUnknownLevel):
		return http.StatusBadRequest, "INVALID_VARIANT"
	case errors.Is(err, critique.ErrInvalidSessionID):
		return http.StatusBadRequest, "INVALID_SESSION_ID"
	case errors.Is(err, critique.ErrThemeNotFound):
		return http.StatusNotFound, "THEME_NOT_FOUND"
	case errors.Is(err, critique.ErrNoThemes):
		return http.StatusUnprocessableEntity, "NO_THEMES"
	case critique.IsGenerationFailure(err):
		return http.StatusBadGateway, "GENERATION_FAILED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (h *Handlers) fail(c *gin.Context, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Warn("request rejected", "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// session resolves :id or writes a 404.
func (h *Handlers) session(c *gin.Context, logger *slog.Logger) (*application.Coordinator, bool) {
	coord, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		logger.Warn("unknown session", "session_id", c.Param("id"))
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found", Code: "SESSION_NOT_FOUND"})
		return nil, false
	}
	return coord, true
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return h.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  h.version,
		Provider: h.provider,
		Sessions: h.sessions.Len(),
	})
}

// HandleOpenSession handles POST /v1/sessions.
func (h *Handlers) HandleOpenSession(c *gin.Context) {
	logger := h.requestLogger(c, "HandleOpenSession")

	var req OpenSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
			return
		}
	}
	coord, err := h.sessions.Open(req.ID)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	logger.Info("session opened", "session_id", coord.ID())
	c.JSON(http.StatusCreated, coord.Snapshot())
}

// HandleListSessions handles GET /v1/sessions.
func (h *Handlers) HandleListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, SessionListResponse{Sessions: h.sessions.IDs()})
}

// HandleCloseSession handles DELETE /v1/sessions/:id.
func (h *Handlers) HandleCloseSession(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCloseSession")
	if _, ok := h.session(c, logger); !ok {
		return
	}
	h.sessions.Close(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// HandleSnapshot handles GET /v1/sessions/:id.
func (h *Handlers) HandleSnapshot(c *gin.Context) {
	coord, ok := h.session(c, h.requestLogger(c, "HandleSnapshot"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

// HandleAnalyze handles POST /v1/sessions/:id/analyze. It reads the board
// and generates only when the decisions changed.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAnalyze")
	coord, ok := h.session(c, logger)
	if !ok {
		return
	}
	if err := coord.NotesChanged(c.Request.Context()); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

// HandleRefresh handles POST /v1/sessions/:id/refresh.
func (h *Handlers) HandleRefresh(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRefresh")
	coord, ok := h.session(c, logger)
	if !ok {
		return
	}
	if err := coord.Refresh(c.Request.Context()); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

// HandleTone handles PUT /v1/sessions/:id/tone. An empty tone clears it.
func (h *Handlers) HandleTone(c *gin.Context) {
	logger := h.requestLogger(c, "HandleTone")
	coord, ok := h.session(c, logger)
	if !ok {
		return
	}
	var req ToneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	tone, err := critique.ParseTone(req.Tone)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	if err := coord.SetTone(c.Request.Context(), tone); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

// HandleSimplified handles PUT /v1/sessions/:id/simplified.
func (h *Handlers) HandleSimplified(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSimplified")
	coord, ok := h.session(c, logger)
	if !ok {
		return
	}
	var req SimplifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	if err := coord.SetSimplified(c.Request.Context(), req.Simplified); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

// HandleGrouping handles PUT /v1/sessions/:id/grouping.
func (h *Handlers) HandleGrouping(c *gin.Context) {
	coord, ok := h.session(c, h.requestLogger(c, "HandleGrouping"))
	if !ok {
		return
	}
	var req GroupingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	coord.SetGrouped(req.Grouped)
	c.JSON(http.StatusOK, coord.Snapshot())
}

// HandleToggleTheme handles POST /v1/sessions/:id/themes/:name/toggle.
func (h *Handlers) HandleToggleTheme(c *gin.Context) {
	logger := h.requestLogger(c, "HandleToggleTheme")
	coord, ok := h.session(c, logger)
	if !ok {
		return
	}
	if err := coord.ToggleTheme(c.Param("name")); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

// HandleRefreshThemes handles POST /v1/sessions/:id/themes/refresh.
func (h *Handlers) HandleRefreshThemes(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRefreshThemes")
	coord, ok := h.session(c, logger)
	if !ok {
		return
	}
	if err := coord.RefreshThemes(c.Request.Context()); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

// HandleGenerateThemes handles POST /v1/sessions/:id/themes/generate. The
// themes are written to the board and applied to the session.
func (h *Handlers) HandleGenerateThemes(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGenerateThemes")
	if h.themes == nil || h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "theme generation is not configured", Code: "THEMES_NOT_CONFIGURED"})
		return
	}
	coord, ok := h.session(c, logger)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	themes, err := h.themes.Generate(ctx, coord.Snapshot().Points)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	if err := h.store.SaveThemes(ctx, themes); err != nil {
		h.fail(c, logger, err)
		return
	}
	if err := coord.ApplyThemes(themes); err != nil {
		h.fail(c, logger, err)
		return
	}
	logger.Info("themes generated", "count", len(themes))
	c.JSON(http.StatusOK, ThemesResponse{Themes: themes})
}

// HandlePublish handles POST /v1/sessions/:id/publish.
func (h *Handlers) HandlePublish(c *gin.Context) {
	logger := h.requestLogger(c, "HandlePublish")
	coord, ok := h.session(c, logger)
	if !ok {
		return
	}
	n, err := coord.PostToBoard(c.Request.Context())
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, PublishResponse{Posted: n})
}

// HandleEvents handles GET /v1/sessions/:id/events as Server-Sent Events.
func (h *Handlers) HandleEvents(c *gin.Context) {
	coord, ok := h.session(c, h.requestLogger(c, "HandleEvents"))
	if !ok {
		return
	}
	sse.NewSSEHandler(coord).ServeHTTP(c.Writer, c.Request)
}

// HandleSynthesis handles GET /v1/synthesis.
func (h *Handlers) HandleSynthesis(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSynthesis")
	result, err := h.synthesis.Synthesize(c.Request.Context())
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
