package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/critique/pkg/domain/ai"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

// Snapshot is what UI consumers render. It is a copy; callers may keep it.
type Snapshot struct {
	SessionID     string                   `json:"session_id"`
	Status        critique.SessionStatus   `json:"status"`
	Epoch         uint64                   `json:"epoch"`
	Tone          critique.Tone            `json:"tone"`
	Simplified    bool                     `json:"simplified"`
	Grouped       bool                     `json:"grouped"`
	ChangingTone  bool                     `json:"changing_tone"`
	VariantStatus critique.VariantStatus   `json:"variant_status,omitempty"`
	Challenge     string                   `json:"challenge,omitempty"`
	Text          string                   `json:"text,omitempty"`
	Points        critique.PointSet        `json:"points"`
	Grouping      *critique.ThemedGrouping `json:"grouping,omitempty"`
	Error         string                   `json:"error,omitempty"`
	Version       uint64                   `json:"version"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// CoordinatorConfig wires a Coordinator to its collaborators. Writer and Log
// may be nil.
type CoordinatorConfig struct {
	SessionID string
	Provider  ai.Provider
	Board     critique.BoardReader
	Writer    critique.BoardWriter
	Log       critique.AnalysisLog
	Logger    *slog.Logger
}

// generationCall is one outstanding critique generation. Triggers that
// arrive while it runs wait on done and share err.
type generationCall struct {
	done        chan struct{}
	fingerprint string
	err         error
}

func (g *generationCall) wait(ctx context.Context) error {
	select {
	case <-g.done:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type boardInput struct {
	challenge   string
	decisions   critique.PointSet
	themes      []critique.Theme
	fingerprint string
}

// Coordinator drives one analysis session: it decides when the backend must
// be called and which cached variant is shown.
type Coordinator struct {
	id       string
	provider ai.Provider
	board    critique.BoardReader
	writer   critique.BoardWriter
	cache    *VariantCache
	logger   *slog.Logger

	// background tracks variant requests started on the session's behalf.
	background sync.WaitGroup

	mu           sync.Mutex
	fsm          *critique.SessionStateMachine
	inflight     *generationCall
	fingerprint  string
	challenge    string
	baseText     string
	tone         critique.Tone
	simplified   bool
	grouped      bool
	changingTone bool
	current      critique.Variant
	themes       []critique.Theme
	deselected   map[string]bool
	lastErr      error
	version      uint64
	updatedAt    time.Time
	subscribers  map[int]chan Snapshot
	nextSub      int
	closed       bool
}

func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("coordinator requires a generation provider")
	}
	if cfg.Board == nil {
		return nil, fmt.Errorf("coordinator requires a board reader")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", cfg.SessionID)

	fsm, err := critique.NewSessionStateMachine(cfg.SessionID)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		id:          cfg.SessionID,
		provider:    cfg.Provider,
		board:       cfg.Board,
		writer:      cfg.Writer,
		cache:       NewVariantCache(cfg.Log, logger),
		logger:      logger,
		fsm:         fsm,
		tone:        critique.ToneNormal,
		deselected:  make(map[string]bool),
		subscribers: make(map[int]chan Snapshot),
		updatedAt:   time.Now(),
	}, nil
}

// ID returns the session id.
func (c *Coordinator) ID() string {
	return c.id
}

// Cache exposes the session's variant cache.
func (c *Coordinator) Cache() *VariantCache {
	return c.cache
}

// NotesChanged reacts to new board input. It is a no-op when the session is
// ready and the decisions did not change. A call that arrives during a
// generation waits for it; if the board moved on meanwhile, it then starts
// another one.
func (c *Coordinator) NotesChanged(ctx context.Context) error {
	for {
		in, err := c.readBoard(ctx)
		if err != nil {
			return err
		}

		c.mu.Lock()
		if call := c.inflight; call != nil {
			c.mu.Unlock()
			err := call.wait(ctx)
			if call.fingerprint == in.fingerprint || ctx.Err() != nil {
				return err
			}
			continue
		}
		if in.fingerprint == c.fingerprint && c.fsm.CurrentStatus() == critique.SessionReady {
			c.mu.Unlock()
			return nil
		}
		call, err := c.startLocked(critique.EventNotes, in)
		c.mu.Unlock()
		if err != nil {
			return err
		}
		return c.run(ctx, call, in)
	}
}

// Refresh discards every cached variant and regenerates. It joins a
// generation that is already running.
func (c *Coordinator) Refresh(ctx context.Context) error {
	in, err := c.readBoard(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if call := c.inflight; call != nil {
		c.mu.Unlock()
		return call.wait(ctx)
	}
	call, err := c.startLocked(critique.EventRefresh, in)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.run(ctx, call, in)
}

func (c *Coordinator) readBoard(ctx context.Context) (boardInput, error) {
	challenge, err := c.board.DesignChallenge(ctx)
	if err != nil {
		return boardInput{}, fmt.Errorf("read design challenge: %w", err)
	}
	decisions, err := c.board.ConsensusPoints(ctx)
	if err != nil {
		return boardInput{}, fmt.Errorf("read consensus points: %w", err)
	}
	themes, err := c.board.CurrentThemes(ctx)
	if err != nil {
		c.logger.Warn("failed to read board themes", "error", err)
		themes = nil
	}
	return boardInput{
		challenge:   challenge,
		decisions:   decisions,
		themes:      themes,
		fingerprint: critique.Fingerprint(challenge, decisions),
	}, nil
}

func (c *Coordinator) startLocked(event string, in boardInput) (*generationCall, error) {
	if err := c.fsm.Transition(event); err != nil {
		return nil, err
	}
	c.cache.Advance()
	c.changingTone = false
	call := &generationCall{done: make(chan struct{}), fingerprint: in.fingerprint}
	c.inflight = call
	c.notifyLocked()
	return call, nil
}

// run performs the critique generation for call and settles the session.
func (c *Coordinator) run(ctx context.Context, call *generationCall, in boardInput) error {
	key := c.cache.Key(critique.LevelFull, critique.ToneNormal)
	system, user := CritiquePrompt(in.challenge, in.decisions)
	base, err := c.cache.GetOrCreate(ctx, key, func(ctx context.Context) (string, error) {
		return ai.CompleteText(ctx, c.provider, ai.CompletionRequest{Prompt: user, System: system})
	})
	if err != nil {
		var genErr *critique.GenerationError
		if errors.As(err, &genErr) {
			err = &critique.GenerationError{Stage: critique.StageCritique, Err: genErr.Err}
		}
	}

	c.mu.Lock()
	c.inflight = nil
	defer func() {
		call.err = err
		close(call.done)
		c.mu.Unlock()
	}()

	if err != nil {
		_ = c.fsm.Transition(critique.EventFail)
		c.lastErr = err
		c.fingerprint = ""
		c.baseText = ""
		c.current = critique.Variant{}
		c.notifyLocked()
		c.logger.Error("critique generation failed", "error", err)
		return err
	}

	// A theme refresh may have advanced the epoch while the backend ran.
	if base.Key.Epoch != c.cache.Epoch() {
		key := c.cache.Key(critique.LevelFull, critique.ToneNormal)
		if base, err = c.cache.SeedAndPersist(context.WithoutCancel(ctx), key, base.Text); err != nil {
			return err
		}
	}

	_ = c.fsm.Transition(critique.EventSucceed)
	c.lastErr = nil
	c.fingerprint = in.fingerprint
	c.challenge = in.challenge
	c.baseText = base.Text
	c.tone = critique.ToneNormal
	c.changingTone = false
	c.current = base
	if len(in.themes) > 0 && !sameThemes(c.themes, in.themes) {
		c.applyThemesLocked(in.themes)
	}
	c.notifyLocked()
	c.logger.Info("critique ready", "epoch", base.Key.Epoch, "points", len(base.Points))

	if c.simplified {
		c.requestLocked(context.WithoutCancel(ctx), c.selectedKeyLocked())
	}
	return nil
}

// requestLocked fetches key in the background so the caller does not wait
// for the backend. It does nothing once the coordinator is closed.
func (c *Coordinator) requestLocked(ctx context.Context, key critique.VariantKey) {
	if c.closed {
		return
	}
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		if err := c.showVariant(ctx, key); err != nil {
			c.logger.Warn("background variant failed", "key", key.String(), "error", err)
		}
	}()
}

// SetTone switches the displayed tone. A cached variant is shown at once;
// otherwise the previous variant stays visible with ChangingTone set until
// the new one arrives.
func (c *Coordinator) SetTone(ctx context.Context, tone critique.Tone) error {
	c.mu.Lock()
	if !c.fsm.CurrentStatus().HasCritique() {
		c.mu.Unlock()
		return critique.ErrNotReady
	}
	c.tone = tone
	key := c.selectedKeyLocked()
	c.mu.Unlock()
	return c.showVariant(ctx, key)
}

// ClearTone returns to the normal tone.
func (c *Coordinator) ClearTone(ctx context.Context) error {
	return c.SetTone(ctx, critique.ToneNormal)
}

// SetSimplified toggles simplified wording.
func (c *Coordinator) SetSimplified(ctx context.Context, simplified bool) error {
	c.mu.Lock()
	if !c.fsm.CurrentStatus().HasCritique() {
		c.simplified = simplified
		c.notifyLocked()
		c.mu.Unlock()
		return nil
	}
	c.simplified = simplified
	key := c.selectedKeyLocked()
	c.mu.Unlock()
	return c.showVariant(ctx, key)
}

func (c *Coordinator) selectedKeyLocked() critique.VariantKey {
	return critique.VariantKey{Level: critique.LevelFor(c.simplified), Tone: c.tone, Epoch: c.cache.Epoch()}
}

func (c *Coordinator) showVariant(ctx context.Context, key critique.VariantKey) error {
	if v, ok := c.cache.Lookup(key); ok {
		c.mu.Lock()
		if c.selectedKeyLocked() == key {
			c.current = v
			c.changingTone = false
			c.notifyLocked()
		}
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	if c.selectedKeyLocked() != key || !c.fsm.CurrentStatus().HasCritique() {
		c.mu.Unlock()
		return nil
	}
	base := c.baseText
	c.changingTone = true
	c.notifyLocked()
	c.mu.Unlock()

	system, user := VariantPrompt(base, key)
	v, err := c.cache.GetOrCreate(ctx, key, func(ctx context.Context) (string, error) {
		return ai.CompleteText(ctx, c.provider, ai.CompletionRequest{Prompt: user, System: system})
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectedKeyLocked() != key || !c.fsm.CurrentStatus().HasCritique() {
		recordStale(critique.StageVariant)
		c.logger.Debug("discarding stale variant", "key", key.String())
		return nil
	}
	c.changingTone = false
	if err != nil {
		c.lastErr = err
		c.notifyLocked()
		c.logger.Error("variant generation failed", "key", key.String(), "error", err)
		return err
	}
	c.lastErr = nil
	c.current = v
	c.notifyLocked()
	return nil
}

// SetGrouped toggles theme grouping. It never calls the backend.
func (c *Coordinator) SetGrouped(grouped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grouped = grouped
	c.notifyLocked()
}

// ToggleTheme flips the selection of the theme named name.
func (c *Coordinator) ToggleTheme(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.themes {
		if strings.EqualFold(t.Name, name) {
			id := themeIdentity(t)
			c.deselected[id] = !c.deselected[id]
			c.notifyLocked()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", critique.ErrThemeNotFound, name)
}

// RefreshThemes re-reads the board's theme list. A changed list advances the
// epoch; the base text and the displayed variant are carried into it.
func (c *Coordinator) RefreshThemes(ctx context.Context) error {
	themes, err := c.board.CurrentThemes(ctx)
	if err != nil {
		return fmt.Errorf("read board themes: %w", err)
	}
	return c.ApplyThemes(themes)
}

// ApplyThemes installs themes as the session's theme list.
func (c *Coordinator) ApplyThemes(themes []critique.Theme) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sameThemes(c.themes, themes) {
		return nil
	}
	c.applyThemesLocked(themes)

	if c.baseText == "" {
		c.notifyLocked()
		return nil
	}
	epoch := c.cache.Advance()
	if _, err := c.cache.Seed(critique.VariantKey{Level: critique.LevelFull, Tone: critique.ToneNormal, Epoch: epoch}, c.baseText); err != nil {
		return err
	}
	if c.current.Status == critique.VariantReady && !c.current.Key.IsBase() {
		key := c.current.Key
		key.Epoch = epoch
		if v, err := c.cache.Seed(key, c.current.Text); err == nil {
			c.current = v
		}
	} else if c.current.Status == critique.VariantReady {
		c.current.Key.Epoch = epoch
	}
	// A pending tone or level change was generating for the old epoch; its
	// result will be discarded, so ask again at the new one. A running
	// critique generation resets the selection itself.
	if sel := c.selectedKeyLocked(); c.current.Key != sel && c.inflight == nil && c.fsm.CurrentStatus().HasCritique() {
		c.changingTone = true
		c.requestLocked(context.Background(), sel)
	} else {
		c.changingTone = false
	}
	c.notifyLocked()
	return nil
}

// applyThemesLocked replaces the theme list, carrying local deselection
// across by stable ID first and by name containment otherwise.
func (c *Coordinator) applyThemesLocked(themes []critique.Theme) {
	if len(c.themes) > 0 {
		previous := critique.Assign(nil, c.themes)
		for i := range previous.Groups {
			previous.Groups[i].Theme.Selected = !c.deselected[themeIdentity(previous.Groups[i].Theme)]
		}
		for _, miss := range critique.Unmatched(previous, themes) {
			c.logger.Debug("theme has no match in refreshed list", "theme", miss)
		}
		reconciled := critique.Reconcile(previous, themes)
		deselected := make(map[string]bool)
		for _, g := range reconciled.Groups {
			if !g.Theme.Selected {
				deselected[themeIdentity(g.Theme)] = true
			}
		}
		c.deselected = deselected
	}
	c.themes = append([]critique.Theme(nil), themes...)
}

func themeIdentity(t critique.Theme) string {
	if t.ID != "" {
		return "id:" + t.ID
	}
	return "name:" + strings.ToLower(strings.TrimSpace(t.Name))
}

func sameThemes(a, b []critique.Theme) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name || a[i].Color != b[i].Color {
			return false
		}
		if strings.Join(a[i].Points, "\x00") != strings.Join(b[i].Points, "\x00") {
			return false
		}
	}
	return true
}

// PostToBoard places each active point on the board as a response artifact.
// Individual failures are logged, not returned.
func (c *Coordinator) PostToBoard(ctx context.Context) (int, error) {
	if c.writer == nil {
		return 0, fmt.Errorf("no board writer configured")
	}
	snap := c.Snapshot()
	if !snap.Status.HasCritique() {
		return 0, critique.ErrNotReady
	}
	posted := 0
	for _, p := range snap.Points {
		if err := c.writer.CreateResponseArtifact(ctx, p); err != nil {
			c.logger.Warn("failed to post point to board", "error", err)
			continue
		}
		posted++
	}
	return posted, nil
}

// Snapshot returns the current view of the session.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	s := Snapshot{
		SessionID:    c.id,
		Status:       c.fsm.CurrentStatus(),
		Epoch:        c.cache.Epoch(),
		Tone:         c.tone,
		Simplified:   c.simplified,
		ChangingTone: c.changingTone,
		Challenge:    c.challenge,
		Text:         c.current.Text,
		Points:       c.current.Points.Clone(),
		Version:      c.version,
		UpdatedAt:    c.updatedAt,
	}
	if s.Points == nil {
		s.Points = critique.PointSet{}
	}
	switch {
	case c.changingTone:
		s.VariantStatus = critique.VariantPending
	case c.current.Status != "":
		s.VariantStatus = c.current.Status
	}
	if c.lastErr != nil {
		s.Error = c.lastErr.Error()
	}
	if c.grouped && len(c.themes) > 0 {
		g := critique.Assign(s.Points, c.themes)
		for i := range g.Groups {
			g.Groups[i].Theme.Selected = !c.deselected[themeIdentity(g.Groups[i].Theme)]
		}
		s.Grouped = true
		s.Grouping = &g
	}
	return s
}

// Subscribe returns a channel that receives the latest snapshot after each
// change. Slow readers only see the most recent one. Call cancel to stop.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(ch)
			}
		})
	}
}

func (c *Coordinator) notifyLocked() {
	c.version++
	c.updatedAt = time.Now()
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// Close ends all subscriptions and waits for background variant requests
// and persistence.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
	c.mu.Unlock()
	c.background.Wait()
	c.cache.Wait()
}
