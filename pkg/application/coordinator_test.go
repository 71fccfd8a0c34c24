package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/critique/pkg/domain/ai"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

// critiqueFor derives a deterministic critique from the decisions in the prompt.
func critiqueFor(req ai.CompletionRequest) string {
	var points []string
	for _, line := range strings.Split(req.Prompt, "\n") {
		if strings.HasPrefix(line, "- ") {
			points = append(points, "Risk in "+strings.TrimPrefix(line, "- "))
		}
	}
	return strings.Join(points, " ** ")
}

// rewriteFor tags every point with the requested tone.
func rewriteFor(req ai.CompletionRequest) string {
	tag := "rewritten"
	for tone, instruction := range toneInstructions {
		if strings.HasPrefix(req.Prompt, instruction) {
			tag = string(tone)
		}
	}
	if strings.Contains(req.Prompt, "plain words") {
		tag += "+simple"
	}
	body := req.Prompt[strings.LastIndex(req.Prompt, "Points:\n")+len("Points:\n"):]
	var out []string
	for _, p := range critique.Split(body) {
		out = append(out, "["+tag+"] "+p)
	}
	return strings.Join(out, " ** ")
}

func defaultRespond(ctx context.Context, req ai.CompletionRequest) (string, error) {
	if isVariant(req) {
		return rewriteFor(req), nil
	}
	return critiqueFor(req), nil
}

type harness struct {
	coord    *Coordinator
	board    *fakeBoard
	log      *fakeLog
	provider *scriptedProvider
}

func newHarness(t *testing.T, respond func(context.Context, ai.CompletionRequest) (string, error)) *harness {
	t.Helper()
	if respond == nil {
		respond = defaultRespond
	}
	h := &harness{
		board:    &fakeBoard{challenge: "Redesign checkout", decisions: critique.PointSet{"Remove guest checkout", "Add upsell step"}},
		log:      &fakeLog{},
		provider: &scriptedProvider{respond: respond},
	}
	coord, err := NewCoordinator(CoordinatorConfig{
		SessionID: "s1",
		Provider:  h.provider,
		Board:     h.board,
		Writer:    h.board,
		Log:       h.log,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	h.coord = coord
	t.Cleanup(coord.Close)
	return h
}

func TestCoordinator_InitialGeneration(t *testing.T) {
	h := newHarness(t, nil)
	if got := h.coord.Snapshot().Status; got != critique.SessionIdle {
		t.Fatalf("expected idle, got %s", got)
	}
	if err := h.coord.NotesChanged(context.Background()); err != nil {
		t.Fatalf("NotesChanged: %v", err)
	}

	snap := h.coord.Snapshot()
	if snap.Status != critique.SessionReady {
		t.Fatalf("expected ready, got %s", snap.Status)
	}
	want := critique.PointSet{"Risk in Remove guest checkout", "Risk in Add upsell step"}
	if !snap.Points.Equal(want) {
		t.Errorf("points = %q, want %q", snap.Points, want)
	}
	if snap.Tone != critique.ToneNormal || snap.VariantStatus != critique.VariantReady {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Challenge != "Redesign checkout" {
		t.Errorf("challenge = %q", snap.Challenge)
	}

	h.coord.Cache().Wait()
	if h.log.len() != 1 {
		t.Errorf("expected the critique to be persisted once, got %d", h.log.len())
	}
}

func TestCoordinator_NotesChangedIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := h.coord.NotesChanged(ctx); err != nil {
			t.Fatalf("NotesChanged: %v", err)
		}
	}
	if n := h.provider.count(isCritique); n != 1 {
		t.Fatalf("unchanged notes should not regenerate, got %d critique calls", n)
	}

	epoch := h.coord.Snapshot().Epoch
	h.board.setDecisions("Remove guest checkout", "Add upsell step", "Hide shipping costs")
	if err := h.coord.NotesChanged(ctx); err != nil {
		t.Fatalf("NotesChanged: %v", err)
	}
	snap := h.coord.Snapshot()
	if n := h.provider.count(isCritique); n != 2 {
		t.Errorf("changed notes should regenerate, got %d critique calls", n)
	}
	if len(snap.Points) != 3 || snap.Epoch <= epoch {
		t.Errorf("expected 3 points in a newer epoch, got %d points at epoch %d", len(snap.Points), snap.Epoch)
	}
}

func TestCoordinator_OverlappingTriggersCollapse(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	h := newHarness(t, func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		if isCritique(req) {
			started <- struct{}{}
			<-release
		}
		return defaultRespond(ctx, req)
	})

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- h.coord.NotesChanged(context.Background())
	}()
	<-started
	if got := h.coord.Snapshot().Status; got != critique.SessionGenerating {
		t.Errorf("expected generating, got %s", got)
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(refresh bool) {
			defer wg.Done()
			if refresh {
				errs <- h.coord.Refresh(context.Background())
				return
			}
			errs <- h.coord.NotesChanged(context.Background())
		}(i == 0)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("trigger failed: %v", err)
		}
	}
	if n := h.provider.count(isCritique); n != 1 {
		t.Fatalf("expected one generation for overlapping triggers, got %d", n)
	}
}

func TestCoordinator_FailureAndRecovery(t *testing.T) {
	var mu sync.Mutex
	fail := true
	h := newHarness(t, func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return "", errBackend
		}
		return defaultRespond(ctx, req)
	})

	err := h.coord.NotesChanged(context.Background())
	if !critique.IsGenerationFailure(err) {
		t.Fatalf("expected generation failure, got %v", err)
	}
	var genErr *critique.GenerationError
	if errors.As(err, &genErr) && genErr.Stage != critique.StageCritique {
		t.Errorf("expected critique stage, got %s", genErr.Stage)
	}

	snap := h.coord.Snapshot()
	if snap.Status != critique.SessionError || snap.Error == "" {
		t.Fatalf("expected error state with message, got %+v", snap)
	}
	if len(snap.Points) != 0 {
		t.Errorf("no partial state should be kept, got %q", snap.Points)
	}
	if err := h.coord.SetTone(context.Background(), critique.ToneAggressive); !errors.Is(err, critique.ErrNotReady) {
		t.Errorf("expected ErrNotReady in error state, got %v", err)
	}

	mu.Lock()
	fail = false
	mu.Unlock()
	if err := h.coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap = h.coord.Snapshot()
	if snap.Status != critique.SessionReady || snap.Error != "" {
		t.Errorf("expected recovery to ready, got %+v", snap)
	}
}

func TestCoordinator_ToneUsesCache(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if err := h.coord.NotesChanged(ctx); err != nil {
		t.Fatal(err)
	}

	if err := h.coord.SetTone(ctx, critique.ToneAggressive); err != nil {
		t.Fatalf("SetTone: %v", err)
	}
	snap := h.coord.Snapshot()
	if snap.Tone != critique.ToneAggressive || !strings.HasPrefix(snap.Points[0], "[aggressive]") {
		t.Fatalf("expected aggressive variant, got %+v", snap)
	}

	if err := h.coord.ClearTone(ctx); err != nil {
		t.Fatalf("ClearTone: %v", err)
	}
	if got := h.coord.Snapshot().Points[0]; got != "Risk in Remove guest checkout" {
		t.Errorf("clearing tone should restore the normal variant, got %q", got)
	}
	if err := h.coord.SetTone(ctx, critique.ToneAggressive); err != nil {
		t.Fatal(err)
	}
	if n := h.provider.count(isVariant); n != 1 {
		t.Errorf("cached tones should not regenerate, got %d variant calls", n)
	}
}

func TestCoordinator_SimplifiedIsIndependentDimension(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if err := h.coord.NotesChanged(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.coord.SetSimplified(ctx, true); err != nil {
		t.Fatalf("SetSimplified: %v", err)
	}
	if err := h.coord.SetTone(ctx, critique.ToneCritical); err != nil {
		t.Fatal(err)
	}
	snap := h.coord.Snapshot()
	if !snap.Simplified || !strings.HasPrefix(snap.Points[0], "[critical+simple]") {
		t.Fatalf("expected simplified critical variant, got %q", snap.Points)
	}
	if err := h.coord.SetSimplified(ctx, false); err != nil {
		t.Fatal(err)
	}
	if got := h.coord.Snapshot().Points[0]; !strings.HasPrefix(got, "[critical]") {
		t.Errorf("expected full critical variant, got %q", got)
	}
	if n := h.provider.count(isVariant); n != 3 {
		t.Errorf("expected 3 distinct variant generations, got %d", n)
	}
}

func TestCoordinator_ChangingToneKeepsPreviousVariant(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	h := newHarness(t, func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		if isVariant(req) {
			started <- struct{}{}
			<-release
		}
		return defaultRespond(ctx, req)
	})
	ctx := context.Background()
	if err := h.coord.NotesChanged(ctx); err != nil {
		t.Fatal(err)
	}
	before := h.coord.Snapshot().Points

	done := make(chan error, 1)
	go func() { done <- h.coord.SetTone(ctx, critique.TonePersuasive) }()
	<-started

	snap := h.coord.Snapshot()
	if !snap.ChangingTone || snap.VariantStatus != critique.VariantPending {
		t.Errorf("expected changing tone while pending, got %+v", snap)
	}
	if !snap.Points.Equal(before) {
		t.Errorf("previous variant should stay visible, got %q", snap.Points)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("SetTone: %v", err)
	}
	snap = h.coord.Snapshot()
	if snap.ChangingTone || !strings.HasPrefix(snap.Points[0], "[persuasive]") {
		t.Errorf("expected persuasive variant after resolve, got %+v", snap)
	}
}

func TestCoordinator_StaleToneResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	h := newHarness(t, func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		if isVariant(req) {
			started <- struct{}{}
			<-release
		}
		return defaultRespond(ctx, req)
	})
	ctx := context.Background()
	if err := h.coord.NotesChanged(ctx); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- h.coord.SetTone(ctx, critique.ToneAggressive) }()
	<-started

	h.board.setDecisions("Ship without analytics")
	if err := h.coord.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	refreshed := h.coord.Snapshot().Points

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale result should be discarded silently, got %v", err)
	}

	snap := h.coord.Snapshot()
	if !snap.Points.Equal(refreshed) {
		t.Fatalf("displayed %q, want refreshed %q", snap.Points, refreshed)
	}
	if !snap.Points.Equal(critique.PointSet{"Risk in Ship without analytics"}) {
		t.Errorf("unexpected refreshed points %q", snap.Points)
	}
	if snap.Tone != critique.ToneNormal || snap.ChangingTone {
		t.Errorf("refresh should reset tone and busy flag, got %+v", snap)
	}
	h.coord.Cache().Wait()
	for _, rec := range h.log.records {
		if rec.tone == critique.ToneAggressive {
			t.Error("stale variant must not be persisted")
		}
	}
}

func TestCoordinator_Grouping(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if err := h.coord.NotesChanged(ctx); err != nil {
		t.Fatal(err)
	}

	h.coord.SetGrouped(true)
	snap := h.coord.Snapshot()
	if snap.Grouped || snap.Grouping != nil {
		t.Fatalf("grouping without themes should degrade to flat, got %+v", snap)
	}

	h.board.setThemes(
		critique.Theme{ID: "t1", Name: "Guest checkout", Color: critique.ColorRed},
		critique.Theme{ID: "t2", Name: "Upsell", Color: critique.ColorBlue},
	)
	epoch := snap.Epoch
	if err := h.coord.RefreshThemes(ctx); err != nil {
		t.Fatalf("RefreshThemes: %v", err)
	}
	snap = h.coord.Snapshot()
	if !snap.Grouped || snap.Grouping == nil || len(snap.Grouping.Groups) != 2 {
		t.Fatalf("expected two groups, got %+v", snap.Grouping)
	}
	if snap.Epoch != epoch+1 {
		t.Errorf("a new theme list should advance the epoch, got %d -> %d", epoch, snap.Epoch)
	}
	if len(snap.Points) != 2 {
		t.Errorf("displayed points should survive a theme change, got %q", snap.Points)
	}

	if err := h.coord.ToggleTheme("upsell"); err != nil {
		t.Fatalf("ToggleTheme: %v", err)
	}
	snap = h.coord.Snapshot()
	if snap.Grouping.Groups[1].Theme.Selected {
		t.Error("upsell should be deselected")
	}
	if snap.Grouping.TotalPoints() != 2 {
		t.Errorf("deselected points still count, got %d", snap.Grouping.TotalPoints())
	}

	// A renamed theme keeps its local selection through ID matching.
	h.board.setThemes(
		critique.Theme{ID: "t1", Name: "Guest checkout", Color: critique.ColorRed},
		critique.Theme{ID: "t2", Name: "Upsell flow", Color: critique.ColorGreen},
	)
	if err := h.coord.RefreshThemes(ctx); err != nil {
		t.Fatal(err)
	}
	snap = h.coord.Snapshot()
	if snap.Grouping.Groups[1].Theme.Name != "Upsell flow" || snap.Grouping.Groups[1].Theme.Selected {
		t.Errorf("expected deselected 'Upsell flow', got %+v", snap.Grouping.Groups[1].Theme)
	}

	if err := h.coord.ToggleTheme("missing"); !errors.Is(err, critique.ErrThemeNotFound) {
		t.Errorf("expected ErrThemeNotFound, got %v", err)
	}
	if n := h.provider.count(isCritique); n != 1 {
		t.Errorf("grouping must not trigger generation, got %d critique calls", n)
	}
}

func TestCoordinator_PostToBoard(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if _, err := h.coord.PostToBoard(ctx); !errors.Is(err, critique.ErrNotReady) {
		t.Fatalf("expected ErrNotReady before generation, got %v", err)
	}
	if err := h.coord.NotesChanged(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := h.coord.PostToBoard(ctx)
	if err != nil {
		t.Fatalf("PostToBoard: %v", err)
	}
	if n != 2 || len(h.board.posted) != 2 {
		t.Errorf("expected 2 artifacts, got %d (%v)", n, h.board.posted)
	}
}

func TestCoordinator_Subscribe(t *testing.T) {
	h := newHarness(t, nil)
	updates, cancel := h.coord.Subscribe()
	defer cancel()

	initial := <-updates
	if initial.Status != critique.SessionIdle {
		t.Fatalf("expected idle initial snapshot, got %s", initial.Status)
	}
	if err := h.coord.NotesChanged(context.Background()); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.Status == critique.SessionReady {
				if snap.Version <= initial.Version {
					t.Errorf("version should increase, got %d after %d", snap.Version, initial.Version)
				}
				return
			}
		case <-deadline:
			t.Fatal("never observed ready snapshot")
		}
	}
}

func TestCoordinator_BoardReadError(t *testing.T) {
	h := newHarness(t, nil)
	h.board.readErr = errors.New("board offline")
	if err := h.coord.NotesChanged(context.Background()); err == nil {
		t.Fatal("expected board read error")
	}
	if got := h.coord.Snapshot().Status; got != critique.SessionIdle {
		t.Errorf("board errors should not change state, got %s", got)
	}
}

func TestCoordinator_ThemeChangeDuringToneChangeRequestsToneAgain(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	h := newHarness(t, func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		if isVariant(req) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
		}
		return defaultRespond(ctx, req)
	})
	ctx := context.Background()
	if err := h.coord.NotesChanged(ctx); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- h.coord.SetTone(ctx, critique.ToneAggressive) }()
	<-started

	if err := h.coord.ApplyThemes([]critique.Theme{{Name: "Checkout"}}); err != nil {
		t.Fatalf("ApplyThemes: %v", err)
	}
	if snap := h.coord.Snapshot(); !snap.ChangingTone || snap.Tone != critique.ToneAggressive {
		t.Errorf("tone change should still be pending after the theme change, got %+v", snap)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("SetTone: %v", err)
	}
	h.coord.background.Wait()

	snap := h.coord.Snapshot()
	if snap.ChangingTone || snap.VariantStatus != critique.VariantReady {
		t.Fatalf("expected settled variant, got %+v", snap)
	}
	if snap.Tone != critique.ToneAggressive || len(snap.Points) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	for _, p := range snap.Points {
		if !strings.HasPrefix(p, "[aggressive]") {
			t.Errorf("displayed point %q is not in the selected tone", p)
		}
	}
	if snap.Epoch != h.coord.Cache().Epoch() {
		t.Errorf("displayed epoch %d, cache epoch %d", snap.Epoch, h.coord.Cache().Epoch())
	}

	h.coord.Cache().Wait()
	aggressive := 0
	for _, rec := range h.log.records {
		if rec.tone == critique.ToneAggressive {
			aggressive++
		}
	}
	if aggressive != 1 {
		t.Errorf("expected one aggressive record, got %d", aggressive)
	}
}

func TestCoordinator_CritiqueRegeneratedAcrossThemeChangeIsPersisted(t *testing.T) {
	var gate sync.Mutex
	var release chan struct{}
	started := make(chan struct{}, 1)
	h := newHarness(t, func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		gate.Lock()
		wait := release
		gate.Unlock()
		if isCritique(req) && wait != nil {
			started <- struct{}{}
			<-wait
		}
		return defaultRespond(ctx, req)
	})
	ctx := context.Background()
	if err := h.coord.NotesChanged(ctx); err != nil {
		t.Fatal(err)
	}
	h.coord.Cache().Wait()
	before := h.log.len()

	gate.Lock()
	release = make(chan struct{})
	gate.Unlock()
	h.board.setDecisions("Ship without analytics")
	done := make(chan error, 1)
	go func() { done <- h.coord.Refresh(ctx) }()
	<-started

	if err := h.coord.ApplyThemes([]critique.Theme{{Name: "Analytics"}}); err != nil {
		t.Fatalf("ApplyThemes: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	snap := h.coord.Snapshot()
	want := critique.PointSet{"Risk in Ship without analytics"}
	if !snap.Points.Equal(want) || snap.Epoch != h.coord.Cache().Epoch() {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if v, ok := h.coord.Cache().Lookup(h.coord.Cache().Key(critique.LevelFull, critique.ToneNormal)); !ok || !v.Points.Equal(want) {
		t.Errorf("regenerated critique should be cached at the new epoch, got %+v", v)
	}

	h.coord.Cache().Wait()
	if got := h.log.len(); got != before+1 {
		t.Fatalf("persisted before=%d after=%d, want one new record", before, got)
	}
	if last := h.log.records[len(h.log.records)-1]; !last.points.Equal(want) {
		t.Errorf("persisted %q, want %q", last.points, want)
	}
}

func TestCoordinator_CloseWaitsForBackgroundVariant(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	h := newHarness(t, func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		if isVariant(req) {
			started <- struct{}{}
			<-release
		}
		return defaultRespond(ctx, req)
	})
	ctx := context.Background()
	if err := h.coord.SetSimplified(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := h.coord.NotesChanged(ctx); err != nil {
		t.Fatal(err)
	}
	<-started

	closed := make(chan struct{})
	go func() {
		h.coord.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("Close returned while a simplified variant was still generating")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the variant resolved")
	}
	simplified := 0
	for _, rec := range h.log.records {
		if rec.level == critique.LevelSimplified {
			simplified++
		}
	}
	if simplified != 1 {
		t.Errorf("expected the simplified variant persisted before Close returned, got %d", simplified)
	}
}
