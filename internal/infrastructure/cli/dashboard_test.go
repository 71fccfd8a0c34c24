package cli

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/critique/pkg/application"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

type fakeSession struct {
	mu      sync.Mutex
	snap    application.Snapshot
	updates chan application.Snapshot
	calls   []string
	err     error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		snap: application.Snapshot{
			Status:    critique.SessionReady,
			Tone:      critique.ToneNormal,
			Challenge: "Checkout redesign",
			Points:    critique.PointSet{"Guest checkout is hidden", "Coupons break totals"},
		},
		updates: make(chan application.Snapshot, 4),
	}
}

func (f *fakeSession) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeSession) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSession) NotesChanged(ctx context.Context) error { return f.record("notes") }
func (f *fakeSession) Refresh(ctx context.Context) error      { return f.record("refresh") }
func (f *fakeSession) ClearTone(ctx context.Context) error    { return f.record("clear") }
func (f *fakeSession) RefreshThemes(ctx context.Context) error {
	return f.record("themes")
}

func (f *fakeSession) SetTone(ctx context.Context, tone critique.Tone) error {
	if err := f.record("tone:" + string(tone)); err != nil {
		return err
	}
	f.mu.Lock()
	f.snap.Tone = tone
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) SetSimplified(ctx context.Context, simplified bool) error {
	f.mu.Lock()
	f.snap.Simplified = simplified
	f.mu.Unlock()
	return f.record("simplified")
}

func (f *fakeSession) SetGrouped(grouped bool) {
	_ = f.record("grouped")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Grouped = grouped
	if grouped {
		g := critique.Assign(f.snap.Points, []critique.Theme{
			{Name: "Guest", Color: critique.ColorBlue},
			{Name: "Coupons", Color: critique.ColorRed},
		})
		f.snap.Grouping = &g
	} else {
		f.snap.Grouping = nil
	}
}

func (f *fakeSession) ToggleTheme(name string) error {
	if err := f.record("toggle:" + name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap.Grouping.ToggleTheme(name)
}

func (f *fakeSession) PostToBoard(ctx context.Context) (int, error) {
	return len(f.snap.Points), f.record("post")
}

func (f *fakeSession) Snapshot() application.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := f.snap
	if snap.Grouping != nil {
		g := snap.Grouping.Clone()
		snap.Grouping = &g
	}
	return snap
}

func (f *fakeSession) Subscribe() (<-chan application.Snapshot, func()) {
	return f.updates, func() {}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// press sends r and runs the returned command, feeding its message back.
func press(t *testing.T, m dashboardModel, r rune) dashboardModel {
	t.Helper()
	updated, cmd := m.Update(keyPress(r))
	m = updated.(dashboardModel)
	if cmd != nil {
		updated, _ = m.Update(cmd())
		m = updated.(dashboardModel)
	}
	return m
}

func TestDashboardModel_ViewShowsPoints(t *testing.T) {
	m := newDashboardModel(t.Context(), newFakeSession())
	view := m.View()
	for _, want := range []string{"Checkout redesign", "Guest checkout is hidden", "Tone: normal"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestDashboardModel_ToneCycleAndSimplify(t *testing.T) {
	s := newFakeSession()
	m := newDashboardModel(t.Context(), s)

	m = press(t, m, 't')
	if m.snap.Tone != critique.TonePersuasive {
		t.Errorf("tone = %s, want persuasive", m.snap.Tone)
	}
	m = press(t, m, 's')
	if !m.snap.Simplified {
		t.Error("expected simplified after s")
	}
	m = press(t, m, 'n')

	calls := s.called()
	want := []string{"tone:persuasive", "simplified", "clear"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if !strings.Contains(m.View(), "tone: normal") {
		t.Errorf("expected status line, got:\n%s", m.View())
	}
}

func TestDashboardModel_GroupAndToggle(t *testing.T) {
	s := newFakeSession()
	m := newDashboardModel(t.Context(), s)

	m = press(t, m, '1')
	if !errors.Is(m.err, critique.ErrNoThemes) {
		t.Fatalf("expected ErrNoThemes before grouping, got %v", m.err)
	}

	m = press(t, m, 'g')
	if m.snap.Grouping == nil {
		t.Fatal("expected grouping after g")
	}
	if !strings.Contains(m.View(), "[x]") {
		t.Errorf("expected selected markers:\n%s", m.View())
	}

	m = press(t, m, '2')
	if m.err != nil {
		t.Fatalf("toggle: %v", m.err)
	}
	if m.snap.Grouping.Groups[1].Theme.Selected {
		t.Error("second theme should be deselected")
	}
	if strings.Contains(m.View(), "Coupons break totals") {
		t.Error("points of a deselected theme should be hidden")
	}

	// out of range keys are ignored
	m = press(t, m, '9')
	if m.err != nil {
		t.Errorf("unexpected error: %v", m.err)
	}
}

func TestDashboardModel_ActionError(t *testing.T) {
	s := newFakeSession()
	s.err = &critique.GenerationError{Stage: critique.StageCritique, Err: errors.New("backend down")}
	m := newDashboardModel(t.Context(), s)

	m = press(t, m, 'r')
	if m.err == nil {
		t.Fatal("expected error from refresh")
	}
	if !strings.Contains(m.View(), "backend down") {
		t.Errorf("error not rendered:\n%s", m.View())
	}
}

func TestDashboardModel_SnapshotsAndQuit(t *testing.T) {
	s := newFakeSession()
	m := newDashboardModel(t.Context(), s)

	s.updates <- application.Snapshot{Status: critique.SessionRegenerating, Tone: critique.ToneAggressive, Version: 7}
	updated, cmd := m.Update(waitForSnapshot(m.updates)())
	m = updated.(dashboardModel)
	if m.snap.Version != 7 || !m.snap.Status.IsBusy() {
		t.Errorf("snapshot not applied: %+v", m.snap)
	}
	if cmd == nil {
		t.Error("expected a follow-up wait command")
	}

	close(s.updates)
	if _, ok := waitForSnapshot(m.updates)().(closedMsg); !ok {
		t.Error("expected closedMsg after the channel closes")
	}

	_, cmd = m.Update(keyPress('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestDashboardModel_Init(t *testing.T) {
	m := newDashboardModel(t.Context(), newFakeSession())
	if m.Init() == nil {
		t.Fatal("expected init command")
	}
}
