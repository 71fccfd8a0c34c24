package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/critique/pkg/application"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI for switching tones, wording and themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("CRITIQUE_SKIP_DASHBOARD_RUN") == "true" {
			return nil
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		coord, err := services.Sessions.Open(cliSessionID)
		if err != nil {
			return err
		}
		p := tea.NewProgram(newDashboardModel(cmd.Context(), coord), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("dashboard run failed: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(dashboardCmd)
}

// Styles
var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240")).
	Padding(0, 1)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	PaddingLeft(1).
	PaddingRight(1)

var mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
var statusOK = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
var statusWIP = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
var statusErr = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

var themeColors = map[critique.ThemeColor]lipgloss.Color{
	critique.ColorYellow: lipgloss.Color("220"),
	critique.ColorOrange: lipgloss.Color("208"),
	critique.ColorRed:    lipgloss.Color("196"),
	critique.ColorPink:   lipgloss.Color("205"),
	critique.ColorPurple: lipgloss.Color("141"),
	critique.ColorBlue:   lipgloss.Color("39"),
	critique.ColorGreen:  lipgloss.Color("42"),
	critique.ColorGray:   lipgloss.Color("245"),
}

type dashboardKeys struct {
	Tone       key.Binding
	ClearTone  key.Binding
	Simplified key.Binding
	Grouped    key.Binding
	Themes     key.Binding
	Toggle     key.Binding
	Refresh    key.Binding
	Publish    key.Binding
	Quit       key.Binding
}

func (k dashboardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Tone, k.Simplified, k.Grouped, k.Refresh, k.Publish, k.Quit}
}

func (k dashboardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tone, k.ClearTone, k.Simplified},
		{k.Grouped, k.Themes, k.Toggle},
		{k.Refresh, k.Publish, k.Quit},
	}
}

var keys = dashboardKeys{
	Tone:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "next tone")),
	ClearTone:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "normal tone")),
	Simplified: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "simplify")),
	Grouped:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "group")),
	Themes:     key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "reload themes")),
	Toggle:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "toggle theme")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "regenerate")),
	Publish:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "post to board")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// dashboardSession is the part of a coordinator the dashboard drives.
type dashboardSession interface {
	NotesChanged(ctx context.Context) error
	Refresh(ctx context.Context) error
	SetTone(ctx context.Context, tone critique.Tone) error
	ClearTone(ctx context.Context) error
	SetSimplified(ctx context.Context, simplified bool) error
	SetGrouped(grouped bool)
	ToggleTheme(name string) error
	RefreshThemes(ctx context.Context) error
	PostToBoard(ctx context.Context) (int, error)
	Snapshot() application.Snapshot
	Subscribe() (<-chan application.Snapshot, func())
}

type snapshotMsg application.Snapshot

type actionMsg struct {
	label string
	err   error
}

type closedMsg struct{}

type dashboardModel struct {
	ctx     context.Context
	session dashboardSession
	updates <-chan application.Snapshot
	snap    application.Snapshot
	spinner spinner.Model
	help    help.Model
	status  string
	err     error
}

func newDashboardModel(ctx context.Context, session dashboardSession) dashboardModel {
	updates, _ := session.Subscribe()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(statusWIP))
	return dashboardModel{
		ctx:     ctx,
		session: session,
		updates: updates,
		snap:    session.Snapshot(),
		spinner: sp,
		help:    help.New(),
	}
}

func waitForSnapshot(updates <-chan application.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m dashboardModel) action(label string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{label: label, err: fn(m.ctx)}
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(
		waitForSnapshot(m.updates),
		m.spinner.Tick,
		m.action("analyze", m.session.NotesChanged),
	)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.snap = application.Snapshot(msg)
		return m, waitForSnapshot(m.updates)

	case actionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.label
		} else {
			m.status = ""
		}
		m.snap = m.session.Snapshot()
		return m, nil

	case closedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m dashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Tone):
		next := m.snap.Tone.Next()
		return m, m.action("tone: "+string(next), func(ctx context.Context) error {
			return m.session.SetTone(ctx, next)
		})

	case key.Matches(msg, keys.ClearTone):
		return m, m.action("tone: normal", m.session.ClearTone)

	case key.Matches(msg, keys.Simplified):
		want := !m.snap.Simplified
		return m, m.action(fmt.Sprintf("simplified: %t", want), func(ctx context.Context) error {
			return m.session.SetSimplified(ctx, want)
		})

	case key.Matches(msg, keys.Grouped):
		m.session.SetGrouped(!m.snap.Grouped)
		m.snap = m.session.Snapshot()
		m.err = nil
		return m, nil

	case key.Matches(msg, keys.Themes):
		return m, m.action("themes reloaded", m.session.RefreshThemes)

	case key.Matches(msg, keys.Toggle):
		if m.snap.Grouping == nil {
			m.err = critique.ErrNoThemes
			return m, nil
		}
		idx := int(msg.Runes[0] - '1')
		if idx >= len(m.snap.Grouping.Groups) {
			return m, nil
		}
		if err := m.session.ToggleTheme(m.snap.Grouping.Groups[idx].Theme.Name); err != nil {
			m.err = err
			return m, nil
		}
		m.snap = m.session.Snapshot()
		m.err = nil
		return m, nil

	case key.Matches(msg, keys.Refresh):
		return m, m.action("regenerated", m.session.Refresh)

	case key.Matches(msg, keys.Publish):
		return m, m.action("posted to board", func(ctx context.Context) error {
			_, err := m.session.PostToBoard(ctx)
			return err
		})
	}
	return m, nil
}

func (m dashboardModel) View() string {
	header := headerStyle.Render("Critique")
	if m.snap.Challenge != "" {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, " ", m.snap.Challenge)
	}

	mode := fmt.Sprintf("Tone: %s  Simplified: %t  Grouped: %t", m.snap.Tone, m.snap.Simplified, m.snap.Grouped)
	state := statusOK.Render(m.snap.Status.String())
	if m.snap.Status.IsBusy() || m.snap.ChangingTone {
		state = m.spinner.View() + statusWIP.Render(" "+m.snap.Status.String())
	}

	var body strings.Builder
	switch {
	case !m.snap.Status.HasCritique() && len(m.snap.Points) == 0:
		body.WriteString(mutedStyle.Render("No critique yet."))
	case m.snap.Grouping != nil:
		for i, g := range m.snap.Grouping.Groups {
			style := lipgloss.NewStyle().Bold(true).Foreground(themeColors[g.Theme.Color])
			marker := "[x]"
			if !g.Theme.Selected {
				marker = "[ ]"
				style = mutedStyle
			}
			fmt.Fprintf(&body, "%d %s %s\n", i+1, marker, style.Render(g.Theme.Name))
			if !g.Theme.Selected {
				continue
			}
			for _, p := range g.Points {
				fmt.Fprintf(&body, "      - %s\n", p)
			}
		}
		if len(m.snap.Grouping.Unassigned) > 0 {
			body.WriteString(mutedStyle.Render("  Other") + "\n")
			for _, p := range m.snap.Grouping.Unassigned {
				fmt.Fprintf(&body, "      - %s\n", p)
			}
		}
	default:
		for i, p := range m.snap.Points {
			fmt.Fprintf(&body, "%2d. %s\n", i+1, p)
		}
	}

	footer := ""
	switch {
	case m.err != nil:
		footer = statusErr.Render("Error: " + m.err.Error())
	case m.snap.Error != "":
		footer = statusErr.Render("Last error: " + m.snap.Error)
	case m.status != "":
		footer = mutedStyle.Render(m.status)
	}

	return baseStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			mode+"  "+state,
			"",
			strings.TrimRight(body.String(), "\n"),
			"",
			footer,
			m.help.View(keys),
		),
	) + "\n"
}
