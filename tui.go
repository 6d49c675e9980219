package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buffos/go-weave/weave"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const maxPlaySize = 16

// =============================================================================
// Keys
// =============================================================================

type playKeyMap struct {
	Raise  key.Binding
	Lower  key.Binding
	Undo   key.Binding
	Redo   key.Binding
	Replay key.Binding
	Abort  key.Binding
	Grow   key.Binding
	Shrink key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultPlayKeys() playKeyMap {
	return playKeyMap{
		Raise: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "over"),
		),
		Lower: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "under"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u", "ctrl+z"),
			key.WithHelp("u", "undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("r", "ctrl+y"),
			key.WithHelp("r", "redo"),
		),
		Replay: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "replay"),
		),
		Abort: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop replay"),
		),
		Grow: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+/-", "grid size"),
		),
		Shrink: key.NewBinding(
			key.WithKeys("-", "_"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k playKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Raise, k.Lower, k.Undo, k.Redo, k.Replay, k.Help, k.Quit}
}

func (k playKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Raise, k.Lower, k.Undo, k.Redo},
		{k.Replay, k.Abort, k.Grow},
		{k.Help, k.Quit},
	}
}

// =============================================================================
// Messages
// =============================================================================

// replayTickMsg advances a running replay. gen ties it to the replay that
// scheduled it so ticks from an aborted replay are dropped.
type replayTickMsg struct{ gen int }

// replaySettledMsg arrives once the finished pattern has been on screen for
// the settle delay.
type replaySettledMsg struct{ gen int }

// =============================================================================
// Model
// =============================================================================

type playStyles struct {
	over, under, gap, title, status lipgloss.Style
}

func newPlayStyles(cfg Config) playStyles {
	return playStyles{
		over:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Colors.Weft)).Bold(true),
		under:  lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Colors.Warp)),
		gap:    lipgloss.NewStyle().Faint(true),
		title:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		status: lipgloss.NewStyle().Italic(true).Faint(true),
	}
}

// playModel is the interactive loom. All session access happens on the
// bubbletea event loop.
type playModel struct {
	sess   *weave.Session
	keys   playKeyMap
	help   help.Model
	styles playStyles

	pace, settle time.Duration
	replay       *weave.Replay
	gen          int

	status   string
	quitting bool
}

func newPlayModel(cfg Config, sess *weave.Session) playModel {
	return playModel{
		sess:   sess,
		keys:   defaultPlayKeys(),
		help:   help.New(),
		styles: newPlayStyles(cfg),
		pace:   cfg.Replay.Delay,
		settle: cfg.Replay.Settle,
		status: "↑ over, ↓ under",
	}
}

func (m playModel) Init() tea.Cmd {
	return nil
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case replayTickMsg:
		if msg.gen != m.gen || m.replay == nil {
			return m, nil
		}
		if m.replay.Next() {
			m.status = fmt.Sprintf("replaying %d/%d", m.replay.Pos(), m.replay.Len())
			return m, m.tick()
		}
		m.replay.Close()
		m.replay = nil
		m.status = "replay finished"
		gen := m.gen
		return m, tea.Tick(m.settle, func(time.Time) tea.Msg { return replaySettledMsg{gen: gen} })

	case replaySettledMsg:
		if msg.gen == m.gen {
			m.sess.Reset()
			m.status = "pattern cleared, press p to replay again"
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m playModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.replay != nil {
			m.replay.Abort()
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Abort):
		if m.replay != nil {
			m.replay.Abort()
			m.replay = nil
			m.gen++
			m.status = "replay aborted"
		}
		return m, nil
	}

	if m.replay != nil || !m.sess.InputEnabled() {
		m.status = "replay running, esc to stop"
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Raise):
		m.status = m.describe(m.sess.Raise(), "over")
	case key.Matches(msg, m.keys.Lower):
		m.status = m.describe(m.sess.Lower(), "under")
	case key.Matches(msg, m.keys.Undo):
		m.status = ternary(m.sess.Undo(), "undone", "nothing to undo")
	case key.Matches(msg, m.keys.Redo):
		m.status = ternary(m.sess.Redo(), "redone", "nothing to redo")
	case key.Matches(msg, m.keys.Grow):
		m.status = m.resize(m.sess.N() + 1)
	case key.Matches(msg, m.keys.Shrink):
		m.status = m.resize(m.sess.N() - 1)
	case key.Matches(msg, m.keys.Replay):
		cmds := m.sess.History().Commands()
		if len(cmds) == 0 {
			m.status = "nothing to replay"
			return m, nil
		}
		m.gen++
		m.replay = weave.NewReplay(m.sess, cmds)
		m.status = fmt.Sprintf("replaying 0/%d", len(cmds))
		return m, m.tick()
	}
	return m, nil
}

func (m playModel) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.pace, func(time.Time) tea.Msg { return replayTickMsg{gen: gen} })
}

func (m playModel) describe(applied bool, what string) string {
	if !applied {
		return "pattern complete"
	}
	return what
}

func (m playModel) resize(n int) string {
	if n > maxPlaySize {
		return fmt.Sprintf("grid is at most %d", maxPlaySize)
	}
	if err := m.sess.Resize(n); err != nil {
		if errors.Is(err, weave.ErrGridTooSmall) {
			return "grid is at least 2"
		}
		return err.Error()
	}
	return fmt.Sprintf("grid %dx%d", n, n)
}

func (m playModel) View() string {
	if m.quitting {
		return ""
	}
	st := m.sess.Snapshot()
	n := st.N()

	var b strings.Builder
	b.WriteString(m.styles.title.Render(fmt.Sprintf("weave %dx%d", n, n)))
	b.WriteString("\n\n")
	// Top row first and mirrored, as the pattern is drawn.
	for r := n - 1; r >= 0; r-- {
		b.WriteString("  ")
		for c := n - 1; c >= 0; c-- {
			switch st.Cell(r*n + c) {
			case weave.Over:
				b.WriteString(m.styles.over.Render("██"))
			case weave.Under:
				b.WriteString(m.styles.under.Render("││"))
			default:
				b.WriteString(m.styles.gap.Render("··"))
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n  cursor %d %s  commands %d  redo %d\n",
		st.Cursor(), st.Direction(), m.sess.History().Len(), m.sess.History().RedoLen())
	b.WriteString("  " + m.styles.status.Render(m.status) + "\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// =============================================================================
// Command
// =============================================================================

func newPlayCmd(c *cli) *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Weave interactively in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(cmd.OutOrStdout()) {
				return errors.New("play needs an interactive terminal")
			}
			sess, err := src.session(c.cfg, c.logger)
			if err != nil {
				return err
			}
			p := tea.NewProgram(newPlayModel(c.cfg, sess), tea.WithContext(cmd.Context()), tea.WithAltScreen())
			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
	src.register(cmd)
	return cmd
}
