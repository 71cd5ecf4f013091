// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typo/internal/engine"
	"github.com/verte-zerg/typo/internal/trace"
)

const refreshInterval = 250 * time.Millisecond

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	extensionStyle   = incorrectStyle.Strikethrough(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	wpmStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

type keyMap struct {
	Backspace key.Binding
	Restart   key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Restart, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Backspace, k.Restart, k.Quit}}
}

func newKeyMap() keyMap {
	return keyMap{
		Backspace: key.NewBinding(
			key.WithKeys("backspace", "ctrl+h"),
			key.WithHelp("⌫", "undo"),
		),
		Restart: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "again"),
			key.WithDisabled(),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// Options configures a Model.
type Options struct {
	Log *slog.Logger
	// NewRecorder starts a trace run for each practice round. It may be nil
	// or return nil to disable tracing.
	NewRecorder func(text string) *trace.Recorder
	// Clock overrides the engine clock.
	Clock func() time.Time
	// Phrases delivers replacement phrases, applied from the next round.
	Phrases <-chan string
}

type tickMsg time.Time

type phraseMsg struct {
	text string
	ok   bool
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	text     string
	nextText string
	opts     Options
	engine *engine.Engine
	rec    *trace.Recorder

	keys keyMap
	help help.Model

	width  int
	height int

	done     bool
	finalWPM float64
	counts   engine.Counts
	rounds   int
}

// NewModel constructs a typing TUI model for text.
func NewModel(text string, opts Options) (*Model, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	m := &Model{
		text: text,
		opts: opts,
		keys: newKeyMap(),
		help: help.New(),
	}
	if err := m.resetSession(); err != nil {
		return nil, err
	}
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitPhrase())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) waitPhrase() tea.Cmd {
	ch := m.opts.Phrases
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		text, ok := <-ch
		return phraseMsg{text: text, ok: ok}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tick()
	case phraseMsg:
		if !msg.ok {
			return m, nil
		}
		m.nextText = msg.text
		m.opts.Log.Info("phrase queued for next round", "len", len(msg.text))
		return m, m.waitPhrase()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if !m.done {
			m.rec.Finish(false)
			m.opts.Log.Info("session abandoned", "cursor", m.engine.Cursor(), "len", m.engine.Len())
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Restart):
		if err := m.resetSession(); err != nil {
			m.opts.Log.Error("failed to restart session", "err", err)
			return m, tea.Quit
		}
		return m, tick()
	}
	if m.done {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Backspace):
		m.rec.Record(m.engine.HandleBackspace())
	case msg.Type == tea.KeySpace:
		m.handleRunes([]rune{' '})
	case msg.Type == tea.KeyRunes:
		m.handleRunes(msg.Runes)
	default:
		return m, nil
	}
	if m.engine.Complete() {
		m.finishSession()
	}
	return m, nil
}

func (m *Model) handleRunes(runes []rune) {
	for _, r := range runes {
		if m.engine.Complete() {
			return
		}
		if r < 0x20 || r > 0x7e {
			m.opts.Log.Debug("ignoring non-ascii key", "rune", string(r))
			continue
		}
		m.rec.Record(m.engine.HandleChar(byte(r)))
	}
}

func (m *Model) resetSession() error {
	var opts []engine.Option
	if m.opts.Clock != nil {
		opts = append(opts, engine.WithClock(m.opts.Clock))
	}
	text := m.text
	if m.nextText != "" {
		text = m.nextText
	}
	e, err := engine.New(text, opts...)
	if err != nil {
		return err
	}
	m.text = text
	m.nextText = ""
	m.engine = e
	m.done = false
	m.finalWPM = 0
	m.counts = engine.Counts{}
	m.keys.Restart.SetEnabled(false)
	m.rec = nil
	if m.opts.NewRecorder != nil {
		m.rec = m.opts.NewRecorder(text)
	}
	m.rounds++
	m.opts.Log.Debug("session ready", "round", m.rounds, "len", len(m.text), "trace_run", m.rec.RunID())
	return nil
}

func (m *Model) finishSession() {
	m.done = true
	m.finalWPM, _ = m.engine.WPM()
	m.counts = m.engine.Counts()
	m.keys.Restart.SetEnabled(true)
	m.rec.Finish(true)
	m.opts.Log.Info("session complete",
		"round", m.rounds,
		"wpm", m.finalWPM,
		"accuracy", m.counts.Accuracy(),
		"mismatches", m.counts.Mismatches,
		"skipped", m.counts.Skipped,
	)
}

// Done reports whether the current round reached the end of the phrase.
func (m *Model) Done() bool { return m.done }

// FinalWPM returns the WPM of the last completed round.
func (m *Model) FinalWPM() float64 { return m.finalWPM }

// View implements tea.Model.
func (m *Model) View() string {
	styledRunes := buildStyledRunes(m.text, m.engine.Cells(), m.engine.Cursor())
	header := m.renderWPM()
	if m.width == 0 || m.height == 0 {
		return header + "\n" + renderStyledRunes(styledRunes)
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	wrapped := wrapStyledRunes(styledRunes, contentWidth)
	content := lipgloss.NewStyle().Width(contentWidth).Render(header + "\n\n" + wrapped)
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderWPM() string {
	if m.done {
		return wpmStyle.Render(fmt.Sprintf("%.2f wpm · %.1f%% accuracy", m.finalWPM, m.counts.Accuracy()*100))
	}
	wpm, ok := m.engine.WPM()
	if !ok {
		return wpmStyle.Render("Start typing")
	}
	return wpmStyle.Render(fmt.Sprintf("%.2f wpm", wpm))
}

func (m *Model) renderFooter() string {
	progress := int(float64(m.engine.Cursor()) / float64(m.engine.Len()) * 100)
	segments := []string{fmt.Sprintf("Progress %d%%", progress)}
	if m.rounds > 1 {
		segments = append(segments, fmt.Sprintf("Round %d", m.rounds))
	}
	if m.nextText != "" {
		segments = append(segments, "New phrase next round")
	}
	segments = append(segments, m.help.View(m.keys))
	return footerStyle.Render(strings.Join(segments, "  "))
}
