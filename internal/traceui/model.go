// Package traceui provides the Bubble Tea trace viewer.
package traceui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typo/internal/engine"
	"github.com/verte-zerg/typo/internal/model"
	"github.com/verte-zerg/typo/internal/stats"
	"github.com/verte-zerg/typo/internal/store"
	"github.com/verte-zerg/typo/internal/trace"
)

const (
	tabReplay = iota
	tabSummary
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))

	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	extensionStyle = incorrectStyle.Strikethrough(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentStyle   = pendingStyle.Underline(true)
)

// Model implements the Bubble Tea trace viewer.
type Model struct {
	store *store.Store

	runs     []model.TraceRun
	runIndex int
	report   stats.Report
	errMsg   string

	tabs      []string
	activeTab int
	events    table.Model
	summary   viewport.Model

	width  int
	height int

	jumpMode  bool
	jumpInput textinput.Model
	jumpError string
}

// NewModel constructs a trace viewer showing cfg.RunID, or the latest run
// when it is zero.
func NewModel(st *store.Store, cfg model.ReportConfig) *Model {
	m := &Model{
		store:   st,
		tabs:    []string{"Replay", "Summary"},
		events:  buildEventTable(nil, 1),
		summary: viewport.New(0, 0),
	}
	m.jumpInput = textinput.New()
	m.jumpInput.Prompt = "Run: "
	m.jumpInput.CharLimit = 12
	m.jumpInput.Cursor.SetMode(cursor.CursorBlink)
	m.loadRuns(cfg.RunID)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.jumpMode {
			return m.updateJump(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "[":
			m.moveRun(-1)
			return m, nil
		case "]":
			m.moveRun(1)
			return m, nil
		case "/":
			m.jumpMode = true
			m.jumpError = ""
			m.jumpInput.SetValue("")
			return m, m.jumpInput.Focus()
		case "g", "home":
			if m.activeTab == tabReplay {
				m.events.GotoTop()
			} else {
				m.summary.GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabReplay {
				m.events.GotoBottom()
			} else {
				m.summary.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabReplay {
			m.events, cmd = m.events.Update(msg)
		} else {
			m.summary, cmd = m.summary.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.jumpMode = false
		m.jumpInput.Blur()
		return m, nil
	case tea.KeyEnter:
		id, err := strconv.ParseInt(strings.TrimSpace(m.jumpInput.Value()), 10, 64)
		if err != nil || id <= 0 {
			m.jumpError = "run must be a positive integer"
			return m, nil
		}
		idx := m.indexOfRun(id)
		if idx < 0 {
			m.jumpError = fmt.Sprintf("run %d not found", id)
			return m, nil
		}
		m.jumpMode = false
		m.jumpInput.Blur()
		m.selectRun(idx)
		return m, nil
	}
	var cmd tea.Cmd
	m.jumpInput, cmd = m.jumpInput.Update(msg)
	return m, cmd
}

func (m *Model) loadRuns(runID int64) {
	runs, err := m.store.ListRuns(context.Background())
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.runs = runs
	if len(runs) == 0 {
		m.errMsg = "No runs recorded."
		return
	}
	idx := len(runs) - 1
	if runID != 0 {
		idx = m.indexOfRun(runID)
		if idx < 0 {
			m.errMsg = fmt.Sprintf("%v: %d", store.ErrRunNotFound, runID)
			return
		}
	}
	m.selectRun(idx)
}

func (m *Model) indexOfRun(id int64) int {
	for i, run := range m.runs {
		if run.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) moveRun(delta int) {
	if len(m.runs) == 0 {
		return
	}
	next := m.runIndex + delta
	if next < 0 || next >= len(m.runs) {
		return
	}
	m.selectRun(next)
}

func (m *Model) selectRun(idx int) {
	m.runIndex = idx
	report, err := stats.BuildReport(context.Background(), m.store, m.runs[idx].ID)
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{Run: m.runs[idx]}
		m.events.SetRows(nil)
		m.summary.SetContent("Failed to replay run.")
		return
	}
	m.errMsg = ""
	m.report = report
	m.events.SetRows(eventRows(report.Result.Steps))
	m.events.GotoTop()
	m.renderSummary()
	m.updateLayout()
}

// Selected returns the run being viewed.
func (m *Model) Selected() model.TraceRun {
	return m.report.Run
}

func (m *Model) moveTab(delta int) {
	next := m.activeTab + delta
	if next < 0 {
		next = len(m.tabs) - 1
	}
	if next >= len(m.tabs) {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabReplay {
		m.events.Focus()
	} else {
		m.events.Blur()
	}
}

func (m *Model) renderSummary() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	var buf bytes.Buffer
	if err := stats.RenderSummary(&buf, m.report.Result); err == nil {
		_ = stats.RenderCurve(&buf, m.report.Result.Steps, width)
		_ = stats.RenderMissedChars(&buf, m.report.Result, 10)
	}
	m.summary.SetContent(strings.TrimRight(buf.String(), "\n"))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(1, lipgloss.Height(activeNavStyle.Render("X")))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" || m.jumpMode {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.summary.Width = m.width
	m.summary.Height = bodyHeight
	m.renderSummary()
	m.events.SetWidth(m.width)
	phraseHeight := lipgloss.Height(m.renderPhrase())
	m.events.SetHeight(max(1, bodyHeight-phraseHeight-2))
	m.jumpInput.Width = max(10, m.width-lipgloss.Width(m.jumpInput.Prompt)-2)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	info := "No run selected"
	if run := m.report.Run; run.ID != 0 {
		status := "abandoned"
		if run.Completed {
			status = "complete"
		}
		info = fmt.Sprintf("Run %d of %d  started=%s  mode=%s  %s",
			run.ID, len(m.runs), run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Mode, status)
	}
	return tabs + "\n" + headerStyle.Render(truncateLine(info, m.width))
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Step: up/down  Runs: [/]  Jump: /  Quit: q")
	if m.jumpMode {
		line := m.jumpInput.View()
		if m.jumpError != "" {
			line += "  " + errorStyle.Render(m.jumpError)
		}
		return headerStyle.Render("enter: open run  esc: cancel") + "\n" + line
	}
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody() string {
	if m.report.Run.ID == 0 {
		return "No runs to show."
	}
	if m.activeTab == tabSummary {
		return m.summary.View()
	}
	return m.renderPhrase() + "\n\n" + tableMutedStyle.Render(m.events.View())
}

// currentStep returns the replayed state at the selected table row.
func (m *Model) currentStep() (trace.Step, bool) {
	steps := m.report.Result.Steps
	if len(steps) == 0 {
		return trace.Step{}, false
	}
	idx := min(max(0, m.events.Cursor()), len(steps)-1)
	return steps[idx], true
}

func (m *Model) renderPhrase() string {
	text := m.report.Run.Text
	if text == "" {
		return ""
	}
	step, ok := m.currentStep()
	cells := step.Cells
	status := "Before first key"
	if ok {
		wpm := "-"
		if step.HasWPM {
			wpm = fmt.Sprintf("%.1f", step.WPM)
		}
		status = fmt.Sprintf("Step %d/%d  %s  %s  cursor %d  wpm %s",
			step.Event.Seq+1, len(m.report.Result.Steps),
			stats.KeyLabel(step.Event.Key, step.Event.Char), step.Event.Transition, step.Cursor, wpm)
	} else if e, err := engine.New(text); err == nil {
		cells = e.Cells()
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	phrase := lipgloss.NewStyle().Width(width).Render(renderCells(cells))
	return headerStyle.Render(truncateLine(status, width)) + "\n" + phrase
}

func renderCells(cells []engine.Cell) string {
	var b strings.Builder
	for _, c := range cells {
		if c.Extension != "" {
			b.WriteString(extensionStyle.Render(c.Extension))
		}
		style := pendingStyle
		switch c.State {
		case engine.CellCorrect:
			style = correctStyle
		case engine.CellIncorrect:
			style = incorrectStyle
		case engine.CellCurrent:
			style = currentStyle
		}
		ch := string(rune(c.Char))
		if c.State == engine.CellIncorrect && c.Char == ' ' {
			ch = "•"
		}
		b.WriteString(style.Render(ch))
	}
	return b.String()
}

func buildEventTable(rows []table.Row, height int) table.Model {
	widths := []int{5, 10, 8, 16, 9, 7}
	columns := make([]table.Column, len(stats.EventHeaders))
	for i, title := range stats.EventHeaders {
		columns[i] = table.Column{Title: title, Width: widths[i]}
	}
	return table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(height),
		table.WithFocused(true),
		table.WithStyles(eventTableStyles()),
	)
}

func eventRows(steps []trace.Step) []table.Row {
	raw := stats.EventRows(steps)
	rows := make([]table.Row, len(raw))
	for i, r := range raw {
		rows[i] = table.Row(r)
	}
	return rows
}

func eventTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
