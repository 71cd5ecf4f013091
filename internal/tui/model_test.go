package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typo/internal/logging"
	"github.com/verte-zerg/typo/internal/store"
	"github.com/verte-zerg/typo/internal/trace"
)

func runes(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func newTestModel(t *testing.T, text string, opts Options) *Model {
	t.Helper()
	if opts.Log == nil {
		opts.Log = logging.Discard().Logger
	}
	m, err := NewModel(text, opts)
	require.NoError(t, err)
	return m
}

func TestModelRejectsInvalidPhrase(t *testing.T) {
	_, err := NewModel("", Options{Log: logging.Discard().Logger})
	assert.Error(t, err)
}

func TestModelTypesAndCompletes(t *testing.T) {
	now := time.Unix(100, 0)
	m := newTestModel(t, "ab cd", Options{Clock: func() time.Time { return now }})

	assert.Contains(t, m.View(), "Start typing")
	m.Update(runes("ab"))
	m.Update(runes(" "))
	m.Update(runes("x"))
	assert.Equal(t, []int{3}, m.engine.Mismatches())

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Empty(t, m.engine.Mismatches())
	assert.Equal(t, 3, m.engine.Cursor())

	now = now.Add(30 * time.Second)
	assert.Contains(t, m.View(), "2.00 wpm")

	_, cmd := m.Update(runes("cd"))
	assert.Nil(t, cmd)
	assert.True(t, m.Done())
	assert.InDelta(t, 4.0, m.FinalWPM(), 1e-9)
	assert.Contains(t, m.View(), "100.0% accuracy")

	// Keys after completion do not reach the engine.
	m.Update(runes("z"))
	assert.Equal(t, 5, m.engine.Cursor())
}

func TestModelIgnoresNonASCII(t *testing.T) {
	m := newTestModel(t, "ab", Options{})
	m.Update(runes("é"))
	assert.Equal(t, 0, m.engine.Cursor())
	assert.False(t, m.engine.Started())
}

func TestModelRestartAfterCompletion(t *testing.T) {
	m := newTestModel(t, "ab", Options{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "restart is disabled while typing")

	m.Update(runes("ab"))
	require.True(t, m.Done())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd)
	assert.False(t, m.Done())
	assert.Equal(t, 0, m.engine.Cursor())
	assert.Contains(t, m.renderFooter(), "Round 2")
}

func TestModelAppliesPhraseNextRound(t *testing.T) {
	phrases := make(chan string, 1)
	m := newTestModel(t, "ab", Options{Phrases: phrases})
	phrases <- "xy z"

	_, cmd := m.Update(m.waitPhrase()())
	assert.NotNil(t, cmd, "keeps listening for phrases")
	assert.Equal(t, "ab", m.engine.Text(), "current round keeps its phrase")
	assert.Contains(t, m.renderFooter(), "New phrase next round")

	m.Update(runes("ab"))
	require.True(t, m.Done())
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "xy z", m.engine.Text())
	assert.NotContains(t, m.renderFooter(), "New phrase")

	close(phrases)
	_, cmd = m.Update(m.waitPhrase()())
	assert.Nil(t, cmd)
}

func TestModelQuit(t *testing.T) {
	m := newTestModel(t, "ab", Options{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, isQuit(cmd))

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, isQuit(cmd))
}

func TestModelRecordsTrace(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	ctx := context.Background()
	log := logging.Discard().Logger

	var recs []*trace.Recorder
	m := newTestModel(t, "ab", Options{NewRecorder: func(text string) *trace.Recorder {
		rec, err := trace.Begin(ctx, st, log, text, "tui")
		require.NoError(t, err)
		recs = append(recs, rec)
		return rec
	}})
	m.Update(runes("x"))
	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m.Update(runes("ab"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(runes("a"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.Len(t, recs, 2)
	first, err := st.GetRun(ctx, recs[0].RunID())
	require.NoError(t, err)
	assert.Equal(t, 4, first.Events)
	assert.True(t, first.Completed)

	second, err := st.GetRun(ctx, recs[1].RunID())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Events)
	assert.False(t, second.Completed)
}

func TestViewWithSize(t *testing.T) {
	m := newTestModel(t, "the quick brown fox", Options{})
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	out := m.View()
	assert.Equal(t, 10, strings.Count(out, "\n")+1)
	assert.Contains(t, out, "Progress 0%")
	assert.Contains(t, out, "quit")
}
