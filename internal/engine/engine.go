// Package engine implements the typing-state machine that classifies
// keystrokes against a fixed target phrase.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrEmptyText is returned when the target phrase is empty.
	ErrEmptyText = errors.New("target text is empty")
	// ErrNotSingleByte is returned when the target phrase holds a byte outside printable ASCII.
	ErrNotSingleByte = errors.New("target text must be printable single-byte characters")
)

// Engine tracks the cursor and per-position classification of a typing run.
// It is not safe for concurrent use.
type Engine struct {
	text   string
	cells  []cell
	cursor int

	now       func() time.Time
	started   bool
	startedAt time.Time
}

// cell holds the three independent overlays for one target index.
type cell struct {
	mismatch  bool
	extension []byte
	// skip is set on the END index of a skipped region; skipStart is the cursor
	// at the moment the skip was taken.
	skip      bool
	skipStart int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for the session timer.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an Engine for text.
func New(text string, opts ...Option) (*Engine, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	for i := 0; i < len(text); i++ {
		if text[i] < 0x20 || text[i] > 0x7e {
			return nil, fmt.Errorf("%w: byte 0x%02x at offset %d", ErrNotSingleByte, text[i], i)
		}
	}
	e := &Engine{
		text:  text,
		cells: make([]cell, len(text)),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MustNew is like New but panics on an invalid phrase.
func MustNew(text string, opts ...Option) *Engine {
	e, err := New(text, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Text returns the target phrase.
func (e *Engine) Text() string { return e.text }

// Len returns the length of the target phrase.
func (e *Engine) Len() int { return len(e.text) }

// Cursor returns the index the engine expects to match next.
func (e *Engine) Cursor() int { return e.cursor }

// Complete reports whether the cursor reached the end of the phrase.
func (e *Engine) Complete() bool { return e.cursor == len(e.text) }

// Started reports whether the session clock is running.
func (e *Engine) Started() bool { return e.started }

// StartedAt returns the instant of the first accepted keystroke.
func (e *Engine) StartedAt() time.Time { return e.startedAt }

type mode int

const (
	modeNormal mode = iota
	modeExtension
)

func (e *Engine) mode() mode {
	if e.cursor < len(e.cells) && len(e.cells[e.cursor].extension) > 0 {
		return modeExtension
	}
	return modeNormal
}

// HandleChar applies one printable keystroke.
func (e *Engine) HandleChar(c byte) Transition {
	t := Transition{Key: KeyChar, Char: c, From: e.cursor}
	if e.Complete() {
		t.Kind = TransitionIgnored
		t.To = e.cursor
		return t
	}
	if !e.started {
		e.started = true
		e.startedAt = e.now()
	}

	target := e.text[e.cursor]
	switch e.mode() {
	case modeExtension:
		// A pending extension captures every key, spaces included.
		cur := &e.cells[e.cursor]
		cur.extension = append(cur.extension, c)
		t.Kind = TransitionExtend
	case modeNormal:
		switch {
		case c == ' ' && target != ' ':
			end := e.boundary(e.cursor)
			e.cells[end].skip = true
			e.cells[end].skipStart = e.cursor
			e.cursor = end + 1
			t.Kind = TransitionSkip
		case c == target:
			e.cursor++
			t.Kind = TransitionMatch
		case target == ' ':
			e.cells[e.cursor].extension = []byte{c}
			t.Kind = TransitionExtensionStart
		default:
			e.cells[e.cursor].mismatch = true
			e.cursor++
			t.Kind = TransitionMismatch
		}
	}
	t.To = e.cursor
	return t
}

// boundary returns the index of the next space at or after from, or the last
// index of the phrase when no space remains.
func (e *Engine) boundary(from int) int {
	i := from
	for e.text[i] != ' ' && i < len(e.text)-1 {
		i++
	}
	return i
}

// HandleBackspace undoes the most recent classification at the cursor.
func (e *Engine) HandleBackspace() Transition {
	t := Transition{Key: KeyBackspace, From: e.cursor}
	switch e.mode() {
	case modeExtension:
		cur := &e.cells[e.cursor]
		cur.extension = cur.extension[:len(cur.extension)-1]
		if len(cur.extension) == 0 {
			cur.extension = nil
			t.Kind = TransitionExtensionEnd
		} else {
			t.Kind = TransitionRetract
		}
	case modeNormal:
		switch {
		case e.cursor == 0:
			t.Kind = TransitionIgnored
		case e.cells[e.cursor-1].skip:
			prev := &e.cells[e.cursor-1]
			e.cursor = prev.skipStart
			prev.skip = false
			prev.skipStart = 0
			t.Kind = TransitionUnskip
		default:
			e.cursor--
			e.cells[e.cursor].mismatch = false
			t.Kind = TransitionStepBack
		}
	}
	t.To = e.cursor
	return t
}

// WPM returns words per minute over the typed prefix. The second result is
// false until the first keystroke.
func (e *Engine) WPM() (float64, bool) {
	if !e.started {
		return 0, false
	}
	return e.wpmAt(e.now()), true
}

func (e *Engine) wpmAt(now time.Time) float64 {
	elapsed := now.Sub(e.startedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	words := len(strings.Fields(e.text[:e.cursor]))
	return float64(words) / elapsed * 60
}

// Mismatches returns the mismatched indices in ascending order.
func (e *Engine) Mismatches() []int {
	var out []int
	for i, c := range e.cells {
		if c.mismatch {
			out = append(out, i)
		}
	}
	return out
}

// Extensions returns the inserted characters keyed by target index.
func (e *Engine) Extensions() map[int]string {
	out := map[int]string{}
	for i, c := range e.cells {
		if len(c.extension) > 0 {
			out[i] = string(c.extension)
		}
	}
	return out
}

// Skips returns skipped regions as end index -> start index.
func (e *Engine) Skips() map[int]int {
	out := map[int]int{}
	for i, c := range e.cells {
		if c.skip {
			out[i] = c.skipStart
		}
	}
	return out
}

// skipRanges returns the skipped regions sorted by start.
func (e *Engine) skipRanges() [][2]int {
	var ranges [][2]int
	for end, c := range e.cells {
		if c.skip {
			ranges = append(ranges, [2]int{c.skipStart, end})
		}
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i][0] < ranges[j][0] })
	return ranges
}
