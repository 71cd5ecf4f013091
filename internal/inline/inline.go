// Package inline runs a practice session on the current terminal lines,
// redrawing the WPM line and the phrase in place after every key.
package inline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typo/internal/engine"
	"github.com/verte-zerg/typo/internal/trace"
)

const (
	keyCtrlC     = 0x03
	keyBackspace = 0x08
	keyEscape    = 0x1b
	keyDelete    = 0x7f
)

// Options configures a session.
type Options struct {
	Log      *slog.Logger
	Recorder *trace.Recorder
	Clock    func() time.Time
	// Width is the terminal width used to work out how many lines the last
	// frame occupied. Zero assumes the phrase fits on one line.
	Width int
}

// Result summarizes a finished session.
type Result struct {
	Completed bool
	WPM       float64
	HasWPM    bool
	Counts    engine.Counts
}

type segmentKind int

const (
	kindPending segmentKind = iota
	kindCorrect
	kindIncorrect
	kindCursor
)

type session struct {
	engine *engine.Engine
	out    *bufio.Writer
	opts   Options
	styles map[segmentKind]lipgloss.Style
	height int
}

// Run reads keys from in until the phrase is complete, Esc or Ctrl+C is
// pressed, in reaches EOF or ctx is cancelled. The caller puts the terminal
// in raw mode.
func Run(ctx context.Context, in io.Reader, out io.Writer, text string, opts Options) (Result, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	var engOpts []engine.Option
	if opts.Clock != nil {
		engOpts = append(engOpts, engine.WithClock(opts.Clock))
	}
	e, err := engine.New(text, engOpts...)
	if err != nil {
		return Result{}, err
	}
	s := &session{
		engine: e,
		out:    bufio.NewWriter(out),
		opts:   opts,
		styles: newStyles(lipgloss.NewRenderer(out)),
	}

	if err := s.render(); err != nil {
		return Result{}, err
	}
	buf := make([]byte, 64)
	stop := false
	for !stop && !e.Complete() {
		if err := ctx.Err(); err != nil {
			break
		}
		n, rerr := in.Read(buf)
		if n > 0 {
			stop = s.dispatch(buf[:n])
			if err := s.render(); err != nil {
				return Result{}, err
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return s.result(), fmt.Errorf("failed to read input: %w", rerr)
		}
	}
	if _, err := s.out.WriteString("\r\n"); err != nil {
		return Result{}, err
	}
	if err := s.out.Flush(); err != nil {
		return Result{}, err
	}
	res := s.result()
	opts.Recorder.Finish(res.Completed)
	opts.Log.Info("inline session finished", "completed", res.Completed, "wpm", res.WPM, "accuracy", res.Counts.Accuracy())
	return res, nil
}

// dispatch feeds one read chunk to the engine and reports whether the user
// asked to exit.
func (s *session) dispatch(chunk []byte) bool {
	if chunk[0] == keyEscape {
		// A lone Esc exits; longer chunks are escape sequences (arrows etc.).
		return len(chunk) == 1
	}
	for _, b := range chunk {
		if s.engine.Complete() {
			return false
		}
		switch {
		case b == keyCtrlC:
			return true
		case b == keyBackspace || b == keyDelete:
			s.opts.Recorder.Record(s.engine.HandleBackspace())
		case b >= 0x20 && b <= 0x7e:
			s.opts.Recorder.Record(s.engine.HandleChar(b))
		default:
			s.opts.Log.Debug("ignoring control byte", "byte", b)
		}
	}
	return false
}

func (s *session) result() Result {
	wpm, ok := s.engine.WPM()
	return Result{
		Completed: s.engine.Complete(),
		WPM:       wpm,
		HasWPM:    ok,
		Counts:    s.engine.Counts(),
	}
}

func newStyles(r *lipgloss.Renderer) map[segmentKind]lipgloss.Style {
	return map[segmentKind]lipgloss.Style{
		kindPending:   r.NewStyle(),
		kindCorrect:   r.NewStyle().Foreground(lipgloss.Color("2")),
		kindIncorrect: r.NewStyle().Foreground(lipgloss.Color("1")),
		kindCursor:    r.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7")),
	}
}

type segment struct {
	kind segmentKind
	text strings.Builder
}

// segments groups the phrase into runs of equal styling so each colour
// change is emitted once.
func segments(cells []engine.Cell) []*segment {
	var out []*segment
	add := func(kind segmentKind, s string) {
		if n := len(out); n > 0 && out[n-1].kind == kind {
			out[n-1].text.WriteString(s)
			return
		}
		seg := &segment{kind: kind}
		seg.text.WriteString(s)
		out = append(out, seg)
	}
	for _, c := range cells {
		if c.Extension != "" {
			add(kindIncorrect, c.Extension+string(rune(c.Char)))
			continue
		}
		kind := kindPending
		switch c.State {
		case engine.CellCorrect:
			kind = kindCorrect
		case engine.CellIncorrect:
			kind = kindIncorrect
		case engine.CellCurrent:
			kind = kindCursor
		}
		add(kind, string(rune(c.Char)))
	}
	return out
}

func (s *session) frame() (string, int) {
	var b strings.Builder
	wpm, ok := s.engine.WPM()
	if ok {
		fmt.Fprintf(&b, "%.2f wpm", wpm)
	} else {
		b.WriteString("Start typing")
	}
	b.WriteString("\r\n")
	width := 0
	for _, seg := range segments(s.engine.Cells()) {
		text := seg.text.String()
		width += len(text)
		b.WriteString(s.styles[seg.kind].Render(text))
	}
	lines := 1
	if s.opts.Width > 0 && width > 0 {
		lines = (width + s.opts.Width - 1) / s.opts.Width
	}
	return b.String(), 1 + lines
}

func (s *session) render() error {
	frame, height := s.frame()
	if s.height > 0 {
		s.out.WriteString("\r")
		if s.height > 1 {
			fmt.Fprintf(s.out, "\x1b[%dA", s.height-1)
		}
		s.out.WriteString("\x1b[J")
	}
	s.out.WriteString(frame)
	s.height = height
	return s.out.Flush()
}
