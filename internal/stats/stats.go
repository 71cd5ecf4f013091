// Package stats contains trace statistics and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/typo/internal/trace"
)

const (
	sparkChars          = " .:-=+*#%@"
	terminalWidthBackup = 80
	minCurveWidth       = 10
	curveWindow         = 3
)

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Resample reduces values to at most width points by averaging buckets.
func Resample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		lo := i * len(values) / width
		hi := (i + 1) * len(values) / width
		var sum float64
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

// WPMSeries returns the live WPM after every replayed event that had a clock.
func WPMSeries(steps []trace.Step) []float64 {
	out := make([]float64, 0, len(steps))
	for _, s := range steps {
		if s.HasWPM {
			out = append(out, s.WPM)
		}
	}
	return out
}

// RenderSummary prints the outcome of a replayed run.
func RenderSummary(w io.Writer, res trace.Result) error {
	c := res.Counts
	wpm := "n/a"
	if res.HasWPM {
		wpm = fmt.Sprintf("%.2f", res.WPM)
	}
	status := "abandoned"
	if res.Complete {
		status = "complete"
	}
	backspaces := 0
	for _, s := range res.Steps {
		if s.Event.Key == "backspace" {
			backspaces++
		}
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Phrase: %s", res.Text),
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("Events: %d (%d backspaces)", len(res.Steps), backspaces),
		fmt.Sprintf("Duration: %.2fs", res.Duration.Seconds()),
		fmt.Sprintf("WPM: %s", wpm),
		fmt.Sprintf("Accuracy: %.2f%%", c.Accuracy()*100),
		fmt.Sprintf("Correct: %d  Mismatched: %d  Skipped: %d  Extra chars: %d", c.Correct, c.Mismatches, c.Skipped, c.Inserted),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurve prints the smoothed live WPM sparkline sized to width. A zero
// width uses the terminal width.
func RenderCurve(w io.Writer, steps []trace.Step, width int) error {
	series := WPMSeries(steps)
	if len(series) == 0 {
		return nil
	}
	if width <= 0 {
		width = TerminalWidth()
	}
	width = max(minCurveWidth, width)
	minVal, maxVal := series[0], series[0]
	for _, v := range series {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	lines := []string{
		"WPM Curve",
		Sparkline(Resample(MovingAverage(series, curveWindow), width)),
		fmt.Sprintf("min %.1f  max %.1f  final %.1f", minVal, maxVal, series[len(series)-1]),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// EventHeaders names the columns produced by EventRows.
var EventHeaders = []string{"#", "Time (ms)", "Key", "Transition", "Cursor", "WPM"}

// EventRows formats one row per replayed event.
func EventRows(steps []trace.Step) [][]string {
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		wpm := "-"
		if s.HasWPM {
			wpm = fmt.Sprintf("%.1f", s.WPM)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.Event.Seq),
			fmt.Sprintf("%d", s.Event.Offset.Milliseconds()),
			KeyLabel(s.Event.Key, s.Event.Char),
			s.Event.Transition,
			fmt.Sprintf("%d->%d", s.Event.From, s.Event.To),
			wpm,
		})
	}
	return rows
}

// RenderEvents prints one table row per replayed event.
func RenderEvents(w io.Writer, steps []trace.Step) error {
	if len(steps) == 0 {
		_, err := fmt.Fprintln(w, "No events recorded.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Events"); err != nil {
		return err
	}
	return writeTable(w, EventHeaders, EventRows(steps), map[int]bool{0: true, 1: true, 5: true})
}

// KeyLabel renders a recorded key for display.
func KeyLabel(key, char string) string {
	switch {
	case key == "backspace":
		return "<bs>"
	case char == " ":
		return "<space>"
	default:
		return char
	}
}

// TerminalWidth returns the stdout width, or a fallback when stdout is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
