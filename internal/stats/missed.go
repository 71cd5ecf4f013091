package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/verte-zerg/typo/internal/engine"
	"github.com/verte-zerg/typo/internal/trace"
)

// CharMiss counts how often a target character was mistyped.
type CharMiss struct {
	Char   string
	Misses int
}

// MissedChars counts mismatch transitions per expected character, including
// ones later undone, ordered by frequency.
func MissedChars(res trace.Result) []CharMiss {
	counts := map[byte]int{}
	for _, s := range res.Steps {
		if s.Transition.Kind != engine.TransitionMismatch {
			continue
		}
		counts[res.Text[s.Transition.From]]++
	}
	out := make([]CharMiss, 0, len(counts))
	for ch, n := range counts {
		out = append(out, CharMiss{Char: string(rune(ch)), Misses: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Misses == out[j].Misses {
			return out[i].Char < out[j].Char
		}
		return out[i].Misses > out[j].Misses
	})
	return out
}

// RenderMissedChars prints the most frequently mistyped characters.
func RenderMissedChars(w io.Writer, res trace.Result, top int) error {
	misses := MissedChars(res)
	if len(misses) == 0 {
		_, err := fmt.Fprintln(w, "No mistyped characters.")
		return err
	}
	if top > 0 && len(misses) > top {
		misses = misses[:top]
	}
	if _, err := fmt.Fprintln(w, "Mistyped Characters"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(misses))
	for _, m := range misses {
		rows = append(rows, []string{m.Char, fmt.Sprintf("%d", m.Misses)})
	}
	return writeTable(w, []string{"Char", "Misses"}, rows, map[int]bool{1: true})
}
