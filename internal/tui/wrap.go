package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/typo/internal/engine"
)

const wrongSpace = '•'

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildStyledRunes turns the engine projection into styled glyphs. Extension
// characters precede the target character they were inserted before.
func buildStyledRunes(text string, cells []engine.Cell, cursor int) []styledRune {
	words := findWords(text)
	currentWord := wordForCursor(words, cursor)

	out := make([]styledRune, 0, len(cells))
	for _, c := range cells {
		if c.Extension != "" {
			for _, r := range c.Extension {
				out = append(out, styledRune{
					s:     extensionStyle.Render(string(r)),
					width: runewidth.RuneWidth(r),
				})
			}
		}
		displayed := rune(c.Char)
		style := pendingStyle
		switch c.State {
		case engine.CellCorrect:
			style = correctStyle
		case engine.CellIncorrect:
			style = incorrectStyle
			if c.Char == ' ' {
				displayed = wrongSpace
			}
		case engine.CellCurrent, engine.CellPending:
			if c.Char != ' ' && currentWord != nil && c.Index >= currentWord.start && c.Index < currentWord.end {
				style = currentWordStyle
			}
		}
		if c.Extension != "" {
			style = incorrectStyle
		}
		if c.State == engine.CellCurrent {
			style = style.Underline(true)
		}
		out = append(out, styledRune{
			s:       style.Render(string(displayed)),
			width:   runewidth.RuneWidth(displayed),
			isSpace: c.Char == ' ',
		})
	}
	return out
}

type wordRange struct {
	start int
	end   int
}

func findWords(text string) []wordRange {
	words := []wordRange{}
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(text)})
	}
	return words
}

// wordForCursor returns the word holding the cursor, or the next word when
// the cursor rests on a space. Nil once the cursor passed the last word.
func wordForCursor(words []wordRange, cursor int) *wordRange {
	for i, w := range words {
		if cursor < w.end {
			return &words[i]
		}
	}
	return nil
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
