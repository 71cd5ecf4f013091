package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	cursor     int
	mismatches []int
	extensions map[int]string
	skips      map[int]int
}

func snap(e *Engine) snapshot {
	return snapshot{
		cursor:     e.Cursor(),
		mismatches: e.Mismatches(),
		extensions: e.Extensions(),
		skips:      e.Skips(),
	}
}

func typeString(e *Engine, s string) {
	for i := 0; i < len(s); i++ {
		e.HandleChar(s[i])
	}
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestNewRejectsInvalidText(t *testing.T) {
	_, err := New("")
	require.ErrorIs(t, err, ErrEmptyText)

	_, err = New("naïve")
	require.ErrorIs(t, err, ErrNotSingleByte)
	assert.Contains(t, err.Error(), "offset 2")

	_, err = New("tab\there")
	require.ErrorIs(t, err, ErrNotSingleByte)

	assert.Panics(t, func() { MustNew("") })
}

func TestExactReproductionCompletes(t *testing.T) {
	for _, text := range []string{"a", "ab cd", "The quick brown fox jumped over the lazy wolves.", "two  spaces", " lead"} {
		e := MustNew(text)
		typeString(e, text)
		assert.Equal(t, len(text), e.Cursor(), text)
		assert.Empty(t, e.Mismatches(), text)
		assert.Empty(t, e.Extensions(), text)
		assert.Empty(t, e.Skips(), text)
		assert.True(t, e.Complete(), text)
	}
}

func TestMismatchAndUndo(t *testing.T) {
	e := MustNew("ab cd")
	typeString(e, "ab")
	assert.Equal(t, 2, e.Cursor())
	assert.Empty(t, e.Mismatches())

	tr := e.HandleChar(' ')
	assert.Equal(t, TransitionMatch, tr.Kind)
	assert.Equal(t, 3, e.Cursor())

	tr = e.HandleChar('x')
	assert.Equal(t, TransitionMismatch, tr.Kind)
	assert.Equal(t, []int{3}, e.Mismatches())
	assert.Equal(t, 4, e.Cursor())

	tr = e.HandleBackspace()
	assert.Equal(t, TransitionStepBack, tr.Kind)
	assert.Equal(t, 3, e.Cursor())
	assert.Empty(t, e.Mismatches())
}

func TestEarlySpaceSkipsWord(t *testing.T) {
	e := MustNew("ab cd")
	e.HandleChar('a')
	tr := e.HandleChar(' ')
	assert.Equal(t, TransitionSkip, tr.Kind)
	assert.Equal(t, 1, tr.From)
	assert.Equal(t, 3, tr.To)
	assert.Equal(t, map[int]int{2: 1}, e.Skips())
	assert.Empty(t, e.Mismatches())

	cells := e.Cells()
	assert.Equal(t, CellCorrect, cells[0].State)
	assert.Equal(t, CellIncorrect, cells[1].State)
	assert.Equal(t, CellIncorrect, cells[2].State)
	assert.Equal(t, CellCurrent, cells[3].State)
	assert.Equal(t, CellPending, cells[4].State)

	tr = e.HandleBackspace()
	assert.Equal(t, TransitionUnskip, tr.Kind)
	assert.Equal(t, 1, e.Cursor())
	assert.Empty(t, e.Skips())
}

func TestSkipAfterMismatchesKeepsThem(t *testing.T) {
	e := MustNew("abc de")
	typeString(e, "azz")
	assert.Equal(t, []int{1, 2}, e.Mismatches())
	assert.Equal(t, 3, e.Cursor())

	// The cursor already sits on the space, so a space matches.
	e.HandleChar(' ')
	assert.Equal(t, 4, e.Cursor())
	assert.Empty(t, e.Skips())

	e2 := MustNew("abcd ef")
	typeString(e2, "az ")
	assert.Equal(t, []int{1}, e2.Mismatches())
	assert.Equal(t, map[int]int{4: 2}, e2.Skips())
	assert.Equal(t, 5, e2.Cursor())
}

func TestMismatchNotExtensionInsideWord(t *testing.T) {
	e := MustNew("a bc")
	typeString(e, "a ")
	assert.Equal(t, 2, e.Cursor())

	tr := e.HandleChar('x')
	assert.Equal(t, TransitionMismatch, tr.Kind)
	assert.Equal(t, 3, e.Cursor())
	assert.Equal(t, []int{2}, e.Mismatches())
	assert.Empty(t, e.Extensions())

	typeString(e, "ybc")
	assert.Equal(t, 4, e.Cursor())
	assert.True(t, e.Complete())
	assert.Equal(t, []int{2, 3}, e.Mismatches())
}

func TestExtensionCapturesKeys(t *testing.T) {
	e := MustNew("ab cd")
	typeString(e, "ab")

	tr := e.HandleChar('x')
	assert.Equal(t, TransitionExtensionStart, tr.Kind)
	assert.Equal(t, 2, e.Cursor())
	assert.Equal(t, map[int]string{2: "x"}, e.Extensions())

	// Space and a would-be match are both captured while the extension is pending.
	assert.Equal(t, TransitionExtend, e.HandleChar(' ').Kind)
	assert.Equal(t, TransitionExtend, e.HandleChar('c').Kind)
	assert.Equal(t, map[int]string{2: "x c"}, e.Extensions())
	assert.Equal(t, 2, e.Cursor())

	cells := e.Cells()
	assert.Equal(t, "x c", cells[2].Extension)
	assert.Equal(t, CellCurrent, cells[2].State)

	assert.Equal(t, TransitionRetract, e.HandleBackspace().Kind)
	assert.Equal(t, TransitionRetract, e.HandleBackspace().Kind)
	assert.Equal(t, TransitionExtensionEnd, e.HandleBackspace().Kind)
	assert.Empty(t, e.Extensions())
	assert.Equal(t, 2, e.Cursor())

	e.HandleChar(' ')
	assert.Equal(t, 3, e.Cursor())
}

func TestBackspaceAtStartIsNoop(t *testing.T) {
	e := MustNew("ab")
	before := snap(e)
	tr := e.HandleBackspace()
	assert.Equal(t, TransitionIgnored, tr.Kind)
	assert.Equal(t, before, snap(e))
	assert.False(t, e.Started())
}

func TestBackspaceCrossesMatchedSpace(t *testing.T) {
	e := MustNew("ab cd")
	typeString(e, "ab ")
	tr := e.HandleBackspace()
	assert.Equal(t, TransitionStepBack, tr.Kind)
	assert.Equal(t, 2, e.Cursor())
}

func TestBackspaceIsLeftInverse(t *testing.T) {
	texts := []string{"ab cd", "a bc", "hello world again", "x", "end", "a  b", " lead trail "}
	prefixes := []string{"", "a", "ab", "ab ", "abx", "ab x", "a ", "zz", "q ", "hello wo", "abxy", "a  "}
	keys := []byte{'a', 'b', 'c', 'x', ' ', 'z', '.'}

	for _, text := range texts {
		for _, prefix := range prefixes {
			for _, k := range keys {
				e := MustNew(text)
				typeString(e, prefix)
				if e.Complete() {
					continue
				}
				before := snap(e)
				tr := e.HandleChar(k)
				e.HandleBackspace()
				assert.Equal(t, before, snap(e), "text=%q prefix=%q key=%q transition=%s", text, prefix, k, tr.Kind)
			}
		}
	}
}

func TestMismatchNeverMovesBackward(t *testing.T) {
	e := MustNew("abcdef ghi")
	for i := 0; i < 6; i++ {
		before := e.Cursor()
		n := len(e.Mismatches())
		tr := e.HandleChar('#')
		require.Equal(t, TransitionMismatch, tr.Kind)
		assert.Equal(t, before+1, e.Cursor())
		assert.Len(t, e.Mismatches(), n+1)
	}
}

func TestSkipLandsPastNextSpace(t *testing.T) {
	e := MustNew("one two three")
	for _, want := range []int{4, 8} {
		before := len(e.Skips())
		e.HandleChar(' ')
		assert.Len(t, e.Skips(), before+1)
		assert.Equal(t, want, e.Cursor())
		assert.Equal(t, byte(' '), e.Text()[e.Cursor()-1])
	}
}

func TestSkipAtTextEnd(t *testing.T) {
	e := MustNew("ab cd")
	typeString(e, "ab ")
	tr := e.HandleChar(' ')
	assert.Equal(t, TransitionSkip, tr.Kind)
	assert.Equal(t, 5, e.Cursor())
	assert.True(t, e.Complete())
	// No space remains, so the region ends on the last index.
	assert.Equal(t, map[int]int{4: 3}, e.Skips())
	assert.Equal(t, CellIncorrect, e.Cells()[4].State)

	tr = e.HandleBackspace()
	assert.Equal(t, TransitionUnskip, tr.Kind)
	assert.Equal(t, 3, e.Cursor())
	assert.Empty(t, e.Skips())
}

func TestSkipFromLastCharacter(t *testing.T) {
	e := MustNew("ab")
	e.HandleChar('a')
	e.HandleChar(' ')
	assert.Equal(t, 2, e.Cursor())
	assert.Equal(t, map[int]int{1: 1}, e.Skips())
}

func TestInputAfterCompleteIsIgnored(t *testing.T) {
	e := MustNew("ab")
	typeString(e, "ab")
	before := snap(e)
	tr := e.HandleChar('c')
	assert.Equal(t, TransitionIgnored, tr.Kind)
	assert.Equal(t, before, snap(e))
}

func TestWPM(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	e := MustNew("ab cd ef", WithClock(clock.now))

	_, ok := e.WPM()
	assert.False(t, ok)

	e.HandleChar('a')
	wpm, ok := e.WPM()
	require.True(t, ok)
	assert.Equal(t, 0.0, wpm)

	typeString(e, "b cd ")
	clock.advance(30 * time.Second)
	wpm, ok = e.WPM()
	require.True(t, ok)
	assert.InDelta(t, 4.0, wpm, 1e-9)

	clock.advance(30 * time.Second)
	wpm, _ = e.WPM()
	assert.InDelta(t, 2.0, wpm, 1e-9)
	assert.False(t, math.IsInf(wpm, 0))
}

func TestClockStartsOnceOnBackspaceOnlyInput(t *testing.T) {
	clock := &fakeClock{t: time.Unix(50, 0)}
	e := MustNew("ab", WithClock(clock.now))
	e.HandleChar('x')
	start := e.StartedAt()
	clock.advance(time.Second)
	e.HandleBackspace()
	e.HandleChar('a')
	assert.Equal(t, start, e.StartedAt())
}

func TestCounts(t *testing.T) {
	e := MustNew("abc de fg")
	typeString(e, "axc ")
	e.HandleChar('d')
	e.HandleChar(' ')
	// cursor rests on 'f'
	e.HandleChar(' ')
	c := e.Counts()
	assert.Equal(t, 9, c.Typed)
	assert.Equal(t, 1, c.Mismatches)
	assert.Equal(t, 4, c.Skipped)
	assert.Equal(t, 4, c.Correct)
	assert.InDelta(t, 4.0/9.0, c.Accuracy(), 1e-9)
}
