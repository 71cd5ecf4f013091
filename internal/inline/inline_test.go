package inline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typo/internal/engine"
	"github.com/verte-zerg/typo/internal/logging"
)

// chunkReader returns one chunk per Read, like a raw terminal does per key.
type chunkReader struct {
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func keys(s string) *chunkReader {
	r := &chunkReader{}
	for i := 0; i < len(s); i++ {
		r.chunks = append(r.chunks, []byte{s[i]})
	}
	return r
}

func testOptions() Options {
	now := time.Unix(1700000000, 0)
	return Options{
		Log: logging.Discard().Logger,
		Clock: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
	}
}

func TestRunCompletesPhrase(t *testing.T) {
	var out bytes.Buffer
	res, err := Run(context.Background(), keys("ab cd"), &out, "ab cd", testOptions())
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.True(t, res.HasWPM)
	assert.Equal(t, 5, res.Counts.Correct)

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "Start typing\r\nab cd"))
	assert.Contains(t, got, " wpm\r\n")
	assert.Contains(t, got, "\x1b[1A\x1b[J")
	assert.True(t, strings.HasSuffix(got, "\r\n"))
}

func TestRunBackspaceAndSkip(t *testing.T) {
	var out bytes.Buffer
	in := keys("x\x7f \x7fab cd")
	res, err := Run(context.Background(), in, &out, "ab cd", testOptions())
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 0, res.Counts.Mismatches)
	assert.Equal(t, 0, res.Counts.Skipped)
}

func TestRunEscapeExits(t *testing.T) {
	var out bytes.Buffer
	in := &chunkReader{chunks: [][]byte{{'a'}, {0x1b, '[', 'A'}, {'b'}, {0x1b}, {'c'}}}
	res, err := Run(context.Background(), in, &out, "abc", testOptions())
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 2, res.Counts.Correct)
}

func TestRunCtrlCExits(t *testing.T) {
	var out bytes.Buffer
	res, err := Run(context.Background(), keys("a\x03bc"), &out, "abc", testOptions())
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 1, res.Counts.Typed)
}

func TestRunRejectsInvalidText(t *testing.T) {
	_, err := Run(context.Background(), keys(""), io.Discard, "", testOptions())
	assert.ErrorIs(t, err, engine.ErrEmptyText)
}

func TestFrameHeightWraps(t *testing.T) {
	s := &session{
		engine: engine.MustNew("abcdefghij"),
		opts:   Options{Width: 4},
		styles: newStyles(lipgloss.DefaultRenderer()),
	}
	_, height := s.frame()
	assert.Equal(t, 4, height)
}

func TestSegmentsMergeRuns(t *testing.T) {
	e := engine.MustNew("abcd")
	e.HandleChar('a')
	e.HandleChar('b')
	segs := segments(e.Cells())
	require.Len(t, segs, 3)
	assert.Equal(t, kindCorrect, segs[0].kind)
	assert.Equal(t, "ab", segs[0].text.String())
	assert.Equal(t, kindCursor, segs[1].kind)
	assert.Equal(t, kindPending, segs[2].kind)
}
