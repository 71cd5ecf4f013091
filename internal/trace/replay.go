package trace

import (
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/typo/internal/engine"
	"github.com/verte-zerg/typo/internal/model"
)

// ErrDiverged is returned when replaying a run does not reproduce the
// recorded cursor movement.
var ErrDiverged = errors.New("replay diverged from trace")

// Step is the engine state after one replayed event.
type Step struct {
	Event      model.TraceEvent
	Transition engine.Transition
	WPM        float64
	HasWPM     bool
	Cursor     int
	Cells      []engine.Cell
}

// Result is the outcome of replaying a run.
type Result struct {
	Text     string
	Steps    []Step
	Counts   engine.Counts
	Complete bool
	WPM      float64
	HasWPM   bool
	Duration time.Duration
}

// Replay feeds recorded events into a fresh engine, driving its clock from
// the recorded offsets, and checks every transition against the trace.
func Replay(text string, events []model.TraceEvent) (Result, error) {
	var clock time.Time
	e, err := engine.New(text, engine.WithClock(func() time.Time { return clock }))
	if err != nil {
		return Result{}, err
	}
	res := Result{Text: text, Steps: make([]Step, 0, len(events))}
	base := time.Unix(0, 0)
	for _, ev := range events {
		clock = base.Add(ev.Offset)
		want, ok := engine.ParseTransitionKind(ev.Transition)
		if !ok {
			return res, fmt.Errorf("event %d: unknown transition %q", ev.Seq, ev.Transition)
		}
		var t engine.Transition
		switch ev.Key {
		case engine.KeyBackspace.String():
			t = e.HandleBackspace()
		case engine.KeyChar.String():
			if len(ev.Char) != 1 {
				return res, fmt.Errorf("event %d: invalid char %q", ev.Seq, ev.Char)
			}
			t = e.HandleChar(ev.Char[0])
		default:
			return res, fmt.Errorf("event %d: unknown key %q", ev.Seq, ev.Key)
		}
		if t.From != ev.From || t.To != ev.To || t.Kind != want {
			return res, fmt.Errorf("%w at event %d: recorded %s %d->%d, replayed %s %d->%d",
				ErrDiverged, ev.Seq, ev.Transition, ev.From, ev.To, t.Kind, t.From, t.To)
		}
		wpm, ok := e.WPM()
		res.Steps = append(res.Steps, Step{
			Event:      ev,
			Transition: t,
			WPM:        wpm,
			HasWPM:     ok,
			Cursor:     e.Cursor(),
			Cells:      e.Cells(),
		})
	}
	res.Counts = e.Counts()
	res.Complete = e.Complete()
	res.WPM, res.HasWPM = e.WPM()
	if e.Started() {
		res.Duration = clock.Sub(e.StartedAt())
	}
	return res, nil
}
