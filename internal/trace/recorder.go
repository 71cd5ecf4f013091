// Package trace records keystroke transitions and replays them through the engine.
package trace

import (
	"context"
	"log/slog"
	"time"

	"github.com/verte-zerg/typo/internal/engine"
	"github.com/verte-zerg/typo/internal/model"
	"github.com/verte-zerg/typo/internal/store"
)

// Recorder appends the transitions of one run to a trace store.
// A nil *Recorder records nothing, so adapters can call it unconditionally.
type Recorder struct {
	store  *store.Store
	log    *slog.Logger
	runID  int64
	start  time.Time
	seq    int
	now    func() time.Time
	failed bool
}

// Begin registers a run for text and returns its recorder.
func Begin(ctx context.Context, st *store.Store, log *slog.Logger, text, mode string) (*Recorder, error) {
	r := &Recorder{store: st, log: log, now: time.Now}
	r.start = r.now()
	id, err := st.CreateRun(ctx, r.start, text, mode)
	if err != nil {
		return nil, err
	}
	r.runID = id
	log.Debug("trace run started", "run", id, "mode", mode, "len", len(text))
	return r, nil
}

// RunID returns the id of the recorded run.
func (r *Recorder) RunID() int64 {
	if r == nil {
		return 0
	}
	return r.runID
}

// Record stores one transition. Write failures are logged once and further
// events are dropped, so a broken trace never interrupts practice.
func (r *Recorder) Record(t engine.Transition) {
	if r == nil || r.failed {
		return
	}
	ev := Event(r.runID, r.seq, r.now().Sub(r.start), t)
	if err := r.store.AppendEvent(context.Background(), ev); err != nil {
		r.failed = true
		r.log.Error("failed to record trace event", "run", r.runID, "seq", r.seq, "err", err)
		return
	}
	r.seq++
}

// Event converts an engine transition into its stored form.
func Event(runID int64, seq int, offset time.Duration, t engine.Transition) model.TraceEvent {
	ev := model.TraceEvent{
		RunID:      runID,
		Seq:        seq,
		Offset:     offset,
		Key:        t.Key.String(),
		Transition: t.Kind.String(),
		From:       t.From,
		To:         t.To,
	}
	if t.Key == engine.KeyChar {
		ev.Char = string(rune(t.Char))
	}
	return ev
}

// Finish marks the run as completed or abandoned.
func (r *Recorder) Finish(completed bool) {
	if r == nil {
		return
	}
	if err := r.store.FinishRun(context.Background(), r.runID, completed); err != nil {
		r.log.Error("failed to finish trace run", "run", r.runID, "err", err)
		return
	}
	r.log.Debug("trace run finished", "run", r.runID, "events", r.seq, "completed", completed)
}
