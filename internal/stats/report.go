package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/typo/internal/model"
	"github.com/verte-zerg/typo/internal/store"
	"github.com/verte-zerg/typo/internal/trace"
)

// Report contains a recorded run and its replay.
type Report struct {
	Run    model.TraceRun
	Events []model.TraceEvent
	Result trace.Result
}

// BuildReport loads a run and replays it through the engine.
func BuildReport(ctx context.Context, st *store.Store, runID int64) (Report, error) {
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return Report{}, err
	}
	events, err := st.ListEvents(ctx, run.ID)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load events: %w", err)
	}
	res, err := trace.Replay(run.Text, events)
	if err != nil {
		return Report{}, fmt.Errorf("failed to replay run %d: %w", run.ID, err)
	}
	return Report{Run: run, Events: events, Result: res}, nil
}

// RenderReport prints every report section.
func RenderReport(w io.Writer, r Report, width int) error {
	if _, err := fmt.Fprintf(w, "Run %d (%s, %s)\n\n", r.Run.ID, r.Run.Mode, r.Run.StartedAt.Local().Format("2006-01-02 15:04:05")); err != nil {
		return err
	}
	if err := RenderSummary(w, r.Result); err != nil {
		return err
	}
	if err := RenderCurve(w, r.Result.Steps, width); err != nil {
		return err
	}
	if err := RenderMissedChars(w, r.Result, 10); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return RenderEvents(w, r.Result.Steps)
}

// RenderRuns prints one row per recorded run.
func RenderRuns(w io.Writer, runs []model.TraceRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		done := "no"
		if run.Completed {
			done = "yes"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Mode,
			fmt.Sprintf("%d", run.Events),
			done,
			truncate(run.Text, 40),
		})
	}
	return writeTable(w, []string{"Run", "Started", "Mode", "Events", "Done", "Phrase"}, rows, map[int]bool{0: true, 3: true})
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
