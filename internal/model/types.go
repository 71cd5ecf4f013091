// Package model defines shared data structures.
package model

import "time"

// Config defines practice settings.
type Config struct {
	Text      string
	File      string
	Inline    bool
	TracePath string
}

// ReportConfig selects a recorded run for trace reporting.
type ReportConfig struct {
	Path  string
	RunID int64
}

// TraceRun describes one recorded practice run.
type TraceRun struct {
	ID        int64
	StartedAt time.Time
	Text      string
	Mode      string
	Events    int
	Completed bool
}

// TraceEvent is one keystroke delivered to the engine during a run.
type TraceEvent struct {
	RunID      int64
	Seq        int
	Offset     time.Duration
	Key        string
	Char       string
	Transition string
	From       int
	To         int
}
