// Package progress reports pipeline progress to the terminal.
package progress

import "time"

// Stage identifies which pipeline stage is active.
type Stage string

const (
	StageIngest   Stage = "ingest"
	StageScript   Stage = "script"
	StageMetadata Stage = "metadata"
	StageAudio    Stage = "audio"
	StageAssembly Stage = "assembly"
	StageComplete Stage = "complete"
)

// Event carries progress information from the pipeline to the renderer.
type Event struct {
	Stage   Stage
	Message string
	Percent float64 // 0.0–1.0
	Step    int     // segment or turn number, 1-based
	Total   int
	Elapsed time.Duration
	Error   error

	// Artifacts lists files written by the stage, set on StageComplete.
	Artifacts []string
	// Warnings counts degraded segments or turns, set on StageComplete.
	Warnings int
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// StepEvent builds an event for item step of total within stage. Percent is the
// fraction of items already finished.
func StepEvent(stage Stage, msg string, step, total int) Event {
	pct := 0.0
	if total > 0 {
		pct = float64(step-1) / float64(total)
	}
	return Event{Stage: stage, Message: msg, Percent: pct, Step: step, Total: total}
}
