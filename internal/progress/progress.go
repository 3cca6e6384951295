package progress

import "time"

// Stage identifies which step of a pattern run is active.
type Stage string

const (
	StageGenerate  Stage = "generate"
	StageCritique  Stage = "critique"
	StageRefine    Stage = "refine"
	StageFinal     Stage = "final"
	StageTransform Stage = "transform"
	StageJudge     Stage = "judge"
	StagePersona   Stage = "persona"
	StageComplete  Stage = "complete"
)

// Event carries progress information from a driver or the refine loop to the renderer.
type Event struct {
	Stage   Stage
	Message string
	Percent float64 // 0.0–1.0
	// Round is 1-based for critique/refine; the final critique uses RoundTotal+1.
	Round      int
	RoundTotal int
	Elapsed    time.Duration
	Error      error
	// Average and Scores are set on StageCritique and StageFinal.
	Average float64
	Scores  map[string]int
	// Text is the draft produced by StageGenerate or StageRefine.
	Text string
	// Pattern names the running pattern, set on StageComplete.
	Pattern string
	// ResultFile is the saved result log path, set on StageComplete when saving.
	ResultFile string
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event with common fields populated.
func NewEvent(stage Stage, msg string, pct float64, start time.Time) Event {
	return Event{
		Stage:   stage,
		Message: msg,
		Percent: pct,
		Elapsed: time.Since(start),
	}
}

// RoundPercent maps a step within a Self-Refine run onto 0..1. A run with n
// rounds makes 2n+2 calls: generate, n critique/refine pairs, final critique.
func RoundPercent(step, rounds int) float64 {
	total := 2*rounds + 2
	if total <= 0 {
		return 0
	}
	if step > total {
		step = total
	}
	return float64(step) / float64(total)
}
