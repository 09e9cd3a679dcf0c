package media

import "time"

// Stage identifies where a video job is in its lifecycle.
type Stage string

const (
	StageSubmitting Stage = "submitting"
	StagePolling    Stage = "polling"
	StageFetching   Stage = "fetching"
)

const (
	submittingMessage = "Initializing video generation..."
	fetchingMessage   = "Fetching generated video..."
)

// ProgressMessages is the fixed rotation shown while a video job runs.
var ProgressMessages = []string{
	"Warming up the creative engine...",
	"Directing the virtual camera...",
	"Rendering the first few frames...",
	"Mixing digital colors...",
	"Animating the scene...",
	"This is taking a bit longer than usual, but good things are coming...",
	"Adding cinematic magic...",
	"Finalizing the video output...",
}

// ProgressEvent is delivered to the caller's ProgressFunc.
type ProgressEvent struct {
	Stage   Stage
	Message string
	// Attempt is the zero-based poll iteration for StagePolling events.
	Attempt int
	Elapsed time.Duration
}

// ProgressFunc observes progress. It is called synchronously from the polling
// goroutine and must not block.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) emit(event ProgressEvent) {
	if f != nil {
		f(event)
	}
}

// progressMessage returns the rotating message for a poll iteration.
func progressMessage(messages []string, attempt int) string {
	if len(messages) == 0 {
		messages = ProgressMessages
	}
	return messages[attempt%len(messages)]
}
