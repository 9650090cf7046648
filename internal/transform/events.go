package transform

// EventKind discriminates runner events.
type EventKind string

const (
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event is one update from a running export. The channel returned by Run
// carries zero or more Progress events followed by exactly one terminal
// Completed or Failed event, then closes.
type Event struct {
	Kind    EventKind
	Percent int
	// OutputPath is set on Completed.
	OutputPath string
	// Err is set on Failed.
	Err error
}
