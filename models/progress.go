package models

// ProgressStatus values emitted on the progress channel.
type ProgressStatus string

const (
	StatusConverting ProgressStatus = "converting"
	StatusCompleted  ProgressStatus = "completed"
	StatusError      ProgressStatus = "error"
	StatusSkipped    ProgressStatus = "skipped"
)

// ProgressEvent is a fire-and-forget notification about a single job.
type ProgressEvent struct {
	JobID        string         `json:"job_id"`
	JobName      string         `json:"job_name"`
	Status       ProgressStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	SavedPath    string         `json:"saved_path,omitempty"`
}

// ProgressFunc receives progress events. Implementations must be safe for
// concurrent use and must not block for long.
type ProgressFunc func(ProgressEvent)
