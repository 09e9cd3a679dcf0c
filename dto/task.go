package dto

// Job statuses normalized across providers.
const (
	JobStatusSubmitted = "submitted"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// VideoJob is the handle of a server-side asynchronous video job. Each status
// query returns a fresh VideoJob that replaces the previous one.
type VideoJob struct {
	ID        string `json:"id"`
	Model     string `json:"model,omitempty"`
	Done      bool   `json:"done"`
	Status    string `json:"status,omitempty"`
	ResultURI string `json:"result_uri,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Failed reports whether the provider finished the job with an error.
func (j *VideoJob) Failed() bool {
	return j != nil && j.Done && (j.Error != "" || j.Status == JobStatusFailed)
}
