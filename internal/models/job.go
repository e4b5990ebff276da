package models

// EnvVar is a single environment variable passed to a job.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// JobRequest asks the compute backend to run a container job. Fields the
// backend does not support are ignored by that backend.
type JobRequest struct {
	// Image to run. Empty selects the backend/profile default.
	Image string `json:"img,omitempty"`
	// Profile selects a pre-registered job template on the backend
	// (e.g. "default", "deploy", "gpu").
	Profile string `json:"profile,omitempty"`
	// Queue overrides the backend's default queue.
	Queue string `json:"queue,omitempty"`
	// Command to execute.
	Cmd []string `json:"cmd"`
	// Environment variables for the job.
	Env []EnvVar `json:"env,omitempty"`
	// CPU overrides the vCPU count, as the backend understands it.
	CPU string `json:"cpu,omitempty" validate:"omitempty,numeric"`
	// Memory overrides memory in MiB.
	Memory string `json:"memory,omitempty" validate:"omitempty,numeric"`
	// GPU names a GPU driver to attach. Empty attaches none.
	GPU string `json:"gpu,omitempty"`
	// Remove the container after it finishes.
	Remove bool `json:"remove"`
}

// JobState is the coarse lifecycle state of a job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// JobStatus is the state of a job plus a failure message when failed.
type JobStatus struct {
	State   JobState `json:"state"`
	Message string   `json:"message,omitempty"`
}

// JobResult identifies a submitted job. The ID is backend-assigned and
// opaque to callers.
type JobResult struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}

// LogSource tells which stream of the job produced a log record.
type LogSource string

const (
	LogStdout  LogSource = "stdout"
	LogStderr  LogSource = "stderr"
	LogConsole LogSource = "console"
)

// LogRecord is one line of job output. Binary frames on the attach socket
// carry exactly this shape as JSON.
type LogRecord struct {
	Source LogSource `json:"source"`
	// Timestamp is RFC3339 when the backend knows it, empty otherwise.
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message"`
}
