package client

// AssetInfo describes a single manifest entry.
type AssetInfo struct {
	Hash     string `json:"hash"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// Manifest maps logical asset paths to content-addressed blobs.
type Manifest struct {
	Version  string               `json:"version"`
	Assets   map[string]AssetInfo `json:"assets"`
	Metadata map[string]string    `json:"metadata,omitempty"`
}

// EnvVar is a single environment variable passed to a job.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// JobRequest asks the gateway to run a container job.
type JobRequest struct {
	Image   string   `json:"img,omitempty"`
	Profile string   `json:"profile,omitempty"`
	Queue   string   `json:"queue,omitempty"`
	Cmd     []string `json:"cmd"`
	Env     []EnvVar `json:"env,omitempty"`
	CPU     string   `json:"cpu,omitempty"`
	Memory  string   `json:"memory,omitempty"`
	GPU     string   `json:"gpu,omitempty"`
	Remove  bool     `json:"remove"`
}

// JobStatus is the state of a job plus a failure message when failed.
type JobStatus struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

// JobResult identifies a submitted job.
type JobResult struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}

// LogRecord is one line of job output received over an attach session.
type LogRecord struct {
	Source    string `json:"source"`
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message"`
}

// Token is a minted bearer token and its lifetime.
type Token struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
