package domain

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// AnalysisJob tracks one asynchronous analysis of an uploaded document.
type AnalysisJob struct {
	ID          string     `json:"job_id"`
	DocumentID  string     `json:"document_id"`
	Filename    string     `json:"filename"`
	WebhookURL  string     `json:"webhook_url,omitempty"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

const (
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
)

type Webhook struct {
	ID        string    `json:"webhook_id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// WebhookRegistration is a caller request to subscribe a URL to events.
type WebhookRegistration struct {
	URL    string   `json:"url"`
	Events []string `json:"events,omitempty"`
	Secret string   `json:"secret,omitempty"`
}

// KnownEvent reports whether event can be subscribed to.
func KnownEvent(event string) bool {
	switch event {
	case EventAnalysisCompleted, EventAnalysisFailed, "*":
		return true
	default:
		return false
	}
}

// Subscribed reports whether the webhook should receive the event.
func (w Webhook) Subscribed(event string) bool {
	if !w.Active {
		return false
	}
	for _, e := range w.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

// WebhookEvent is the payload delivered to webhook subscribers.
type WebhookEvent struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
