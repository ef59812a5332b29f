package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusAnalyzed   DocumentStatus = "analyzed"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	SizeBytes   int64          `json:"size_bytes"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// StoredAnalysis is the persisted outcome of one analysis run for a document.
type StoredAnalysis struct {
	ID         string      `json:"id"`
	DocumentID string      `json:"document_id"`
	Swarm      SwarmResult `json:"swarm"`
	ActionPlan ActionPlan  `json:"action_plan"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Upload describes an incoming file before it is stored.
type Upload struct {
	Filename   string
	MimeType   string
	WebhookURL string
}

type UploadReceipt struct {
	Document            *Document `json:"document"`
	JobID               string    `json:"job_id"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	EstimatedCompletion time.Time `json:"estimated_completion"`
}
