package httpadapter

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

// multipartOverhead leaves room for boundaries and form fields around the file.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	JobID               string    `json:"job_id"`
	DocumentID          string    `json:"document_id"`
	Filename            string    `json:"filename"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	EstimatedCompletion time.Time `json:"estimated_completion"`
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes+multipartOverhead)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("file too large")))
			return
		}
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("multipart field 'file' is required")))
		return
	}
	defer file.Close()

	receipt, err := rt.deps.Ingest.Upload(r.Context(), domain.Upload{
		Filename:   fileHeader.Filename,
		MimeType:   fileHeader.Header.Get("Content-Type"),
		WebhookURL: strings.TrimSpace(r.FormValue("webhook_url")),
	}, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordUpload(receipt.Document.SizeBytes)
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		JobID:               receipt.JobID,
		DocumentID:          receipt.Document.ID,
		Filename:            receipt.Document.Filename,
		Status:              receipt.Status,
		CreatedAt:           receipt.CreatedAt,
		EstimatedCompletion: receipt.EstimatedCompletion,
	})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "document_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := rt.deps.Docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getDocumentAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "document_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	analysis, err := rt.deps.Analyses.LatestByDocumentID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{
		StoredAnalysis: analysis,
		Agents:         analysis.Swarm.Reports(),
	})
}

type analysisResponse struct {
	*domain.StoredAnalysis
	Agents []domain.AgentReport `json:"agents"`
}

func (rt *Router) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "job_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := rt.deps.Jobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
