package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

func sampleAnalysis() *domain.StoredAnalysis {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.StoredAnalysis{
		ID:         "an-1",
		DocumentID: "doc-1",
		Swarm: domain.SwarmResult{
			DocumentID:  "doc-1",
			Status:      domain.SwarmPartial,
			Extractor:   domain.Completed(domain.ExtractedData{Parties: []string{"Acme"}}),
			RiskAnalyst: domain.Failed[domain.RiskAnalysis]("timeout: riskAnalyst"),
			Compliance:  domain.Completed(domain.ComplianceAnalysis{OverallComplianceScore: 80}),
			Negotiation: domain.Completed(domain.NegotiationStrategy{OverallStrategy: "hold"}),
			Timestamp:   now,
		},
		ActionPlan: domain.ActionPlan{
			DocumentID:       "doc-1",
			Actions:          []domain.ActionItem{},
			AutoExecutable:   []domain.ActionItem{},
			RequiresApproval: []domain.ActionItem{},
			Summary:          "Generated 0 action items.",
		},
		CreatedAt: now,
	}
}

func TestAnalysisSaveWritesJSONB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewAnalysisRepository(db)

	analysis := sampleAnalysis()
	mock.ExpectExec("INSERT INTO analyses").
		WithArgs("an-1", "doc-1", "partial", sqlmock.AnyArg(), sqlmock.AnyArg(), analysis.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), analysis); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAnalysisLatestRestoresOutcomes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewAnalysisRepository(db)

	analysis := sampleAnalysis()
	swarmJSON, _ := json.Marshal(analysis.Swarm)
	planJSON, _ := json.Marshal(analysis.ActionPlan)
	mock.ExpectQuery("SELECT id, document_id, swarm, action_plan").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "swarm", "action_plan", "created_at"}).
			AddRow("an-1", "doc-1", swarmJSON, planJSON, analysis.CreatedAt))

	got, err := repo.LatestByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("LatestByDocumentID() error = %v", err)
	}
	if got.Swarm.RiskAnalyst.IsCompleted() || got.Swarm.RiskAnalyst.Err() != "timeout: riskAnalyst" {
		t.Fatalf("expected failed risk outcome, got %+v", got.Swarm.RiskAnalyst)
	}
	data, ok := got.Swarm.Extractor.Data()
	if !ok || data.Parties[0] != "Acme" {
		t.Fatalf("expected extractor data, got %+v", got.Swarm.Extractor)
	}
	if got.ActionPlan.Summary != "Generated 0 action items." {
		t.Fatalf("unexpected plan %+v", got.ActionPlan)
	}
}

func TestAnalysisLatestNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, document_id, swarm, action_plan").
		WithArgs("doc-x").
		WillReturnError(sql.ErrNoRows)

	_, err = NewAnalysisRepository(db).LatestByDocumentID(context.Background(), "doc-x")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
