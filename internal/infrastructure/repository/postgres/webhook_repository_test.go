package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

func TestWebhookCreateAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewWebhookRepository(db)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO webhooks").
		WithArgs("wh_1", "https://example.com/hook", []byte(`["analysis.completed"]`), "s3cret", true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), &domain.Webhook{
		ID:        "wh_1",
		URL:       "https://example.com/hook",
		Events:    []string{domain.EventAnalysisCompleted},
		Secret:    "s3cret",
		Active:    true,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	mock.ExpectQuery("SELECT id, url, events, secret, active, created_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "events", "secret", "active", "created_at"}).
			AddRow("wh_1", "https://example.com/hook", []byte(`["analysis.completed","analysis.failed"]`), "", true, now))

	hooks, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(hooks) != 1 || len(hooks[0].Events) != 2 || !hooks[0].Subscribed(domain.EventAnalysisFailed) {
		t.Fatalf("unexpected hooks %+v", hooks)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWebhookGetAndDeleteNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewWebhookRepository(db)

	mock.ExpectQuery("SELECT id, url, events").WithArgs("wh_x").WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), "wh_x"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on get, got %v", err)
	}

	mock.ExpectExec("DELETE FROM webhooks").WithArgs("wh_x").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), "wh_x"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
