package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

type WebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(ctx context.Context, hook *domain.Webhook) error {
	eventsJSON, err := json.Marshal(hook.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO webhooks (id, url, events, secret, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, hook.ID, hook.URL, eventsJSON, hook.Secret, hook.Active, hook.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*domain.Webhook, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, url, events, secret, active, created_at
FROM webhooks
WHERE id = $1
`, id)

	hook, err := scanWebhook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get webhook", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}
	return &hook, nil
}

func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete webhook rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete webhook", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (r *WebhookRepository) ListActive(ctx context.Context) ([]domain.Webhook, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, url, events, secret, active, created_at
FROM webhooks
WHERE active = TRUE
ORDER BY created_at
`)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Webhook, 0)
	for rows.Next() {
		hook, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, hook)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhooks: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWebhook(row rowScanner) (domain.Webhook, error) {
	var hook domain.Webhook
	var eventsRaw []byte
	if err := row.Scan(&hook.ID, &hook.URL, &eventsRaw, &hook.Secret, &hook.Active, &hook.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return hook, err
		}
		return hook, fmt.Errorf("scan webhook: %w", err)
	}
	if err := json.Unmarshal(eventsRaw, &hook.Events); err != nil {
		return hook, fmt.Errorf("unmarshal webhook events: %w", err)
	}
	return hook, nil
}
