package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/core/ports"
)

type WebhookRegistryUseCase struct {
	repo ports.WebhookRepository
	now  func() time.Time
}

func NewWebhookRegistryUseCase(repo ports.WebhookRepository, now func() time.Time) *WebhookRegistryUseCase {
	if now == nil {
		now = time.Now
	}
	return &WebhookRegistryUseCase{repo: repo, now: now}
}

func (uc *WebhookRegistryUseCase) Register(ctx context.Context, reg domain.WebhookRegistration) (*domain.Webhook, error) {
	target := strings.TrimSpace(reg.URL)
	if target == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register webhook", errors.New("url is required"))
	}
	if err := validateWebhookURL(target); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register webhook", err)
	}

	events := make([]string, 0, len(reg.Events))
	seen := make(map[string]bool, len(reg.Events))
	for _, event := range reg.Events {
		event = strings.TrimSpace(event)
		if !domain.KnownEvent(event) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "register webhook", fmt.Errorf("unknown event %q", event))
		}
		if !seen[event] {
			seen[event] = true
			events = append(events, event)
		}
	}
	if len(events) == 0 {
		events = []string{domain.EventAnalysisCompleted}
	}

	hook := &domain.Webhook{
		ID:        "wh_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		URL:       target,
		Events:    events,
		Secret:    reg.Secret,
		Active:    true,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.repo.Create(ctx, hook); err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	return hook, nil
}

func (uc *WebhookRegistryUseCase) Get(ctx context.Context, id string) (*domain.Webhook, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *WebhookRegistryUseCase) Delete(ctx context.Context, id string) error {
	return uc.repo.Delete(ctx, id)
}
