package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

// AnalysisRepository stores swarm results and action plans as JSONB so the
// agent payload shapes can evolve without migrations.
type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Save(ctx context.Context, analysis *domain.StoredAnalysis) error {
	swarmJSON, err := json.Marshal(analysis.Swarm)
	if err != nil {
		return fmt.Errorf("marshal swarm result: %w", err)
	}
	planJSON, err := json.Marshal(analysis.ActionPlan)
	if err != nil {
		return fmt.Errorf("marshal action plan: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analyses (id, document_id, swarm_status, swarm, action_plan, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, analysis.ID, analysis.DocumentID, string(analysis.Swarm.Status), swarmJSON, planJSON, analysis.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) LatestByDocumentID(ctx context.Context, documentID string) (*domain.StoredAnalysis, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, swarm, action_plan, created_at
FROM analyses
WHERE document_id = $1
ORDER BY created_at DESC
LIMIT 1
`, documentID)

	var analysis domain.StoredAnalysis
	var swarmRaw, planRaw []byte
	if err := row.Scan(&analysis.ID, &analysis.DocumentID, &swarmRaw, &planRaw, &analysis.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get analysis", fmt.Errorf("document_id=%s", documentID))
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}

	if err := json.Unmarshal(swarmRaw, &analysis.Swarm); err != nil {
		return nil, fmt.Errorf("unmarshal swarm result: %w", err)
	}
	if err := json.Unmarshal(planRaw, &analysis.ActionPlan); err != nil {
		return nil, fmt.Errorf("unmarshal action plan: %w", err)
	}
	return &analysis, nil
}
