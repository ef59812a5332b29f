package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Connect opens a driver and verifies connectivity before handing it out.
func Connect(ctx context.Context, cfg Config) (neo4j.DriverWithContext, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "neo4j connect", fmt.Errorf("uri is required"))
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, domain.WrapError(domain.ErrTemporary, "neo4j connect", err)
	}
	return driver, nil
}

type queryRunner func(ctx context.Context, stage string, query string, params map[string]any) error

// Projector mirrors action plans as (:Document)-[:HAS_ACTION]->(:Action)-[:ASSIGNED_TO]->(:Team).
// Re-projecting a document replaces its previous actions.
type Projector struct {
	run queryRunner
}

func NewProjector(driver neo4j.DriverWithContext, database string) *Projector {
	var options []neo4j.ExecuteQueryConfigurationOption
	if database != "" {
		options = append(options, neo4j.ExecuteQueryWithDatabase(database))
	}
	return &Projector{
		run: func(ctx context.Context, stage string, query string, params map[string]any) error {
			if _, err := neo4j.ExecuteQuery(ctx, driver, query, params, neo4j.EagerResultTransformer, options...); err != nil {
				return fmt.Errorf("cypher %s: %w", stage, err)
			}
			return nil
		},
	}
}

const (
	constraintQuery = `CREATE CONSTRAINT document_id IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE`

	upsertDocumentQuery = `MERGE (d:Document {id: $document_id})
SET d.filename = $filename, d.status = $status, d.summary = $summary, d.projected_at = datetime()`

	clearActionsQuery = `MATCH (:Document {id: $document_id})-[:HAS_ACTION]->(a:Action)
DETACH DELETE a`

	createActionsQuery = `MATCH (d:Document {id: $document_id})
UNWIND $rows AS row
CREATE (d)-[:HAS_ACTION]->(a:Action {
  id: row.id, type: row.type, title: row.title, priority: row.priority,
  execution: row.execution, due_date: row.due_date, source: row.source
})
WITH a, row
WHERE row.assignee <> ''
MERGE (t:Team {name: row.assignee})
MERGE (a)-[:ASSIGNED_TO]->(t)`
)

// EnsureSchema creates the uniqueness constraint used by the MERGE on documents.
func (p *Projector) EnsureSchema(ctx context.Context) error {
	return p.run(ctx, "constraints", constraintQuery, nil)
}

func (p *Projector) Project(ctx context.Context, doc *domain.Document, plan *domain.ActionPlan) error {
	if doc == nil || plan == nil {
		return domain.WrapError(domain.ErrInvalidInput, "project action plan", fmt.Errorf("document and plan are required"))
	}

	base := map[string]any{"document_id": doc.ID}
	stages := []struct {
		name   string
		query  string
		params map[string]any
	}{
		{"document", upsertDocumentQuery, map[string]any{
			"document_id": doc.ID,
			"filename":    doc.Filename,
			"status":      string(doc.Status),
			"summary":     plan.Summary,
		}},
		{"clear_actions", clearActionsQuery, base},
		{"actions", createActionsQuery, map[string]any{"document_id": doc.ID, "rows": actionRows(plan.Actions)}},
	}
	for _, stage := range stages {
		if stage.name == "actions" && len(plan.Actions) == 0 {
			continue
		}
		if err := p.run(ctx, stage.name, stage.query, stage.params); err != nil {
			return domain.WrapError(domain.ErrTemporary, "project action plan", err)
		}
	}

	slog.DebugContext(ctx, "action_plan_projected", "document_id", doc.ID, "actions", len(plan.Actions))
	return nil
}

func actionRows(actions []domain.ActionItem) []map[string]any {
	rows := make([]map[string]any, 0, len(actions))
	for _, a := range actions {
		due := ""
		if a.DueDate != nil {
			due = *a.DueDate
		}
		source := ""
		if a.Metadata != nil {
			source = a.Metadata.Source
		}
		rows = append(rows, map[string]any{
			"id":        a.ID,
			"type":      string(a.Type),
			"title":     a.Title,
			"priority":  string(a.Priority),
			"execution": string(a.Execution),
			"due_date":  due,
			"source":    source,
			"assignee":  a.Assignee,
		})
	}
	return rows
}
