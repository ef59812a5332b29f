package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/core/ports"
)

// Dependencies are the core services exposed as MCP tools.
type Dependencies struct {
	Swarm    ports.SwarmRunner
	Planner  ports.ActionPlanSynthesizer
	Jobs     ports.JobStore
	Analyses ports.AnalysisRepository

	DefaultJurisdictions []string
}

type Tools struct {
	deps Dependencies
}

func NewTools(deps Dependencies) *Tools {
	return &Tools{deps: deps}
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(name, version string, tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("run_swarm",
		mcp.WithDescription("Run the extractor, risk, compliance and negotiation agents concurrently on a document and return their outcomes with an action plan."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Caller supplied document identifier.")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full UTF-8 document text.")),
		mcp.WithString("filename", mcp.Description("Original file name.")),
		mcp.WithString("user_party", mcp.Description("Party the analysis is performed for.")),
		mcp.WithArray("jurisdictions", mcp.Description("Jurisdictions to check compliance against."), mcp.WithStringItems()),
	), tools.RunSwarm)

	s.AddTool(mcp.NewTool("synthesize_action_plan",
		mcp.WithDescription("Build an approval-gated action plan from agent outputs. Omit an output when that agent failed."),
		mcp.WithString("document_id", mcp.Required()),
		mcp.WithString("filename"),
		mcp.WithObject("extracted", mcp.Description("Extractor output with snake_case keys: dates[{date, description, importance Low|Medium|High|Critical}], obligations, amounts, parties, terms.")),
		mcp.WithObject("risk", mcp.Description("Risk analyst output: risk_score 0-100, current_risks, predicted_risks, recommendations.")),
		mcp.WithObject("compliance", mcp.Description("Compliance output: overall_compliance_score, checks, critical_issues.")),
		mcp.WithObject("negotiation", mcp.Description("Negotiation output: overall_strategy, counter_proposals[{section, original_text, proposed_text, reason, priority}], red_lines.")),
	), tools.SynthesizeActionPlan)

	s.AddTool(mcp.NewTool("get_job_status",
		mcp.WithDescription("Look up an asynchronous analysis job."),
		mcp.WithString("job_id", mcp.Required()),
	), tools.GetJobStatus)

	s.AddTool(mcp.NewTool("get_document_analysis",
		mcp.WithDescription("Fetch the latest stored analysis and action plan for a document."),
		mcp.WithString("document_id", mcp.Required()),
	), tools.GetDocumentAnalysis)

	return s
}

func (t *Tools) RunSwarm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	jurisdictions := request.GetStringSlice("jurisdictions", nil)
	if len(jurisdictions) == 0 {
		jurisdictions = append([]string(nil), t.deps.DefaultJurisdictions...)
	}

	result, err := t.deps.Swarm.RunSwarm(ctx, domain.AnalysisRequest{
		DocumentID: documentID,
		Filename:   request.GetString("filename", ""),
		Content:    content,
		Context: domain.AnalysisContext{
			UserParty:     request.GetString("user_party", ""),
			Jurisdictions: jurisdictions,
		},
	})
	if err != nil {
		return mcp.NewToolResultErrorFromErr("swarm run failed", err), nil
	}
	plan, err := t.deps.Planner.Synthesize(result.SynthesisInput())
	if err != nil {
		return mcp.NewToolResultErrorFromErr("action plan synthesis failed", err), nil
	}

	return jsonResult(map[string]any{
		"swarm":       result,
		"agents":      result.Reports(),
		"action_plan": plan,
	})
}

func (t *Tools) SynthesizeActionPlan(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encode arguments", err), nil
	}
	input, err := domain.DecodeSynthesisInput(raw)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid agent outputs", err), nil
	}
	plan, err := t.deps.Planner.Synthesize(input)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("action plan synthesis failed", err), nil
	}
	return jsonResult(plan)
}

func (t *Tools) GetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	job, err := t.deps.Jobs.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("job lookup failed", err), nil
	}
	return jsonResult(job)
}

func (t *Tools) GetDocumentAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	analysis, err := t.deps.Analyses.LatestByDocumentID(ctx, id)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("analysis lookup failed", err), nil
	}
	return jsonResult(analysis)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
