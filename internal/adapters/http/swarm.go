package httpadapter

import (
	"net/http"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

type swarmRunResponse struct {
	Swarm      *domain.SwarmResult  `json:"swarm"`
	Agents     []domain.AgentReport `json:"agents"`
	ActionPlan *domain.ActionPlan   `json:"action_plan"`
}

func (rt *Router) runSwarm(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalysisRequest
	if err := rt.validator.decode(r, "SwarmRunRequest", &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Context.Jurisdictions) == 0 && len(rt.defaultJurisdictions) > 0 {
		req.Context.Jurisdictions = append([]string(nil), rt.defaultJurisdictions...)
	}

	result, err := rt.deps.Swarm.RunSwarm(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := rt.deps.Planner.Synthesize(result.SynthesisInput())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, swarmRunResponse{
		Swarm:      result,
		Agents:     result.Reports(),
		ActionPlan: plan,
	})
}

func (rt *Router) synthesizeActionPlan(w http.ResponseWriter, r *http.Request) {
	raw, err := rt.validator.validate(r, "ActionPlanRequest")
	if err != nil {
		writeError(w, r, err)
		return
	}
	input, err := domain.DecodeSynthesisInput(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := rt.deps.Planner.Synthesize(input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
