package httpadapter

import (
	"net/http"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

func (rt *Router) createWebhook(w http.ResponseWriter, r *http.Request) {
	var req domain.WebhookRegistration
	if err := rt.validator.decode(r, "WebhookCreateRequest", &req); err != nil {
		writeError(w, r, err)
		return
	}
	hook, err := rt.deps.Webhooks.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hook)
}

func (rt *Router) getWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "webhook_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	hook, err := rt.deps.Webhooks.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hook)
}

func (rt *Router) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "webhook_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.deps.Webhooks.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
