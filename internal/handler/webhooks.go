package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatwire/chatwire/internal/config"
	"github.com/chatwire/chatwire/internal/model"
	"github.com/chatwire/chatwire/internal/service"
	"github.com/chatwire/chatwire/internal/webhook"
)

// WebhookHandler exposes the webhook-management surface.
type WebhookHandler struct {
	registry *webhook.Registry
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(registry *webhook.Registry) *WebhookHandler {
	return &WebhookHandler{registry: registry}
}

// registerWebhookRequest is the expected payload for Register.
type registerWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}

// Register creates a webhook registration and binds it to the event bus.
// POST /api/v1/webhooks
func (h *WebhookHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerWebhookRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidationFailed, "Invalid request body: "+err.Error())
		return
	}

	reg, err := h.registry.Register(req.URL, req.Events, req.Secret)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, model.CodeValidationFailed, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, model.CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, reg.View())
}

// List returns all registrations, signing secrets elided.
// GET /api/v1/webhooks
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	regs := h.registry.List()
	views := make([]model.WebhookView, 0, len(regs))
	for i := range regs {
		views = append(views, regs[i].View())
	}
	writeJSON(w, http.StatusOK, listResponse(views, len(views)))
}

// Unregister removes a registration.
// DELETE /api/v1/webhooks/{webhookId}
func (h *WebhookHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "webhookId")
	if err := h.registry.Unregister(id); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, model.CodeNotFound, "Webhook not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, model.CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Webhook unregistered",
	})
}

// Toggle flips a registration's delivery gate without touching its
// subscriptions.
// POST /api/v1/webhooks/{webhookId}/toggle
func (h *WebhookHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "webhookId")
	reg, err := h.registry.Toggle(id)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, model.CodeNotFound, "Webhook not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, model.CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reg.View())
}
