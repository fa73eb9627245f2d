package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chatwire/chatwire/internal/config"
	"github.com/chatwire/chatwire/internal/model"
	"github.com/chatwire/chatwire/internal/service"
)

// KeyHandler exposes the key-management surface. The whole surface is
// master-credential gated at the router level.
type KeyHandler struct {
	keys *service.KeyService
}

// NewKeyHandler creates a KeyHandler.
func NewKeyHandler(keys *service.KeyService) *KeyHandler {
	return &KeyHandler{keys: keys}
}

// createKeyRequest is the expected payload for Create.
type createKeyRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// secretKeyResponse carries the full secret. It is produced only by Create
// and Regenerate; the secret is never retrievable again.
type secretKeyResponse struct {
	model.APIKeyView
	Secret string `json:"secret"`
}

// Create generates a new API key and returns the plaintext secret exactly
// once.
// POST /api/v1/system/keys
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidationFailed, "Invalid request body: "+err.Error())
		return
	}

	key, err := h.keys.Create(service.CreateKeyParams{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		writeKeyError(w, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, secretKeyResponse{
		APIKeyView: key.View(),
		Secret:     key.Secret,
	})
}

// List returns all keys with masked secrets.
// GET /api/v1/system/keys
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, model.CodeInternal, "Failed to list keys: "+err.Error())
		return
	}

	views := make([]model.APIKeyView, 0, len(keys))
	for i := range keys {
		views = append(views, keys[i].View())
	}
	writeJSON(w, http.StatusOK, listResponse(views, len(views)))
}

// Get returns one key with a masked secret.
// GET /api/v1/system/keys/{keyId}
func (h *KeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "keyId")
	key, err := h.keys.Get(id)
	if err != nil {
		writeKeyError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, key.View())
}

// updateKeyRequest is the expected payload for Update. Only name,
// description, permissions, and expiry are mutable; the secret never is.
type updateKeyRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Update modifies a key's mutable fields.
// PUT /api/v1/system/keys/{keyId}
func (h *KeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "keyId")

	var req updateKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidationFailed, "Invalid request body: "+err.Error())
		return
	}

	key, err := h.keys.Update(id, service.UpdateKeyParams{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		writeKeyError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, key.View())
}

// Revoke deactivates a key.
// POST /api/v1/system/keys/{keyId}/revoke
func (h *KeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "keyId")
	key, err := h.keys.Revoke(id)
	if err != nil {
		writeKeyError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, key.View())
}

// Activate re-enables a revoked key.
// POST /api/v1/system/keys/{keyId}/activate
func (h *KeyHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "keyId")
	key, err := h.keys.Activate(id)
	if err != nil {
		writeKeyError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, key.View())
}

// Regenerate swaps the key's secret and returns the new one exactly once.
// The old secret is invalid the moment this returns.
// POST /api/v1/system/keys/{keyId}/regenerate
func (h *KeyHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "keyId")
	key, err := h.keys.Regenerate(id)
	if err != nil {
		writeKeyError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, secretKeyResponse{
		APIKeyView: key.View(),
		Secret:     key.Secret,
	})
}

// Delete removes a key permanently.
// DELETE /api/v1/system/keys/{keyId}
func (h *KeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "keyId")
	if err := h.keys.Delete(id); err != nil {
		writeKeyError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "API key deleted",
	})
}

func writeKeyError(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, config.ErrNotFound):
		writeError(w, http.StatusNotFound, model.CodeNotFound, "API key not found: "+id)
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, model.CodeValidationFailed, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, model.CodeInternal, err.Error())
	}
}
