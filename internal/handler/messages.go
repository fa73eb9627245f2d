package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chatwire/chatwire/internal/messenger"
	"github.com/chatwire/chatwire/internal/model"
	"github.com/chatwire/chatwire/internal/service"
)

// MessageHandler exposes the messaging surface backed by the external
// driver: single sends, bulk sends, recipient lookup, and session status.
type MessageHandler struct {
	driver messenger.Driver
	bulk   *service.BulkService
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(driver messenger.Driver, bulk *service.BulkService) *MessageHandler {
	return &MessageHandler{driver: driver, bulk: bulk}
}

// sendTextRequest is the expected payload for SendText.
type sendTextRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// SendText sends one text message to one recipient.
// POST /api/v1/messages/text
func (h *MessageHandler) SendText(w http.ResponseWriter, r *http.Request) {
	var req sendTextRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidationFailed, "Invalid request body: "+err.Error())
		return
	}
	if req.Recipient == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, model.CodeValidationFailed, "recipient and message are required")
		return
	}

	msg, err := h.driver.SendText(r.Context(), req.Recipient, req.Message)
	if err != nil {
		writeError(w, http.StatusBadGateway, model.CodeUnavailable, "Send failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// sendMediaRequest is the expected payload for SendMedia.
type sendMediaRequest struct {
	Recipient string          `json:"recipient"`
	Media     messenger.Media `json:"media"`
	Caption   string          `json:"caption,omitempty"`
}

// SendMedia sends one media message to one recipient.
// POST /api/v1/messages/media
func (h *MessageHandler) SendMedia(w http.ResponseWriter, r *http.Request) {
	var req sendMediaRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidationFailed, "Invalid request body: "+err.Error())
		return
	}
	if req.Recipient == "" {
		writeError(w, http.StatusBadRequest, model.CodeValidationFailed, "recipient is required")
		return
	}
	if req.Media.URL == "" && len(req.Media.Data) == 0 {
		writeError(w, http.StatusBadRequest, model.CodeValidationFailed, "media url or data is required")
		return
	}

	msg, err := h.driver.SendMedia(r.Context(), req.Recipient, req.Media, req.Caption)
	if err != nil {
		writeError(w, http.StatusBadGateway, model.CodeUnavailable, "Send failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// sendBulkRequest is the expected payload for SendBulk. delay_ms omitted
// means the configured default throttle.
type sendBulkRequest struct {
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
	DelayMs    *int     `json:"delay_ms,omitempty"`
}

// SendBulk dispatches one message to many recipients sequentially. Partial
// failure is reported in the response body, never as an HTTP error.
// POST /api/v1/messages/bulk
func (h *MessageHandler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req sendBulkRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidationFailed, "Invalid request body: "+err.Error())
		return
	}

	delay := -1 * time.Millisecond
	if req.DelayMs != nil {
		if *req.DelayMs < 0 {
			writeError(w, http.StatusBadRequest, model.CodeValidationFailed, "delay_ms cannot be negative")
			return
		}
		delay = time.Duration(*req.DelayMs) * time.Millisecond
	}

	result, err := h.bulk.SendBulk(r.Context(), req.Recipients, req.Message, delay)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, model.CodeValidationFailed, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, model.CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// IsRegistered reports whether the recipient exists on the messaging
// network.
// GET /api/v1/contacts/{recipient}/registered
func (h *MessageHandler) IsRegistered(w http.ResponseWriter, r *http.Request) {
	recipient := chi.URLParam(r, "recipient")
	registered, err := h.driver.IsRegistered(r.Context(), recipient)
	if err != nil {
		writeError(w, http.StatusBadGateway, model.CodeUnavailable, "Lookup failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recipient":  recipient,
		"registered": registered,
	})
}

// SessionStatus reports the driver's current session state.
// GET /api/v1/session/status
func (h *MessageHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state": h.driver.SessionState(),
	})
}
