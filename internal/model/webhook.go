package model

import "time"

// WebhookRegistration is a persisted-in-memory webhook subscription. The
// active flag gates delivery only; the underlying event subscriptions live
// for the registration's lifetime.
type WebhookRegistration struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"-"` // HMAC signing key, never exposed
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// WebhookView is the presentation form of a registration for list responses.
type WebhookView struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Signed    bool      `json:"signed"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// View returns the registration without its signing secret.
func (w *WebhookRegistration) View() WebhookView {
	return WebhookView{
		ID:        w.ID,
		URL:       w.URL,
		Events:    w.Events,
		Signed:    w.Secret != "",
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
	}
}
