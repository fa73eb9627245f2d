// Package messenger defines the contract toward the external messaging
// driver. The gateway core never implements protocol or session handling;
// it only invokes this capability set and reacts to the driver's event feed.
package messenger

import (
	"context"
	"time"
)

// SessionState describes the driver's connection to the messaging network.
type SessionState string

const (
	StateDisconnected  SessionState = "disconnected"
	StateConnecting    SessionState = "connecting"
	StateWaitingQR     SessionState = "waiting_qr"
	StateAuthenticated SessionState = "authenticated"
	StateReady         SessionState = "ready"
)

// Media describes an attachment for SendMedia.
type Media struct {
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Message is the driver-owned representation of a chat message. Its full
// shape belongs to the driver; third parties only ever see the normalized
// subset produced by the webhook dispatcher.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	FromMe    bool      `json:"from_me"`
	Group     bool      `json:"group"`

	// Raw carries driver internals that must not leak to webhooks.
	Raw map[string]any `json:"raw,omitempty"`
}

// Driver is the capability set the core consumes from the external
// messaging implementation.
type Driver interface {
	SendText(ctx context.Context, recipient, body string) (*Message, error)
	SendMedia(ctx context.Context, recipient string, media Media, caption string) (*Message, error)
	IsRegistered(ctx context.Context, recipient string) (bool, error)
	SessionState() SessionState
}
