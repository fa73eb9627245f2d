package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatwire/chatwire/internal/event"
	"github.com/chatwire/chatwire/internal/messenger"
	"github.com/chatwire/chatwire/internal/model"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the request body,
// computed with the registration's secret, so receivers can verify
// authenticity without trusting the transport.
const SignatureHeader = "X-Webhook-Signature"

// EventHeader names the event kind out-of-band for cheap routing.
const EventHeader = "X-Webhook-Event"

// Envelope is the wire payload delivered to a webhook.
type Envelope struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// messageData is the stable subset of a chat message exposed to third
// parties. The driver's full message shape is internal and must not leak.
type messageData struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	FromMe    bool   `json:"from_me"`
	Group     bool   `json:"group"`
}

// Dispatcher performs best-effort webhook delivery: one attempt per event
// with a bounded timeout, no retry. Failures are logged and never surfaced
// to the event's originator.
type Dispatcher struct {
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewDispatcher creates a Dispatcher. timeout bounds one delivery attempt
// end to end; zero means the 10 second default.
func NewDispatcher(timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
		now:    time.Now,
	}
}

// Dispatch builds the envelope, optionally signs it, and POSTs it to the
// registration's URL. It blocks until the attempt completes or times out,
// which is what preserves per-webhook publish order.
func (d *Dispatcher) Dispatch(reg *model.WebhookRegistration, kind event.Kind, payload any) {
	env := Envelope{
		Event:     string(kind),
		Timestamp: d.now().UTC().Format(time.RFC3339),
		Data:      normalize(payload),
	}

	body, err := json.Marshal(env)
	if err != nil {
		d.logger.Error("webhook envelope encode failed", "webhook_id", reg.ID, "event", env.Event, "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, reg.URL, bytes.NewReader(body))
	if err != nil {
		d.logger.Error("webhook request build failed", "webhook_id", reg.ID, "url", reg.URL, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, env.Event)
	if reg.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, reg.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("webhook delivery failed", "webhook_id", reg.ID, "url", reg.URL, "event", env.Event, "error", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		d.logger.Warn("webhook delivery rejected", "webhook_id", reg.ID, "url", reg.URL, "event", env.Event, "status", resp.StatusCode)
		return
	}
	d.logger.Debug("webhook delivered", "webhook_id", reg.ID, "event", env.Event, "status", resp.StatusCode)
}

// Sign computes the hex-encoded HMAC-SHA256 of body keyed with secret.
// Receivers recompute it over the exact payload bytes to verify.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// normalize shapes the outbound data. Driver-owned chat messages are
// reduced to their stable subset; every other payload passes through
// unchanged.
func normalize(payload any) any {
	msg, ok := payload.(*messenger.Message)
	if !ok {
		if v, ok2 := payload.(messenger.Message); ok2 {
			msg = &v
		} else {
			return payload
		}
	}
	return messageData{
		Sender:    msg.From,
		Recipient: msg.To,
		Body:      msg.Body,
		Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
		Type:      msg.Type,
		FromMe:    msg.FromMe,
		Group:     msg.Group,
	}
}
