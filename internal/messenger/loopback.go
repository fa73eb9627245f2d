package messenger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatwire/chatwire/internal/event"
)

// Loopback is an in-process driver used in development mode and tests. It
// accepts every send, records it, and reflects each outbound message back
// onto the event bus as an inbound message event.
type Loopback struct {
	mu    sync.Mutex
	bus   *event.Bus
	state SessionState
	sent  []Message

	// FailFor maps recipient to an error message; sends to those
	// recipients fail, which tests use to exercise failure isolation.
	FailFor map[string]string

	// Echo controls whether sends are reflected back as message events.
	Echo bool
}

// NewLoopback creates a loopback driver in the ready state. bus may be nil
// when event reflection is not needed.
func NewLoopback(bus *event.Bus) *Loopback {
	return &Loopback{
		bus:     bus,
		state:   StateReady,
		FailFor: make(map[string]string),
	}
}

func (l *Loopback) SendText(ctx context.Context, recipient, body string) (*Message, error) {
	return l.send(ctx, recipient, body, "text")
}

func (l *Loopback) SendMedia(ctx context.Context, recipient string, media Media, caption string) (*Message, error) {
	return l.send(ctx, recipient, caption, "media")
}

func (l *Loopback) send(ctx context.Context, recipient, body, kind string) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if reason, ok := l.FailFor[recipient]; ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("send to %s: %s", recipient, reason)
	}

	msg := Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		From:      "loopback",
		To:        recipient,
		Body:      body,
		Type:      kind,
		Timestamp: time.Now().UTC(),
		FromMe:    true,
	}
	l.sent = append(l.sent, msg)
	echo := l.Echo
	bus := l.bus
	l.mu.Unlock()

	if echo && bus != nil {
		reply := msg
		reply.From, reply.To = msg.To, msg.From
		reply.FromMe = false
		bus.Publish(event.KindMessage, &reply)
	}
	return &msg, nil
}

func (l *Loopback) IsRegistered(ctx context.Context, recipient string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return recipient != "", nil
}

func (l *Loopback) SessionState() SessionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// SetState moves the session to state and publishes the matching lifecycle
// event when a bus is attached.
func (l *Loopback) SetState(state SessionState) {
	l.mu.Lock()
	l.state = state
	bus := l.bus
	l.mu.Unlock()

	if bus == nil {
		return
	}
	switch state {
	case StateWaitingQR:
		bus.Publish(event.KindQR, map[string]any{"qr": "loopback"})
	case StateAuthenticated:
		bus.Publish(event.KindAuthenticated, nil)
	case StateReady:
		bus.Publish(event.KindReady, nil)
	case StateDisconnected:
		bus.Publish(event.KindDisconnected, map[string]any{"reason": "loopback"})
	}
}

// Sent returns a copy of every message accepted so far.
func (l *Loopback) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.sent))
	copy(out, l.sent)
	return out
}
