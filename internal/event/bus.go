// Package event provides the in-process publish/subscribe hub for the
// closed vocabulary of session and message events emitted by the messaging
// driver.
package event

import (
	"log/slog"
	"sync"
)

// Kind identifies one event in the closed vocabulary.
type Kind string

const (
	KindQR            Kind = "qr"
	KindReady         Kind = "ready"
	KindAuthenticated Kind = "authenticated"
	KindAuthFailure   Kind = "auth_failure"
	KindDisconnected  Kind = "disconnected"
	KindMessage       Kind = "message"
)

// Subscribable returns the event kinds webhooks may subscribe to.
// auth_failure is part of the driver feed but is not exposed to third
// parties.
func Subscribable() []Kind {
	return []Kind{KindQR, KindReady, KindAuthenticated, KindDisconnected, KindMessage}
}

// IsSubscribable reports whether k is a valid webhook subscription target.
func IsSubscribable(k Kind) bool {
	for _, s := range Subscribable() {
		if s == k {
			return true
		}
	}
	return false
}

// Handler receives one published event. Handlers run synchronously inside
// the publishing call, in registration order.
type Handler func(kind Kind, payload any)

// Bus is the in-process event hub. It is owned by the server lifecycle and
// injected into producers and consumers rather than living in a package
// global.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	logger   *slog.Logger
}

// NewBus creates an empty event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[Kind][]Handler),
		logger:   logger,
	}
}

// Subscribe registers h for the given kind. Registration order is delivery
// order. Subscriptions cannot be removed; consumers that come and go must
// make their handler a no-op instead.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Publish delivers the event to every handler registered for kind,
// synchronously and in registration order. A handler panic is contained so
// it cannot prevent delivery to the remaining handlers.
func (b *Bus) Publish(kind Kind, payload any) {
	b.mu.RLock()
	hs := make([]Handler, len(b.handlers[kind]))
	copy(hs, b.handlers[kind])
	b.mu.RUnlock()

	for _, h := range hs {
		b.invoke(kind, payload, h)
	}
}

func (b *Bus) invoke(kind Kind, payload any, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", string(kind), "panic", r)
		}
	}()
	h(kind, payload)
}
