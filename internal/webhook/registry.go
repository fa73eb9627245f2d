// Package webhook binds registrations to event-bus topics and delivers
// event envelopes to third-party endpoints.
package webhook

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatwire/chatwire/internal/config"
	"github.com/chatwire/chatwire/internal/event"
	"github.com/chatwire/chatwire/internal/model"
	"github.com/chatwire/chatwire/internal/service"
)

// Registry owns the set of webhook registrations and their event-bus
// subscriptions. Registrations live in memory for the process lifetime.
type Registry struct {
	mu         sync.RWMutex
	regs       map[string]*model.WebhookRegistration
	order      []string
	bus        *event.Bus
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewRegistry creates an empty registry bound to the given bus and
// dispatcher.
func NewRegistry(bus *event.Bus, dispatcher *Dispatcher, logger *slog.Logger) *Registry {
	return &Registry{
		regs:       make(map[string]*model.WebhookRegistration),
		bus:        bus,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Register validates the target URL and event set, stores the registration,
// and subscribes one forwarding callback per event. The callback resolves
// the registration by ID at delivery time, so a later Toggle or Unregister
// is observed without re-subscribing.
func (r *Registry) Register(target string, events []string, secret string) (*model.WebhookRegistration, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be a valid http(s) URL", service.ErrValidation)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: at least one event is required", service.ErrValidation)
	}

	kinds := make([]event.Kind, 0, len(events))
	seen := make(map[event.Kind]bool, len(events))
	for _, e := range events {
		k := event.Kind(e)
		if !event.IsSubscribable(k) {
			return nil, fmt.Errorf("%w: unknown event %q", service.ErrValidation, e)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		kinds = append(kinds, k)
	}

	reg := &model.WebhookRegistration{
		ID:        uuid.Must(uuid.NewV7()).String(),
		URL:       target,
		Secret:    secret,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	for _, k := range kinds {
		reg.Events = append(reg.Events, string(k))
	}

	r.mu.Lock()
	r.regs[reg.ID] = reg
	r.order = append(r.order, reg.ID)
	r.mu.Unlock()

	id := reg.ID
	for _, k := range kinds {
		r.bus.Subscribe(k, func(kind event.Kind, payload any) {
			r.deliver(id, kind, payload)
		})
	}

	r.logger.Info("webhook registered", "webhook_id", reg.ID, "url", reg.URL, "events", reg.Events)
	return reg, nil
}

// deliver is the forwarding callback bound to the bus. A registration that
// has since been removed is a silent no-op; an inactive one skips delivery
// but keeps its subscription alive.
func (r *Registry) deliver(id string, kind event.Kind, payload any) {
	r.mu.RLock()
	reg, ok := r.regs[id]
	var snapshot model.WebhookRegistration
	if ok {
		snapshot = *reg
	}
	r.mu.RUnlock()

	if !ok || !snapshot.IsActive {
		return
	}
	r.dispatcher.Dispatch(&snapshot, kind, payload)
}

// Get returns a registration by ID.
func (r *Registry) Get(id string) (*model.WebhookRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.regs[id]
	if !ok {
		return nil, config.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

// List returns all registrations in registration order.
func (r *Registry) List() []model.WebhookRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.WebhookRegistration, 0, len(r.order))
	for _, id := range r.order {
		if reg, ok := r.regs[id]; ok {
			out = append(out, *reg)
		}
	}
	return out
}

// Unregister removes the registration record. The bus subscriptions remain
// but become no-ops once the ID no longer resolves.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.regs[id]; !ok {
		return config.ErrNotFound
	}
	delete(r.regs, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Info("webhook unregistered", "webhook_id", id)
	return nil
}

// Toggle flips the active flag. The subscription set is untouched.
func (r *Registry) Toggle(id string) (*model.WebhookRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[id]
	if !ok {
		return nil, config.ErrNotFound
	}
	reg.IsActive = !reg.IsActive
	cp := *reg
	r.logger.Info("webhook toggled", "webhook_id", id, "active", reg.IsActive)
	return &cp, nil
}
