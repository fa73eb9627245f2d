package event

import (
	"io"
	"log/slog"
	"testing"
)

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	bus := newTestBus()

	var order []string
	bus.Subscribe(KindMessage, func(Kind, any) { order = append(order, "first") })
	bus.Subscribe(KindMessage, func(Kind, any) { order = append(order, "second") })
	bus.Subscribe(KindMessage, func(Kind, any) { order = append(order, "third") })

	bus.Publish(KindMessage, nil)

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("deliveries: got %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery %d: got %q, want %q", i, order[i], want[i])
		}
	}
}

func TestPublishRoutesByKind(t *testing.T) {
	bus := newTestBus()

	var got []Kind
	bus.Subscribe(KindReady, func(kind Kind, _ any) { got = append(got, kind) })
	bus.Subscribe(KindDisconnected, func(kind Kind, _ any) { got = append(got, kind) })

	bus.Publish(KindReady, nil)
	bus.Publish(KindQR, nil) // nobody listening, must be a no-op

	if len(got) != 1 || got[0] != KindReady {
		t.Errorf("got %v, want [ready]", got)
	}
}

func TestPublishPassesPayloadThrough(t *testing.T) {
	bus := newTestBus()

	payload := map[string]any{"qr": "code"}
	var received any
	bus.Subscribe(KindQR, func(_ Kind, p any) { received = p })

	bus.Publish(KindQR, payload)

	m, ok := received.(map[string]any)
	if !ok {
		t.Fatalf("payload type: got %T", received)
	}
	if m["qr"] != "code" {
		t.Errorf("payload: got %v", m)
	}
}

func TestPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := newTestBus()

	var delivered int
	bus.Subscribe(KindMessage, func(Kind, any) { delivered++ })
	bus.Subscribe(KindMessage, func(Kind, any) { panic("boom") })
	bus.Subscribe(KindMessage, func(Kind, any) { delivered++ })

	bus.Publish(KindMessage, nil)

	if delivered != 2 {
		t.Errorf("deliveries around panic: got %d, want 2", delivered)
	}
}

func TestSubscribableExcludesAuthFailure(t *testing.T) {
	for _, k := range Subscribable() {
		if k == KindAuthFailure {
			t.Fatal("auth_failure must not be subscribable")
		}
		if !IsSubscribable(k) {
			t.Errorf("IsSubscribable(%q) = false", k)
		}
	}
	if IsSubscribable(KindAuthFailure) {
		t.Error("IsSubscribable(auth_failure) = true")
	}
	if IsSubscribable(Kind("made_up")) {
		t.Error("IsSubscribable(made_up) = true")
	}
	if len(Subscribable()) != 5 {
		t.Errorf("subscribable kinds: got %d, want 5", len(Subscribable()))
	}
}
