package webhook

import (
	"crypto/hmac"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatwire/chatwire/internal/event"
	"github.com/chatwire/chatwire/internal/messenger"
	"github.com/chatwire/chatwire/internal/model"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(2*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type capturedRequest struct {
	body      []byte
	signature string
	eventName string
	contentTy string
}

func captureServer(t *testing.T, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		got.body = body
		got.signature = r.Header.Get(SignatureHeader)
		got.eventName = r.Header.Get(EventHeader)
		got.contentTy = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatchEnvelopeShape(t *testing.T) {
	var got capturedRequest
	srv := captureServer(t, &got)

	reg := &model.WebhookRegistration{ID: "wh1", URL: srv.URL}
	newTestDispatcher().Dispatch(reg, event.KindQR, map[string]any{"qr": "code"})

	var env struct {
		Event     string         `json:"event"`
		Timestamp string         `json:"timestamp"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(got.body, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Event != "qr" {
		t.Errorf("event: got %q", env.Event)
	}
	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Errorf("timestamp %q not RFC3339: %v", env.Timestamp, err)
	}
	if env.Data["qr"] != "code" {
		t.Errorf("data: got %v", env.Data)
	}
	if got.eventName != "qr" {
		t.Errorf("%s header: got %q", EventHeader, got.eventName)
	}
	if got.contentTy != "application/json" {
		t.Errorf("content type: got %q", got.contentTy)
	}
	if got.signature != "" {
		t.Errorf("unsecreted registration must not be signed, got %q", got.signature)
	}
}

func TestDispatchSignsExactBodyBytes(t *testing.T) {
	var got capturedRequest
	srv := captureServer(t, &got)

	secret := "hook-secret"
	reg := &model.WebhookRegistration{ID: "wh1", URL: srv.URL, Secret: secret}
	newTestDispatcher().Dispatch(reg, event.KindReady, nil)

	if got.signature == "" {
		t.Fatal("expected a signature header")
	}
	want := Sign(got.body, secret)
	if !hmac.Equal([]byte(got.signature), []byte(want)) {
		t.Errorf("signature: got %q, want %q", got.signature, want)
	}

	// A single flipped byte must invalidate the received signature.
	tampered := append([]byte(nil), got.body...)
	tampered[0] ^= 0x01
	if Sign(tampered, secret) == got.signature {
		t.Error("tampered body produced the same signature")
	}
	if Sign(got.body, "wrong-secret") == got.signature {
		t.Error("wrong secret produced the same signature")
	}
}

func TestDispatchNormalizesChatMessages(t *testing.T) {
	var got capturedRequest
	srv := captureServer(t, &got)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &messenger.Message{
		ID:        "m1",
		From:      "+111",
		To:        "+222",
		Body:      "hello",
		Type:      "text",
		Timestamp: ts,
		Raw:       map[string]any{"driver": "detail"},
	}
	reg := &model.WebhookRegistration{ID: "wh1", URL: srv.URL}
	newTestDispatcher().Dispatch(reg, event.KindMessage, msg)

	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(got.body, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Data["sender"] != "+111" || env.Data["recipient"] != "+222" || env.Data["body"] != "hello" {
		t.Errorf("data: got %v", env.Data)
	}
	if env.Data["timestamp"] != ts.Format(time.RFC3339) {
		t.Errorf("message timestamp: got %v", env.Data["timestamp"])
	}
	// The driver's internal shape must not leak.
	for _, forbidden := range []string{"id", "raw", "From", "To"} {
		if _, ok := env.Data[forbidden]; ok {
			t.Errorf("internal field %q leaked into the envelope", forbidden)
		}
	}
}

func TestDispatchSwallowsEndpointFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	reg := &model.WebhookRegistration{ID: "wh1", URL: srv.URL}
	// Must not panic and must not block the caller beyond the attempt.
	newTestDispatcher().Dispatch(reg, event.KindReady, nil)

	// Unreachable endpoints are equally non-fatal.
	reg.URL = "http://127.0.0.1:1"
	newTestDispatcher().Dispatch(reg, event.KindReady, nil)
}
