package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMaskSecret(t *testing.T) {
	secret := "cw_0123456789abcdef0123456789abcdef"
	masked := MaskSecret(secret)

	if !strings.HasPrefix(masked, secret[:12]) {
		t.Errorf("masked %q lacks the leading segment", masked)
	}
	if !strings.HasSuffix(masked, secret[len(secret)-4:]) {
		t.Errorf("masked %q lacks the trailing segment", masked)
	}
	if strings.Contains(masked, secret[12:len(secret)-4]) {
		t.Error("masked form exposes the middle of the secret")
	}

	// Anything too short to mask meaningfully is fully elided.
	for _, short := range []string{"", "cw_short", "exactly_16_chars"} {
		if got := MaskSecret(short); got != "…" {
			t.Errorf("MaskSecret(%q) = %q, want full elision", short, got)
		}
	}
}

func TestAPIKeyExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	key := APIKey{}
	if key.Expired(now) {
		t.Error("key without expiry must never expire")
	}
	key.ExpiresAt = &future
	if key.Expired(now) {
		t.Error("future expiry reported as expired")
	}
	key.ExpiresAt = &past
	if !key.Expired(now) {
		t.Error("past expiry not reported")
	}
}

func TestAPIKeyHasPermission(t *testing.T) {
	scoped := APIKey{Permissions: []string{"messages:send"}}
	if !scoped.HasPermission("messages:send") {
		t.Error("exact scope denied")
	}
	if scoped.HasPermission("webhooks:manage") {
		t.Error("ungranted scope allowed")
	}
	wildcard := APIKey{Permissions: []string{"*"}}
	if !wildcard.HasPermission("anything") {
		t.Error("wildcard denied")
	}
}

func TestAPIKeyViewNeverSerializesSecret(t *testing.T) {
	key := APIKey{
		ID:     "k1",
		Secret: "cw_0123456789abcdef0123456789abcdef",
		Name:   "test",
	}
	data, err := json.Marshal(key.View())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), key.Secret) {
		t.Error("view serialization contains the full secret")
	}
	if !strings.Contains(string(data), `"masked_secret"`) {
		t.Error("view serialization lacks the masked form")
	}
}

func TestWebhookViewElidesSecret(t *testing.T) {
	reg := WebhookRegistration{ID: "w1", URL: "https://example.com", Secret: "hook-secret"}
	data, err := json.Marshal(reg.View())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "hook-secret") {
		t.Error("view serialization contains the signing secret")
	}
	if !strings.Contains(string(data), `"signed":true`) {
		t.Error("view does not flag the registration as signed")
	}
	unsigned := WebhookRegistration{ID: "w2", URL: "https://example.com"}
	if unsigned.View().Signed {
		t.Error("unsigned registration flagged as signed")
	}
}
