package service

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/chatwire/chatwire/internal/config"
)

const testMasterKey = "cw_master_for_tests"

func newTestAuth(t *testing.T) (*AuthService, *KeyService) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	keys := NewKeyService(store, logger)
	return NewAuthService(testMasterKey, keys, logger), keys
}

func TestAuthenticateMasterCredential(t *testing.T) {
	auth, _ := newTestAuth(t)

	p, err := auth.Authenticate(testMasterKey)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !p.IsMaster() {
		t.Error("expected master principal")
	}
	if !p.HasPermission("anything:at:all") {
		t.Error("master must carry the wildcard")
	}
}

func TestAuthenticateMissingCredential(t *testing.T) {
	auth, _ := newTestAuth(t)
	if _, err := auth.Authenticate(""); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
}

func TestAuthenticateUnknownCredential(t *testing.T) {
	auth, _ := newTestAuth(t)
	if _, err := auth.Authenticate("cw_not_a_key"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthenticateAPIKey(t *testing.T) {
	auth, keys := newTestAuth(t)

	key, err := keys.Create(CreateKeyParams{Name: "t", Permissions: []string{"messages:send"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	p, err := auth.Authenticate(key.Secret)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.IsMaster() {
		t.Error("api key principal must not be master")
	}
	if p.KeyID != key.ID {
		t.Errorf("KeyID: got %q, want %q", p.KeyID, key.ID)
	}
	if !p.HasPermission("messages:send") {
		t.Error("expected granted scope to pass")
	}
	if p.HasPermission("webhooks:manage") {
		t.Error("expected ungranted scope to fail")
	}
}

func TestAuthenticateMasterOnlyGate(t *testing.T) {
	auth, keys := newTestAuth(t)

	key, err := keys.Create(CreateKeyParams{Name: "t"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A perfectly valid API key, even with the wildcard, must not pass
	// the master-only gate.
	if _, err := auth.AuthenticateMaster(key.Secret); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
	if _, err := auth.AuthenticateMaster(""); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := auth.AuthenticateMaster(testMasterKey); err != nil {
		t.Errorf("AuthenticateMaster: %v", err)
	}
}

func TestCheckPermission(t *testing.T) {
	auth, _ := newTestAuth(t)

	scoped := &Principal{Type: "api_key", Permissions: []string{"messages:send", "session:read"}}
	wildcard := &Principal{Type: "api_key", Permissions: []string{"*"}}

	if err := auth.CheckPermission(scoped, "messages:send"); err != nil {
		t.Errorf("granted scope rejected: %v", err)
	}
	if err := auth.CheckPermission(scoped, "webhooks:manage", "session:read"); err != nil {
		t.Errorf("intersecting scopes rejected: %v", err)
	}
	if err := auth.CheckPermission(scoped, "webhooks:manage"); !errors.Is(err, ErrInsufficientPermission) {
		t.Errorf("expected ErrInsufficientPermission, got %v", err)
	}
	if err := auth.CheckPermission(wildcard, "anything"); err != nil {
		t.Errorf("wildcard rejected: %v", err)
	}
	if err := auth.CheckPermission(nil, "anything"); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential for nil principal, got %v", err)
	}
}

func TestEmptyMasterKeyNeverMatches(t *testing.T) {
	store, _ := config.NewStore("")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	keys := NewKeyService(store, logger)
	auth := NewAuthService("", keys, logger)

	if _, err := auth.Authenticate(""); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := auth.AuthenticateMaster("anything"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}
