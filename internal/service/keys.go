package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chatwire/chatwire/internal/config"
	"github.com/chatwire/chatwire/internal/model"
)

// secretPrefix marks every secret this gateway issues.
const secretPrefix = "cw_"

// KeyService owns the API key lifecycle: create, validate, update, revoke,
// activate, regenerate, delete. Every mutating call persists the whole key
// store synchronously before returning success.
type KeyService struct {
	store  *config.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewKeyService creates a KeyService over the given store.
func NewKeyService(store *config.Store, logger *slog.Logger) *KeyService {
	return &KeyService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// CreateKeyParams are the caller-supplied fields for Create.
type CreateKeyParams struct {
	Name        string
	Description string
	Permissions []string
	ExpiresAt   *time.Time
}

// Create generates a new key record. The secret is generated exactly once;
// the returned record is the only place the caller will ever see it in full.
func (s *KeyService) Create(p CreateKeyParams) (*model.APIKey, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	perms := p.Permissions
	if len(perms) == 0 {
		perms = []string{"*"}
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}

	key := &model.APIKey{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Secret:      secret,
		Name:        p.Name,
		Description: p.Description,
		Permissions: perms,
		IsActive:    true,
		CreatedAt:   s.now().UTC(),
		ExpiresAt:   p.ExpiresAt,
	}

	if err := s.store.CreateKey(key); err != nil {
		return nil, fmt.Errorf("persist key: %w", err)
	}

	s.logger.Info("api key created", "key_id", key.ID, "name", key.Name)
	return key, nil
}

// Validate resolves a secret to its key record. Unknown, revoked, and
// expired secrets all fail with ErrInvalidCredential; the distinction is
// logged but never surfaced. On success the usage counter and last-used
// timestamp are bumped and persisted.
func (s *KeyService) Validate(secret string) (*model.APIKey, error) {
	key, err := s.store.GetKeyBySecret(secret)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	if !key.IsActive {
		s.logger.Debug("credential rejected", "key_id", key.ID, "reason", "revoked")
		return nil, ErrInvalidCredential
	}
	if key.Expired(s.now()) {
		s.logger.Debug("credential rejected", "key_id", key.ID, "reason", "expired")
		return nil, ErrInvalidCredential
	}

	if err := s.store.TouchKey(key.ID, s.now().UTC()); err != nil {
		// A vanished record between lookup and touch means the key was
		// deleted mid-flight; treat it like any other bad credential.
		return nil, ErrInvalidCredential
	}

	key.UsageCount++
	return key, nil
}

// Get returns a key record by ID.
func (s *KeyService) Get(id string) (*model.APIKey, error) {
	return s.store.GetKey(id)
}

// List returns all key records.
func (s *KeyService) List() ([]model.APIKey, error) {
	return s.store.ListKeys()
}

// UpdateKeyParams are the mutable fields for Update. Nil pointers leave the
// corresponding field untouched. The secret is never among them.
type UpdateKeyParams struct {
	Name        *string
	Description *string
	Permissions []string
	ExpiresAt   *time.Time
}

// Update modifies name, description, permissions, and expiry only.
func (s *KeyService) Update(id string, p UpdateKeyParams) (*model.APIKey, error) {
	key, err := s.store.GetKey(id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		if *p.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		key.Name = *p.Name
	}
	if p.Description != nil {
		key.Description = *p.Description
	}
	if p.Permissions != nil {
		key.Permissions = p.Permissions
	}
	if p.ExpiresAt != nil {
		key.ExpiresAt = p.ExpiresAt
	}

	now := s.now().UTC()
	key.UpdatedAt = &now

	if err := s.store.UpdateKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Revoke deactivates a key. The record stays in the store and can be
// re-activated later.
func (s *KeyService) Revoke(id string) (*model.APIKey, error) {
	key, err := s.store.GetKey(id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key.IsActive = false
	key.RevokedAt = &now

	if err := s.store.UpdateKey(key); err != nil {
		return nil, err
	}
	s.logger.Info("api key revoked", "key_id", id)
	return key, nil
}

// Activate re-enables a revoked key and clears its revocation timestamp.
func (s *KeyService) Activate(id string) (*model.APIKey, error) {
	key, err := s.store.GetKey(id)
	if err != nil {
		return nil, err
	}

	key.IsActive = true
	key.RevokedAt = nil

	if err := s.store.UpdateKey(key); err != nil {
		return nil, err
	}
	s.logger.Info("api key activated", "key_id", id)
	return key, nil
}

// Regenerate replaces the key's secret. The old secret stops validating the
// moment the store write completes; the new secret is returned here exactly
// once and is only ever listed masked afterwards.
func (s *KeyService) Regenerate(id string) (*model.APIKey, error) {
	key, err := s.store.GetKey(id)
	if err != nil {
		return nil, err
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key.Secret = secret
	key.RegeneratedAt = &now

	if err := s.store.UpdateKey(key); err != nil {
		return nil, err
	}
	s.logger.Info("api key regenerated", "key_id", id)
	return key, nil
}

// Delete removes a key record permanently.
func (s *KeyService) Delete(id string) error {
	if err := s.store.DeleteKey(id); err != nil {
		return err
	}
	s.logger.Info("api key deleted", "key_id", id)
	return nil
}

// generateSecret produces an unguessable opaque token: the gateway prefix
// plus 32 random bytes hex encoded.
func generateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return secretPrefix + hex.EncodeToString(raw), nil
}
