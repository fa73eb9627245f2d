package service

import (
	"crypto/subtle"
	"log/slog"
)

// Principal represents the authenticated identity making a request.
type Principal struct {
	Type        string // "master" or "api_key"
	KeyID       string
	Name        string
	Permissions []string
}

// IsMaster reports whether the principal is the operator master credential.
func (p *Principal) IsMaster() bool {
	return p.Type == "master"
}

// HasPermission reports whether the principal holds the scope, either via
// the wildcard or an exact entry.
func (p *Principal) HasPermission(scope string) bool {
	for _, perm := range p.Permissions {
		if perm == "*" || perm == scope {
			return true
		}
	}
	return false
}

// AuthService resolves inbound credentials to principals. The master
// credential comes from configuration at startup, always carries the
// wildcard permission, and lives outside the key store entirely.
type AuthService struct {
	masterKey string
	keys      *KeyService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService. masterKey may be empty, in which
// case only stored API keys authenticate.
func NewAuthService(masterKey string, keys *KeyService, logger *slog.Logger) *AuthService {
	return &AuthService{
		masterKey: masterKey,
		keys:      keys,
		logger:    logger,
	}
}

// Authenticate resolves a credential string: exact master match first, then
// the key store. An empty credential fails ErrMissingCredential; a supplied
// credential with no match fails ErrInvalidCredential.
func (s *AuthService) Authenticate(credential string) (*Principal, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}

	if s.isMaster(credential) {
		return &Principal{Type: "master", Name: "master", Permissions: []string{"*"}}, nil
	}

	key, err := s.keys.Validate(credential)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	return &Principal{
		Type:        "api_key",
		KeyID:       key.ID,
		Name:        key.Name,
		Permissions: key.Permissions,
	}, nil
}

// AuthenticateMaster accepts only the master credential. It guards the
// key-management surface itself, so ordinary API keys cannot create or
// mutate other credentials.
func (s *AuthService) AuthenticateMaster(credential string) (*Principal, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}
	if !s.isMaster(credential) {
		return nil, ErrInvalidCredential
	}
	return &Principal{Type: "master", Name: "master", Permissions: []string{"*"}}, nil
}

// CheckPermission passes iff the principal holds the wildcard or at least
// one of the required scopes.
func (s *AuthService) CheckPermission(p *Principal, scopes ...string) error {
	if p == nil {
		return ErrMissingCredential
	}
	for _, scope := range scopes {
		if p.HasPermission(scope) {
			return nil
		}
	}
	s.logger.Debug("permission denied", "principal", p.Name, "required", scopes)
	return ErrInsufficientPermission
}

func (s *AuthService) isMaster(credential string) bool {
	if s.masterKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(s.masterKey)) == 1
}
