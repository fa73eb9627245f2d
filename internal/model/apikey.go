package model

import "time"

// APIKey is one credential record in the key store. The secret is stored as
// issued so that list/get responses can show a recognizable masked form; it
// is only ever returned in full by Create and Regenerate.
type APIKey struct {
	ID            string     `json:"id"`
	Secret        string     `json:"secret"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Permissions   []string   `json:"permissions"` // "*" grants everything
	IsActive      bool       `json:"is_active"`
	UsageCount    int64      `json:"usage_count"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	RegeneratedAt *time.Time `json:"regenerated_at,omitempty"`
}

// Expired reports whether the key's expiry, if set, has passed. Expiry is
// evaluated at validation time and is independent of the active flag.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// HasPermission reports whether the key grants the given scope, either via
// the wildcard or an exact entry.
func (k *APIKey) HasPermission(scope string) bool {
	for _, p := range k.Permissions {
		if p == "*" || p == scope {
			return true
		}
	}
	return false
}

// APIKeyView is the presentation form of an APIKey used by list/get
// responses. The secret appears only masked.
type APIKeyView struct {
	ID            string     `json:"id"`
	MaskedSecret  string     `json:"masked_secret"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Permissions   []string   `json:"permissions"`
	IsActive      bool       `json:"is_active"`
	UsageCount    int64      `json:"usage_count"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	RegeneratedAt *time.Time `json:"regenerated_at,omitempty"`
}

// View returns the masked presentation form of the key. Every surface that
// lists or fetches keys goes through this one transform.
func (k *APIKey) View() APIKeyView {
	return APIKeyView{
		ID:            k.ID,
		MaskedSecret:  MaskSecret(k.Secret),
		Name:          k.Name,
		Description:   k.Description,
		Permissions:   k.Permissions,
		IsActive:      k.IsActive,
		UsageCount:    k.UsageCount,
		CreatedAt:     k.CreatedAt,
		ExpiresAt:     k.ExpiresAt,
		LastUsedAt:    k.LastUsedAt,
		RevokedAt:     k.RevokedAt,
		UpdatedAt:     k.UpdatedAt,
		RegeneratedAt: k.RegeneratedAt,
	}
}

// MaskSecret reduces a secret to its first 12 and last 4 characters. Secrets
// too short to mask meaningfully are fully elided.
func MaskSecret(secret string) string {
	if len(secret) <= 16 {
		return "…"
	}
	return secret[:12] + "…" + secret[len(secret)-4:]
}
