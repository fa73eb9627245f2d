package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chatwire/chatwire/internal/model"
)

// Store persists API key records as a single JSON document that is rewritten
// wholesale on every mutation. There is deliberately no lock across
// concurrent mutating operations: two near-simultaneous writers race as
// read-modify-write and the last one wins. That hazard is accepted for
// single-instance deployments; each individual write is atomic (temp file +
// rename), so the document itself never tears.
type Store struct {
	path string

	// mem holds the document when the store runs without a backing file
	// (empty data dir), used by tests and ephemeral setups.
	mem *document
}

// document is the on-disk shape of the key store.
type document struct {
	Keys []model.APIKey `json:"keys"`
}

// NewStore creates a key store rooted at dataDir. Pass empty string for a
// purely in-memory store.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return &Store{mem: &document{Keys: []model.APIKey{}}}, nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{path: filepath.Join(dataDir, "keys.json")}, nil
}

// Path returns the backing file path, or empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (*document, error) {
	if s.mem != nil {
		cp := &document{Keys: make([]model.APIKey, len(s.mem.Keys))}
		copy(cp.Keys, s.mem.Keys)
		return cp, nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &document{Keys: []model.APIKey{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key store: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode key store: %w", err)
	}
	if doc.Keys == nil {
		doc.Keys = []model.APIKey{}
	}
	return &doc, nil
}

// save rewrites the whole document. The write goes to a temp file in the
// same directory followed by a rename so readers never observe a partial
// document.
func (s *Store) save(doc *document) error {
	if s.mem != nil {
		s.mem = doc
		return nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode key store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write key store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace key store: %w", err)
	}
	return nil
}

// CreateKey appends a new record and persists the document before returning.
func (s *Store) CreateKey(key *model.APIKey) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Keys = append(doc.Keys, *key)
	return s.save(doc)
}

// GetKey returns a key record by ID.
func (s *Store) GetKey(id string) (*model.APIKey, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Keys {
		if doc.Keys[i].ID == id {
			k := doc.Keys[i]
			return &k, nil
		}
	}
	return nil, ErrNotFound
}

// GetKeyBySecret returns a key record by its exact secret.
func (s *Store) GetKeyBySecret(secret string) (*model.APIKey, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Keys {
		if doc.Keys[i].Secret == secret {
			k := doc.Keys[i]
			return &k, nil
		}
	}
	return nil, ErrNotFound
}

// ListKeys returns all key records in creation order.
func (s *Store) ListKeys() ([]model.APIKey, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Keys, nil
}

// UpdateKey replaces the record with the same ID and persists the document.
func (s *Store) UpdateKey(key *model.APIKey) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Keys {
		if doc.Keys[i].ID == key.ID {
			doc.Keys[i] = *key
			return s.save(doc)
		}
	}
	return ErrNotFound
}

// DeleteKey removes the record with the given ID permanently.
func (s *Store) DeleteKey(id string) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Keys {
		if doc.Keys[i].ID == id {
			doc.Keys = append(doc.Keys[:i], doc.Keys[i+1:]...)
			return s.save(doc)
		}
	}
	return ErrNotFound
}

// TouchKey bumps the usage counter and last-used timestamp for a key in one
// read-modify-write pass, used by credential validation.
func (s *Store) TouchKey(id string, now time.Time) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Keys {
		if doc.Keys[i].ID == id {
			doc.Keys[i].UsageCount++
			t := now
			doc.Keys[i].LastUsedAt = &t
			return s.save(doc)
		}
	}
	return ErrNotFound
}
