package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/AcalaNetwork/Acala-sub008/storage"
)

// Manager persists module state in a key-value backend using RLP encoding.
// It implements the typed state interfaces the native engines are wired to.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied backend.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state manager: database not configured")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state manager: encode %q: %w", key, err)
	}
	return m.db.Put(key, encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// out. The boolean reports whether the key was present.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, fmt.Errorf("state manager: database not configured")
	}
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state manager: decode %q: %w", key, err)
	}
	return true, nil
}

// KVDelete removes the key if present.
func (m *Manager) KVDelete(key []byte) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state manager: database not configured")
	}
	return m.db.Delete(key)
}
