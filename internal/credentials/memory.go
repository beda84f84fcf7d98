package credentials

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store for tests and development. It still runs
// every secret through the cipher so round-trips exercise the same
// encryption path as the Postgres store.
type Memory struct {
	cipher *Cipher

	mu      sync.RWMutex
	records map[int64]string
}

// NewMemory builds an empty in-memory store around the given cipher.
func NewMemory(cipher *Cipher) (*Memory, error) {
	if cipher == nil {
		return nil, fmt.Errorf("credentials: nil cipher")
	}
	return &Memory{cipher: cipher, records: make(map[int64]string)}, nil
}

// Get returns the decrypted secret for the user, if present.
func (m *Memory) Get(_ context.Context, userID int64) (string, bool, error) {
	m.mu.RLock()
	encrypted, ok := m.records[userID]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	secret, err := m.cipher.Decrypt(encrypted)
	if err != nil {
		return "", false, err
	}
	return secret, true, nil
}

// Put encrypts and stores the secret, replacing any previous record.
func (m *Memory) Put(_ context.Context, userID int64, secret string) error {
	encrypted, err := m.cipher.Encrypt(secret)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records[userID] = encrypted
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
