package credentials

import (
	"context"
	"testing"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	m, err := NewMemory(c)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return m
}

func TestMemoryMissIsNotAnError(t *testing.T) {
	m := newTestMemory(t)
	secret, ok, err := m.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || secret != "" {
		t.Fatalf("unexpected hit: %q", secret)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	m := newTestMemory(t)
	if err := m.Put(context.Background(), 42, "sk-first"); err != nil {
		t.Fatalf("put: %v", err)
	}
	secret, ok, err := m.Get(context.Background(), 42)
	if err != nil || !ok || secret != "sk-first" {
		t.Fatalf("get = %q ok=%v err=%v", secret, ok, err)
	}
}

func TestMemoryPutReplaces(t *testing.T) {
	m := newTestMemory(t)
	for _, s := range []string{"sk-first", "sk-second", "sk-second"} {
		if err := m.Put(context.Background(), 42, s); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	secret, ok, err := m.Get(context.Background(), 42)
	if err != nil || !ok || secret != "sk-second" {
		t.Fatalf("get = %q ok=%v err=%v", secret, ok, err)
	}
	if m.Len() != 1 {
		t.Fatalf("len = %d", m.Len())
	}
}

func TestMemoryRecordsAreEncrypted(t *testing.T) {
	m := newTestMemory(t)
	if err := m.Put(context.Background(), 42, "sk-plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if m.records[42] == "sk-plain" {
		t.Fatal("record stored in plaintext")
	}
}

func TestUserLockStriping(t *testing.T) {
	var locks userLocks
	if locks.lock(5) != locks.lock(5) {
		t.Fatal("same user must map to the same stripe")
	}
	// Negative ids (channels) must not panic or index out of range.
	if locks.lock(-5) == nil {
		t.Fatal("nil stripe for negative id")
	}
}
