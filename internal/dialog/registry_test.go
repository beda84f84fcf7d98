package dialog

import (
	"sync"
	"testing"
)

func TestRegistryGetIsStable(t *testing.T) {
	r := NewRegistry()
	if r.Get(1) != r.Get(1) {
		t.Fatal("same chat must map to the same session")
	}
	if r.Get(1) == r.Get(2) {
		t.Fatal("different chats must not share a session")
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestRegistryVisitSerializesPerChat(t *testing.T) {
	r := NewRegistry()
	const turns = 100

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Visit(1, func(s *Session) {
				// Unsynchronized on purpose; Visit's lock is the only guard.
				counter++
			})
		}()
	}
	wg.Wait()
	if counter != turns {
		t.Fatalf("counter = %d, visits interleaved", counter)
	}
}

func TestRegistryInProgress(t *testing.T) {
	r := NewRegistry()
	if r.InProgress(1) {
		t.Fatal("unknown chat cannot be mid-flow")
	}
	s := r.Get(1)
	if r.InProgress(1) {
		t.Fatal("fresh session starts at rest")
	}
	s.mu.Lock()
	s.state = StateSelectingImagesCount
	s.mu.Unlock()
	if !r.InProgress(1) {
		t.Fatal("form state must read as in progress")
	}
}
