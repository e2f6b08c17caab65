package validation

import (
	"context"
	"sync"
)

// HashSet remembers which record first claimed each dedupe hash.
type HashSet interface {
	// Claim registers hash for recordID unless another record holds it, and returns the holder.
	Claim(ctx context.Context, hash, recordID string) (owner string, err error)
	Reset(ctx context.Context) error
}

// MemoryHashSet is the default in-process HashSet.
type MemoryHashSet struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewMemoryHashSet() *MemoryHashSet {
	return &MemoryHashSet{seen: make(map[string]string)}
}

func (s *MemoryHashSet) Claim(_ context.Context, hash, recordID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.seen[hash]; ok {
		return owner, nil
	}
	s.seen[hash] = recordID
	return recordID, nil
}

func (s *MemoryHashSet) Reset(context.Context) error {
	s.mu.Lock()
	s.seen = make(map[string]string)
	s.mu.Unlock()
	return nil
}

// Len reports how many hashes are held.
func (s *MemoryHashSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
