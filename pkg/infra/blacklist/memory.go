package blacklist

import (
	"context"
	"sort"
	"sync"

	"github.com/perspectron/perspectron/pkg/domain/blacklist"
)

// MemoryStore keeps the phrase set in process memory behind a mutex. Used
// when neither redis nor the database is configured; the set is lost on
// restart.
type MemoryStore struct {
	mu      sync.RWMutex
	phrases map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{phrases: make(map[string]struct{})}
}

var _ blacklist.Store = (*MemoryStore)(nil)

func (s *MemoryStore) Add(ctx context.Context, phrase string) (bool, error) {
	phrase = normalizePhrase(phrase)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.phrases[phrase]; exists {
		return false, nil
	}
	s.phrases[phrase] = struct{}{}
	return true, nil
}

func (s *MemoryStore) Remove(ctx context.Context, phrase string) (bool, error) {
	phrase = normalizePhrase(phrase)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.phrases[phrase]; !exists {
		return false, nil
	}
	delete(s.phrases, phrase)
	return true, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	phrases := make([]string, 0, len(s.phrases))
	for phrase := range s.phrases {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)
	return phrases, nil
}

func (s *MemoryStore) Matches(ctx context.Context, text string) ([]string, error) {
	phrases, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return matchPhrases(text, phrases)
}
