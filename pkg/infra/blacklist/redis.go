package blacklist

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/perspectron/perspectron/pkg/domain/blacklist"
)

const phrasesKey = "moderation:blacklist"

// RedisStore keeps the phrase set in a redis set so the list survives
// restarts and can be shared across bot instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var _ blacklist.Store = (*RedisStore)(nil)

func (s *RedisStore) Add(ctx context.Context, phrase string) (bool, error) {
	added, err := s.client.SAdd(ctx, phrasesKey, normalizePhrase(phrase)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to add blacklist phrase: %w", err)
	}
	return added > 0, nil
}

func (s *RedisStore) Remove(ctx context.Context, phrase string) (bool, error) {
	removed, err := s.client.SRem(ctx, phrasesKey, normalizePhrase(phrase)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove blacklist phrase: %w", err)
	}
	return removed > 0, nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	phrases, err := s.client.SMembers(ctx, phrasesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list blacklist phrases: %w", err)
	}
	sort.Strings(phrases)
	return phrases, nil
}

func (s *RedisStore) Matches(ctx context.Context, text string) ([]string, error) {
	phrases, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return matchPhrases(text, phrases)
}
