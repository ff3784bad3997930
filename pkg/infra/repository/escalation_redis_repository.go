package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/perspectron/perspectron/pkg/domain"
	"github.com/perspectron/perspectron/pkg/domain/moderation"
)

const (
	reportKeyPattern   = "moderation:report:%s"
	resolvedKeyPattern = "moderation:report:%s:resolved"

	// Open reports older than this are assumed abandoned.
	reportTTL = 7 * 24 * time.Hour
)

// RedisEscalationRepository indexes open reports in redis so reports survive
// a bot restart. The resolved guard key is written with SETNX, which gives
// the first-writer-wins semantics for concurrent moderator reactions.
type RedisEscalationRepository struct {
	client *redis.Client
}

func NewRedisEscalationRepository(client *redis.Client) *RedisEscalationRepository {
	return &RedisEscalationRepository{client: client}
}

var _ moderation.Repository = (*RedisEscalationRepository)(nil)

func (r *RedisEscalationRepository) Save(ctx context.Context, record *moderation.EscalationRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation record: %w", err)
	}
	key := fmt.Sprintf(reportKeyPattern, record.ReportMessageID)
	if err := r.client.Set(ctx, key, payload, reportTTL).Err(); err != nil {
		return fmt.Errorf("failed to store escalation record: %w", err)
	}
	return nil
}

func (r *RedisEscalationRepository) FindByReportMessageID(ctx context.Context, reportMessageID string) (*moderation.EscalationRecord, error) {
	key := fmt.Sprintf(reportKeyPattern, reportMessageID)
	payload, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrResolutionTargetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch escalation record: %w", err)
	}
	var record moderation.EscalationRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal escalation record: %w", err)
	}
	return &record, nil
}

func (r *RedisEscalationRepository) MarkResolved(ctx context.Context, reportMessageID string, action moderation.Action) (*moderation.EscalationRecord, error) {
	record, err := r.FindByReportMessageID(ctx, reportMessageID)
	if err != nil {
		return nil, err
	}

	guardKey := fmt.Sprintf(resolvedKeyPattern, reportMessageID)
	won, err := r.client.SetNX(ctx, guardKey, string(action), reportTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to set resolution guard: %w", err)
	}
	if !won {
		return nil, domain.ErrDuplicateResolution
	}

	if err := record.Resolve(action); err != nil {
		return nil, err
	}
	if err := r.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
